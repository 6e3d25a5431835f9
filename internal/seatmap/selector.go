package seatmap

// Selector is the client-interaction state machine for picking seats on a
// session's grid.  Each seat is Available, Selected or Occupied; Toggle
// flips Available ⇄ Selected, Occupied seats ignore selection gestures, and
// Refresh replaces the occupancy snapshot when the server view changes.
// The zero value is not usable; construct with NewSelector.
type Selector struct {
	rows, cols int
	max        int // 0 = unlimited
	occupied   map[string]bool
	selected   map[string]bool
	order      []string // selection order, for stable output
}

// NewSelector builds a selector for a rows×cols grid with the given occupied
// seats.  maxSelection caps how many seats may be selected at once; zero
// means no cap.  ErrInvalidGeometry is returned for grids that
// EnumerateSeats would reject.
func NewSelector(rows, cols, maxSelection int, occupied []string) (*Selector, error) {
	if rows < 1 || cols < 1 || rows > maxRows {
		return nil, ErrInvalidGeometry
	}
	s := &Selector{
		rows:     rows,
		cols:     cols,
		max:      maxSelection,
		occupied: make(map[string]bool, len(occupied)),
		selected: make(map[string]bool),
	}
	for _, o := range occupied {
		s.occupied[o] = true
	}
	return s, nil
}

// Status returns the current classification of a seat.
func (s *Selector) Status(label string) Status {
	return Classify(label, s.occupied, s.selected)
}

// Toggle handles a selection gesture on a seat.  It reports whether the
// gesture changed any state: gestures on occupied seats, on seats outside
// the grid, or beyond the selection cap are no-ops.
func (s *Selector) Toggle(label string) bool {
	if !Contains(s.rows, s.cols, label) || s.occupied[label] {
		return false
	}
	if s.selected[label] {
		delete(s.selected, label)
		for i, l := range s.order {
			if l == label {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return true
	}
	if s.max > 0 && len(s.selected) >= s.max {
		return false
	}
	s.selected[label] = true
	s.order = append(s.order, label)
	return true
}

// Selected returns the currently selected seats in selection order.
func (s *Selector) Selected() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Refresh replaces the occupancy snapshot, typically after re-fetching the
// server's view.  Seats the user had selected that are now occupied are
// forcibly demoted and returned so the caller can surface a notice naming
// the lost seats; losing them silently is not acceptable.
func (s *Selector) Refresh(occupied []string) (displaced []string) {
	s.occupied = make(map[string]bool, len(occupied))
	for _, o := range occupied {
		s.occupied[o] = true
	}
	kept := s.order[:0]
	for _, l := range s.order {
		if s.occupied[l] {
			delete(s.selected, l)
			displaced = append(displaced, l)
			continue
		}
		kept = append(kept, l)
	}
	s.order = kept
	return displaced
}
