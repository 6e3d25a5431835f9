// Package seatmap implements the pure seat-grid model shared by the booking
// path and the seat-selector state machine.  A session's seat universe is a
// rows×cols grid; seats are addressed as "<RowLetter><ColumnNumber>" with
// 1-indexed rows and columns ("A1", "B10").  Nothing in this package touches
// persistent state; everything is recomputed per call.
package seatmap

import (
	"errors"
	"sort"
	"strconv"
)

// ErrInvalidGeometry is returned when a grid has fewer than one row or
// column, or more rows than the single-letter labelling scheme can address.
var ErrInvalidGeometry = errors.New("seatmap: invalid geometry")

// maxRows bounds the grid to single-letter row labels 'A'..'Z'.  Business
// rules cap rows far lower (model.MaxSeatRows); this is the hard limit of
// the identifier format itself.
const maxRows = 26

// Status classifies a seat for rendering and selection purposes.
type Status int

const (
	Available Status = iota
	Occupied
	Selected
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case Occupied:
		return "occupied"
	case Selected:
		return "selected"
	default:
		return "available"
	}
}

// RowLabel converts a 1-indexed row number to its letter ("A" for row 1).
// It returns "" for rows outside [1, maxRows].
func RowLabel(row int) string {
	if row < 1 || row > maxRows {
		return ""
	}
	return string(rune('A' + row - 1))
}

// Label builds the seat identifier for a 1-indexed row and column.
func Label(row, col int) string {
	return RowLabel(row) + strconv.Itoa(col)
}

// EnumerateSeats produces the full ordered seat universe for a grid,
// row-major: A1..A<cols>, B1..  It returns exactly rows*cols identifiers or
// ErrInvalidGeometry when the grid cannot be addressed.  Callers enforce the
// business bounds upstream; this only rejects grids the identifier scheme
// cannot represent.
func EnumerateSeats(rows, cols int) ([]string, error) {
	if rows < 1 || cols < 1 || rows > maxRows {
		return nil, ErrInvalidGeometry
	}
	seats := make([]string, 0, rows*cols)
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			seats = append(seats, Label(r, c))
		}
	}
	return seats, nil
}

// Parse splits a seat identifier into its 1-indexed row and column.  The
// second return value is false when the label is not of the form
// <single uppercase letter><positive number without leading zeros>.
func Parse(label string) (row, col int, ok bool) {
	if len(label) < 2 {
		return 0, 0, false
	}
	r := label[0]
	if r < 'A' || r > 'Z' {
		return 0, 0, false
	}
	digits := label[1:]
	if digits[0] == '0' {
		return 0, 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, 0, false
	}
	return int(r-'A') + 1, n, true
}

// Contains reports whether the seat identifier addresses a seat inside the
// given grid.
func Contains(rows, cols int, label string) bool {
	r, c, ok := Parse(label)
	return ok && r >= 1 && r <= rows && c >= 1 && c <= cols
}

// Classify derives the render status of a seat from the occupied and
// selected sets.  Occupancy always wins: a seat present in both sets is
// reported Occupied, matching the rule that selection attempts on occupied
// seats are no-ops.
func Classify(label string, occupied, selected map[string]bool) Status {
	if occupied[label] {
		return Occupied
	}
	if selected[label] {
		return Selected
	}
	return Available
}

// Dedupe returns the seats with duplicates removed, preserving first-seen
// order.  The booking path applies it defensively even though clients are
// expected to submit unique seats.
func Dedupe(seats []string) []string {
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SortLabels orders seat identifiers by row then column (A2 before A10,
// A10 before B1).  Labels that fail to parse sort lexicographically after
// valid ones; they should not occur but must not panic.
func SortLabels(seats []string) {
	sort.Slice(seats, func(i, j int) bool {
		ri, ci, oki := Parse(seats[i])
		rj, cj, okj := Parse(seats[j])
		if oki && okj {
			if ri != rj {
				return ri < rj
			}
			return ci < cj
		}
		if oki != okj {
			return oki
		}
		return seats[i] < seats[j]
	})
}
