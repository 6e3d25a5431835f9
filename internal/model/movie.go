package model

import "time"

// Rating is the content classification assigned to a movie.  The values
// mirror the Brazilian classification system used by the back office:
// LIVRE (unrestricted) followed by the minimum ages 10 through 18.
type Rating string

const (
	RatingLivre Rating = "LIVRE"
	Rating10    Rating = "10"
	Rating12    Rating = "12"
	Rating14    Rating = "14"
	Rating16    Rating = "16"
	Rating18    Rating = "18"
)

// ValidRating reports whether s is one of the known classification values.
func ValidRating(s string) bool {
	switch Rating(s) {
	case RatingLivre, Rating10, Rating12, Rating14, Rating16, Rating18:
		return true
	}
	return false
}

// Movie represents a film in the catalogue.  Movies are created and edited
// by administrators and are soft-deactivated (IsActive=false) rather than
// deleted once sessions reference them.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – display title of the movie.
//  Synopsis    – short plot description.
//  DurationMin – runtime in minutes.
//  Genre       – free-form genre label.
//  Rating      – content classification (see Rating).
//  PosterURL   – optional reference to the poster image.
//  IsActive    – whether the movie is shown on the public site.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Movie struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Synopsis    string    `json:"synopsis"`
	DurationMin uint32    `json:"duration_min"`
	Genre       string    `json:"genre"`
	Rating      Rating    `json:"rating"`
	PosterURL   *string   `json:"poster_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
