package model

import "time"

// Movie is a catalog entry from the `movies` table.  Title is the primary
// identifier for every write except single-record deletion.
type Movie struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Image       *string   `json:"image,omitempty"` // bare poster filename
	Description *string   `json:"description,omitempty"`
	Director    *string   `json:"director,omitempty"`
	Year        *int      `json:"year,omitempty"`
	Genre       *string   `json:"genre,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MoviePatch is a partial movie keyed by title.  A nil field means "not
// supplied" and leaves the stored value untouched on upsert.
type MoviePatch struct {
	Title       string  `json:"-"`
	Image       *string `json:"image"`
	Description *string `json:"description"`
	Director    *string `json:"director"`
	Year        *int    `json:"year"`
	Genre       *string `json:"genre"`
}
