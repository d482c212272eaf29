package model

import "time"

// Review is an immutable user review.  Title and Username reference a movie
// and a user by value only; neither is checked against its collection.
type Review struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"` // 1..5 inclusive
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthorStats aggregates the reviews written by one username.
type AuthorStats struct {
	Username  string  `json:"username"`
	Reviews   int     `json:"reviews"`
	AvgRating float64 `json:"avgRating"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	UserCount   int           `json:"userCount"`
	ReviewCount int           `json:"reviewCount"`
	MovieCount  int           `json:"movieCount"`
	Users       []AuthorStats `json:"users"`
}
