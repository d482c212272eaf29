// Package queue carries review events over RabbitMQ: a publisher used by the
// review service and a background consumer that writes an audit log.
package queue

import (
	"fmt"
	"time"

	"github.com/iliyamo/movie-review-api/internal/model"
)

// ReviewCreatedEvent is published after a review is stored.
type ReviewCreatedEvent struct {
	ReviewID  uint64 `json:"review_id"`
	Title     string `json:"title"`
	Username  string `json:"username"`
	Rating    int    `json:"rating"`
	CreatedAt string `json:"created_at"`
}

func newReviewCreatedEvent(r model.Review) ReviewCreatedEvent {
	return ReviewCreatedEvent{
		ReviewID:  r.ID,
		Title:     r.Title,
		Username:  r.Username,
		Rating:    r.Rating,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// logLine renders the event as one line of logs/reviews.log.
func (ev ReviewCreatedEvent) logLine() string {
	return fmt.Sprintf("[%s] Review created | review_id=%d | title=%q | username=%q | rating=%d\n",
		ev.CreatedAt, ev.ReviewID, ev.Title, ev.Username, ev.Rating)
}
