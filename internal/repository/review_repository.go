package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/movie-review-api/internal/model"
)

type ReviewRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db, now: time.Now} }

const reviewColumns = "id,title,username,rating,text,created_at,updated_at"

// Create inserts a review.  Timestamps are taken at microsecond precision
// to match the DATETIME(6) columns, so the returned record equals what a
// later List reads back.
func (r *ReviewRepo) Create(ctx context.Context, title, username string, rating int, text string) (model.Review, error) {
	now := r.now().UTC().Truncate(time.Microsecond)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (title,username,rating,text,created_at,updated_at) VALUES (?,?,?,?,?,?)",
		title, username, rating, text, now, now)
	if err != nil {
		if isCheckViolation(err) {
			return model.Review{}, ErrRatingOutOfRange
		}
		return model.Review{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Review{}, err
	}
	return model.Review{
		ID:        uint64(id),
		Title:     title,
		Username:  username,
		Rating:    rating,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// List returns reviews newest first, optionally restricted to one title.
// id breaks ties between rows written in the same microsecond.
func (r *ReviewRepo) List(ctx context.Context, title string) ([]model.Review, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if title != "" {
		rows, err = r.DB.QueryContext(ctx,
			"SELECT "+reviewColumns+" FROM reviews WHERE title=? ORDER BY created_at DESC, id DESC", title)
	} else {
		rows, err = r.DB.QueryContext(ctx,
			"SELECT "+reviewColumns+" FROM reviews ORDER BY created_at DESC, id DESC")
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []model.Review{}
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.Title, &rv.Username, &rv.Rating, &rv.Text, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// Count returns the number of reviews.
func (r *ReviewRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews").Scan(&n)
	return n, err
}

// AuthorStats groups reviews by username and returns the most prolific
// authors first, at most limit of them.
func (r *ReviewRepo) AuthorStats(ctx context.Context, limit int) ([]model.AuthorStats, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT username, COUNT(*) AS reviews, AVG(rating) AS avg_rating FROM reviews GROUP BY username ORDER BY reviews DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AuthorStats{}
	for rows.Next() {
		var s model.AuthorStats
		if err := rows.Scan(&s.Username, &s.Reviews, &s.AvgRating); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
