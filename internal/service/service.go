// Package service holds the business rules for accounts, the movie catalog,
// reviews and the admin dashboard.  Services depend on small store
// interfaces satisfied by package repository and return apperr-classified
// errors; they never see HTTP types.
package service

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/movie-review-api/internal/model"
)

// UserStore is the persistence surface used by AccountService.
type UserStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	SetUsername(ctx context.Context, id uint64, username string) (bool, error)
}

// MovieStore is the persistence surface used by CatalogService.
type MovieStore interface {
	List(ctx context.Context) ([]model.Movie, error)
	Upsert(ctx context.Context, p model.MoviePatch) error
	GetByTitle(ctx context.Context, title string) (model.Movie, error)
	DeleteByTitle(ctx context.Context, title string) (int64, error)
	DeleteByID(ctx context.Context, id uint64) (int64, error)
}

// ReviewStore is the persistence surface used by ReviewService.
type ReviewStore interface {
	Create(ctx context.Context, title, username string, rating int, text string) (model.Review, error)
	List(ctx context.Context, title string) ([]model.Review, error)
}

// Counter counts the records of one collection.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// AuthorStatser aggregates reviews per author.
type AuthorStatser interface {
	AuthorStats(ctx context.Context, limit int) ([]model.AuthorStats, error)
}

// PasswordHasher derives and verifies one-way password hashes.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// ReviewEvents is notified after a review is stored.
type ReviewEvents interface {
	ReviewCreated(ctx context.Context, r model.Review) error
}

// NopEvents discards review events.
type NopEvents struct{}

func (NopEvents) ReviewCreated(context.Context, model.Review) error { return nil }

var validate = validator.New(validator.WithRequiredStructEnabled())

// invalid reports whether v fails its struct tags.
func invalid(v any) bool { return validate.Struct(v) != nil }
