package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-review-api/internal/apperr"
	"github.com/iliyamo/movie-review-api/internal/model"
	"github.com/iliyamo/movie-review-api/internal/repository"
)

const (
	msgReviewRequired = "title, username, and rating are required"
	msgRatingRange    = "rating must be an integer between 1 and 5"
	msgLoadReviews    = "Failed to load reviews"
	msgAddReview      = "Failed to add review"
)

// ReviewInput is a review submission.  Title and Username are taken as sent;
// neither is checked against the movie or user collections.
type ReviewInput struct {
	Title    string `validate:"required"`
	Username string `validate:"required"`
	Rating   model.LooseNumber
	Text     string
}

type ReviewService struct {
	reviews ReviewStore
	events  ReviewEvents
	log     zerolog.Logger
}

func NewReviewService(reviews ReviewStore, events ReviewEvents, log zerolog.Logger) *ReviewService {
	if events == nil {
		events = NopEvents{}
	}
	return &ReviewService{reviews: reviews, events: events, log: log}
}

// ListReviews returns reviews newest first, all of them when title is empty.
func (s *ReviewService) ListReviews(ctx context.Context, title string) ([]model.Review, error) {
	reviews, err := s.reviews.List(ctx, title)
	if err != nil {
		return nil, apperr.Infra(msgLoadReviews, err)
	}
	return reviews, nil
}

// CreateReview stores a review.  A rating of 0 counts as missing.  The
// review-created event is best effort: a publish failure is logged and the
// review is still returned.
func (s *ReviewService) CreateReview(ctx context.Context, in ReviewInput) (model.Review, error) {
	if invalid(in) || !in.Rating.Truthy {
		return model.Review{}, apperr.Validation(msgReviewRequired)
	}
	rating, ok := in.Rating.Int()
	if !ok || rating < 1 || rating > 5 {
		return model.Review{}, apperr.Validation(msgRatingRange)
	}

	rv, err := s.reviews.Create(ctx, in.Title, in.Username, rating, in.Text)
	if errors.Is(err, repository.ErrRatingOutOfRange) {
		return model.Review{}, apperr.Validation(msgRatingRange)
	}
	if err != nil {
		return model.Review{}, apperr.Infra(msgAddReview, err)
	}

	if err := s.events.ReviewCreated(ctx, rv); err != nil {
		s.log.Warn().Err(err).Uint64("review_id", rv.ID).Msg("publish review event failed")
	}
	return rv, nil
}
