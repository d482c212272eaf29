package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-review-api/internal/model"
	"github.com/iliyamo/movie-review-api/internal/service"
)

// Reviews is the review side of the service layer.
type Reviews interface {
	ListReviews(ctx context.Context, title string) ([]model.Review, error)
	CreateReview(ctx context.Context, in service.ReviewInput) (model.Review, error)
}

type ReviewHandler struct {
	Reviews Reviews
	Timeout time.Duration
}

func NewReviewHandler(r Reviews, timeout time.Duration) *ReviewHandler {
	return &ReviewHandler{Reviews: r, Timeout: timeout}
}

type reviewReq struct {
	Title    string            `json:"title"`
	Username string            `json:"username"`
	Rating   model.LooseNumber `json:"rating"`
	Text     string            `json:"text"`
}

// List: GET /api/reviews?title=.
func (h *ReviewHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	reviews, err := h.Reviews.ListReviews(ctx, c.QueryParam("title"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, reviews)
}

// Create: POST /api/reviews -> 201 with the stored review.
func (h *ReviewHandler) Create(c echo.Context) error {
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	rv, err := h.Reviews.CreateReview(ctx, service.ReviewInput{
		Title:    req.Title,
		Username: req.Username,
		Rating:   req.Rating,
		Text:     req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, rv)
}
