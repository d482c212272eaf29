package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-review-api/internal/model"
	"github.com/iliyamo/movie-review-api/internal/service"
)

// Contacts stores contact form messages.
type Contacts interface {
	Submit(ctx context.Context, in service.ContactInput) (model.Contact, error)
}

type ContactHandler struct {
	Contacts Contacts
	Timeout  time.Duration
}

func NewContactHandler(c Contacts, timeout time.Duration) *ContactHandler {
	return &ContactHandler{Contacts: c, Timeout: timeout}
}

// contactReq binds both JSON bodies and the urlencoded contact form.
type contactReq struct {
	Name        string `json:"name" form:"name"`
	Email       string `json:"email" form:"email"`
	Issue       string `json:"issue" form:"issue"`
	Description string `json:"description" form:"description"`
}

// Submit: POST /api/contact (also /contact_action) -> 201 with the message.
func (h *ContactHandler) Submit(c echo.Context) error {
	var req contactReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	msg, err := h.Contacts.Submit(ctx, service.ContactInput{
		Name:        req.Name,
		Email:       req.Email,
		Issue:       req.Issue,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}
