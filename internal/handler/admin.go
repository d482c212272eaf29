package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-review-api/internal/model"
	"github.com/iliyamo/movie-review-api/internal/service"
)

// Admin issues the admin token and builds the dashboard stats.
type Admin interface {
	Login(username, password string) (service.AdminToken, error)
	Stats(ctx context.Context) (model.Stats, error)
}

type AdminHandler struct {
	Admin   Admin
	Timeout time.Duration
}

func NewAdminHandler(a Admin, timeout time.Duration) *AdminHandler {
	return &AdminHandler{Admin: a, Timeout: timeout}
}

type adminLoginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login: POST /api/admin/login -> 200 {token}.
func (h *AdminHandler) Login(c echo.Context) error {
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	tok, err := h.Admin.Login(req.Username, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, tok)
}

// Stats: GET /api/admin/stats.
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	st, err := h.Admin.Stats(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
