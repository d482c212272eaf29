package handler

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-review-api/internal/database"
)

type HealthHandler struct {
	DB     *sql.DB
	DBName string
}

func NewHealthHandler(db *sql.DB, dbName string) *HealthHandler {
	return &HealthHandler{DB: db, DBName: dbName}
}

type healthResp struct {
	Server   string  `json:"server"`
	Database string  `json:"database"`
	Mongo    string  `json:"mongo"` // same state under the key older clients read
	DBName   *string `json:"dbName"`
}

// Health always answers 200; the database state is informational.
func (h *HealthHandler) Health(c echo.Context) error {
	state := database.State(c.Request().Context(), h.DB)
	resp := healthResp{Server: "ok", Database: state, Mongo: state}
	if h.DBName != "" {
		resp.DBName = &h.DBName
	}
	return c.JSON(http.StatusOK, resp)
}
