package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-review-api/internal/model"
	"github.com/iliyamo/movie-review-api/internal/service"
)

// Catalog is the movie side of the service layer.
type Catalog interface {
	ListMovies(ctx context.Context) ([]model.Movie, error)
	ImportFile(ctx context.Context, path string) (service.ImportResult, error)
	AddOrUpdateMovie(ctx context.Context, in service.MovieInput) (model.Movie, error)
	UploadMoviePoster(ctx context.Context, in service.MovieInput, originalName string, file io.Reader) (model.Movie, error)
	DeleteMovie(ctx context.Context, id, title string) (service.DeleteResult, error)
}

type MovieHandler struct {
	Catalog    Catalog
	ImportPath string
	Timeout    time.Duration
}

func NewMovieHandler(cat Catalog, importPath string, timeout time.Duration) *MovieHandler {
	return &MovieHandler{Catalog: cat, ImportPath: importPath, Timeout: timeout}
}

// movieReq is shared by the JSON and the multipart admin forms.
type movieReq struct {
	Title       string            `json:"title" form:"title"`
	Year        model.LooseNumber `json:"year" form:"year"`
	Genre       string            `json:"genre" form:"genre"`
	Description string            `json:"description" form:"description"`
	Poster      string            `json:"poster" form:"poster"`
}

func (r movieReq) input() service.MovieInput {
	return service.MovieInput{Title: r.Title, Year: r.Year, Genre: r.Genre, Description: r.Description, Poster: r.Poster}
}

// List: GET /api/movies.
func (h *MovieHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	movies, err := h.Catalog.ListMovies(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, movies)
}

// Import: POST /api/movies/import reads the configured source file.
func (h *MovieHandler) Import(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	res, err := h.Catalog.ImportFile(ctx, h.ImportPath)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Add: POST /api/admin/movies.
func (h *MovieHandler) Add(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	m, err := h.Catalog.AddOrUpdateMovie(ctx, req.input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// Upload: POST /api/admin/movies/upload, multipart with an optional
// "poster" file.
func (h *MovieHandler) Upload(c echo.Context) error {
	var req movieReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}

	var (
		file io.Reader
		name string
	)
	fh, err := c.FormFile("poster")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return badBody(c)
		}
		defer f.Close()
		file, name = f, fh.Filename
	case !errors.Is(err, http.ErrMissingFile):
		return badBody(c)
	}

	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	m, err := h.Catalog.UploadMoviePoster(ctx, req.input(), name, file)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// Delete: DELETE /api/admin/movies/:id, ?title= takes precedence over the id.
func (h *MovieHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	res, err := h.Catalog.DeleteMovie(ctx, c.Param("id"), c.QueryParam("title"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
