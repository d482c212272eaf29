package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iliyamo/movie-review-api/internal/apperr"
	"github.com/iliyamo/movie-review-api/internal/model"
	"github.com/iliyamo/movie-review-api/internal/repository"
)

const (
	msgTitleRequired  = "title required"
	msgLoadMovies     = "Failed to load movies"
	msgImportFailed   = "Import failed"
	msgAddMovie       = "Failed to add movie"
	msgUploadMovie    = "Failed to upload movie/poster"
	msgDeleteMovie    = "Failed to delete movie"
	msgYearNotNumeric = "year must be a number"
)

// PosterSaver stores an uploaded poster and returns the collision-free
// filename it was written under.
type PosterSaver interface {
	Save(originalName string, r io.Reader) (string, error)
}

// MovieInput is the admin form for creating or updating a movie.
type MovieInput struct {
	Title       string
	Year        model.LooseNumber
	Genre       string
	Description string
	Poster      string // poster reference, possibly prefixed with the posters path
}

// ImportResult reports how many entries an import upserted.
type ImportResult struct {
	Imported int `json:"imported"`
}

// DeleteResult reports how many movies a delete removed (0 or 1).
type DeleteResult struct {
	DeletedCount int64 `json:"deletedCount"`
}

type CatalogService struct {
	movies       MovieStore
	posters      PosterSaver
	posterPrefix *regexp.Regexp
	log          zerolog.Logger
}

// NewCatalogService builds the catalog.  postersRoute is the URL segment
// posters are served under (e.g. "Pictures"); references carrying it are
// reduced to a bare filename.
func NewCatalogService(movies MovieStore, posters PosterSaver, postersRoute string, log zerolog.Logger) *CatalogService {
	route := strings.Trim(postersRoute, "/")
	return &CatalogService{
		movies:       movies,
		posters:      posters,
		posterPrefix: regexp.MustCompile(`^/?` + regexp.QuoteMeta(route) + `/`),
		log:          log,
	}
}

// ListMovies returns every movie ordered by title.
func (s *CatalogService) ListMovies(ctx context.Context) ([]model.Movie, error) {
	movies, err := s.movies.List(ctx)
	if err != nil {
		return nil, apperr.Infra(msgLoadMovies, err)
	}
	return movies, nil
}

// importFile is the on-disk layout: {"movies": {"<title>": {...fields}}}.
type importFile struct {
	Movies map[string]importEntry `json:"movies"`
}

type importEntry struct {
	Image       *string            `json:"image"`
	Description *string            `json:"description"`
	Director    *string            `json:"director"`
	Year        *model.LooseNumber `json:"year"`
	Genre       *string            `json:"genre"`
}

// ImportFile reads path and imports its movies.
func (s *CatalogService) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, apperr.Infra(msgImportFailed, err)
	}
	defer f.Close()
	return s.Import(ctx, f)
}

// Import upserts every entry of the source by title.  Entries are applied in
// title order; there is no rollback, so entries written before a failure
// stay committed.
func (s *CatalogService) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	var src importFile
	if err := json.NewDecoder(r).Decode(&src); err != nil {
		return ImportResult{}, apperr.Infra(msgImportFailed, fmt.Errorf("parse: %w", err))
	}

	titles := make([]string, 0, len(src.Movies))
	for title := range src.Movies {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	for i, title := range titles {
		patch, err := src.Movies[title].patch(title)
		if err != nil {
			return ImportResult{}, apperr.Infra(msgImportFailed, fmt.Errorf("entry %q: %w", title, err))
		}
		if err := s.movies.Upsert(ctx, patch); err != nil {
			return ImportResult{}, apperr.Infra(msgImportFailed, fmt.Errorf("upsert %q after %d entries: %w", title, i, err))
		}
	}
	s.log.Info().Int("imported", len(titles)).Msg("movies imported")
	return ImportResult{Imported: len(titles)}, nil
}

func (e importEntry) patch(title string) (model.MoviePatch, error) {
	p := model.MoviePatch{
		Title:       strings.TrimSpace(title),
		Image:       e.Image,
		Description: e.Description,
		Director:    e.Director,
		Genre:       e.Genre,
	}
	if p.Title == "" {
		return model.MoviePatch{}, errors.New("empty title")
	}
	if e.Year != nil && e.Year.Truthy {
		y, ok := e.Year.Int()
		if !ok {
			return model.MoviePatch{}, errors.New(msgYearNotNumeric)
		}
		p.Year = &y
	}
	return p, nil
}

// AddOrUpdateMovie upserts an admin-supplied movie by title and returns the
// stored record.  Only truthy fields are written.
func (s *CatalogService) AddOrUpdateMovie(ctx context.Context, in MovieInput) (model.Movie, error) {
	patch, err := s.adminPatch(in)
	if err != nil {
		return model.Movie{}, err
	}
	if poster := strings.TrimSpace(in.Poster); poster != "" {
		image := s.posterPrefix.ReplaceAllString(poster, "")
		patch.Image = &image
	}
	return s.save(ctx, patch, msgAddMovie)
}

// UploadMoviePoster is AddOrUpdateMovie for multipart submissions: when a
// file is given it is stored first and its generated name becomes the
// movie's image.
func (s *CatalogService) UploadMoviePoster(ctx context.Context, in MovieInput, originalName string, file io.Reader) (model.Movie, error) {
	patch, err := s.adminPatch(in)
	if err != nil {
		return model.Movie{}, err
	}
	if file != nil {
		name, err := s.posters.Save(originalName, file)
		if err != nil {
			return model.Movie{}, apperr.Infra(msgUploadMovie, err)
		}
		patch.Image = &name
	}
	return s.save(ctx, patch, msgUploadMovie)
}

// DeleteMovie removes one movie by title when title is given, otherwise by
// id.  An id that is not a valid identifier matches nothing.
func (s *CatalogService) DeleteMovie(ctx context.Context, id, title string) (DeleteResult, error) {
	var (
		n   int64
		err error
	)
	if title = strings.TrimSpace(title); title != "" {
		n, err = s.movies.DeleteByTitle(ctx, title)
	} else {
		movieID, perr := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if perr != nil {
			return DeleteResult{}, nil
		}
		n, err = s.movies.DeleteByID(ctx, movieID)
	}
	if err != nil {
		return DeleteResult{}, apperr.Infra(msgDeleteMovie, err)
	}
	return DeleteResult{DeletedCount: n}, nil
}

func (s *CatalogService) adminPatch(in MovieInput) (model.MoviePatch, error) {
	p := model.MoviePatch{Title: strings.TrimSpace(in.Title)}
	if p.Title == "" {
		return model.MoviePatch{}, apperr.Validation(msgTitleRequired)
	}
	if in.Year.Truthy {
		y, ok := in.Year.Int()
		if !ok {
			return model.MoviePatch{}, apperr.Validation(msgYearNotNumeric)
		}
		p.Year = &y
	}
	p.Genre = optional(in.Genre)
	p.Description = optional(in.Description)
	return p, nil
}

func (s *CatalogService) save(ctx context.Context, p model.MoviePatch, failMsg string) (model.Movie, error) {
	if err := s.movies.Upsert(ctx, p); err != nil {
		return model.Movie{}, apperr.Infra(failMsg, err)
	}
	m, err := s.movies.GetByTitle(ctx, p.Title)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Movie{}, apperr.Infra(failMsg, fmt.Errorf("movie %q vanished after upsert", p.Title))
	}
	if err != nil {
		return model.Movie{}, apperr.Infra(failMsg, err)
	}
	return m, nil
}
