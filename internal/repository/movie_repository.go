package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-review-api/internal/model"
)

type MovieRepo struct{ DB *sql.DB }

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{DB: db} }

const movieColumns = "id,title,image,description,director,year,genre,created_at,updated_at"

// Upsert inserts the movie or merges the supplied fields into the row with
// the same title.  NULL (nil) fields keep the stored value; the title unique
// index makes the statement atomic against concurrent writers.
const upsertMovieSQL = `INSERT INTO movies (title,image,description,director,year,genre) VALUES (?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
	image=COALESCE(VALUES(image),image),
	description=COALESCE(VALUES(description),description),
	director=COALESCE(VALUES(director),director),
	year=COALESCE(VALUES(year),year),
	genre=COALESCE(VALUES(genre),genre),
	updated_at=CURRENT_TIMESTAMP(6)`

func (r *MovieRepo) Upsert(ctx context.Context, p model.MoviePatch) error {
	_, err := r.DB.ExecContext(ctx, upsertMovieSQL,
		p.Title, p.Image, p.Description, p.Director, p.Year, p.Genre)
	return err
}

// List returns all movies ordered by title.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+movieColumns+" FROM movies ORDER BY title ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := []model.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

// GetByTitle fetches a movie by exact title.
func (r *MovieRepo) GetByTitle(ctx context.Context, title string) (model.Movie, error) {
	m, err := scanMovie(r.DB.QueryRowContext(ctx,
		"SELECT "+movieColumns+" FROM movies WHERE title=? LIMIT 1", title))
	if err != nil {
		return model.Movie{}, notFound(err)
	}
	return m, nil
}

// DeleteByTitle removes at most one movie and returns the affected count.
func (r *MovieRepo) DeleteByTitle(ctx context.Context, title string) (int64, error) {
	return r.deleteOne(ctx, "DELETE FROM movies WHERE title=? LIMIT 1", title)
}

// DeleteByID removes at most one movie and returns the affected count.
func (r *MovieRepo) DeleteByID(ctx context.Context, id uint64) (int64, error) {
	return r.deleteOne(ctx, "DELETE FROM movies WHERE id=? LIMIT 1", id)
}

// Count returns the number of movies.
func (r *MovieRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM movies").Scan(&n)
	return n, err
}

func (r *MovieRepo) deleteOne(ctx context.Context, query string, arg any) (int64, error) {
	res, err := r.DB.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(s rowScanner) (model.Movie, error) {
	var m model.Movie
	var image, description, director, genre sql.NullString
	var year sql.NullInt64
	if err := s.Scan(&m.ID, &m.Title, &image, &description, &director, &year, &genre, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return model.Movie{}, err
	}
	m.Image = nullString(image)
	m.Description = nullString(description)
	m.Director = nullString(director)
	m.Year = nullInt(year)
	m.Genre = nullString(genre)
	return m, nil
}
