package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/movie-review-api/internal/model"
)

type ContactRepo struct{ DB *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{DB: db} }

// Create stores a contact message and returns its ID.
func (r *ContactRepo) Create(ctx context.Context, c model.Contact) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO contacts (name,email,issue,description) VALUES (?,?,?,?)",
		c.Name, c.Email, c.Issue, c.Description)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
