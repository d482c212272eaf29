package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/movie-review-api/internal/database"
	"github.com/iliyamo/movie-review-api/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,first_name,last_name,username,email,password_hash,created_at,updated_at"

// Create inserts a user and returns its ID.  Username and email must already
// be normalized.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (first_name,last_name,username,email,password_hash) VALUES (?,?,?,?,?)",
		u.FirstName, u.LastName, u.Username, u.Email, u.PasswordHash)
	if err != nil {
		return 0, mapUserWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

// UsernameExists reports whether any record holds username.
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE username=? LIMIT 1", username).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SetUsername assigns username to a legacy record.  It only touches rows that
// still have no username, so the assignment happens at most once; the
// boolean is false when another writer got there first.
func (r *UserRepo) SetUsername(ctx context.Context, id uint64, username string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET username=? WHERE id=? AND (username IS NULL OR username='')",
		username, id)
	if err != nil {
		return false, mapUserWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Count returns the number of user records.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (model.User, error) {
	var u model.User
	var first, last, username, email sql.NullString
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &first, &last, &username, &email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, notFound(err)
	}
	u.FirstName = nullString(first)
	u.LastName = nullString(last)
	u.Username = nullString(username)
	u.Email = nullString(email)
	return u, nil
}

func mapUserWriteErr(err error) error {
	msg, ok := duplicateIndex(err)
	if !ok {
		return err
	}
	switch {
	case mentions(msg, database.IndexUsersEmail):
		return ErrDuplicateEmail
	case mentions(msg, database.IndexUsersUsername):
		return ErrDuplicateUsername
	}
	return fmt.Errorf("duplicate user: %w", err)
}
