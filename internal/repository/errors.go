// Package repository implements persistence for users, movies and reviews on
// database/sql.  Uniqueness is enforced by the unique indexes created in
// package database; the sentinel errors below report which constraint
// rejected a write so higher layers can distinguish failures without
// parsing driver messages.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned by single-record lookups that match nothing.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail and ErrDuplicateUsername signal that the users unique
// indexes rejected a write.  Handlers should translate these into 409.
var (
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
)

// ErrRatingOutOfRange is returned when the reviews rating check constraint
// rejects an insert.
var ErrRatingOutOfRange = errors.New("rating out of range")

const (
	errDupEntry        = 1062
	errCheckConstraint = 3819
)

// duplicateIndex reports the unique index named in a 1062 error.
func duplicateIndex(err error) (string, bool) {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != errDupEntry {
		return "", false
	}
	return me.Message, true
}

func isCheckViolation(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errCheckConstraint
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func mentions(msg, index string) bool { return strings.Contains(msg, index) }

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}
