package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Unique index names.  The repositories match duplicate-key errors against
// these to tell which constraint fired.
const (
	IndexUsersUsername = "uq_users_username"
	IndexUsersEmail    = "uq_users_email"
	IndexMoviesTitle   = "uq_movies_title"
)

// tableCollation compares strings byte for byte: "Alien" and "alien" are
// different titles, ORDER BY title follows the stored bytes, and "josé" does
// not collide with "jose".  Usernames and emails are lowercased before they
// are written, which is all the case folding they need.
const tableCollation = "utf8mb4_bin"

// username and email are nullable so rows predating the username column can
// exist; MySQL unique indexes admit any number of NULLs.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		first_name    VARCHAR(255) NULL,
		last_name     VARCHAR(255) NULL,
		username      VARCHAR(64)  NULL,
		email         VARCHAR(255) NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		UNIQUE KEY ` + IndexUsersUsername + ` (username),
		UNIQUE KEY ` + IndexUsersEmail + ` (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=` + tableCollation,
	`CREATE TABLE IF NOT EXISTS movies (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title       VARCHAR(255) NOT NULL,
		image       VARCHAR(512) NULL,
		description TEXT         NULL,
		director    VARCHAR(255) NULL,
		year        INT          NULL,
		genre       VARCHAR(128) NULL,
		created_at  DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at  DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		UNIQUE KEY ` + IndexMoviesTitle + ` (title)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=` + tableCollation,
	`CREATE TABLE IF NOT EXISTS reviews (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		title      VARCHAR(255)  NOT NULL,
		username   VARCHAR(64)   NOT NULL,
		rating     TINYINT       NOT NULL,
		text       VARCHAR(4000) NOT NULL DEFAULT '',
		created_at DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		CONSTRAINT ck_reviews_rating CHECK (rating BETWEEN 1 AND 5),
		KEY ix_reviews_title_created (title, created_at),
		KEY ix_reviews_created (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=` + tableCollation,
	`CREATE TABLE IF NOT EXISTS contacts (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(255) NULL,
		email       VARCHAR(255) NULL,
		issue       VARCHAR(255) NULL,
		description TEXT         NULL,
		created_at  DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=` + tableCollation,
}

// Migrate creates the tables if they do not exist.  It is safe to run on
// every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// EnsureSchema runs Migrate until it succeeds or ctx ends, waiting interval
// between attempts.  It lets the server start before MySQL is reachable and
// still create the tables once it is.  onErr, when set, sees each failure.
func EnsureSchema(ctx context.Context, db *sql.DB, interval time.Duration, onErr func(error)) error {
	for {
		err := Migrate(ctx, db)
		if err == nil {
			return nil
		}
		if onErr != nil {
			onErr(err)
		}
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
