package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open parses dsn, forces parseTime and UTC so DATETIME columns scan into
// time.Time consistently, and returns a pooled handle together with the
// database name for diagnostics.  The ping error is returned alongside a
// usable handle: callers may keep serving and let individual queries fail.
func Open(dsn string) (*sql.DB, string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("parse dsn: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC
	if mc.Params == nil {
		mc.Params = map[string]string{}
	}
	if _, ok := mc.Params["charset"]; !ok {
		mc.Params["charset"] = "utf8mb4"
	}

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, "", fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return db, mc.DBName, fmt.Errorf("ping: %w", err)
	}
	return db, mc.DBName, nil
}

// Connection states reported by the health endpoint.
const (
	StateConnected    = "connected"
	StateDisconnected = "disconnected"
)

// State pings db with a short timeout and reports its connection state.
func State(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return StateDisconnected
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return StateDisconnected
	}
	return StateConnected
}
