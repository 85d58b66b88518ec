package credentials

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY CHECK(length(username) > 0 AND length(username) <= 32),
	password TEXT NOT NULL
);`

// LoadSQLite opens (or creates) a SQLite user database and loads all
// credentials into memory. The database is closed again before
// returning: the server only ever verifies against the startup
// snapshot.
func LoadSQLite(path string) (*Static, error) {
	db, err := openUserDB(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	rows, err := db.QueryContext(ctx, `SELECT username, password FROM users`)
	if err != nil {
		return nil, fmt.Errorf("credentials: query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := make(map[string]string)
	for rows.Next() {
		var username, password string
		if err := rows.Scan(&username, &password); err != nil {
			return nil, fmt.Errorf("credentials: scan user: %w", err)
		}
		users[username] = password
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("credentials: iterate users: %w", err)
	}
	return &Static{users: users}, nil
}

// PutSQLite inserts or replaces a user in a SQLite user database.
// Used by the confab-passwd provisioning tool, never by the running
// server.
func PutSQLite(path, username, stored string) error {
	db, err := openUserDB(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(context.Background(),
		`INSERT INTO users (username, password) VALUES (?, ?)
		 ON CONFLICT(username) DO UPDATE SET password = excluded.password`,
		username, stored)
	if err != nil {
		return fmt.Errorf("credentials: put user: %w", err)
	}
	return nil
}

func openUserDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("credentials: open DB: %w", err)
	}

	ctx := context.Background()
	// Busy timeout avoids "database is locked" when a provisioning tool
	// runs alongside server startup.
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("credentials: set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, usersSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("credentials: migrate: %w", err)
	}
	return db, nil
}
