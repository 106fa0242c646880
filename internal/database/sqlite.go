// Package database provides SQLite persistence for provider accounts, profiles
// and sessions.
package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) *SQLiteStore {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("failed to connect to database: %v\n", err)
	}

	// every connection to ":memory:" is its own database, and SQLite
	// serializes writers anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Fatalf("failed to init database schema: couldn't enable foreign keys: %v\n", err)
	}

	if err := initSchema(db); err != nil {
		log.Fatalf("failed to init database: %v\n", err)
	}

	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	if err := initTable(db, "account", `
		CREATE TABLE IF NOT EXISTS account (
			id          INTEGER PRIMARY KEY,
			uid         TEXT UNIQUE NOT NULL,
			email       TEXT UNIQUE NOT NULL,
			secret      BLOB NOT NULL,
			created     INTEGER NOT NULL
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "profile", `
		CREATE TABLE IF NOT EXISTS profile (
			id          INTEGER PRIMARY KEY,
			uid         TEXT UNIQUE NOT NULL,
			name        TEXT NOT NULL,
			email       TEXT UNIQUE NOT NULL,
			created     INTEGER NOT NULL
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "session", `
		CREATE TABLE IF NOT EXISTS session (
			id          TEXT PRIMARY KEY,
			owner       INTEGER NOT NULL,
			created     INTEGER NOT NULL,
			expiration  INTEGER NOT NULL,
			FOREIGN KEY (owner) REFERENCES profile (id) ON DELETE CASCADE
		);`,
	); err != nil {
		return err
	}

	return nil
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}

func resultsEmpty(result sql.Result) bool {
	count, err := result.RowsAffected()
	if err != nil {
		return false
	}
	return count == 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
