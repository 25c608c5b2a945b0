package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// submissionStore records accepted submissions in a WAL-mode SQLite database
// so operators can audit solved work after the fact. Failures here never
// reject a submission.
type submissionStore struct {
	db *sql.DB
}

func newSubmissionStore(path string) (*submissionStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path+"?_journal=WAL")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			fields TEXT NOT NULL,
			received_at INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &submissionStore{db: db}, nil
}

func (s *submissionStore) record(fields string) error {
	_, err := s.db.Exec(
		`INSERT INTO submissions (fields, received_at) VALUES (?, ?)`,
		fields, time.Now().Unix(),
	)
	return err
}

func (s *submissionStore) count() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM submissions`).Scan(&n)
	return n, err
}

func (s *submissionStore) Close() error {
	return s.db.Close()
}
