package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/exambuilder/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'editor',
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS exams (
		slug TEXT PRIMARY KEY,
		exam_type TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		file_name TEXT NOT NULL,
		source_url TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS extractions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL,
		question_id TEXT NOT NULL,
		image_url TEXT NOT NULL,
		json_schema TEXT NOT NULL DEFAULT '',
		result_json TEXT NOT NULL DEFAULT '',
		model_used TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_extractions_slug ON extractions(slug, question_id);

	CREATE TABLE IF NOT EXISTS exam_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateExam registers an uploaded exam. Re-uploading a slug replaces the
// previous record.
func (s *Store) CreateExam(e model.ExamRecord) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO exams (slug, exam_type, year, file_name, source_url, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET exam_type = excluded.exam_type, year = excluded.year,
		   file_name = excluded.file_name, source_url = excluded.source_url,
		   created_by = excluded.created_by, created_at = excluded.created_at`,
		e.Slug, e.ExamType, e.Year, e.FileName, e.SourceURL, e.CreatedBy, e.CreatedAt,
	)
	return err
}

// GetExam returns the exam with the given slug, or nil if not found.
func (s *Store) GetExam(slug string) (*model.ExamRecord, error) {
	var e model.ExamRecord
	err := s.db.QueryRow(
		`SELECT slug, exam_type, year, file_name, source_url, created_by, created_at
		 FROM exams WHERE slug = ?`, slug,
	).Scan(&e.Slug, &e.ExamType, &e.Year, &e.FileName, &e.SourceURL, &e.CreatedBy, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListExams returns all exams, newest first.
func (s *Store) ListExams() ([]model.ExamRecord, error) {
	rows, err := s.db.Query(
		`SELECT slug, exam_type, year, file_name, source_url, created_by, created_at
		 FROM exams ORDER BY created_at DESC, slug`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var exams []model.ExamRecord
	for rows.Next() {
		var e model.ExamRecord
		if err := rows.Scan(&e.Slug, &e.ExamType, &e.Year, &e.FileName, &e.SourceURL, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// ExamCount returns the number of registered exams.
func (s *Store) ExamCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM exams`).Scan(&count)
	return count, err
}
