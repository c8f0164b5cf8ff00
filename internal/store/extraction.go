package store

import (
	"time"

	"github.com/pavelanni/exambuilder/internal/model"
)

// AddExtraction records an extraction attempt, successful or not.
func (s *Store) AddExtraction(e model.Extraction) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO extractions (slug, question_id, image_url, json_schema, result_json, model_used, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Slug, e.QuestionID, e.ImageURL, e.Schema, e.Result, e.ModelUsed, e.Error, e.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListExtractions returns the extractions of one exam in insertion order.
func (s *Store) ListExtractions(slug string) ([]model.Extraction, error) {
	rows, err := s.db.Query(
		`SELECT id, slug, question_id, image_url, json_schema, result_json, model_used, error, created_at
		 FROM extractions WHERE slug = ? ORDER BY id`, slug,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Extraction
	for rows.Next() {
		var e model.Extraction
		if err := rows.Scan(&e.ID, &e.Slug, &e.QuestionID, &e.ImageURL, &e.Schema, &e.Result, &e.ModelUsed, &e.Error, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LatestExtraction returns the most recent successful extraction of a
// question, or nil.
func (s *Store) LatestExtraction(slug, questionID string) (*model.Extraction, error) {
	rows, err := s.db.Query(
		`SELECT id, slug, question_id, image_url, json_schema, result_json, model_used, error, created_at
		 FROM extractions WHERE slug = ? AND question_id = ? AND error = ''
		 ORDER BY id DESC LIMIT 1`, slug, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	var e model.Extraction
	if err := rows.Scan(&e.ID, &e.Slug, &e.QuestionID, &e.ImageURL, &e.Schema, &e.Result, &e.ModelUsed, &e.Error, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
