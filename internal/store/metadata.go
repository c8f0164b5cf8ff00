package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/exambuilder/internal/model"
)

const examTypesKey = "exam_types"

// SetMetadata upserts a key-value pair in the exam_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO exam_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM exam_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetImportedFileHash returns the hash recorded for an imported file.
func (s *Store) GetImportedFileHash(path string) (string, error) {
	return s.GetMetadata("file_hash:" + path)
}

// SetImportedFileHash records the hash of an imported file.
func (s *Store) SetImportedFileHash(path, hash string) error {
	return s.SetMetadata("file_hash:"+path, hash)
}

// SetExamTypes replaces the exam-type catalog.
func (s *Store) SetExamTypes(c model.ExamTypeCatalog) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode exam types: %w", err)
	}
	return s.SetMetadata(examTypesKey, string(data))
}

// ExamTypes returns the exam-type catalog, or nil if none was imported.
func (s *Store) ExamTypes() (*model.ExamTypeCatalog, error) {
	raw, err := s.GetMetadata(examTypesKey)
	if err != nil || raw == "" {
		return nil, err
	}
	var c model.ExamTypeCatalog
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("decode exam types: %w", err)
	}
	return &c, nil
}

// HasExamType reports whether id appears in the catalog. An empty catalog
// accepts any id.
func (s *Store) HasExamType(id string) (bool, error) {
	c, err := s.ExamTypes()
	if err != nil {
		return false, err
	}
	if c == nil {
		return true, nil
	}
	for _, cat := range c.Categories {
		for _, t := range cat.Exams {
			if t.ID == id {
				return true, nil
			}
		}
	}
	return false, nil
}
