// Package results reads evaluation results for the dashboard.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const indexFile = "index.json"

var (
	// ErrNotFound is returned for a missing index or result file.
	ErrNotFound = errors.New("result not found")
	// ErrInvalidName is returned for names that are not plain .json files.
	ErrInvalidName = errors.New("invalid result file name")
)

// Index is the dashboard listing in index.json.
type Index struct {
	Metadata IndexMetadata `json:"metadata"`
	Results  []Entry       `json:"results"`
}

// IndexMetadata describes who generated the index and when.
type IndexMetadata struct {
	GeneratedOn string `json:"generated_on"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
}

// Entry is one evaluation run.
type Entry struct {
	Exam          string  `json:"exam"`
	Model         string  `json:"model"`
	Provider      string  `json:"provider"`
	Accuracy      float64 `json:"accuracy"`
	Score         float64 `json:"score"`
	TotalPossible float64 `json:"total_possible"`
	Questions     int     `json:"questions"`
	Time          float64 `json:"time"`
	Date          string  `json:"date"`
	IsBest        bool    `json:"is_best"`
	Results       string  `json:"results"`
}

// ParsedDate parses Date, accepting RFC 3339 with or without a zone.
func (e Entry) ParsedDate() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, e.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Repository reads results from a directory.
type Repository struct {
	dir string
}

// NewRepository creates a repository over dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Index loads index.json.
func (r *Repository) Index() (*Index, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, indexFile)
	}
	if err != nil {
		return nil, fmt.Errorf("read results index: %w", err)
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse results index: %w", err)
	}
	return &idx, nil
}

// File returns the raw contents of a result file. Only plain .json file
// names inside the results directory are served.
func (r *Repository) File(name string) (json.RawMessage, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read result file: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("result file %s is not valid JSON", name)
	}
	return data, nil
}

// ValidName reports whether name is a bare .json file name.
func ValidName(name string) bool {
	return strings.HasSuffix(name, ".json") &&
		name != indexFile &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.HasPrefix(name, ".") &&
		filepath.Base(name) == name
}
