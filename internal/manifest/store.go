// Package manifest stores per-exam processing manifests and page images,
// and turns uploaded PDFs into page images.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/pavelanni/exambuilder/internal/model"
)

const (
	manifestFile = "manifest.json"
	imagesDir    = "images"
	extractedDir = "extracted"
)

var (
	// ErrNotFound is returned when an exam has no manifest.
	ErrNotFound = errors.New("manifest not found")
	// ErrInvalidSlug is returned for slugs that cannot name a directory.
	ErrInvalidSlug = errors.New("invalid exam slug")
	// ErrInvalidPath is returned for asset paths escaping the exam directory.
	ErrInvalidPath = errors.New("invalid asset path")
	// ErrNoImages is returned when an exam has no images directory.
	ErrNoImages = errors.New("exam images not found")
)

// Kinds of page image reported by Images.
const (
	ImageFull  = "full_resolution"
	ImageThumb = "thumbnail"
)

// ImageFile is one rasterized page image on disk.
type ImageFile struct {
	Name string `json:"filename"`
	Type string `json:"type"`
	Path string `json:"path"`
}

var validSlug = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Store keeps one directory per exam under root.
type Store struct {
	root string
	mu   sync.Mutex
}

// NewStore creates a store rooted at the processing directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// ValidSlug reports whether slug can name an exam directory.
func ValidSlug(slug string) bool {
	return validSlug.MatchString(slug)
}

// ExamDir returns the processing directory of an exam.
func (s *Store) ExamDir(slug string) (string, error) {
	if !ValidSlug(slug) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return filepath.Join(s.root, slug), nil
}

// Create prepares the exam directory and writes the initial manifest.
func (s *Store) Create(meta model.ManifestMetadata) error {
	dir, err := s.ExamDir(meta.Slug)
	if err != nil {
		return err
	}
	for _, sub := range []string{imagesDir, extractedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	meta.ExamProcessingDir = dir

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(dir, &model.Manifest{Metadata: meta, Pages: []model.Page{}})
}

// Read loads the manifest of an exam.
func (s *Store) Read(slug string) (*model.Manifest, error) {
	dir, err := s.ExamDir(slug)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(dir)
}

// Update applies fn to the manifest and writes the result back.
func (s *Store) Update(slug string, fn func(*model.Manifest) error) error {
	dir, err := s.ExamDir(slug)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read(dir)
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return s.write(dir, m)
}

// PutPage records a rasterized page, replacing an earlier entry for the
// same page number. Pages stay sorted by page number.
func (s *Store) PutPage(slug string, page model.Page) error {
	return s.Update(slug, func(m *model.Manifest) error {
		m.Pages = slices.DeleteFunc(m.Pages, func(p model.Page) bool {
			return p.PageNumber == page.PageNumber
		})
		m.Pages = append(m.Pages, page)
		slices.SortFunc(m.Pages, func(a, b model.Page) int { return a.PageNumber - b.PageNumber })
		return nil
	})
}

// Raw returns the manifest file exactly as stored.
func (s *Store) Raw(slug string) ([]byte, error) {
	dir, err := s.ExamDir(slug)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return data, nil
}

// Images lists the full-size and thumbnail page images of an exam, sorted
// by file name. Previews and foreign files are skipped.
func (s *Store) Images(slug string) ([]ImageFile, error) {
	dir, err := s.ExamDir(slug)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(dir, imagesDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoImages
	}
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	out := []ImageFile{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var kind string
		switch name := e.Name(); {
		case strings.Contains(name, "_thumb."):
			kind = ImageThumb
		case strings.HasSuffix(name, "_full.png"):
			kind = ImageFull
		default:
			continue
		}
		out = append(out, ImageFile{Name: e.Name(), Type: kind, Path: imagesDir + "/" + e.Name()})
	}
	// ReadDir already sorts by name.
	return out, nil
}

func (s *Store) read(dir string) (*model.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Pages == nil {
		m.Pages = []model.Page{}
	}
	return &m, nil
}

// write replaces the manifest atomically so concurrent readers never see a
// partial file.
func (s *Store) write(dir string, m *model.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, manifestFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
