package manifest

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// APIPrefix is the URL prefix under which exam assets are served.
const APIPrefix = "/api/v1/exams"

// StripImagesPrefix drops a leading "images/" from a manifest page path.
func StripImagesPrefix(p string) string {
	return strings.TrimPrefix(strings.TrimPrefix(p, "/"), imagesDir+"/")
}

// ImageURL is the serving URL of a page image.
func ImageURL(slug, rel string) string {
	return fmt.Sprintf("%s/%s/images/%s", APIPrefix, url.PathEscape(slug), StripImagesPrefix(rel))
}

// ExtractedURL is the serving URL of an extracted question image.
func ExtractedURL(slug, name string) string {
	return fmt.Sprintf("%s/%s/extracted/%s", APIPrefix, url.PathEscape(slug), name)
}

// ParseExtractedURL splits an extracted-image URL into slug and file name.
func ParseExtractedURL(raw string) (slug, name string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse image url: %w", err)
	}
	rest, ok := strings.CutPrefix(u.Path, APIPrefix+"/")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) != 3 || parts[1] != extractedDir {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, raw)
	}
	return parts[0], parts[2], nil
}

// ImagePath resolves a page image inside the exam's images directory.
func (s *Store) ImagePath(slug, rel string) (string, error) {
	return s.assetPath(slug, imagesDir, StripImagesPrefix(rel))
}

// ExtractedPath resolves a file inside the exam's extracted directory.
func (s *Store) ExtractedPath(slug, name string) (string, error) {
	return s.assetPath(slug, extractedDir, name)
}

func (s *Store) assetPath(slug, sub, rel string) (string, error) {
	dir, err := s.ExamDir(slug)
	if err != nil {
		return "", err
	}
	clean := path.Clean("/" + rel)
	if clean == "/" || strings.Contains(rel, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	base := filepath.Join(dir, sub)
	full := filepath.Join(base, filepath.FromSlash(clean))
	if !strings.HasPrefix(full, base+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return full, nil
}
