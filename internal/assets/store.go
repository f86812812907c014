// Package assets stores uploaded profile images on the local
// filesystem and hands back opaque public refs. The rest of the system
// treats a ref as a string and never looks inside it.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

type Store struct {
	dir     string
	baseURL string
}

// NewStore creates the backing directory if needed.
func NewStore(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Upload writes the image bytes under a name derived from the buyer
// name plus a timestamp and returns the public ref.
func (s *Store) Upload(data []byte, name string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("no image data")
	}

	base := unsafeChars.ReplaceAllString(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"), "")
	if base == "" {
		base = "profile"
	}
	fileName := fmt.Sprintf("%s_%d.img", base, time.Now().UnixNano())

	if err := os.WriteFile(filepath.Join(s.dir, fileName), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write asset: %w", err)
	}
	return s.baseURL + "/" + fileName, nil
}

// Open resolves a public ref produced by Upload back to its bytes.
func (s *Store) Open(ref string) ([]byte, error) {
	fileName := filepath.Base(strings.TrimPrefix(ref, s.baseURL+"/"))
	data, err := os.ReadFile(filepath.Join(s.dir, fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return data, nil
}

// Dir exposes the backing directory for static file serving.
func (s *Store) Dir() string {
	return s.dir
}
