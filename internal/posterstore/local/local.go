package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/shopexplore/internal/posterstore"
)

var errOutsideBase = errors.New("storage key escapes poster directory")

// PosterStore keeps posters as files under a base directory.
type PosterStore struct {
	dir string
}

func NewPosterStore(dir string) (*PosterStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid poster directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create poster directory: %w", err)
	}
	return &PosterStore{dir: abs}, nil
}

// Save streams r into a temporary file and renames it into place, so a
// failed upload never leaves a partial poster under its key.
func (s *PosterStore) Save(_ context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	key := posterstore.NewKey(prefix, mimeType)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := fill(tmp, r); err != nil {
		discard(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, key)); err != nil {
		discard(tmp.Name())
		return "", fmt.Errorf("failed to store poster: %w", err)
	}
	return key, nil
}

// fill copies r into f and always closes f.
func fill(f *os.File, r io.Reader) error {
	_, err := io.Copy(f, r)
	cerr := f.Close()
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if cerr != nil {
		return fmt.Errorf("failed to close file: %w", cerr)
	}
	return nil
}

func discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to remove partial poster", "path", path, "error", err)
	}
}

func (s *PosterStore) Get(_ context.Context, storageKey string) (io.ReadCloser, string, error) {
	path, err := s.resolve(storageKey)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, "", posterstore.ErrNotFound
	case err != nil:
		return nil, "", fmt.Errorf("failed to open poster: %w", err)
	}
	return f, posterstore.MIMEForKey(path), nil
}

func (s *PosterStore) Delete(_ context.Context, storageKey string) error {
	path, err := s.resolve(storageKey)
	if err != nil {
		return err
	}
	switch err := os.Remove(path); {
	case errors.Is(err, fs.ErrNotExist):
		return posterstore.ErrNotFound
	case err != nil:
		return fmt.Errorf("failed to delete poster: %w", err)
	}
	return nil
}

// resolve maps a storage key to a path directly inside the poster directory.
func (s *PosterStore) resolve(storageKey string) (string, error) {
	path := filepath.Join(s.dir, storageKey)
	if !strings.HasPrefix(path, s.dir+string(filepath.Separator)) {
		return "", errOutsideBase
	}
	return path, nil
}
