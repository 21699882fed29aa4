package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/secret-service/interfaces"
)

// FileSource reads a collections document from the local file system.
type FileSource struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewFileSource creates a source for the YAML document at path.
func NewFileSource(path string, log *slog.Logger) *FileSource {
	return &FileSource{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}
}

// Load reads and parses the document. Returns ErrSourceNotFound if the file
// doesn't exist.
func (s *FileSource) Load(ctx context.Context) ([]interfaces.CollectionSpec, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSourceNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	specs, err := ParseCollections(data)
	if err != nil {
		return nil, err
	}

	s.log.Debug("Loaded collections from file",
		slog.String("path", s.path),
		slog.Int("collections", len(specs)))

	return specs, nil
}

// Available checks that the document exists.
func (s *FileSource) Available(ctx context.Context) bool {
	if _, err := os.Stat(s.path); err != nil {
		s.log.Debug("File source unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this source.
func (s *FileSource) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.path))
}

// LocationURI returns the URI that identifies this source.
func (s *FileSource) LocationURI() string {
	return s.locationURI
}
