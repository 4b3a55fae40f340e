package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/randalmurphal/todosync/internal/snapshot"
	"github.com/randalmurphal/todosync/internal/util"
)

// FileStore keeps the snapshot as one indented JSON file.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store for the JSON file at path. The file does not
// need to exist yet.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: loggerOrDefault(logger)}
}

// Load reads the JSON file. A missing file is a first run and loads silently.
func (s *FileStore) Load(ctx context.Context) (*snapshot.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot.New(), nil
	}
	if err != nil {
		return recovered(s.logger, s.path, err), nil
	}

	doc, notes, err := snapshot.Decode(data)
	if err != nil {
		return recovered(s.logger, s.path, err), nil
	}
	return repaired(s.logger, s.path, doc, notes), nil
}

// Save writes the document through a temp file and rename.
func (s *FileStore) Save(ctx context.Context, doc *snapshot.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return writeFailed(s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return writeFailed(s.path, err)
	}
	return nil
}

// Location returns the file path.
func (s *FileStore) Location() string {
	return s.path
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
