package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/randalmurphal/todosync/internal/snapshot"
)

// snapshotKey holds the whole encoded document.
var snapshotKey = []byte("todosync/snapshot")

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory (tests).
	InMemory bool

	Logger *slog.Logger
}

// BadgerStore keeps the snapshot as a single key in a Badger database.
type BadgerStore struct {
	db       *badger.DB
	location string
	logger   *slog.Logger
}

// badgerLogger routes Badger's internal logging to slog at debug level, so
// it only shows with --verbose.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadgerStore opens or creates the Badger database.
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent badger store")
	}
	logger := loggerOrDefault(cfg.Logger)

	var opts badger.Options
	location := cfg.Path
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
		location = "badger:memory"
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerStore{db: db, location: location, logger: logger}, nil
}

// Load reads the snapshot key. A missing key is a first run.
func (s *BadgerStore) Load(ctx context.Context) (*snapshot.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return snapshot.New(), nil
	}
	if err != nil {
		return recovered(s.logger, s.location, err), nil
	}

	doc, notes, err := snapshot.Decode(data)
	if err != nil {
		return recovered(s.logger, s.location, err), nil
	}
	return repaired(s.logger, s.location, doc, notes), nil
}

// Save writes the encoded document in one update transaction.
func (s *BadgerStore) Save(ctx context.Context, doc *snapshot.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return writeFailed(s.location, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey, data)
	})
	if err != nil {
		return writeFailed(s.location, err)
	}
	return nil
}

// Location returns the database directory.
func (s *BadgerStore) Location() string {
	return s.location
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

