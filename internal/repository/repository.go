package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

// Storage backend names accepted by New.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// ErrInvalidFilename is returned for names that would escape the storage directory.
var ErrInvalidFilename = errors.New("invalid marker filename")

// Interface is a whole-document marker store: one collection per filename,
// read and replaced wholesale.
type Interface interface {
	Read(ctx context.Context, filename string) (models.Collection, error)
	Write(ctx context.Context, filename string, markers models.Collection) error
	Ping(ctx context.Context) error
	Close()
}

// UpdateFunc derives a new collection from the stored one. It reports false
// when nothing has to be written.
type UpdateFunc func(markers models.Collection) (models.Collection, bool)

// Updater is implemented by stores that can read, modify and write a
// collection without another writer interleaving.
type Updater interface {
	Update(ctx context.Context, filename string, fn UpdateFunc) error
}

// StoreConfig holds configuration for creating a marker store.
type StoreConfig struct {
	Type     string       // Backend type: file or postgres
	Dir      string       // Directory of the flat files (file backend)
	Atomic   bool         // Write through a temp file and rename (file backend)
	Database Database     // Connected database (postgres backend)
	Logger   *slog.Logger // Logger for the store
}

// New creates the marker store selected by cfg.Type.
func New(ctx context.Context, cfg StoreConfig) (Interface, error) {
	switch cfg.Type {
	case StorageFile, "":
		return NewFileRepository(cfg.Dir, cfg.Atomic, cfg.Logger), nil
	case StoragePostgres:
		if cfg.Database == nil {
			return nil, errors.New("database connection is required for postgres storage")
		}
		repo := NewPostgresRepository(cfg.Database, cfg.Logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// ValidateFilename rejects empty names, dot entries and anything carrying a path separator.
func ValidateFilename(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\\x00") || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}

	return nil
}
