package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileRepository keeps each marker collection as one pretty-printed JSON array on disk.
// Calls on one FileRepository are serialised; separate processes writing the
// same file race and the last one wins.
type FileRepository struct {
	dir    string
	atomic bool
	log    *slog.Logger
	mu     sync.Mutex
}

// NewFileRepository creates a flat-file store rooted at dir. The directory is created lazily.
// With atomic set, writes go to a temporary file that is renamed over the target.
func NewFileRepository(dir string, atomic bool, log *slog.Logger) *FileRepository {
	return &FileRepository{dir: dir, atomic: atomic, log: log}
}

// Read returns the collection stored under filename. A missing file is created
// containing an empty array and an empty collection is returned.
func (r *FileRepository) Read(ctx context.Context, filename string) (models.Collection, error) {
	path, err := r.prepare(filename)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.read(ctx, path, filename)
}

func (r *FileRepository) read(ctx context.Context, path, filename string) (models.Collection, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.log.InfoContext(ctx, "Marker file does not exist, creating an empty one", "file", path)
		empty := models.Collection{}
		if err = r.write(path, empty); err != nil {
			return nil, err
		}
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read marker file: %w", err)
	}

	var markers models.Collection
	if err = json.Unmarshal(data, &markers); err != nil {
		return nil, fmt.Errorf("failed to decode marker file %s: %w", filename, err)
	}
	if markers == nil {
		markers = models.Collection{}
	}

	r.log.DebugContext(ctx, "Markers read from file", "file", path, "count", len(markers))

	return markers, nil
}

// Write replaces the whole file with markers.
func (r *FileRepository) Write(ctx context.Context, filename string, markers models.Collection) error {
	path, err := r.prepare(filename)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err = r.write(path, markers); err != nil {
		return err
	}

	r.log.DebugContext(ctx, "Markers written to file", "file", path, "count", len(markers), "atomic", r.atomic)

	return nil
}

// Update reads the collection, applies fn and writes the result when fn
// reports a change. No other call on r runs in between.
func (r *FileRepository) Update(ctx context.Context, filename string, fn UpdateFunc) error {
	path, err := r.prepare(filename)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	markers, err := r.read(ctx, path, filename)
	if err != nil {
		return err
	}

	updated, changed := fn(markers)
	if !changed {
		return nil
	}

	if err = r.write(path, updated); err != nil {
		return err
	}

	r.log.DebugContext(ctx, "Markers updated in file", "file", path, "count", len(updated))

	return nil
}

// Ping checks that the storage directory can be created.
func (r *FileRepository) Ping(_ context.Context) error {
	if err := os.MkdirAll(r.dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	return nil
}

// Close is a no-op for the flat-file store.
func (r *FileRepository) Close() {}

func (r *FileRepository) prepare(filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	return filepath.Join(r.dir, filename), nil
}

func (r *FileRepository) write(path string, markers models.Collection) error {
	data, err := json.MarshalIndent(markers, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode markers: %w", err)
	}

	if !r.atomic {
		if err = os.WriteFile(path, data, filePerm); err != nil {
			return fmt.Errorf("failed to write marker file: %w", err)
		}
		return nil
	}

	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary marker file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary marker file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temporary marker file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary marker file: %w", err)
	}
	if err = os.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("failed to set marker file permissions: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace marker file: %w", err)
	}

	return nil
}
