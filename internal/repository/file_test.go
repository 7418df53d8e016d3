package repository_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMarkers() models.Collection {
	return models.Collection{
		{ID: 1, Position: models.Position{41.7, 44.8}, Title: "A", Description: "", Address: "x"},
		{ID: 1718000000000, Position: models.Position{41.7151, 44.8271}, Title: "Tbilisi", Description: "center", Address: "Tbilisi, Georgia"},
	}
}

func TestFileRepository_Read(t *testing.T) {
	defer filet.CleanUp(t)
	logger := slog.Default()
	ctx := t.Context()

	for _, env := range []string{"production", "development"} {
		t.Run("missing file creates empty array for "+env, func(t *testing.T) {
			dir := filepath.Join(filet.TmpDir(t, ""), "data", models.StorageSubdir(env))
			repo := repository.NewFileRepository(dir, false, logger)
			filename := models.StorageFile(env)

			markers, err := repo.Read(ctx, filename)

			require.NoError(t, err)
			assert.Empty(t, markers)
			assert.NotNil(t, markers)
			assert.True(t, filet.Exists(t, filepath.Join(dir, filename)))
			assert.True(t, filet.FileSays(t, filepath.Join(dir, filename), []byte("[]")))
		})
	}

	t.Run("existing file is decoded", func(t *testing.T) {
		dir := filet.TmpDir(t, "")
		filet.File(t, filepath.Join(dir, "markers.dev.json"),
			`[{"id":1,"position":[41.7,44.8],"title":"A","description":"","address":"x"}]`)
		repo := repository.NewFileRepository(dir, false, logger)

		markers, err := repo.Read(ctx, "markers.dev.json")

		require.NoError(t, err)
		require.Len(t, markers, 1)
		assert.Equal(t, "A", markers[0].Title)
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		dir := filet.TmpDir(t, "")
		filet.File(t, filepath.Join(dir, "broken.json"), `[{"id":`)
		repo := repository.NewFileRepository(dir, false, logger)

		markers, err := repo.Read(ctx, "broken.json")

		require.Error(t, err)
		require.Nil(t, markers)
		assert.Contains(t, err.Error(), "failed to decode marker file")
	})

	t.Run("null document reads as empty", func(t *testing.T) {
		dir := filet.TmpDir(t, "")
		filet.File(t, filepath.Join(dir, "null.json"), `null`)
		repo := repository.NewFileRepository(dir, false, logger)

		markers, err := repo.Read(ctx, "null.json")

		require.NoError(t, err)
		assert.NotNil(t, markers)
		assert.Empty(t, markers)
	})

	t.Run("invalid filename", func(t *testing.T) {
		repo := repository.NewFileRepository(filet.TmpDir(t, ""), false, logger)

		_, err := repo.Read(ctx, "../escape.json")

		require.ErrorIs(t, err, repository.ErrInvalidFilename)
	})
}

func TestFileRepository_Write(t *testing.T) {
	defer filet.CleanUp(t)
	logger := slog.Default()
	ctx := t.Context()

	for _, atomic := range []bool{false, true} {
		name := "plain"
		if atomic {
			name = "atomic"
		}

		t.Run(name+" round trip keeps order", func(t *testing.T) {
			dir := filet.TmpDir(t, "")
			repo := repository.NewFileRepository(dir, atomic, logger)

			require.NoError(t, repo.Write(ctx, "markers.dev.json", sampleMarkers()))
			markers, err := repo.Read(ctx, "markers.dev.json")

			require.NoError(t, err)
			assert.Equal(t, sampleMarkers(), markers)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "no temporary files should be left behind")
		})
	}

	t.Run("saving twice leaves content unchanged", func(t *testing.T) {
		dir := filet.TmpDir(t, "")
		repo := repository.NewFileRepository(dir, false, logger)
		path := filepath.Join(dir, "markers.dev.json")

		require.NoError(t, repo.Write(ctx, "markers.dev.json", sampleMarkers()))
		first, err := os.ReadFile(path)
		require.NoError(t, err)

		require.NoError(t, repo.Write(ctx, "markers.dev.json", sampleMarkers()))
		second, err := os.ReadFile(path)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("output is pretty printed", func(t *testing.T) {
		dir := filet.TmpDir(t, "")
		repo := repository.NewFileRepository(dir, false, logger)

		require.NoError(t, repo.Write(ctx, "one.json", sampleMarkers()[:1]))

		expected := "[\n  {\n    \"id\": 1,\n    \"position\": [\n      41.7,\n      44.8\n    ],\n" +
			"    \"title\": \"A\",\n    \"description\": \"\",\n    \"address\": \"x\"\n  }\n]"
		assert.True(t, filet.FileSays(t, filepath.Join(dir, "one.json"), []byte(expected)))
	})

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(filet.TmpDir(t, ""), "nested", "dev")
		repo := repository.NewFileRepository(dir, false, logger)

		require.NoError(t, repo.Write(ctx, "markers.dev.json", models.Collection{}))

		assert.True(t, filet.FileSays(t, filepath.Join(dir, "markers.dev.json"), []byte("[]")))
	})

	t.Run("invalid filename", func(t *testing.T) {
		repo := repository.NewFileRepository(filet.TmpDir(t, ""), false, logger)

		err := repo.Write(ctx, "a/b.json", sampleMarkers())

		require.ErrorIs(t, err, repository.ErrInvalidFilename)
	})
}

func TestFileRepository_Ping(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filepath.Join(filet.TmpDir(t, ""), "data")
	repo := repository.NewFileRepository(dir, false, slog.Default())

	require.NoError(t, repo.Ping(t.Context()))
	assert.True(t, filet.Exists(t, dir))
}

func TestValidateFilename(t *testing.T) {
	for _, name := range []string{"markers.dev.json", "new.json", "markers.prod.json"} {
		require.NoError(t, repository.ValidateFilename(name), name)
	}

	for _, name := range []string{"", ".", "..", "../x.json", "a/b.json", `a\b.json`, "x\x00.json"} {
		require.ErrorIs(t, repository.ValidateFilename(name), repository.ErrInvalidFilename, name)
	}
}

func TestNew(t *testing.T) {
	defer filet.CleanUp(t)
	ctx := t.Context()

	t.Run("file backend by default", func(t *testing.T) {
		repo, err := repository.New(ctx, repository.StoreConfig{Dir: filet.TmpDir(t, ""), Logger: slog.Default()})

		require.NoError(t, err)
		_, ok := repo.(*repository.FileRepository)
		assert.True(t, ok, "expected *FileRepository")
	})

	t.Run("postgres without database fails", func(t *testing.T) {
		repo, err := repository.New(ctx, repository.StoreConfig{Type: repository.StoragePostgres, Logger: slog.Default()})

		require.Error(t, err)
		require.Nil(t, repo)
	})

	t.Run("unsupported backend", func(t *testing.T) {
		repo, err := repository.New(ctx, repository.StoreConfig{Type: "s3", Logger: slog.Default()})

		require.Error(t, err)
		require.Nil(t, repo)
		assert.Contains(t, err.Error(), "unsupported storage type: s3")
	})
}

func TestFileRepository_Update(t *testing.T) {
	defer filet.CleanUp(t)
	ctx := t.Context()
	dir := filepath.Join(filet.TmpDir(t, ""), "dev")
	repo := repository.NewFileRepository(dir, false, slog.Default())
	filename := "markers.dev.json"
	require.NoError(t, repo.Write(ctx, filename, sampleMarkers()))

	t.Run("applies change", func(t *testing.T) {
		err := repo.Update(ctx, filename, func(markers models.Collection) (models.Collection, bool) {
			markers[0].Address = "patched"
			return markers, true
		})
		require.NoError(t, err)

		markers, err := repo.Read(ctx, filename)
		require.NoError(t, err)
		assert.Equal(t, "patched", markers[0].Address)
		assert.Equal(t, sampleMarkers()[1], markers[1])
	})

	t.Run("no change leaves file untouched", func(t *testing.T) {
		before, err := os.ReadFile(filepath.Join(dir, filename))
		require.NoError(t, err)

		err = repo.Update(ctx, filename, func(markers models.Collection) (models.Collection, bool) {
			return nil, false
		})
		require.NoError(t, err)

		assert.True(t, filet.FileSays(t, filepath.Join(dir, filename), before))
	})

	t.Run("concurrent writes are not lost", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = repo.Update(ctx, filename, func(markers models.Collection) (models.Collection, bool) {
					return append(markers, models.Marker{ID: int64(1000 + i), Title: "n"}), true
				})
			}()
		}
		wg.Wait()

		markers, err := repo.Read(ctx, filename)
		require.NoError(t, err)
		assert.Len(t, markers, 22)
	})

	t.Run("invalid filename", func(t *testing.T) {
		err := repo.Update(ctx, "../escape.json", func(markers models.Collection) (models.Collection, bool) {
			return markers, true
		})
		require.ErrorIs(t, err, repository.ErrInvalidFilename)
	})
}
