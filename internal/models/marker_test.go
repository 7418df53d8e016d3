package models_test

import (
	"encoding/json"
	"testing"

	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCollection() models.Collection {
	return models.Collection{
		{ID: 1, Position: models.Position{41.7, 44.8}, Title: "A", Address: "x"},
		{ID: 2, Position: models.Position{41.71, 44.81}, Title: "B", Description: "second", Address: "y"},
		{ID: 3, Position: models.Position{41.72, 44.82}, Title: "C", Address: "z"},
	}
}

func TestMarkerJSON(t *testing.T) {
	raw := `[{"id":1,"position":[41.7,44.8],"title":"A","description":"","address":"x"}]`

	var coll models.Collection
	require.NoError(t, json.Unmarshal([]byte(raw), &coll))
	require.Len(t, coll, 1)
	assert.Equal(t, int64(1), coll[0].ID)
	assert.InEpsilon(t, 41.7, coll[0].Position.Lat(), 0.0001)
	assert.InEpsilon(t, 44.8, coll[0].Position.Lng(), 0.0001)

	out, err := json.Marshal(coll)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestCollection_MarshalNil(t *testing.T) {
	var coll models.Collection

	out, err := json.Marshal(coll)

	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
}

func TestCollection_Without(t *testing.T) {
	t.Run("removes present id", func(t *testing.T) {
		coll := sampleCollection()

		out := coll.Without(2)

		require.Len(t, out, len(coll)-1)
		assert.False(t, out.Contains(2))
		assert.Equal(t, int64(1), out[0].ID)
		assert.Equal(t, int64(3), out[1].ID)
	})

	t.Run("absent id leaves collection unchanged", func(t *testing.T) {
		coll := sampleCollection()

		out := coll.Without(42)

		assert.Equal(t, coll, out)
	})

	t.Run("does not alias the original", func(t *testing.T) {
		coll := sampleCollection()

		out := coll.Without(42)
		out[0].Title = "changed"

		assert.Equal(t, "A", coll[0].Title)
	})
}

func TestCollection_Find(t *testing.T) {
	coll := sampleCollection()

	m, ok := coll.Find(3)
	require.True(t, ok)
	assert.Equal(t, "C", m.Title)

	_, ok = coll.Find(4)
	assert.False(t, ok)
}

func TestEnvironmentNaming(t *testing.T) {
	assert.Equal(t, "markers.prod.json", models.StorageFile("production"))
	assert.Equal(t, "markers.dev.json", models.StorageFile("development"))
	assert.Equal(t, "markers.dev.json", models.StorageFile("local"))
	assert.Equal(t, "prod", models.StorageSubdir("production"))
	assert.Equal(t, "dev", models.StorageSubdir("local"))
	assert.Equal(t, "map_markers_development", models.CacheKey("development"))
}

func TestPositionCoordinates(t *testing.T) {
	pos := models.Position{50.45, 30.52}

	coords := pos.Coordinates()

	assert.InEpsilon(t, 50.45, coords.Latitude, 0.0001)
	assert.InEpsilon(t, 30.52, coords.Longitude, 0.0001)
	assert.Equal(t, pos, coords.Position())
}
