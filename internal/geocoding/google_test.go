package geocoding_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGoogleProvider_Reverse(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, "en", slog.Default())
	ctx := t.Context()
	coords := models.Coordinates{Latitude: 41.7151, Longitude: 44.8271}
	req := &maps.GeocodingRequest{LatLng: &maps.LatLng{Lat: 41.7151, Lng: 44.8271}, Language: "en"}

	t.Run("api returns error", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return(nil, assert.AnError).Once()

		address, err := provider.Reverse(ctx, coords)

		require.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, address)
	})

	t.Run("api returns empty response", func(t *testing.T) {
		mockClient.On("ReverseGeocode", ctx, req).Return(nil, nil).Once()

		address, err := provider.Reverse(ctx, coords)

		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
		assert.Empty(t, address)
	})

	t.Run("successful reverse geocoding", func(t *testing.T) {
		response := []maps.GeocodingResult{{FormattedAddress: "Freedom Square, Tbilisi, Georgia"}}
		mockClient.On("ReverseGeocode", ctx, req).Return(response, nil).Once()

		address, err := provider.Reverse(ctx, coords)

		require.NoError(t, err)
		assert.Equal(t, "Freedom Square, Tbilisi, Georgia", address)
	})
}

func TestGoogleProvider_Search(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, "", slog.Default())
	ctx := t.Context()
	query := "1600 Amphitheatre Parkway, Mountain View, CA"
	req := &maps.GeocodingRequest{Address: query}

	t.Run("api returns error", func(t *testing.T) {
		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Search(ctx, query)

		require.ErrorIs(t, err, assert.AnError)
	})

	t.Run("api returns empty response", func(t *testing.T) {
		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		coords, err := provider.Search(ctx, query)

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrEmptyResponse)
	})

	t.Run("successful geocoding", func(t *testing.T) {
		response := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 37.42, Lng: -122.08}}},
		}
		mockClient.On("Geocode", ctx, req).Return(response, nil).Once()

		coords, err := provider.Search(ctx, query)

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 37.42, coords.Latitude, 0.01)
		assert.InEpsilon(t, -122.08, coords.Longitude, 0.01)
	})
}
