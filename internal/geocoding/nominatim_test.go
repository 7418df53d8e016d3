package geocoding_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient is a mock implementation of HTTPClient for testing.
type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestNominatimProvider_Reverse(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	coords := models.Coordinates{Latitude: 41.7151, Longitude: 44.8271}

	t.Run("successful reverse geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Equal(t, "/reverse", req.URL.Path)
				assert.Equal(t, "json", req.URL.Query().Get("format"))
				assert.Equal(t, "41.7151", req.URL.Query().Get("lat"))
				assert.Equal(t, "44.8271", req.URL.Query().Get("lon"))
				assert.Equal(t, "1", req.URL.Query().Get("addressdetails"))
				assert.Equal(t, "ka", req.URL.Query().Get("accept-language"))
				assert.Contains(t, req.Header.Get("User-Agent"), "Waypoint-Marker-Service")

				return jsonResponse(http.StatusOK, `{"display_name":"Freedom Square, Tbilisi, Georgia"}`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "ka", logger)
		address, err := provider.Reverse(ctx, coords)

		require.NoError(t, err)
		assert.Equal(t, "Freedom Square, Tbilisi, Georgia", address)
	})

	t.Run("unable to geocode", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"error":"Unable to geocode"}`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		address, err := provider.Reverse(ctx, coords)

		require.ErrorIs(t, err, geocoding.ErrNominatimEmptyResponse)
		assert.Empty(t, address)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		_, err := provider.Reverse(ctx, coords)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "nominatim API returned status 429")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `invalid json`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		_, err := provider.Reverse(ctx, coords)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode nominatim response")
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		_, err := provider.Reverse(ctx, coords)

		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to execute geocoding request")
	})

	t.Run("context cancellation", func(t *testing.T) {
		newCtx, cancel := context.WithCancel(t.Context())
		cancel()

		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, req.Context().Err()
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		_, err := provider.Reverse(newCtx, coords)

		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestNominatimProvider_Search(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()

	t.Run("successful search", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, "/search", req.URL.Path)
				assert.Equal(t, "Rustaveli Avenue, Tbilisi", req.URL.Query().Get("q"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))

				return jsonResponse(http.StatusOK, `[{"lat":"41.7009","lon":"44.7970"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, "https://osm.example.com/", "", logger)
		coords, err := provider.Search(ctx, "Rustaveli Avenue, Tbilisi")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 41.7009, coords.Latitude, 0.0001)
		assert.InEpsilon(t, 44.7970, coords.Longitude, 0.0001)
	})

	t.Run("fallback to settlement when full address fails", func(t *testing.T) {
		var queries []string
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				query := req.URL.Query().Get("q")
				queries = append(queries, query)
				if query == "Mtskheta" {
					return jsonResponse(http.StatusOK, `[{"lat":"41.8411","lon":"44.7210"}]`), nil
				}
				return jsonResponse(http.StatusOK, `[]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		coords, err := provider.Search(ctx, "Mtskheta, Arsukidze St, 12")

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.Equal(t, []string{"Mtskheta, Arsukidze St, 12", "Mtskheta, Arsukidze St", "Mtskheta"}, queries)
	})

	t.Run("all fallbacks fail", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		coords, err := provider.Search(ctx, "Nowhere, Unknown St, 999")

		require.ErrorIs(t, err, geocoding.ErrNominatimEmptyResponse)
		require.Nil(t, coords)
	})

	t.Run("API error stops fallbacks", func(t *testing.T) {
		calls := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				calls++
				return jsonResponse(http.StatusInternalServerError, `oops`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		_, err := provider.Search(ctx, "Mtskheta, Arsukidze St, 12")

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("invalid latitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"lat":"invalid","lon":"44.79"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		_, err := provider.Search(ctx, "Tbilisi")

		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.Contains(t, err.Error(), "invalid latitude")
	})

	t.Run("invalid longitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"lat":"41.70","lon":"invalid"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, geocoding.NominatimBaseURL, "", logger)
		_, err := provider.Search(ctx, "Tbilisi")

		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.Contains(t, err.Error(), "invalid longitude")
	})
}

func TestNewNominatimProvider(t *testing.T) {
	provider := geocoding.NewNominatimProvider("en", slog.Default())

	require.NotNil(t, provider)
}
