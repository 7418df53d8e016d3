package geocoding

import (
	"context"
	"net/http"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

// Provider turns coordinates into a human-readable address and, for the
// map search box, a free-form query into coordinates.
type Provider interface {
	Reverse(ctx context.Context, coords models.Coordinates) (string, error)
	Search(ctx context.Context, query string) (*models.Coordinates, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
