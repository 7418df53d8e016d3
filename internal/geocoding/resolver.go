package geocoding

import (
	"context"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
)

// DefaultPlaceholder is stored as the address when reverse geocoding fails.
const DefaultPlaceholder = "Address not found"

// Resolver turns marker positions into addresses. A failed lookup never fails
// the caller: the placeholder is returned instead.
type Resolver struct {
	provider     Provider
	providerName string
	metrics      *metrics.Metrics
	log          *slog.Logger
	placeholder  string
}

// NewResolver wraps provider with metrics and the placeholder fallback.
// An empty placeholder falls back to DefaultPlaceholder.
func NewResolver(
	provider Provider,
	providerName string,
	metrics *metrics.Metrics,
	log *slog.Logger,
	placeholder string,
) *Resolver {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	return &Resolver{
		provider:     provider,
		providerName: providerName,
		metrics:      metrics,
		log:          log,
		placeholder:  placeholder,
	}
}

// Placeholder returns the address used when a lookup fails.
func (r *Resolver) Placeholder() string {
	return r.placeholder
}

// Address returns the address for coords or the placeholder.
func (r *Resolver) Address(ctx context.Context, coords models.Coordinates) string {
	address, err := r.Lookup(ctx, coords)
	if err != nil {
		return r.placeholder
	}

	return address
}

// Lookup reverse geocodes coords and reports the provider error, if any.
func (r *Resolver) Lookup(ctx context.Context, coords models.Coordinates) (string, error) {
	startTime := time.Now()
	address, err := r.provider.Reverse(ctx, coords)
	r.metrics.RequestSeconds.WithLabelValues(r.providerName).Observe(time.Since(startTime).Seconds())

	if err != nil {
		r.log.ErrorContext(ctx, "Error fetching address",
			"provider", r.providerName,
			"lat", coords.Latitude,
			"lng", coords.Longitude,
			"error", err)
		r.metrics.GeocodeRequests.WithLabelValues(r.providerName, "failure").Inc()
		r.metrics.APIErrors.Inc()
		return "", err
	}

	r.metrics.GeocodeRequests.WithLabelValues(r.providerName, "success").Inc()

	return address, nil
}

// Search resolves a free-form query to coordinates for the map search box.
func (r *Resolver) Search(ctx context.Context, query string) (*models.Coordinates, error) {
	startTime := time.Now()
	coords, err := r.provider.Search(ctx, query)
	r.metrics.RequestSeconds.WithLabelValues(r.providerName).Observe(time.Since(startTime).Seconds())
	if err != nil {
		r.metrics.APIErrors.Inc()
		return nil, err
	}

	return coords, nil
}
