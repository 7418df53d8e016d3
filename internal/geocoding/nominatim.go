package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/models"
)

const (
	// NominatimBaseURL is the public OpenStreetMap Nominatim endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org"
	// User-Agent MUST include valid contact info per Nominatim usage policy:
	// https://operations.osmfoundation.org/policies/nominatim/
	nominatimUserAgent = "Waypoint-Marker-Service/1.0 (https://github.com/UnknownOlympus/waypoint)"
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client    HTTPClient
	baseURL   string
	language  string
	userAgent string
	log       *slog.Logger
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

// NewNominatimProvider creates a provider against the public Nominatim API.
func NewNominatimProvider(language string, log *slog.Logger) *NominatimProvider {
	const timeout = 10
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout * time.Second}, NominatimBaseURL, language, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client
// and base URL, e.g. a self-hosted instance or a test double.
func NewNominatimProviderWithClient(client HTTPClient, baseURL, language string, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		language:  language,
		userAgent: nominatimUserAgent,
		log:       log,
	}
}

// Reverse returns the display name Nominatim assigns to coords.
func (np *NominatimProvider) Reverse(ctx context.Context, coords models.Coordinates) (string, error) {
	np.log.DebugContext(ctx, "Reverse geocoding using Nominatim", "lat", coords.Latitude, "lng", coords.Longitude)

	query := url.Values{}
	query.Set("format", "json")
	query.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	query.Set("addressdetails", "1")

	var place nominatimPlace
	if err := np.getJSON(ctx, "/reverse", query, &place); err != nil {
		return "", err
	}

	if place.Error != "" || place.DisplayName == "" {
		np.log.DebugContext(ctx, "Nominatim has no address for coordinates", "reason", place.Error)
		return "", ErrNominatimEmptyResponse
	}

	return place.DisplayName, nil
}

// Search converts a free-form address into coordinates.
//
// Uses a progressive fallback strategy for rural addresses:
// 1. Try the full address
// 2. Drop the last component (usually the house number)
// 3. Drop the last two components
// 4. Try the first component only (village/town/city)
func (np *NominatimProvider) Search(ctx context.Context, address string) (*models.Coordinates, error) {
	variations := addressFallbacks(address)

	for idx, variation := range variations {
		coords, err := np.searchOnce(ctx, variation)
		if err == nil {
			if idx > 0 {
				np.log.InfoContext(ctx, "Geocoded using fallback address",
					"original", address,
					"fallback", variation,
					"fallback_level", idx)
			}
			return coords, nil
		}

		if !errors.Is(err, ErrNominatimEmptyResponse) {
			return nil, err
		}
	}

	np.log.WarnContext(ctx, "All address fallbacks exhausted", "address", address, "variations_tried", len(variations))

	return nil, ErrNominatimEmptyResponse
}

func (np *NominatimProvider) searchOnce(ctx context.Context, address string) (*models.Coordinates, error) {
	query := url.Values{}
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")

	var places []nominatimPlace
	if err := np.getJSON(ctx, "/search", query, &places); err != nil {
		return nil, err
	}

	if len(places) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, places[0].Lon)
	}

	return &models.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// getJSON issues a GET against path with the Nominatim headers and decodes the body into out.
func (np *NominatimProvider) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if np.language != "" {
		query.Set("accept-language", np.language)
	}
	reqURL := np.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", np.userAgent)

	resp, err := np.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err = json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	return nil
}

// addressFallbacks lists progressively shorter comma-separated prefixes of address.
func addressFallbacks(address string) []string {
	if address == "" {
		return []string{""}
	}

	seen := make(map[string]bool)
	variations := []string{}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variations = append(variations, v)
		}
	}

	add(address)

	parts := strings.Split(address, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) > 1 {
		add(strings.Join(parts[:len(parts)-1], ", "))
		if len(parts) > 2 { //nolint:mnd // house number and street
			add(strings.Join(parts[:len(parts)-2], ", "))
		}
		add(parts[0])
	}

	return variations
}
