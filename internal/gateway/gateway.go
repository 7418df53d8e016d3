// Package gateway is the client side of the marker API. It mirrors the last
// known collection in memory and in a local cache so that reads and writes
// keep working while the server is unreachable.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/cache"
	"github.com/UnknownOlympus/waypoint/internal/models"
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Gateway.
type Options struct {
	BaseURL string       // Marker API root, e.g. http://localhost:8080
	Env     string       // Environment selecting the storage file and cache key
	Client  HTTPClient   // Defaults to an http.Client with a timeout
	Cache   cache.Cache  // Local mirror of the collection
	Logger  *slog.Logger // Logger for the gateway
}

// Gateway reads and writes the environment's marker collection.
type Gateway struct {
	client   HTTPClient
	endpoint string
	cacheKey string
	cache    cache.Cache
	log      *slog.Logger

	mu      sync.Mutex
	markers models.Collection
}

type saveReply struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// New creates a gateway and seeds its mirror from the local cache.
func New(ctx context.Context, opts Options) *Gateway {
	const timeout = 10

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout * time.Second}
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	gw := &Gateway{
		client:   client,
		endpoint: strings.TrimRight(opts.BaseURL, "/") + "/api/markers/" + url.PathEscape(models.StorageFile(opts.Env)),
		cacheKey: models.CacheKey(opts.Env),
		cache:    opts.Cache,
		log:      opts.Logger,
		markers:  models.Collection{},
	}
	gw.loadFromCache(ctx)

	return gw
}

// Snapshot returns a copy of the mirrored collection.
func (g *Gateway) Snapshot() models.Collection {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.markers.Clone()
}

// Get fetches the collection from the marker API. When the server cannot be
// reached the mirrored collection is returned with Source set to SourceCache.
func (g *Gateway) Get(ctx context.Context) Result {
	markers, err := g.fetch(ctx)
	if err != nil {
		g.log.ErrorContext(ctx, "Error reading markers", "endpoint", g.endpoint, "error", err)
		return Result{Markers: g.Snapshot(), Source: SourceCache, Err: err}
	}

	g.remember(ctx, markers)

	return Result{Markers: markers.Clone(), Source: SourceServer}
}

// Save replaces the stored collection with markers.
//
// A failed round trip still keeps markers locally and reports SourceCache.
// Only an explicit refusal from the server leaves the mirror untouched.
func (g *Gateway) Save(ctx context.Context, markers models.Collection) Result {
	markers = markers.Clone()

	reply, err := g.push(ctx, markers)
	if err != nil {
		g.log.ErrorContext(ctx, "Error saving markers", "endpoint", g.endpoint, "error", err)
		g.remember(ctx, markers)
		return Result{Markers: markers.Clone(), Source: SourceCache, Err: err}
	}

	if !reply.Success {
		g.log.WarnContext(ctx, "Marker API did not confirm the save", "endpoint", g.endpoint, "reply_error", reply.Error)
		return Result{Markers: g.Snapshot(), Source: SourceNone, Err: ErrRejected}
	}

	g.remember(ctx, markers)

	return Result{Markers: markers.Clone(), Source: SourceServer}
}

// DeleteOne saves the mirrored collection without the marker id.
func (g *Gateway) DeleteOne(ctx context.Context, id int64) Result {
	return g.Save(ctx, g.Snapshot().Without(id))
}

func (g *Gateway) fetch(ctx context.Context) (models.Collection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := g.do(req)
	if err != nil {
		return nil, err
	}

	var markers models.Collection
	if err = json.Unmarshal(body, &markers); err != nil {
		return nil, fmt.Errorf("failed to decode markers: %w", err)
	}
	if markers == nil {
		markers = models.Collection{}
	}

	return markers, nil
}

func (g *Gateway) push(ctx context.Context, markers models.Collection) (saveReply, error) {
	var reply saveReply

	payload, err := json.Marshal(markers)
	if err != nil {
		return reply, fmt.Errorf("failed to encode markers: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return reply, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := g.do(req)
	if err != nil {
		return reply, err
	}

	if err = json.Unmarshal(body, &reply); err != nil {
		return reply, fmt.Errorf("failed to decode save reply: %w", err)
	}

	return reply, nil
}

// do executes req and returns the body of a 2xx response.
func (g *Gateway) do(req *http.Request) ([]byte, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute marker API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("marker API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// remember replaces the mirror and writes it through to the cache.
func (g *Gateway) remember(ctx context.Context, markers models.Collection) {
	g.mu.Lock()
	g.markers = markers.Clone()
	g.mu.Unlock()

	data, err := json.Marshal(markers)
	if err == nil {
		err = g.cache.Set(ctx, g.cacheKey, data)
	}
	if err != nil {
		g.log.ErrorContext(ctx, "Error saving to local cache", "key", g.cacheKey, "error", err)
	}
}

func (g *Gateway) loadFromCache(ctx context.Context) {
	data, ok, err := g.cache.Get(ctx, g.cacheKey)
	if err == nil && !ok {
		return
	}

	var markers models.Collection
	if err == nil {
		err = json.Unmarshal(data, &markers)
	}
	if err != nil {
		g.log.ErrorContext(ctx, "Error loading from local cache", "key", g.cacheKey, "error", err)
		return
	}
	if markers == nil {
		markers = models.Collection{}
	}

	g.mu.Lock()
	g.markers = markers
	g.mu.Unlock()
}

// IsOffline reports whether err came from an unreachable marker API rather than a refusal.
func IsOffline(err error) bool {
	return err != nil && !errors.Is(err, ErrRejected)
}
