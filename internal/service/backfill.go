package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/internal/repository"
)

// Geocoder reverse geocodes a position and reports provider failures.
type Geocoder interface {
	Lookup(ctx context.Context, coords models.Coordinates) (string, error)
}

// BackfillService periodically retries reverse geocoding for markers that were
// saved while the provider was unavailable.
type BackfillService struct {
	log          *slog.Logger         // Logger for logging service activities
	repo         repository.Interface // Marker store
	geocoder     Geocoder             // Address lookup
	metrics      *metrics.Metrics     // Metrics for tracking service performance
	filename     string               // Collection to repair
	placeholder  string               // Address stored when a lookup failed
	numWorkers   int                  // Number of concurrent workers for processing
	pollInterval time.Duration        // Interval between backfill passes
}

type resolvedAddress struct {
	id      int64
	address string
}

// NewBackfillService creates a backfill over the collection stored under filename.
func NewBackfillService(
	log *slog.Logger,
	repo repository.Interface,
	geocoder Geocoder,
	metrics *metrics.Metrics,
	filename string,
	placeholder string,
	numWorkers int,
	pollInterval time.Duration,
) *BackfillService {
	if numWorkers < 1 {
		numWorkers = 1
	}

	return &BackfillService{
		log:          log,
		repo:         repo,
		geocoder:     geocoder,
		metrics:      metrics,
		filename:     filename,
		placeholder:  placeholder,
		numWorkers:   numWorkers,
		pollInterval: pollInterval,
	}
}

// Run executes a backfill pass on every tick until ctx is cancelled.
func (bs *BackfillService) Run(ctx context.Context) {
	ticker := time.NewTicker(bs.pollInterval)
	defer ticker.Stop()

	bs.log.InfoContext(ctx, "Address backfill started", "interval", bs.pollInterval, "workers", bs.numWorkers)

	for {
		select {
		case <-ctx.Done():
			bs.log.InfoContext(ctx, "Address backfill stopped.")
			return
		case <-ticker.C:
			bs.log.DebugContext(ctx, "Looking for markers without an address...")
			bs.processBatch(ctx)
		}
	}
}

// processBatch geocodes every marker whose address is missing and writes the
// results back. The collection is read again before writing so that markers
// saved during the pass are kept.
func (bs *BackfillService) processBatch(ctx context.Context) int {
	markers, err := bs.repo.Read(ctx, bs.filename)
	if err != nil {
		bs.log.ErrorContext(ctx, "Failed to read markers", "file", bs.filename, "error", err)
		return 0
	}

	pending := make([]models.Marker, 0)
	for _, marker := range markers {
		if bs.needsAddress(marker) {
			pending = append(pending, marker)
		}
	}
	if len(pending) == 0 {
		bs.log.DebugContext(ctx, "No markers to backfill.")
		return 0
	}

	bs.log.InfoContext(ctx, "Found markers to backfill. Starting worker pool.",
		"jobs", len(pending),
		"num_workers", bs.numWorkers)

	jobs := make(chan models.Marker, len(pending))
	results := make(chan resolvedAddress, len(pending))
	var wgr sync.WaitGroup

	for i := 1; i <= bs.numWorkers; i++ {
		wgr.Add(1)
		go bs.worker(ctx, i, &wgr, jobs, results)
	}

	for _, marker := range pending {
		jobs <- marker
	}
	close(jobs)

	wgr.Wait()
	close(results)

	resolved := make(map[int64]string, len(pending))
	for res := range results {
		resolved[res.id] = res.address
	}
	if len(resolved) == 0 {
		bs.log.InfoContext(ctx, "Backfill pass finished, nothing resolved")
		return 0
	}

	return bs.apply(ctx, resolved)
}

// apply patches resolved addresses into the latest stored collection. Stores
// implementing repository.Updater patch under their own lock; otherwise the
// collection is re-read and written straight back.
func (bs *BackfillService) apply(ctx context.Context, resolved map[int64]string) int {
	patched := 0
	patch := func(latest models.Collection) (models.Collection, bool) {
		patched = 0
		for i := range latest {
			address, ok := resolved[latest[i].ID]
			if !ok || !bs.needsAddress(latest[i]) {
				continue
			}
			latest[i].Address = address
			patched++
		}
		return latest, patched > 0
	}

	if updater, ok := bs.repo.(repository.Updater); ok {
		if err := updater.Update(ctx, bs.filename, patch); err != nil {
			bs.log.ErrorContext(ctx, "Failed to write backfilled markers", "file", bs.filename, "error", err)
			return 0
		}
	} else {
		latest, err := bs.repo.Read(ctx, bs.filename)
		if err != nil {
			bs.log.ErrorContext(ctx, "Failed to re-read markers", "file", bs.filename, "error", err)
			return 0
		}
		if latest, changed := patch(latest); changed {
			if err = bs.repo.Write(ctx, bs.filename, latest); err != nil {
				bs.log.ErrorContext(ctx, "Failed to write backfilled markers", "file", bs.filename, "error", err)
				return 0
			}
		}
	}
	if patched == 0 {
		return 0
	}

	bs.log.InfoContext(ctx, "Backfill pass finished", "patched", patched)

	return patched
}

func (bs *BackfillService) worker(
	ctx context.Context,
	idx int,
	wg *sync.WaitGroup,
	jobs <-chan models.Marker,
	results chan<- resolvedAddress,
) {
	defer wg.Done()
	for marker := range jobs {
		bs.metrics.ActiveWorkers.Inc()
		bs.log.DebugContext(ctx, "Processing marker", "worker", idx, "marker", marker.ID)

		address, err := bs.geocoder.Lookup(ctx, marker.Position.Coordinates())
		if err != nil || address == "" {
			bs.log.WarnContext(ctx, "Address still unavailable", "worker", idx, "marker", marker.ID, "error", err)
			bs.metrics.TaskProcessed.WithLabelValues("failure").Inc()
			bs.metrics.ActiveWorkers.Dec()
			continue
		}

		bs.metrics.TaskProcessed.WithLabelValues("success").Inc()
		results <- resolvedAddress{id: marker.ID, address: address}
		bs.metrics.ActiveWorkers.Dec()
	}
}

func (bs *BackfillService) needsAddress(marker models.Marker) bool {
	return marker.Address == "" || marker.Address == bs.placeholder
}
