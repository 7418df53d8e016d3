package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/UnknownOlympus/waypoint/internal/config"
	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/UnknownOlympus/waypoint/internal/repository"
	"github.com/UnknownOlympus/waypoint/internal/server"
	"github.com/UnknownOlympus/waypoint/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the marker API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	logger := setupLogger(cfg.Env, os.Stdout)

	// Create a separate registry for metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	repo, err := a.openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	logger.InfoContext(ctx, "Marker store initialized", "storage", cfg.Storage)

	if cfg.Backfill.Interval > 0 {
		backfill, err := a.newBackfill(cfg, logger, repo, appMetrics)
		if err != nil {
			return err
		}
		go backfill.Run(ctx)
	}

	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.")

	if err = server.New(repo, logger, appMetrics, reg).Run(ctx, cfg.Port); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Application stopped gracefully.")

	return nil
}

func (a *app) openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Interface, error) {
	storeConfig := repository.StoreConfig{
		Type:   cfg.Storage,
		Dir:    filepath.Join(cfg.DataDir, models.StorageSubdir(cfg.Env)),
		Atomic: cfg.AtomicWrites,
		Logger: logger,
	}

	if cfg.Storage == repository.StoragePostgres {
		dtb, err := repository.NewDatabase(ctx,
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		storeConfig.Database = dtb
	}

	repo, err := repository.New(ctx, storeConfig)
	if err != nil {
		if storeConfig.Database != nil {
			storeConfig.Database.Close()
		}
		return nil, fmt.Errorf("failed to create marker store: %w", err)
	}

	return repo, nil
}

func (a *app) newResolver(cfg *config.Config, logger *slog.Logger, appMetrics *metrics.Metrics, rateLimit int) (*geocoding.Resolver, error) {
	provider, err := a.newProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.ProviderType),
		APIKey:    cfg.APIKey,
		RateLimit: rateLimit,
		Language:  cfg.Language,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding provider: %w", err)
	}

	return geocoding.NewResolver(provider, cfg.ProviderType, appMetrics, logger, cfg.Placeholder), nil
}

func (a *app) newBackfill(
	cfg *config.Config,
	logger *slog.Logger,
	repo repository.Interface,
	appMetrics *metrics.Metrics,
) (*service.BackfillService, error) {
	workers := max(cfg.Backfill.Workers, 1)

	resolver, err := a.newResolver(cfg, logger, appMetrics, max(cfg.RateLimit/workers, 1))
	if err != nil {
		return nil, err
	}

	return service.NewBackfillService(
		logger,
		repo,
		resolver,
		appMetrics,
		models.StorageFile(cfg.Env),
		resolver.Placeholder(),
		workers,
		cfg.Backfill.Interval,
	), nil
}
