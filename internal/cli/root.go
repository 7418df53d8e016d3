// Package cli wires configuration, storage, geocoding and the marker API into
// the waypoint command line.
package cli

import (
	"context"
	"time"

	"github.com/UnknownOlympus/waypoint/internal/config"
	"github.com/UnknownOlympus/waypoint/internal/gateway"
	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/spf13/cobra"
)

type app struct {
	cfg         *config.Config
	newProvider func(geocoding.ProviderConfig) (geocoding.Provider, error)
	httpClient  gateway.HTTPClient
	now         func() time.Time

	serverURL string
	noCache   bool
}

// Option customises the command tree, mostly for tests.
type Option func(*app)

// WithConfig uses cfg instead of loading the environment.
func WithConfig(cfg *config.Config) Option {
	return func(a *app) {
		a.cfg = cfg
	}
}

// WithProviderFactory replaces the geocoding provider factory.
func WithProviderFactory(factory func(geocoding.ProviderConfig) (geocoding.Provider, error)) Option {
	return func(a *app) {
		a.newProvider = factory
	}
}

// WithHTTPClient sets the client used to reach the marker API.
func WithHTTPClient(client gateway.HTTPClient) Option {
	return func(a *app) {
		a.httpClient = client
	}
}

// WithClock sets the time source for new marker ids.
func WithClock(now func() time.Time) Option {
	return func(a *app) {
		a.now = now
	}
}

// NewRootCommand builds the waypoint command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		newProvider: geocoding.NewProvider,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "waypoint",
		Short: "Map marker annotation service",
		Long: `waypoint stores user-created map markers as whole JSON collections.

Run "waypoint serve" to expose the marker API and "waypoint markers" to
create, edit, list and delete markers against it.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if a.cfg == nil {
				a.cfg = config.MustLoad()
			}
		},
	}

	root.AddCommand(a.serveCommand())
	root.AddCommand(a.markersCommand())

	return root
}

// Execute runs the command line until ctx is cancelled.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
