package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/UnknownOlympus/waypoint/internal/board"
	"github.com/UnknownOlympus/waypoint/internal/cache"
	"github.com/UnknownOlympus/waypoint/internal/gateway"
	"github.com/UnknownOlympus/waypoint/internal/geocoding"
	"github.com/UnknownOlympus/waypoint/internal/metrics"
	"github.com/UnknownOlympus/waypoint/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var errNotSaved = errors.New("markers were not saved")

// session is the client side of one command: a loaded store and its dialog flow.
type session struct {
	store    *board.Store
	flow     *board.Flow
	resolver *geocoding.Resolver
	close    func()
}

func (a *app) markersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "markers",
		Short: "Manage map markers through the marker API",
		Long: `Create, edit, list and delete markers of the configured environment.

When the marker API is unreachable, changes are kept in the local cache and
reported as not synced.`,
	}
	cmd.PersistentFlags().StringVar(&a.serverURL, "server", "", "Marker API base URL (default from WAYPOINT_SERVER_URL)")
	cmd.PersistentFlags().BoolVar(&a.noCache, "no-cache", false, "Keep the local copy in memory only")

	cmd.AddCommand(a.listCommand(), a.addCommand(), a.editCommand(), a.deleteCommand())

	return cmd
}

func (a *app) listCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List markers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			markers := sess.store.Markers()
			if asJSON {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(markers)
			}

			return printMarkers(cmd.OutOrStdout(), markers)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the collection as JSON")

	return cmd
}

func (a *app) addCommand() *cobra.Command {
	var (
		lat, lng    float64
		query       string
		title       string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a marker at a position or at a searched place",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hasPosition := cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng")
			if hasPosition == (query != "") {
				return errors.New("either --lat and --lng or --query is required")
			}

			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			pos := models.Position{lat, lng}
			if query != "" {
				coords, err := sess.resolver.Search(cmd.Context(), query)
				if err != nil {
					return fmt.Errorf("failed to find %q: %w", query, err)
				}
				pos = coords.Position()
			}

			sess.flow.OpenCreate(pos)

			return submit(cmd, sess, board.Draft{Title: title, Description: description})
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of the marker")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude of the marker")
	cmd.Flags().StringVar(&query, "query", "", "Place to search for instead of --lat/--lng")
	cmd.Flags().StringVar(&title, "title", "", "Marker title")
	cmd.Flags().StringVar(&description, "description", "", "Marker description")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func (a *app) editCommand() *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change the title or description of a marker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			if err = sess.flow.OpenEdit(id); err != nil {
				return fmt.Errorf("marker %d: %w", id, err)
			}

			current := sess.flow.Dialog().Marker
			draft := board.Draft{Title: current.Title, Description: current.Description}
			if cmd.Flags().Changed("title") {
				draft.Title = title
			}
			if cmd.Flags().Changed("description") {
				draft.Description = description
			}

			return submit(cmd, sess, draft)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")

	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a marker after confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sess, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.close()

			var confirm board.Confirmer = board.ConfirmFunc(func(context.Context, models.Marker) bool { return true })
			if !yes {
				confirm = promptConfirmer{in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
			}

			result, deleted, err := sess.flow.Delete(cmd.Context(), id, confirm)
			if err != nil {
				return fmt.Errorf("marker %d: %w", id, err)
			}
			if !deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			if !result.OK() {
				return fmt.Errorf("%w: %w", errNotSaved, result.Err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted marker %d%s\n", id, syncNote(result))

			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")

	return cmd
}

func (a *app) openSession(cmd *cobra.Command) (*session, error) {
	ctx := cmd.Context()
	cfg := a.cfg
	logger := setupLogger(cfg.Env, cmd.ErrOrStderr())

	var store cache.Cache = cache.NewMemory()
	if !a.noCache {
		sqliteCache, err := cache.NewSQLite(ctx, cfg.CachePath)
		if err != nil {
			return nil, err
		}
		store = sqliteCache
	}

	serverURL := cfg.ServerURL
	if a.serverURL != "" {
		serverURL = a.serverURL
	}

	gw := gateway.New(ctx, gateway.Options{
		BaseURL: serverURL,
		Env:     cfg.Env,
		Client:  a.httpClient,
		Cache:   store,
		Logger:  logger,
	})

	markerStore := board.NewStore(gw)
	if result := markerStore.Load(ctx); gateway.IsOffline(result.Err) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: marker API unavailable, using local copy: %v\n", result.Err)
	}

	resolver, err := a.newResolver(cfg, logger, metrics.NewMetrics(prometheus.NewRegistry()), cfg.RateLimit)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &session{
		store:    markerStore,
		flow:     board.NewFlow(markerStore, resolver, board.WithClock(a.now)),
		resolver: resolver,
		close: func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close local cache", "error", err)
			}
		},
	}, nil
}

func submit(cmd *cobra.Command, sess *session, draft board.Draft) error {
	marker, result, err := sess.flow.Submit(cmd.Context(), draft)
	if err != nil {
		return err
	}
	if !result.OK() {
		return fmt.Errorf("%w: %w", errNotSaved, result.Err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved marker %d %q at %s%s\n",
		marker.ID, marker.Title, marker.Address, syncNote(result))

	return nil
}

func syncNote(result gateway.Result) string {
	if result.Synced() || !gateway.IsOffline(result.Err) {
		return ""
	}

	return " (kept locally, not synced)"
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid marker id %q", arg)
	}

	return id, nil
}

func printMarkers(out io.Writer, markers models.Collection) error {
	writer := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tLAT\tLNG\tTITLE\tADDRESS")
	for _, m := range markers {
		fmt.Fprintf(writer, "%d\t%.6f\t%.6f\t%s\t%s\n", m.ID, m.Position.Lat(), m.Position.Lng(), m.Title, m.Address)
	}

	return writer.Flush()
}

// promptConfirmer asks on the terminal before a marker is deleted.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) Confirm(_ context.Context, marker models.Marker) bool {
	fmt.Fprintf(p.out, "Delete marker %q? [y/N]: ", marker.Title)

	answer, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}
