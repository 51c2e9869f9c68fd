package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nwah/vagvisare/directions"
	"github.com/nwah/vagvisare/feeds"
	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/nav"
	"github.com/nwah/vagvisare/server"
	"github.com/nwah/vagvisare/session"
	"github.com/nwah/vagvisare/settings"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = time.Minute
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:           "vagvisare",
	Short:         "Turn-by-turn navigation backend for Swedish roads and transit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.toml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "file with API keys")

	rootCmd.AddCommand(serveCmd, geocodeCmd, routeCmd)

	routeCmd.Flags().String("from", "", "start as lat,lon")
	routeCmd.Flags().String("to", "", "destination as lat,lon")
	routeCmd.Flags().String("mode", string(nav.DefaultMode), "driving, cycling, walking or public_transport")
	routeCmd.Flags().String("lang", string(i18n.DefaultLanguage), "language of the directions")
	routeCmd.Flags().String("gpx", "", "write the route as GPX to this file")
	routeCmd.MarkFlagRequired("from")
	routeCmd.MarkFlagRequired("to")

	geocodeCmd.Flags().String("lang", string(i18n.DefaultLanguage), "language of the results")
}

// setup loads the configuration and builds the logger
func setup() (Config, *zap.Logger, error) {
	cfg, err := LoadConfig(cfgFile, envFile)
	if err != nil {
		return cfg, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := newLogger(cfg.Env)
	if err != nil {
		return cfg, nil, fmt.Errorf("creating logger: %w", err)
	}
	return cfg, logger, nil
}

func openStore(path string) (*settings.Store, error) {
	if path == "" {
		return settings.OpenMemory()
	}
	return settings.Open(path)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := openStore(cfg.Database)
		if err != nil {
			return fmt.Errorf("opening settings store: %w", err)
		}
		defer store.Close()

		client := nav.NewClient(cfg.Nav, nil, logger.Named("nav"))
		agg := feeds.NewAggregator(cfg.Feeds, nil, logger.Named("feeds"))
		sessions := session.NewManager(client, logger.Named("session"))

		srv := server.New(cfg.ServerConfig(), client, sessions, store, agg, cfg.Map, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go srv.PruneSessions(ctx, pruneInterval)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		logger.Info("starting",
			zap.Int("port", cfg.Port),
			zap.String("database", cfg.Database),
			zap.Strings("feeds", agg.Feeds()),
		)

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var geocodeCmd = &cobra.Command{
	Use:   "geocode <query>",
	Short: "Look up a place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		lang, _ := cmd.Flags().GetString("lang")
		client := nav.NewClient(cfg.Nav, nil, logger)
		results, err := client.Geocode(cmd.Context(), args[0], i18n.ParseLanguage(lang))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, r := range results {
			fmt.Fprintf(out, "%.5f,%.5f\t%s\n", r.Lat, r.Lng, r.Name)
		}
		return nil
	},
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Plan a route and print the directions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		modeFlag, _ := cmd.Flags().GetString("mode")
		langFlag, _ := cmd.Flags().GetString("lang")
		gpxFile, _ := cmd.Flags().GetString("gpx")

		fromLat, fromLng, err := nav.ParseLatLng(from)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		toLat, toLng, err := nav.ParseLatLng(to)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		mode, ok := nav.ParseMode(modeFlag)
		if !ok {
			return fmt.Errorf("unknown mode %q", modeFlag)
		}
		lang := i18n.ParseLanguage(langFlag)

		client := nav.NewClient(cfg.Nav, nil, logger)
		route, err := client.Route(cmd.Context(), nav.RouteRequest{
			FromLat:  fromLat,
			FromLng:  fromLng,
			ToLat:    toLat,
			ToLng:    toLng,
			Mode:     mode,
			Language: lang,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%.1f km, %.0f min (%s)\n", route.Distance/1000, route.Duration/60, route.Source)
		for i, text := range directions.Texts(route.Steps, lang) {
			fmt.Fprintf(out, "%2d. %s\n", i+1, text)
		}

		if gpxFile != "" {
			data, err := nav.ToGPX(route)
			if err != nil {
				return err
			}
			if err := os.WriteFile(gpxFile, data, 0o644); err != nil {
				return fmt.Errorf("writing gpx: %w", err)
			}
		}
		return nil
	},
}
