package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"school_inventory_tool/app"
	"school_inventory_tool/jobs"
	"school_inventory_tool/observability"
	"school_inventory_tool/routes"
)

var withCron bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := observability.SetupTracing(ctx, cfg.Telemetry)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				log.Warn("tracing shutdown", zap.Error(err))
			}
		}()

		shutdownMetrics, err := observability.SetupMetrics(ctx, cfg.Telemetry)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(sctx); err != nil {
				log.Warn("metrics shutdown", zap.Error(err))
			}
		}()

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		s := routes.RegisterRoutes(a.Router, a)
		if _, err := app.BootstrapFirstAdmin(ctx, cfg, s.Repo, log); err != nil {
			log.Warn("bootstrap admin", zap.Error(err))
		}

		if withCron {
			c, err := jobs.Start(cfg.Cron.DigestSchedule, &jobs.Digest{Repo: s.Repo, Cache: s.Cache, Log: log})
			if err != nil {
				return err
			}
			defer c.Stop()
		}

		srv := &http.Server{
			Addr:              ":" + cfg.HTTP.Port,
			Handler:           a.Router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			log.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withCron, "cron", true, "run the digest scheduler in-process")
	rootCmd.AddCommand(serveCmd)
}
