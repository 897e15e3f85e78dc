package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spigell/music-dna/internal/api"
	"github.com/spigell/music-dna/internal/metrics"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const metricsShutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API, the metrics endpoint and the expired profiles janitor",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "api listen address (overrides server.addr)")
	serveCmd.Flags().String("metrics-addr", "", "metrics listen address, empty string in config disables it")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.metrics-addr", serveCmd.Flags().Lookup("metrics-addr"))
}

func serve() {
	d := newDeps()
	d.openStore()
	defer d.close()

	logger := d.logger
	logger.Info("starting the music-dna", zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	insights, err := newInsights(ctx, d.config.AI, logger.Named("ai"))
	if err != nil {
		logger.Fatal("creating insights provider", zap.Error(err))
	}

	server, err := api.New(api.Config{
		Addr:         d.config.Server.Addr,
		CORSOrigins:  d.config.Server.CORSOrigins,
		ReadTimeout:  d.config.Server.ReadTimeout,
		WriteTimeout: d.config.Server.WriteTimeout,
		Debug:        viper.GetBool("debug"),
	}, api.Deps{
		Catalog:  d.catalog,
		Buddies:  d.buddies,
		Insights: insights,
		Metrics:  d.metrics,
	}, logger.Named("api"))
	if err != nil {
		logger.Fatal("creating api server", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(ctx)
	})

	if addr := d.config.Server.MetricsAddr; addr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, addr, d, logger)
		})
	}

	g.Go(func() error {
		return d.buddies.RunJanitor(ctx, d.config.Janitor.Interval)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown completed"))
}

func serveMetrics(ctx context.Context, addr string, d *deps, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(d.registry))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return <-errCh
}
