package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobsignal-engine/internal/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query API without background passes",
	Long: `Serve the read-only query API (archetypes, coverage, health, SSE events,
Prometheus metrics) on the configured port. No scheduled passes run;
pair with one-shot ingest/sweep/aggregate invocations, or use daemon.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	eng, err := openEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer eng.Close()

	return serveAPI(cmd.Context(), eng)
}

// serveAPI blocks until the context ends or a termination signal arrives,
// then drains in-flight requests.
func serveAPI(ctx context.Context, eng *engine) error {
	handler := httpapi.Handler(httpapi.Deps{
		DB:       eng.db,
		Hub:      eng.hub,
		Registry: eng.registry,
		Log:      eng.log,
	})

	srv := &http.Server{
		// The API is a local surface; anything public sits behind a proxy.
		Addr:              fmt.Sprintf("127.0.0.1:%d", eng.cfg.App.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		eng.log.Info("api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		eng.log.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		eng.log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// SSE subscribers hold their connections past the drain deadline.
		_ = srv.Close()
	}
	eng.log.Info("api stopped")
	return nil
}
