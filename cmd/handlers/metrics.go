/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"newsbrief/internal/logger"
)

// NewMetricsCmd creates the metrics command that serves clustering and LLM
// usage counters in Prometheus text format.
func NewMetricsCmd() *cobra.Command {
	var (
		port int
		days int
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve usage metrics over HTTP",
		Long: `Serve clustering and LLM usage counters on /metrics in Prometheus
text format, aggregated over a trailing window of days.

Examples:
  # Serve on the default port 9090 with a 7-day window
  newsbrief metrics

  # Custom port and a 30-day window
  newsbrief metrics --port 9191 --days 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMetrics(cmd.Context(), port, days)
		},
	}

	cmd.Flags().IntVar(&port, "port", 9090, "HTTP port to listen on")
	cmd.Flags().IntVar(&days, "days", 7, "Trailing window in days to aggregate")

	return cmd
}

func runMetrics(ctx context.Context, port, days int) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		text, err := a.usage.MetricsText(r.Context(), time.Now(), days)
		if err != nil {
			logger.Error("metrics collection failed", err)
			http.Error(w, "metrics collection failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, text)
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
