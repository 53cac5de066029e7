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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/angsh-d/clinops-intel-sub000/internal/metrics"
	"github.com/angsh-d/clinops-intel-sub000/internal/utils"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously refresh the study overview",
	Long: `watch redraws the overview screen on a fixed interval, invalidating
the response cache before each refresh so every draw reflects current
backend state. With watch.metrics_address configured it also exposes
Prometheus metrics while running.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "refresh interval (defaults to config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = a.cfg.Watch.Interval
	}
	if interval < time.Second {
		interval = time.Second
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		a.logger.Warn("metrics registration failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := a.cfg.Watch.MetricsAddress; addr != "" {
		srv := startMetricsServer(a, addr, stop)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	latencies := utils.NewLatencyTracker(128)

	render := func() {
		started := time.Now()
		data, err := fetchOverview(ctx, a.client)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			printError("refresh failed: %v", err)
			return
		}
		latencies.Observe(time.Since(started))

		fmt.Print(ansiClear)
		renderOverview(os.Stdout, data)
		fmt.Printf("\n%s | refresh %s | p95 %s | ctrl-c to exit\n",
			time.Now().Format("15:04:05"),
			utils.HumanDuration(interval),
			latencies.Percentile(95).Round(time.Millisecond))
	}

	render()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-ticker.C:
			a.client.InvalidateCache()
			render()
		}
	}
}

func startMetricsServer(a *app, addr string, stop context.CancelFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		a.logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", "error", err)
			stop()
		}
	}()
	return srv
}
