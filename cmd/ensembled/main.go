package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"bigsmall-bot/internal/cfg"
	"bigsmall-bot/internal/ensemble"
	"bigsmall-bot/internal/feed"
	"bigsmall-bot/internal/history"
	"bigsmall-bot/internal/metrics"
	"bigsmall-bot/internal/providers"
	"bigsmall-bot/internal/server"
	"bigsmall-bot/internal/storage"

	sig "bigsmall-bot/internal/signal"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store := initializeStorage(c)
	if store != nil {
		defer store.Close()
	}

	ens := buildEnsemble(c, store, mw)
	hist := history.New(c.HistorySize)

	startMetricsServer(c)
	startFeed(ctx, c, hist, mw)

	api := buildAPIServer(ens, hist, store, mw, c.APIPort)
	go func() {
		if err := api.Start(); err != nil {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}

// initializeStorage opens persistence when DATA_PATH is configured. The
// service runs fine without it; predictors just start from defaults.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed, continuing without persistence")
		return nil
	}
	return store
}

func buildEnsemble(c cfg.Settings, store *storage.Store, mw *metrics.Wrapper) *ensemble.Ensemble {
	opts := []ensemble.Option{ensemble.WithObserver(mw)}
	if store != nil {
		opts = append(opts, ensemble.WithSink(store))
	}

	ens := ensemble.New(c.EnsembleConfig(), providers.Default(), opts...)

	if store != nil {
		rows, err := store.LoadPredictors()
		if err != nil {
			log.Warn().Err(err).Msg("predictor state load failed, starting from defaults")
		} else if len(rows) > 0 {
			ens.Restore(rows)
		}
	}
	return ens
}

func buildAPIServer(ens *ensemble.Ensemble, hist *history.Buffer, store *storage.Store, mw *metrics.Wrapper, port int) *server.Server {
	var recorder server.RoundRecorder
	if store != nil {
		recorder = store
	}
	return server.New(ens, hist, recorder, mw, port)
}

// startMetricsServer serves Prometheus metrics and a liveness endpoint.
func startMetricsServer(c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
		}
		log.Info().Int("port", c.MetricsPort).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// startFeed wires the configured draw sources into the history window.
// Both sources are optional; with neither configured the history is filled
// only by whatever the operator replays through the API host.
func startFeed(ctx context.Context, c cfg.Settings, hist *history.Buffer, mw *metrics.Wrapper) {
	events := make(chan sig.Event, 64)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				hist.Push(ev)
			}
		}
	}()

	if c.FeedURL != "" {
		poller := feed.NewPoller(c.FeedURL, c.PollInterval, c.RESTTimeout, mw)
		go poller.Run(ctx, events)
	}
	if c.FeedWsURL != "" {
		ws := feed.NewWS(c.FeedWsURL, mw)
		go func() {
			if err := ws.Stream(ctx, events); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("feed stream terminated")
			}
		}()
	}
	if c.FeedURL == "" && c.FeedWsURL == "" {
		log.Warn().Msg("no feed configured, history window will stay empty")
	}
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sigCh:
		log.Info().Str("signal", s.String()).Msg("shutdown signal received")
		cancel()
	case <-ctx.Done():
	}
}
