package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"inventory-recon/internal/config"
	recHnd "inventory-recon/internal/reconcile/handler"
	serverhttp "inventory-recon/server/http"
)

func main() {
	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		runtime.GOMAXPROCS(runtime.NumCPU())
	}

	cfgPath := flag.String("config", "", "TOML config file (default $RECON_CONFIG)")
	sessionTTL := flag.Duration("session-ttl", 2*time.Hour, "drop sessions idle for this long")
	flag.Parse()
	if *sessionTTL <= 0 {
		*sessionTTL = 2 * time.Hour
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := config.SetupLogger(cfg)

	store := recHnd.NewStore()
	r := serverhttp.NewRouter(cfg, store, logger)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	logger.Info().Str("addr", cfg.Addr()).Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := time.NewTicker(*sessionTTL / 4)
	defer sweep.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-sweep.C:
			if n := store.Sweep(*sessionTTL); n > 0 {
				logger.Info().Int("dropped", n).Int("live", store.Len()).Msg("idle sessions swept")
			}
		}
	}

	// graceful shutdown
	logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("bye")
}
