package serverhttp

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"inventory-recon/internal/config"
	"inventory-recon/internal/middleware"
	recHnd "inventory-recon/internal/reconcile/handler"
)

func NewRouter(cfg config.Config, store *recHnd.Store, logger zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	// health-check
	r.Get("/health", recHnd.Health)

	// сессии сверки
	r.Route("/sessions", recHnd.New(cfg, store, logger).Routes)

	if cfg.Pprof {
		r.Mount("/debug", chimw.Profiler())
	}

	return r
}
