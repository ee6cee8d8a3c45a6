package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-identity-worker/internal/config"
	"github.com/go-identity-worker/internal/transport/http/handler"
	appmiddleware "github.com/go-identity-worker/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the ingress router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.AccessLog(logger))
	r.Use(chimiddleware.Recoverer)

	ingress := appmiddleware.Ingress(deps.Verifier, cfg.IngressAPIKeyHash)
	eventsRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.IngressRateLimit), cfg.IngressRateBurst)

	healthH := handler.NewHealthHandler()
	eventH := handler.NewEventHandler(deps.Intake, logger)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.With(eventsRL.Limit, ingress).Post("/events", eventH.Ingest)

		r.Group(func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.AllowedOrigins,
				AllowedMethods:   []string{"POST", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appmiddleware.APIKeyHeader},
				AllowCredentials: false,
				MaxAge:           300,
			}))
			r.Use(ingress)
			r.Post("/preview", eventH.Preview)
			r.Options("/preview", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
		})
	})

	return r
}
