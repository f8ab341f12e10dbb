package main

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/hummingbird/service/internal/media"
	appMiddleware "github.com/hummingbird/service/internal/middleware"
	"github.com/hummingbird/service/internal/response"
	"github.com/hummingbird/service/internal/upload"

	_ "github.com/hummingbird/service/docs/swagger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	log     logrus.FieldLogger
	uploads *upload.Handler
	media   *media.Handler
	checks  map[string]pinger
	metrics http.Handler
}

func newRouter(d routerDeps) http.Handler {
	if d.metrics == nil {
		d.metrics = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(d.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})
	r.Get("/ready", readyHandler(d.checks, d.log))
	r.Handle("/metrics", d.metrics)

	// Swagger UI, available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/media", func(r chi.Router) {
		r.Post("/", d.uploads.Upload)
		r.Get("/{id}", d.media.Get)
		r.Delete("/{id}", d.media.Delete)
		r.Get("/{id}/download", d.media.Download)
	})

	return r
}

// readyHandler pings every dependency and reports the failing ones by name.
func readyHandler(checks map[string]pinger, log logrus.FieldLogger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		status := make(map[string]string, len(names))
		ready := true
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				log.WithError(err).WithField("dependency", name).Warn("readiness check failed")
				status[name] = "unavailable"
				ready = false
				continue
			}
			status[name] = "ok"
		}

		if !ready {
			response.JSON(w, http.StatusServiceUnavailable, response.Envelope{Success: false, Data: status, Error: "not ready"})
			return
		}
		response.OK(w, status)
	}
}
