package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes returns the relay's HTTP router. Metrics are served from
// gatherer.
func SetupRoutes(hub *Hub, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", HealthHandler(hub))
	r.Get("/ws", WebSocketHandler(hub))
	r.Get("/roster", RosterHandler(hub))
	r.Get("/presence/{identity}", PresenceHandler(hub))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
