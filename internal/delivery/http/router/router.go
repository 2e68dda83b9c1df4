package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/user/scraper-service/internal/delivery/http/handler"
	"github.com/user/scraper-service/internal/delivery/http/middleware"
)

// New assembles the service router. The scrape route gets a generous
// timeout of its own since a batch blocks until every task completes.
func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/api/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/queue", func(r chi.Router) {
			r.With(chimw.Timeout(30*time.Second)).Route("/urls", func(r chi.Router) {
				r.Post("/", h.BulkSubmit)
				r.Get("/", h.ListURLs)
				r.Get("/{id}", h.GetURL)
				r.Delete("/{id}", h.DeleteURL)
				r.Patch("/{id}/selection", h.SetSelection)
			})
			r.With(chimw.Timeout(30*time.Second)).Route("/selection", func(r chi.Router) {
				r.Post("/select-all", h.SelectAll)
				r.Post("/unselect-all", h.UnselectAll)
			})
			r.With(chimw.Timeout(10*time.Minute)).Post("/scrape", h.ScrapeSelected)
			r.With(chimw.Timeout(30*time.Second)).Get("/stats", h.Stats)
		})
		r.With(chimw.Timeout(30*time.Second)).Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)
		})
	})

	return r
}
