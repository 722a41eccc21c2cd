package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ratelens/internal/middleware"
)

// RouterConfig carries the middleware knobs the router needs.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// NewRouter builds the full route tree with the standard middleware stack.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).Handler)
	}

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/filters", h.GetFilterOptions)
		r.Get("/partitions", h.SearchPartitions)
		r.Get("/partitions/summary", h.PartitionSummary)
		r.Post("/datasets/combine", h.CombineDataset)
		r.Post("/datasets/analyze", h.AnalyzeDataset)
		r.Route("/insights", func(r chi.Router) {
			r.Get("/values", h.InsightsUniqueValues)
			r.Get("/stats", h.InsightsStats)
			r.Get("/sample", h.InsightsSample)
		})
	})

	return r
}
