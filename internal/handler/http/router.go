package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopperslink/variant-service/internal/service"
	"github.com/shopperslink/variant-service/pkg/health"
	"github.com/shopperslink/variant-service/pkg/middleware"
)

// Services groups the application services the router exposes.
type Services struct {
	Attributes *service.AttributeService
	Drafts     *service.DraftService
	Variants   *service.VariantService
}

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	ServiceName    string
	RequestTimeout time.Duration
	PprofCIDRs     []string
	CORSOrigins    []string

	// CacheMaxAge is the max-age in seconds for anonymous catalog reads; 0 disables it.
	CacheMaxAge int
}

// NewRouter creates a chi router with all variant service routes registered.
func NewRouter(
	svcs Services,
	healthHandler *health.Handler,
	validate middleware.TokenValidator,
	limiter *middleware.RateLimiter,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins...)))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	attributeHandler := NewAttributeHandler(svcs.Attributes, logger)
	draftHandler := NewDraftHandler(svcs.Drafts, logger)
	variantHandler := NewVariantHandler(svcs.Variants, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(limiter.Handler)
		r.Use(ContentTypeJSON)

		// Public catalog reads
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.CacheMaxAge))

			r.Get("/attributes", attributeHandler.ListAttributes)
			r.Get("/attributes/{id}", attributeHandler.GetAttribute)
			r.Get("/products/{productId}/variants", variantHandler.ListByProduct)
		})

		// Catalog administration
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validate))
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Post("/attributes", attributeHandler.CreateAttribute)
			r.Put("/attributes/{id}", attributeHandler.UpdateAttribute)
			r.Delete("/attributes/{id}", attributeHandler.DeleteAttribute)
			r.Post("/attributes/{id}/values", attributeHandler.AddValue)
			r.Delete("/attributes/{id}/values/{valueId}", attributeHandler.RemoveValue)
		})

		// Product wizard
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(validate))
			r.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleVendor))

			r.Post("/variant-matrix/preview", draftHandler.Preview)

			r.Route("/variant-drafts", func(r chi.Router) {
				r.Post("/", draftHandler.CreateDraft)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", draftHandler.GetDraft)
					r.Delete("/", draftHandler.DeleteDraft)
					r.Put("/category", draftHandler.SetCategory)
					r.Put("/base-sku", draftHandler.SetBaseSKU)
					r.Post("/attributes/{attributeId}/toggle", draftHandler.ToggleAttribute)
					r.Post("/attributes/{attributeId}/values/toggle", draftHandler.ToggleValue)
					r.Post("/attributes/{attributeId}/values/custom", draftHandler.AddCustomValue)
					r.Patch("/rows/{rowId}", draftHandler.UpdateRow)
					r.Delete("/rows/{rowId}", draftHandler.RemoveRow)
					r.Post("/bulk", draftHandler.ApplyBulk)
					r.Put("/global-pricing", draftHandler.SetGlobalPricing)
					r.Post("/skus", draftHandler.GenerateSKUs)
					r.Post("/commit", draftHandler.CommitDraft)
				})
			})
		})
	})

	return r
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
