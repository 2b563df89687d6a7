package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/EcommerceGo/pkg/health"
	"github.com/utafrali/EcommerceGo/pkg/middleware"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/identity"
)

// RouterConfig carries the cross-cutting settings the router needs.
type RouterConfig struct {
	ValidateToken middleware.TokenValidator
	Identity      *identity.Resolver
	CORS          middleware.CORSConfig
	WriteRPS      float64
	WriteBurst    int
	PprofCIDRs    []string
}

// NewRouter creates a chi router with all wishlist service routes registered.
func NewRouter(
	wishlists *WishlistHandler,
	admin *AdminHandler,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("wishlist"))
	r.Use(middleware.Tracing("wishlist"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	r.Route("/api/v1/wishlists", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORS))
		r.Use(ContentTypeJSON)
		r.Use(NoStore)
		r.Use(middleware.OptionalAuth(cfg.ValidateToken))
		r.Use(middleware.RateLimit(cfg.WriteRPS, cfg.WriteBurst, middleware.ClientKey, logger))

		r.Get("/popular", wishlists.Popular)

		// Reads never start a session.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Identity.Resolve(false))

			r.Get("/", wishlists.ListLists)
			r.Get("/notices", wishlists.PopNotices)
			r.Get("/items/{productId}", wishlists.IsInList)
			r.Get("/{listId}", wishlists.GetList)
			r.Get("/{listId}/items", wishlists.ListItems)
		})

		// Writes, the default list and merges may start one.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Identity.Resolve(true))

			r.Post("/", wishlists.CreateList)
			r.Get("/default", wishlists.DefaultList)
			r.Put("/{listId}", wishlists.RenameList)
			r.Delete("/{listId}", wishlists.DeleteList)

			r.Post("/items", wishlists.AddItem)
			r.Delete("/items/{productId}", wishlists.RemoveItem)
			r.Post("/items/{productId}/cart", wishlists.MoveToCart)

			r.Post("/merge/login", wishlists.MergeOnLogin)
			r.Post("/merge/register", wishlists.MergeOnRegister)
		})
	})

	r.Route("/api/v1/admin/wishlists", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.ValidateToken))
		r.Use(middleware.RequireRole("admin"))

		r.Get("/products/{productId}/count", admin.CountByProduct)
		r.Get("/export", admin.Export)
		r.Post("/jobs/price-drops", admin.RunPriceDrops)
		r.Post("/jobs/sweep", admin.RunSweep)
	})

	return r
}
