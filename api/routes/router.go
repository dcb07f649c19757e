package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/checkout"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/currency"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

type sessionService interface {
	controllers.SessionService
	Authenticate(ctx context.Context, token string) (session.Session, error)
}

type rateLimiter interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Deps carries everything the HTTP surface is wired to. Pingers, Limiter,
// Gatherer and Metrics are optional.
type Deps struct {
	Catalog   catalog.Catalog
	Carts     controllers.CartProvider
	Sessions  sessionService
	Checkout  checkout.Service
	Converter currency.Converter
	Pingers   map[string]controllers.Pinger
	Limiter   rateLimiter
	Gatherer  prometheus.Gatherer
	Metrics   *metrics.Storefront
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Limiter, logg)).Post("/login", controllers.AuthLogin(deps.Sessions, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Sessions, logg))
		r.With(middleware.Auth(deps.Sessions, logg)).Get("/me", controllers.AuthMe(logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Sessions, logg))

		r.Get("/categories", controllers.CategoryList(deps.Catalog, logg))
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Catalog, deps.Converter, logg))
			r.Get("/{id}", controllers.ProductDetail(deps.Catalog, deps.Converter, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Carts, deps.Converter, logg))
			r.Delete("/", controllers.CartClear(deps.Carts, deps.Converter, logg))
			r.Post("/items", controllers.CartAddItem(deps.Carts, deps.Catalog, deps.Converter, logg))
			r.Patch("/items/{id}", controllers.CartUpdateItem(deps.Carts, deps.Converter, logg))
			r.Delete("/items/{id}", controllers.CartRemoveItem(deps.Carts, deps.Converter, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, deps.Carts, logg))
	})

	return r
}
