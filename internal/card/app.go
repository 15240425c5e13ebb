package card

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"Chlothzy/internal/catalog"
	"Chlothzy/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	SessionLimitPerMin int
	TrustProxy         bool
}

const (
	defaultSessionLimit = 10
	limitWindow         = 60 * time.Second
)

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if s.Log == nil {
		s.Log = deps.Log
	}

	metricsOn := deps.MetricsEnabled && deps.Registry != nil
	if deps.MetricsEnabled && deps.Registry == nil {
		deps.Log.Warn("metrics enabled but Registry is nil")
	}

	r := chi.NewRouter()
	setupMiddleware(r, deps)
	setupRoutes(r, s, deps, metricsOn)
	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		metrics := kit.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))
	}
}

func setupRoutes(r *chi.Mux, s *Server, deps HTTPDeps, metricsOn bool) {
	limit := deps.SessionLimitPerMin
	if limit <= 0 {
		limit = defaultSessionLimit
	}
	sessionLimiter := kit.NewIPRateLimiter(limit, limitWindow)
	sessionLimiter.TrustForwardedFor = deps.TrustProxy

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)

	if metricsOn {
		r.With(kit.MetricsAuth(deps.MetricsToken)).
			Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	products := &catalog.Server{Store: s.Catalog, Log: s.Log}
	r.Mount("/products", products.Routes())

	r.With(sessionLimiter.Middleware).Post("/session", s.createSession)

	r.Group(func(pr chi.Router) {
		pr.Use(RequireSession(s.Tokens))

		pr.Delete("/session", s.endSession)
		pr.Get("/card", s.getCard)

		pr.Get("/cart", s.getCart)
		pr.Post("/cart/items", s.addToCart)
		pr.Delete("/cart/items/{name}", s.removeFromCart)
		pr.Post("/buy", s.buyNow)

		pr.Put("/prefs/theme", s.setTheme)
		pr.Post("/prefs/theme/toggle", s.toggleTheme)
		pr.Post("/prefs/wishlist/toggle", s.toggleWishlist)
		pr.Put("/prefs/size", s.setSize)
		pr.Get("/wishlist", s.getWishlist)
	})
}
