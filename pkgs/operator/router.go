package operator

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const ceremonyRoute = "ceremony"

// RegisterRoutes creates the peer, instruction and introspection routes
func RegisterRoutes(s *Server, gatherer prometheus.Gatherer) {
	s.Router.Use(rateLimit(s.Logger, generalLimit))

	// peers exchange stage data at a much higher rate than instructions arrive
	addRoute(s.Router, "POST", "/"+ceremonyRoute, s.ceremonyHandler, rateLimit(s.Logger, peerLimit))
	addRoute(s.Router, "POST", "/keygen", s.keygenHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "POST", "/sign", s.signHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "GET", "/ceremonies", s.ceremoniesHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "GET", "/outcomes/{kind}/{id}", s.outcomeHandler, rateLimit(s.Logger, routeLimit))
	addRoute(s.Router, "GET", "/health_check", s.healthHandler, rateLimit(s.Logger, routeLimit))
	if gatherer != nil {
		s.Router.Method("GET", "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

// Add route with optional middleware
func addRoute(router chi.Router, method, path string, handler http.HandlerFunc, middleware ...func(http.Handler) http.Handler) {
	if len(middleware) > 0 {
		router.With(middleware...).MethodFunc(method, path, handler)
	} else {
		router.MethodFunc(method, path, handler)
	}
}

func rateLimit(logger *zap.Logger, limit int) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		timePeriod,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("rate limit exceeded",
				zap.String("ip", r.RemoteAddr),
				zap.String("path", r.URL.Path))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(ErrTooManyRouteRequests))
		}),
	)
}
