package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"obruk-backend/app/src/domain"
	"obruk-backend/app/src/infra"
)

// Server exposes the HTTP transport for the telemetry application.
type Server struct {
	handler http.Handler
}

// NewServer constructs an HTTP server that forwards requests to the
// application service. The returned handler carries the full middleware
// chain: correlation ID, panic recovery, metrics, rate limiting, CORS.
func NewServer(service domain.TelemetryService, cfg infra.Config, logger *infra.Logger) *Server {
	router := mux.NewRouter()
	handler := &handler{service: service, logger: logger}
	registerRoutes(router, handler)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.writeError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	router.Use(infra.CorrelationMiddleware)
	router.Use(infra.RecoveryMiddleware(logger))
	router.Use(infra.HTTPMiddleware(func(r *http.Request) string {
		if route := mux.CurrentRoute(r); route != nil {
			if pattern, err := route.GetPathTemplate(); err == nil && pattern != "" {
				return pattern
			}
		}
		return r.URL.Path
	}))

	limiter := infra.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	router.Use(limiter.Middleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Correlation-ID"},
		MaxAge:         300,
	}).Handler(router)

	return &Server{handler: corsHandler}
}

// Router returns the configured HTTP handler for reuse in tests or external
// HTTP servers.
func (s *Server) Router() http.Handler {
	return s.handler
}

// ServeHTTP allows Server to satisfy the http.Handler interface directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
