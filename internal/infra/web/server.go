package web

import (
	"net/http"
	"time"

	"website-billing/internal/config"
	infraRedis "website-billing/internal/infra/redis"
	"website-billing/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type Server struct {
	requestUC  usecase.RequestUseCase
	websiteUC  usecase.WebsiteUseCase
	billingUC  usecase.BillingUseCase
	reconciler usecase.BillingReconciler
	auth       *AuthManager
	limiter    *infraRedis.RateLimiter
	intake     config.IntakeConfig
	log        *zerolog.Logger
}

func NewServer(
	requestUC usecase.RequestUseCase,
	websiteUC usecase.WebsiteUseCase,
	billingUC usecase.BillingUseCase,
	reconciler usecase.BillingReconciler,
	auth *AuthManager,
	limiter *infraRedis.RateLimiter,
	intake config.IntakeConfig,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "web").Logger()
	return &Server{
		requestUC:  requestUC,
		websiteUC:  websiteUC,
		billingUC:  billingUC,
		reconciler: reconciler,
		auth:       auth,
		limiter:    limiter,
		intake:     intake,
		log:        &srvLog,
	}
}

// Router builds the full route tree: public intake, admin API and the
// operational endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(traceID)
	r.Use(recoverer(s.log))
	r.Use(requestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Session login for the admin UI: the API key buys a cookie.
	r.Post("/api/v1/admin/auth/login", loginHandler(s.auth))
	r.Post("/api/v1/admin/auth/logout", logoutHandler(s.auth))

	// Public intake, rate limited per client IP.
	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(rateLimit(s.limiter, s.intake.RateLimit, s.intake.RateWindow, s.log))
		}
		r.Post("/api/v1/requests", requestSubmitHandler(s.requestUC))
	})

	// Admin API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/api/v1/requests", requestsListHandler(s.requestUC))
		r.Post("/api/v1/requests/{id}/approve", requestDecisionHandler(s.requestUC, true))
		r.Post("/api/v1/requests/{id}/reject", requestDecisionHandler(s.requestUC, false))

		r.Get("/api/v1/websites", websitesListHandler(s.websiteUC))
		r.Post("/api/v1/websites", websiteCreateHandler(s.websiteUC))
		r.Get("/api/v1/websites/{id}", websiteGetHandler(s.websiteUC))
		r.Post("/api/v1/websites/{id}/deploy", websiteDeployHandler(s.websiteUC))

		r.Put("/api/v1/websites/{id}/billing", billingUpdateHandler(s.billingUC))
		r.Post("/api/v1/websites/{id}/billing/payments", paymentRecordHandler(s.billingUC))

		r.Post("/api/v1/billing/reconcile", reconcileHandler(s.reconciler))
		r.Get("/api/v1/stats", statsHandler(s.websiteUC))
	})

	return r
}

// authMiddleware guards the admin API with either the static API key or
// an admin session token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.Authenticate(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HTTPServer wraps the router in a server the caller owns, so main can
// drive graceful shutdown.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
