package router

import (
	"net/http"

	"go.uber.org/zap"

	"checkout-fraud-engine/internal/interfaces/http/handler"
)

// Handlers groups the HTTP handlers served by the router
type Handlers struct {
	Fraud   *handler.FraudHandler
	Session *handler.SessionHandler
	Order   *handler.OrderHandler
	Review  *handler.ReviewHandler
	Health  *handler.HealthHandler
	Metrics http.Handler
}

// Router holds all HTTP handlers
type Router struct {
	mux      *http.ServeMux
	handlers Handlers
	auth     *Authenticator
	handler  http.Handler
}

// NewRouter creates a new router with all routes configured
func NewRouter(handlers Handlers, auth *Authenticator, logger *zap.Logger) *Router {
	r := &Router{
		mux:      http.NewServeMux(),
		handlers: handlers,
		auth:     auth,
	}
	r.setupRoutes()
	r.handler = instrument(r.mux, logger)
	return r
}

func (r *Router) setupRoutes() {
	h := r.handlers

	// Health endpoints
	r.mux.HandleFunc("GET /health", h.Health.Health)
	r.mux.HandleFunc("GET /ready", h.Health.Ready)
	r.mux.HandleFunc("GET /live", h.Health.Live)
	if h.Metrics != nil {
		r.mux.Handle("GET /metrics", h.Metrics)
	}

	// Checkout-facing endpoints
	r.mux.HandleFunc("POST /api/v1/fraud/assess", h.Fraud.Assess)
	r.mux.HandleFunc("POST /api/v1/fraud/assess/batch", h.Fraud.BatchAssess)
	r.mux.HandleFunc("POST /api/v1/fraud/sessions", h.Session.Start)
	r.mux.HandleFunc("GET /api/v1/fraud/sessions/{id}", h.Session.Get)
	r.mux.HandleFunc("POST /api/v1/fraud/sessions/{id}/events", h.Session.RecordEvents)
	r.mux.HandleFunc("POST /api/v1/fraud/orders/complete", h.Order.Complete)
	r.mux.HandleFunc("GET /api/v1/fraud/trust/{user_id}", r.auth.Require(h.Review.GetTrust, RoleCheckout, RoleReviewer, RoleAdmin))

	// Reviewer workbench
	reviewer := func(next http.HandlerFunc) http.HandlerFunc {
		return r.auth.Require(next, RoleReviewer, RoleAdmin)
	}
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return r.auth.Require(next, RoleAdmin)
	}

	r.mux.HandleFunc("GET /api/v1/fraud/signals", reviewer(h.Review.ListSignals))
	r.mux.HandleFunc("GET /api/v1/fraud/signals/{id}", reviewer(h.Review.GetSignal))
	r.mux.HandleFunc("POST /api/v1/fraud/signals/{id}/resolve", reviewer(h.Review.ResolveSignal))
	r.mux.HandleFunc("POST /api/v1/fraud/trust/{user_id}/reinstate", reviewer(h.Review.Reinstate))
	r.mux.HandleFunc("GET /api/v1/fraud/users/{user_id}/profile", reviewer(h.Review.GetProfile))

	// Rule administration
	r.mux.HandleFunc("GET /api/v1/fraud/rules", reviewer(h.Review.ListRules))
	r.mux.HandleFunc("GET /api/v1/fraud/rules/{key}", reviewer(h.Review.GetRule))
	r.mux.HandleFunc("GET /api/v1/fraud/rules/{key}/stats", reviewer(h.Review.RuleStats))
	r.mux.HandleFunc("PUT /api/v1/fraud/rules/{key}", admin(h.Review.UpdateRule))
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.handler.ServeHTTP(w, req)
}

// Handler returns the http.Handler
func (r *Router) Handler() http.Handler {
	return r
}
