package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fundvault/ragcore/internal/config"
	"github.com/fundvault/ragcore/internal/handler"
	"github.com/fundvault/ragcore/internal/middleware"
)

// Dependencies holds every injected service the router wires into handlers.
type Dependencies struct {
	DB                 handler.DBPinger
	FrontendURL        string
	Version            string
	Metrics            *middleware.Metrics
	MetricsReg         *prometheus.Registry
	InternalAuthSecret string

	Orchestrator  handler.Orchestrator
	Conversations handler.ConversationManager
	Feedback      handler.FeedbackRecorder
	ConfigStore   *config.Store

	ChatRateLimiter *middleware.RateLimiter
}

// New creates and configures the Chi router with the spec's six chat
// endpoints plus health and metrics (§6).
func New(deps *Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(deps.FrontendURL))
	if deps.Metrics != nil {
		r.Use(middleware.Monitoring(deps.Metrics))
	}

	r.Get("/healthz", handler.Health(deps.DB, deps.Version))
	if deps.MetricsReg != nil {
		r.Handle("/metrics", middleware.MetricsHandler(deps.MetricsReg))
	}

	// Completion calls (embedding, retrieval, generation) run longer than
	// plain CRUD reads, so /chat/message gets a 60s budget; history and
	// feedback stay on the 30s default.
	timeout30s := middleware.Timeout(30 * time.Second)
	timeout60s := middleware.Timeout(60 * time.Second)

	r.Group(func(r chi.Router) {
		if deps.ChatRateLimiter != nil {
			r.Use(middleware.RateLimit(deps.ChatRateLimiter))
		}

		r.With(timeout60s).Post("/chat/message", handler.ChatMessage(deps.Orchestrator))
		r.With(timeout30s).Get("/chat/history/{sessionId}", handler.GetHistory(deps.Conversations))
		r.With(timeout30s).Delete("/chat/history/{sessionId}", handler.DeleteHistory(deps.Conversations))
		r.With(timeout30s).Post("/chat/feedback", handler.PostFeedback(deps.Feedback))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.InternalAuth(deps.InternalAuthSecret))
		r.With(timeout30s).Get("/admin/rag/config", handler.GetConfig(deps.ConfigStore))
		r.With(timeout30s).Put("/admin/rag/config", handler.PutConfig(deps.ConfigStore))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, http.StatusNotFound, "not_found", "route not found")
	})

	return r
}
