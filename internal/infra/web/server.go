package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"assessment-activation/internal/config"
	"assessment-activation/internal/infra/redis"
	"assessment-activation/internal/usecase"
)

// Server wires the use cases into the HTTP surface. It owns no state of its
// own beyond configuration.
type Server struct {
	activationUC *usecase.ActivationUseCase
	adminUC      *usecase.AdminCodeUseCase
	authUC       *usecase.AdminAuthUseCase
	analysisUC   *usecase.AnalysisUseCase

	// limiter is nil when Redis is not configured; rate limiting is then off.
	limiter *redis.RateLimiter
	limits  config.RedisConfig

	log *zerolog.Logger
}

func NewServer(
	activationUC *usecase.ActivationUseCase,
	adminUC *usecase.AdminCodeUseCase,
	authUC *usecase.AdminAuthUseCase,
	analysisUC *usecase.AnalysisUseCase,
	limiter *redis.RateLimiter,
	limits config.RedisConfig,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		activationUC: activationUC,
		adminUC:      adminUC,
		authUC:       authUC,
		analysisUC:   analysisUC,
		limiter:      limiter,
		limits:       limits,
		log:          logger,
	}
}

// Routes builds the router. Policy rejections on the public surface are plain
// 200 responses; HTTP status codes are reserved for transport-level problems.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/activation", func(r chi.Router) {
		r.With(s.rateLimit("verify", s.limits.VerifyPerMinute)).
			Post("/verify", s.handleVerify)
		r.Post("/record-usage", s.handleRecordUsage)
		r.Get("/status", s.handleStatus)
	})

	r.With(s.rateLimit("ai", s.limits.AIPerMinute)).
		Post("/ai/generate", s.handleGenerateAnalysis)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
			r.Post("/change-password", s.handleChangePassword)

			r.Get("/codes", s.handleListCodes)
			r.Post("/codes", s.handleCreateCode)
			r.Post("/codes/bulk", s.handleCreateCodesBulk)
			r.Put("/codes/{id}", s.handleUpdateCode)
			r.Post("/codes/{id}/revoke", s.handleRevokeCode)
			r.Delete("/codes/{id}", s.handleDeleteCode)

			r.Get("/stats", s.handleStats)
			r.Get("/records/{code}", s.handleListRecords)
		})
	})

	return r
}
