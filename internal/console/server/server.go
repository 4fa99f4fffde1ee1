package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/atelier-gate/internal/console/handler"
	"github.com/xela07ax/atelier-gate/internal/console/service"
	"github.com/xela07ax/atelier-gate/internal/infra"
	"github.com/xela07ax/atelier-gate/internal/infra/auth"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// AuthService реализует auth.TokenValidator через embedding BaseValidator
	authService *service.AuthService

	// Обработчики бизнес-доменов
	authHandler     *handler.AuthHandler     // /auth/token
	proposalHandler *handler.ProposalHandler // /v1/proposals (HITL)
	policyHandler   *handler.PolicyHandler   // /v1/policies, /v1/studios
	auditHandler    *handler.AuditHandler    // /v1/audit, /api/v1/overview
}

// NewConsoleServer инициализирует сервер консоли со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	authService *service.AuthService,
	authH *handler.AuthHandler,
	proposalH *handler.ProposalHandler,
	policyH *handler.PolicyHandler,
	auditH *handler.AuditHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		cfg:             cfg,
		authService:     authService,
		authHandler:     authH,
		proposalHandler: proposalH,
		policyHandler:   policyH,
		auditHandler:    auditH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authService, s.logger))

		// Dashboard
		r.Get("/api/v1/overview", s.auditHandler.GetOverview)

		// Human-in-the-loop: очередь решений
		r.Route("/v1/proposals", func(r chi.Router) {
			r.Get("/", s.proposalHandler.List) // Очередь заявок ?status=PENDING
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.proposalHandler.GetDetails)
				r.Post("/decide", s.proposalHandler.Decide) // Approve/Reject + Redis Publish
			})
		})

		// Guardrail-политики студий
		r.Route("/v1/policies", func(r chi.Router) {
			r.Get("/", s.policyHandler.List)
			r.Put("/{studioID}", s.policyHandler.Upsert) // Полный документ + инвалидация кэша
		})

		// Экстренная блокировка студии
		r.Route("/v1/studios/{studioID}", func(r chi.Router) {
			r.Post("/lock", s.policyHandler.Lock)
			r.Post("/unlock", s.policyHandler.Unlock)
		})

		// Аудит (Observability)
		r.Get("/v1/audit", s.auditHandler.GetEntries)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
