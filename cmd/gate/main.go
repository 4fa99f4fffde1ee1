package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/atelier-gate/internal/audit"
	"github.com/xela07ax/atelier-gate/internal/connectors"
	"github.com/xela07ax/atelier-gate/internal/engine"
	"github.com/xela07ax/atelier-gate/internal/guardrail"
	"github.com/xela07ax/atelier-gate/internal/infra"
	"github.com/xela07ax/atelier-gate/internal/infra/auth"
	"github.com/xela07ax/atelier-gate/internal/repository/postgres"
	"github.com/xela07ax/atelier-gate/internal/tools"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Контекст жизненного цикла фоновых горутин: SIGTERM останавливает слушателей
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	store, err := postgres.New(appCtx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to init postgres", zap.Error(err))
	}
	defer store.Close()

	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := store.Ping(pingCtx); err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	pingCancel()

	// 3. Control Plane: кэш политик и lockout-менеджер
	policyCache := guardrail.NewMemoPolicies(store, rdb, logger)
	if err := policyCache.Refresh(appCtx); err != nil {
		logger.Fatal("failed to load studio policies", zap.Error(err))
	}
	go policyCache.StartListener(appCtx)

	lockout := guardrail.NewLockoutManager(rdb, store, logger)
	if err := lockout.Init(appCtx); err != nil {
		logger.Fatal("failed to init lockout manager", zap.Error(err))
	}
	go lockout.StartListener(appCtx)

	evaluator := guardrail.NewEvaluator(policyCache, lockout, logger)

	// Метрики
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		logger.Info("metrics exporter started", zap.String("addr", addr))
		log.Fatal(http.ListenAndServe(addr, mux))
	}()

	// 4. Core: audit trail + шлюз + инструменты
	trail := audit.NewTrail(store, logger)
	gateway := engine.NewGateway(evaluator, trail, store, metrics, logger)

	// Почта уходит через Reliability-обертку (Rate Limit, CB, Retries)
	mailer := engine.NewReliabilityWrapper(&connectors.MockMailConnector{}, engine.ReliabilityConfig{
		RatePerSec:    cfg.Gate.MailRatePerSec,
		Burst:         cfg.Gate.MailBurst,
		CBMaxRequests: cfg.Gate.CBMaxRequests,
		CBInterval:    cfg.Gate.CBInterval,
		CBTimeout:     cfg.Gate.CBTimeout,
	}, metrics)

	gateway.Register(tools.NewUpdateClientTool(store))
	gateway.Register(tools.NewSendEmailTool(mailer, store))
	gateway.Register(tools.NewCreateInvoiceTool(store, store))

	// Слушаем решения операторов из консоли
	go gateway.StartDecisionListener(appCtx, rdb)

	// 5. HTTP Server
	pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse auth public key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(pubKey)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(engine.TracingMiddleware) // Trace-ID до аутентификации

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(validator, logger))
		r.Post("/v1/execute", gateway.HandleExecute)
		r.Post("/v1/proposals/{id}/approve", gateway.HandleApprove)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("atelier gate started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("atelier gate stopping")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown failed", zap.Error(err))
	}
	logger.Info("atelier gate exited properly")
}
