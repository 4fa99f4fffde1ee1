package guardrail

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/atelier-gate/internal/engine"
	"github.com/xela07ax/atelier-gate/internal/infra"
	"go.uber.org/zap"
)

type LockoutProvider interface {
	GetLockedStudios(ctx context.Context) ([]string, error)
}

// LockoutManager — мгновенная блокировка студии оператором (kill-switch).
// L1 — локальная мапа, L2 — Redis Set, источник правды — PostgreSQL.
type LockoutManager struct {
	mu     sync.RWMutex
	locked map[string]struct{}

	repo   LockoutProvider
	rdb    *redis.Client
	logger *zap.Logger
}

func NewLockoutManager(rdb *redis.Client, repo LockoutProvider, logger *zap.Logger) *LockoutManager {
	return &LockoutManager{
		locked: make(map[string]struct{}),
		repo:   repo,
		rdb:    rdb,
		logger: logger.With(zap.String("mod", "lockout")),
	}
}

// Init загружает текущее состояние блокировок при старте шлюза
// и при необходимости прогревает Redis из БД.
func (m *LockoutManager) Init(ctx context.Context) error {
	ids, err := m.repo.GetLockedStudios(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch locked studios from DB: %w", err)
	}

	return engine.WarmupState(ctx, m.rdb, m.logger, ids,
		infra.RedisKeyLockedStudios, infra.RedisKeyLockWarmupLockout,
		func(items []string) {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.locked = make(map[string]struct{}, len(items))
			for _, id := range items {
				m.locked[id] = struct{}{}
			}
		})
}

// StartListener подписывается на сигналы блокировки в реальном времени.
// Формат сообщения: "studioID:on" / "studioID:off".
func (m *LockoutManager) StartListener(ctx context.Context) {
	engine.ListenStateResilient(ctx, m.rdb, m.logger, infra.RedisChanLockout,
		func() error { return m.Init(ctx) }, // Синхронизация при переподключении
		func(id, val string) {
			m.mu.Lock()
			defer m.mu.Unlock()
			if val == "on" || val == "true" {
				m.locked[id] = struct{}{}
			} else {
				delete(m.locked, id)
			}
		},
	)
}

// IsLocked — максимально быстрая проверка в Hot Path.
func (m *LockoutManager) IsLocked(studioID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.locked[studioID]
	return ok
}
