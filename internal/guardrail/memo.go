package guardrail

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/atelier-gate/internal/domain"
	"github.com/xela07ax/atelier-gate/internal/infra"
	"go.uber.org/zap"
)

type PolicyRepository interface {
	GetAllPolicies(ctx context.Context) ([]domain.StudioPolicy, error)
}

// MemoPolicies — потокобезопасный In-memory кэш политик студий.
// Синхронизируется с PostgreSQL, но в рантайме Evaluator обращается
// только к памяти — это Hot Path авторизации.
type MemoPolicies struct {
	mu sync.RWMutex
	// Кэш: studio_id -> StudioPolicy
	policies map[string]domain.StudioPolicy

	repo   PolicyRepository // Используется только для Refresh()
	rdb    *redis.Client
	logger *zap.Logger
}

func NewMemoPolicies(repo PolicyRepository, rdb *redis.Client, logger *zap.Logger) *MemoPolicies {
	return &MemoPolicies{
		policies: make(map[string]domain.StudioPolicy),
		repo:     repo,
		rdb:      rdb,
		logger:   logger.Named("policy-cache"),
	}
}

// PolicyFor возвращает политику студии или nil, если она не настроена.
// Возвращаем глубокую копию: вызывающий не может повлиять на кэш
// даже через вложенные слайсы и мапы.
func (m *MemoPolicies) PolicyFor(studioID string) *domain.StudioPolicy {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.policies[studioID]
	if !ok {
		return nil
	}
	cp := p.Clone()
	return &cp
}

// Refresh выполняет «холодную загрузку» всех политик из PostgreSQL в память
// шлюза (при старте и по сигналу инвалидации).
func (m *MemoPolicies) Refresh(ctx context.Context) error {
	fromDB, err := m.repo.GetAllPolicies(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]domain.StudioPolicy, len(fromDB))
	for _, p := range fromDB {
		next[p.StudioID] = p
	}

	m.mu.Lock()
	m.policies = next
	m.mu.Unlock()

	m.logger.Info("policy cache refreshed", zap.Int("count", len(next)))
	return nil
}

// StartListener подписывается на широковещательный канал обновления политик.
// Консоль шлет "refresh" после любого изменения; шлюз перечитывает всю таблицу.
func (m *MemoPolicies) StartListener(ctx context.Context) {
	for {
		pubsub := m.rdb.Subscribe(ctx, infra.RedisChanPolicyUpdate)

		if _, err := pubsub.Receive(ctx); err != nil {
			m.logger.Error("failed to subscribe to policy updates", zap.Error(err))
			pubsub.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		// Синхронизация при каждом успешном коннекте: пока подписки не было,
		// сигналы могли пройти мимо.
		if err := m.Refresh(ctx); err != nil {
			m.logger.Error("policy refresh failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case _, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				if err := m.Refresh(ctx); err != nil {
					m.logger.Error("policy refresh failed", zap.Error(err))
				}
			}
		}

		pubsub.Close()
		time.Sleep(time.Second)
	}
}
