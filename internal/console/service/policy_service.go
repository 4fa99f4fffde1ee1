package service

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/atelier-gate/internal/domain"
	"github.com/xela07ax/atelier-gate/internal/infra"
)

// PolicyRepository описывает требования сервиса к хранилищу политик.
type PolicyRepository interface {
	GetAllPolicies(ctx context.Context) ([]domain.StudioPolicy, error)
	UpsertPolicy(ctx context.Context, p *domain.StudioPolicy) error
	UpdateStudioStatus(ctx context.Context, id string, status domain.StudioStatus) error
}

type PolicyService struct {
	repo   PolicyRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewPolicyService(repo PolicyRepository, rdb *redis.Client, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("policy-service"),
	}
}

// GetAll возвращает все политики из БД
func (s *PolicyService) GetAll(ctx context.Context) ([]domain.StudioPolicy, error) {
	return s.repo.GetAllPolicies(ctx)
}

// Upsert сохраняет политику студии и уведомляет шлюзы об обновлении
func (s *PolicyService) Upsert(ctx context.Context, p *domain.StudioPolicy) error {
	if err := s.repo.UpsertPolicy(ctx, p); err != nil {
		return err
	}
	return s.notifyUpdate(ctx)
}

// LockStudio мгновенно блокирует все мутации студии (экстренный рубильник).
func (s *PolicyService) LockStudio(ctx context.Context, id string) error {
	return s.updateStudioState(ctx, id, domain.StudioLocked, "on", "studio-lock")
}

func (s *PolicyService) UnlockStudio(ctx context.Context, id string) error {
	return s.updateStudioState(ctx, id, domain.StudioActive, "off", "studio-unlock")
}

// updateStudioState — унифицированный механизм переключения состояний.
// Обновляет БД и транслирует сигнал в Redis.
func (s *PolicyService) updateStudioState(ctx context.Context, studioID string, status domain.StudioStatus, signalValue, actionName string) error {
	// 1. Persistence Layer
	if err := s.repo.UpdateStudioStatus(ctx, studioID, status); err != nil {
		s.logger.Error("failed to update studio status in DB",
			zap.String("studio_id", studioID),
			zap.String("action", actionName),
			zap.Error(err))
		return fmt.Errorf("%s database error: %w", actionName, err)
	}

	// 2. Real-time Signaling
	payload := fmt.Sprintf("%s:%s", studioID, signalValue)
	if err := s.rdb.Publish(ctx, infra.RedisChanLockout, payload).Err(); err != nil {
		// Шлюзы подтянут состояние из L2/БД при следующем переподключении
		s.logger.Warn("runtime signal delivery failed",
			zap.String("action", actionName),
			zap.String("channel", infra.RedisChanLockout),
			zap.Error(err))
	} else {
		s.logger.Info("studio state updated successfully",
			zap.String("studio_id", studioID),
			zap.String("action", actionName),
			zap.String("new_status", string(status)))
	}

	return nil
}

// notifyUpdate отправляет широковещательный сигнал в Redis.
// Все инстансы шлюза, подписанные на канал, вызовут Refresh() своего кэша политик.
func (s *PolicyService) notifyUpdate(ctx context.Context) error {
	// Сигнал может быть простым "refresh", так как шлюз сам перечитает всю таблицу
	return s.rdb.Publish(ctx, infra.RedisChanPolicyUpdate, "refresh").Err()
}
