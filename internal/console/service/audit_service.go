package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/atelier-gate/internal/audit"
	"github.com/xela07ax/atelier-gate/internal/domain"
)

// AuditLogProvider описывает контракт для чтения audit trail.
// Используем структуру Entry из пакета audit, чтобы сохранить единую модель данных.
type AuditLogProvider interface {
	FetchEntries(ctx context.Context, studioID string, outcome audit.Outcome, limit int) ([]audit.Entry, error)
	GetOverview(ctx context.Context, studioID string) (*domain.Overview, error)
}

type AuditService struct {
	repo AuditLogProvider
}

func NewAuditService(repo AuditLogProvider) *AuditService {
	return &AuditService{repo: repo}
}

// FetchEntries запрашивает журнал с фильтрацией по исходу.
func (s *AuditService) FetchEntries(ctx context.Context, studioID string, outcome audit.Outcome, limit int) ([]audit.Entry, error) {
	entries, err := s.repo.FetchEntries(ctx, studioID, outcome, limit)
	if err != nil {
		return nil, fmt.Errorf("audit_service: failed to fetch entries: %w", err)
	}
	return entries, nil
}

// GetOverview возвращает сводку для дашборда оператора.
func (s *AuditService) GetOverview(ctx context.Context, studioID string) (*domain.Overview, error) {
	// Здесь можно добавить кэширование в Redis на 1 минуту,
	// чтобы не нагружать Postgres тяжелыми аналитическими запросами.
	return s.repo.GetOverview(ctx, studioID)
}
