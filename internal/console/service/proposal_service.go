package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/atelier-gate/internal/domain"
	"github.com/xela07ax/atelier-gate/internal/infra"
)

// ProposalRepository описывает требования сервиса к хранилищу Proposal.
type ProposalRepository interface {
	GetProposalByID(ctx context.Context, id string) (*domain.Proposal, error)
	FindProposals(ctx context.Context, studioID string, status domain.ProposalStatus) ([]*domain.Proposal, error)
	RejectProposal(ctx context.Context, id, reviewerID, comment string) error
}

type ProposalService struct {
	repo   ProposalRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewProposalService(repo ProposalRepository, rdb *redis.Client, logger *zap.Logger) *ProposalService {
	return &ProposalService{
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("proposal-service"),
	}
}

func (s *ProposalService) GetProposal(ctx context.Context, id string) (*domain.Proposal, error) {
	return s.repo.GetProposalByID(ctx, id)
}

func (s *ProposalService) GetProposals(ctx context.Context, studioID, status string) ([]*domain.Proposal, error) {
	// Приводим к верхнему регистру, так как в константах PENDING/APPROVED
	status = strings.ToUpper(status)
	return s.repo.FindProposals(ctx, studioID, domain.ProposalStatus(status))
}

// DecideProposal фиксирует решение оператора. ReviewerID передается для
// подотчетности (Accountability), studioID — студия оператора из токена:
// решать можно только заявки своей студии.
//
// Одобрение НЕ меняет статус в БД напрямую: консоль публикует сигнал, шлюз
// атомарно потребляет PENDING-запись и исполняет действие. Так решение и
// исполнение живут в одном процессе с audit trail, а повторное одобрение
// упирается в условный UPDATE.
func (s *ProposalService) DecideProposal(ctx context.Context, studioID, id string, approved bool, reviewerID, comment string) error {
	p, err := s.repo.GetProposalByID(ctx, id)
	if err != nil {
		return err
	}
	// Изоляция тенантов: чужая заявка неотличима от несуществующей
	if p.StudioID != studioID {
		return domain.ErrNotFound
	}

	if !approved {
		if err := s.repo.RejectProposal(ctx, id, reviewerID, comment); err != nil {
			s.logger.Error("failed to persist proposal rejection",
				zap.String("proposal_id", id),
				zap.String("reviewer_id", reviewerID),
				zap.Error(err))
			return err
		}
		s.logger.Info("proposal rejected",
			zap.String("proposal_id", id),
			zap.String("reviewer", reviewerID))
		return nil
	}

	// Быстрая проверка статуса до публикации: заранее отбиваем решения по
	// уже закрытым заявкам (финальную атомарность гарантирует шлюз).
	if p.Status != domain.ProposalPending {
		return domain.ErrAlreadyProcessed
	}

	payload := fmt.Sprintf("%s:%s", id, reviewerID)
	if err := s.rdb.Publish(ctx, infra.RedisChanApprovalDecisions, payload).Err(); err != nil {
		// Заявка остается PENDING, оператор может повторить решение
		s.logger.Error("approval signal delivery failed",
			zap.String("proposal_id", id),
			zap.Error(err))
		return fmt.Errorf("redis signal failure: %w", err)
	}

	s.logger.Info("approval decision dispatched",
		zap.String("proposal_id", id),
		zap.String("reviewer", reviewerID))
	return nil
}
