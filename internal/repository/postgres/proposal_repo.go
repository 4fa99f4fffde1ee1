package postgres

/*
Файл proposal_repo.go содержит реализацию хранилища Proposal для механизма
Human-in-the-loop. Ключевой метод — ConsumeProposal: PENDING-запись
потребляется атомарно, ровно один раз.
*/

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

const proposalColumns = `id, studio_id, user_id, tool_name, args, requires_approval,
	summary, reason, risk, execution, preview, status, reviewer_id, comment,
	created_at, updated_at`

// CreateProposal создает запись в таблице proposals. Оператор увидит ее в
// очереди решений Console API.
func (s *Store) CreateProposal(ctx context.Context, p domain.Proposal) error {
	query := `
		INSERT INTO proposals (id, studio_id, user_id, tool_name, args, requires_approval,
		                       summary, reason, risk, execution, preview, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.StudioID, p.UserID, p.ToolName, p.Args, p.RequiresApproval,
		p.Summary, p.Reason, p.Risk, p.Execution, p.Preview, p.Status,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create proposal: %w", err)
	}
	return nil
}

// GetProposalByID получение деталей запроса для анализа оператором.
func (s *Store) GetProposalByID(ctx context.Context, id string) (*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`

	p, err := scanProposal(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get proposal: %w", err)
	}
	return p, nil
}

// FindProposals фильтрация и выборка очереди решений (Decision Queue).
func (s *Store) FindProposals(ctx context.Context, studioID string, status domain.ProposalStatus) ([]*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE studio_id = $1`

	args := []interface{}{studioID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query proposals: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	results := make([]*domain.Proposal, 0)
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan proposal: %w", err)
		}
		results = append(results, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

// ConsumeProposal атомарно переводит PENDING-заявку в APPROVED и возвращает ее.
// Условие WHERE status = 'PENDING' исключает Double Decision: повторный вызов
// не найдет строку и вернет ErrAlreadyProcessed.
func (s *Store) ConsumeProposal(ctx context.Context, id, reviewerID string) (*domain.Proposal, error) {
	query := `
		UPDATE proposals
		SET status = 'APPROVED',
		    reviewer_id = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + proposalColumns

	p, err := scanProposal(s.pool.QueryRow(ctx, query, id, reviewerID))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: failed to consume proposal: %w", err)
	}

	// Строка не обновилась: различаем "нет такой заявки" и "решение уже принято"
	var status domain.ProposalStatus
	err = s.pool.QueryRow(ctx, `SELECT status FROM proposals WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to check proposal status: %w", err)
	}
	return nil, domain.ErrAlreadyProcessed
}

// RejectProposal атомарно отклоняет PENDING-заявку. Повторное решение
// невозможно по тому же условию, что и в ConsumeProposal.
func (s *Store) RejectProposal(ctx context.Context, id, reviewerID, comment string) error {
	query := `
		UPDATE proposals
		SET status = 'REJECTED',
		    reviewer_id = $2,
		    comment = $3,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`

	ct, err := s.pool.Exec(ctx, query, id, reviewerID, comment)
	if err != nil {
		return fmt.Errorf("postgres: failed to reject proposal: %w", err)
	}
	if ct.RowsAffected() == 0 {
		var status domain.ProposalStatus
		err = s.pool.QueryRow(ctx, `SELECT status FROM proposals WHERE id = $1`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("postgres: failed to check proposal status: %w", err)
		}
		return domain.ErrAlreadyProcessed
	}
	return nil
}

// CancelProposal снимает еще не решенную заявку. Шлюз вызывает его как
// компенсацию, когда заявка создана, а proposed-запись журнала не записалась:
// такая заявка не должна дождаться одобрения.
func (s *Store) CancelProposal(ctx context.Context, id string) error {
	query := `
		UPDATE proposals
		SET status = 'CANCELLED',
		    updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`

	ct, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to cancel proposal: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrAlreadyProcessed
	}
	return nil
}

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var p domain.Proposal
	var reviewerID, comment sql.NullString // Используем для обработки NULL из БД

	err := row.Scan(
		&p.ID, &p.StudioID, &p.UserID, &p.ToolName, &p.Args, &p.RequiresApproval,
		&p.Summary, &p.Reason, &p.Risk, &p.Execution, &p.Preview, &p.Status,
		&reviewerID, &comment, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if reviewerID.Valid {
		val := reviewerID.String
		p.ReviewerID = &val
	}
	if comment.Valid {
		val := comment.String
		p.Comment = &val
	}
	return &p, nil
}
