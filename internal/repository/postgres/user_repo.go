package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

// GetOperatorByUsername возвращает оператора консоли для проверки пароля.
// Отсутствие пользователя — не ошибка: вернем nil, хендлер ответит 401.
func (s *Store) GetOperatorByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	query := `
		SELECT id, studio_id, email, username, password_hash, role, authorities, created_at, updated_at
		FROM operators WHERE username = $1`

	op := &domain.Operator{}
	var authorities []string
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&op.ID, &op.StudioID, &op.Email, &op.Username, &op.PasswordHash,
		&op.Role, &authorities, &op.CreatedAt, &op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to get operator: %w", err)
	}

	op.Authorities = make(map[string]bool, len(authorities))
	for _, a := range authorities {
		op.Authorities[a] = true
	}
	return op, nil
}
