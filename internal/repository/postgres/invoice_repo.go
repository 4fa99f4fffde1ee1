package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

var invoiceColumns = []string{
	"id", "client_id", "amount", "currency", "due_date", "memo", "status",
}

// InsertInvoice создает счет в статусе draft и возвращает снапшот "после".
func (s *Store) InsertInvoice(ctx context.Context, studioID string, fields map[string]domain.Value) (map[string]interface{}, error) {
	query := `
		INSERT INTO invoices (id, studio_id, client_id, amount, currency, due_date, memo, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'draft', NOW(), NOW())
		RETURNING ` + strings.Join(invoiceColumns, ", ")

	row := s.pool.QueryRow(ctx, query,
		uuid.NewString(), studioID,
		fields["client_id"].Native(),
		fields["amount"].Native(),
		fields["currency"].Native(),
		fields["due_date"].Native(),
		fields["memo"].Native(),
	)

	snapshot, err := scanSnapshot(row, invoiceColumns)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to insert invoice: %w", err)
	}
	return snapshot, nil
}
