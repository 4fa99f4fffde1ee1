package postgres

/*
Файл client_repo.go — карточки клиентов студии. Снапшоты "до"/"после"
отдаются как map, потому что дальше они уходят в jsonb аудита без
промежуточной доменной структуры.
*/

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

// clientColumns — читаемый срез карточки; порядок фиксирован для снапшотов.
var clientColumns = []string{
	"id", "name", "email", "phone", "notes", "discount_pct", "hourly_rate", "balance",
}

// GetClient возвращает карточку клиента как снапшот для аудита и preview.
func (s *Store) GetClient(ctx context.Context, studioID, clientID string) (map[string]interface{}, error) {
	query := `
		SELECT ` + strings.Join(clientColumns, ", ") + `
		FROM clients WHERE studio_id = $1 AND id = $2`

	row := s.pool.QueryRow(ctx, query, studioID, clientID)
	snapshot, err := scanSnapshot(row, clientColumns)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client %s: %w", clientID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: failed to get client: %w", err)
	}
	return snapshot, nil
}

// UpdateClientFields применяет частичное обновление и возвращает состояние
// "после" одним запросом через RETURNING (исключаем гонку между UPDATE и
// повторным SELECT).
func (s *Store) UpdateClientFields(ctx context.Context, studioID, clientID string, fields map[string]domain.Value) (map[string]interface{}, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("postgres: no fields to update")
	}

	// Детерминированный порядок SET-выражений
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := []interface{}{studioID, clientID}
	for _, n := range names {
		args = append(args, fields[n].Native())
		sets = append(sets, fmt.Sprintf("%s = $%d", n, len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE clients SET %s, updated_at = NOW()
		WHERE studio_id = $1 AND id = $2
		RETURNING %s`,
		strings.Join(sets, ", "), strings.Join(clientColumns, ", "))

	row := s.pool.QueryRow(ctx, query, args...)
	snapshot, err := scanSnapshot(row, clientColumns)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("client %s: %w", clientID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("postgres: failed to update client: %w", err)
	}
	return snapshot, nil
}

// KnownEmailDomain — встречался ли домен среди e-mail адресов клиентов студии.
func (s *Store) KnownEmailDomain(ctx context.Context, studioID, emailDomain string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM clients
			WHERE studio_id = $1 AND lower(split_part(email, '@', 2)) = lower($2)
		)`

	var known bool
	if err := s.pool.QueryRow(ctx, query, studioID, emailDomain).Scan(&known); err != nil {
		return false, fmt.Errorf("postgres: failed to check email domain: %w", err)
	}
	return known, nil
}

// scanSnapshot читает строку в map по списку колонок.
func scanSnapshot(row pgx.Row, columns []string) (map[string]interface{}, error) {
	values := make([]interface{}, len(columns))
	targets := make([]interface{}, len(columns))
	for i := range values {
		targets[i] = &values[i]
	}
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}

	snapshot := make(map[string]interface{}, len(columns))
	for i, name := range columns {
		snapshot[name] = values[i]
	}
	return snapshot, nil
}
