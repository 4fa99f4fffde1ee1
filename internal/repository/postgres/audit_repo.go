package postgres

/*
Файл audit_repo.go — долговременное хранилище Audit Trail. Таблица
audit_entries append-only: репозиторий умеет только вставлять и читать,
UPDATE/DELETE здесь не появятся.
*/

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/atelier-gate/internal/audit"
	"github.com/xela07ax/atelier-gate/internal/domain"
)

// Append синхронно пишет одну запись аудита. Вызывается шлюзом ДО отдачи
// ответа: ошибка здесь превращает весь вызов инструмента в failed.
func (s *Store) Append(ctx context.Context, e audit.Entry) error {
	before, err := json.Marshal(e.Before)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit before: %w", err)
	}
	after, err := json.Marshal(e.After)
	if err != nil {
		return fmt.Errorf("postgres: marshal audit after: %w", err)
	}

	query := `
		INSERT INTO audit_entries (id, trace_id, studio_id, user_id, action, entity_table, target_id,
		                           before, after, risk, outcome, proposal_id, reason, error, timestamp, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = s.pool.Exec(ctx, query,
		e.ID, e.TraceID, e.StudioID, e.UserID, e.Action, e.Table, e.TargetID,
		before, after, e.Risk, e.Outcome, e.ProposalID, e.Reason, e.Error,
		e.Timestamp, e.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to append audit entry: %w", err)
	}
	return nil
}

// FetchEntries выборка журнала для консоли с фильтром по исходу.
func (s *Store) FetchEntries(ctx context.Context, studioID string, outcome audit.Outcome, limit int) ([]audit.Entry, error) {
	query := `
		SELECT id, trace_id, studio_id, user_id, action, entity_table, target_id,
		       before, after, risk, outcome, proposal_id, reason, error, timestamp, duration_ms
		FROM audit_entries WHERE studio_id = $1`

	args := []interface{}{studioID}
	if outcome != "" {
		query += " AND outcome = $2"
		args = append(args, outcome)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT %d", limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query audit entries: %w", err)
	}
	defer rows.Close()

	results := make([]audit.Entry, 0)
	for rows.Next() {
		var e audit.Entry
		var before, after []byte

		err := rows.Scan(
			&e.ID, &e.TraceID, &e.StudioID, &e.UserID, &e.Action, &e.Table, &e.TargetID,
			&before, &after, &e.Risk, &e.Outcome, &e.ProposalID, &e.Reason, &e.Error,
			&e.Timestamp, &e.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan audit entry: %w", err)
		}

		if len(before) > 0 {
			if err := json.Unmarshal(before, &e.Before); err != nil {
				return nil, fmt.Errorf("postgres: bad audit before snapshot: %w", err)
			}
		}
		if len(after) > 0 {
			if err := json.Unmarshal(after, &e.After); err != nil {
				return nil, fmt.Errorf("postgres: bad audit after snapshot: %w", err)
			}
		}
		results = append(results, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

// GetOverview агрегирует показатели для дашборда консоли.
func (s *Store) GetOverview(ctx context.Context, studioID string) (*domain.Overview, error) {
	o := &domain.Overview{}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM proposals WHERE studio_id = $1 AND status = 'PENDING'`,
		studioID).Scan(&o.PendingProposals)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to count pending proposals: %w", err)
	}

	// Метрики из Audit Trail за последние 60 минут.
	// PERCENTILE_CONT дает честный P95 Latency вместо среднего.
	err = s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE outcome = 'executed'),
			COUNT(*) FILTER (WHERE outcome = 'denied'),
			COUNT(*) FILTER (WHERE outcome = 'failed'),
			COALESCE(PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY duration_ms), 0)
		FROM audit_entries
		WHERE studio_id = $1 AND timestamp > NOW() - INTERVAL '60 minutes'`,
		studioID).Scan(
		&o.ExecutedActions,
		&o.DeniedActions,
		&o.FailedActions,
		&o.P95LatencyMs,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to build overview: %w", err)
	}
	return o, nil
}
