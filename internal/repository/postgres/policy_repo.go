package postgres

/*
Файл policy_repo.go отвечает за хранение guardrail-политик студий и их
статусов блокировки. Долговременное хранение правил — здесь, мгновенная
проверка — в оперативной памяти шлюза (guardrail.MemoPolicies).
*/

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

// GetAllPolicies выполняет "холодную загрузку" всего набора политик при старте
// и при сигнале обновления из Redis.
func (s *Store) GetAllPolicies(ctx context.Context) ([]domain.StudioPolicy, error) {
	query := `
		SELECT studio_id, authorities, blocked_email_domains,
		       protected_fields, sensitive_fields, updated_at
		FROM studio_policies`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query policies: %w", err)
	}
	defer rows.Close()

	results := make([]domain.StudioPolicy, 0)
	for rows.Next() {
		var (
			p           domain.StudioPolicy
			authorities []string
			protected   []byte
			sensitive   []byte
		)
		err := rows.Scan(
			&p.StudioID, &authorities, &p.BlockedEmailDomains,
			&protected, &sensitive, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan policy: %w", err)
		}

		p.Authorities = make(map[domain.Authority]bool, len(authorities))
		for _, a := range authorities {
			p.Authorities[domain.Authority(a)] = true
		}
		if err := json.Unmarshal(protected, &p.ProtectedFields); err != nil {
			return nil, fmt.Errorf("postgres: bad protected_fields for studio %s: %w", p.StudioID, err)
		}
		if err := json.Unmarshal(sensitive, &p.SensitiveFields); err != nil {
			return nil, fmt.Errorf("postgres: bad sensitive_fields for studio %s: %w", p.StudioID, err)
		}

		results = append(results, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

// UpsertPolicy сохраняет политику студии целиком. Частичных апдейтов нет:
// консоль всегда присылает полный документ.
func (s *Store) UpsertPolicy(ctx context.Context, p *domain.StudioPolicy) error {
	authorities := make([]string, 0, len(p.Authorities))
	for a, ok := range p.Authorities {
		if ok {
			authorities = append(authorities, string(a))
		}
	}
	protected, err := json.Marshal(p.ProtectedFields)
	if err != nil {
		return fmt.Errorf("postgres: marshal protected_fields: %w", err)
	}
	sensitive, err := json.Marshal(p.SensitiveFields)
	if err != nil {
		return fmt.Errorf("postgres: marshal sensitive_fields: %w", err)
	}

	query := `
		INSERT INTO studio_policies (studio_id, authorities, blocked_email_domains, protected_fields, sensitive_fields, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (studio_id) DO UPDATE SET
		    authorities = EXCLUDED.authorities,
		    blocked_email_domains = EXCLUDED.blocked_email_domains,
		    protected_fields = EXCLUDED.protected_fields,
		    sensitive_fields = EXCLUDED.sensitive_fields,
		    updated_at = NOW()`

	_, err = s.pool.Exec(ctx, query, p.StudioID, authorities, p.BlockedEmailDomains, protected, sensitive)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert policy: %w", err)
	}
	return nil
}

// GetLockedStudios возвращает ID всех заблокированных студий.
// Используется для инициализации L1 (RAM) кэша LockoutManager при старте шлюза.
func (s *Store) GetLockedStudios(ctx context.Context) ([]string, error) {
	// Выбираем только ID, чтобы минимизировать трафик между БД и приложением
	query := `SELECT id FROM studios WHERE status = 'locked'`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to fetch locked studios: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan studio id error: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return ids, nil
}

// UpdateStudioStatus меняет статус студии (например, для экстренной блокировки).
func (s *Store) UpdateStudioStatus(ctx context.Context, id string, status domain.StudioStatus) error {
	query := `UPDATE studios SET status = $1, updated_at = NOW() WHERE id = $2`

	ct, err := s.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to update studio status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("postgres: studio %s not found", id)
	}
	return nil
}
