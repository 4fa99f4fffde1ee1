package domain

import (
	"strings"
	"time"
)

// StudioPolicy — пер-тенантная запись политики: выданные права и
// тонкие переопределения для guardrail-правил. Read-only со стороны шлюза.
type StudioPolicy struct {
	StudioID    string             `json:"studio_id"`
	Authorities map[Authority]bool `json:"authorities"`

	// BlockedEmailDomains — домены, в которые нельзя писать никогда (deny).
	BlockedEmailDomains []string `json:"blocked_email_domains"`

	// ProtectedFields: таблица -> поля, которые запрещено менять через агента (deny).
	ProtectedFields map[string][]string `json:"protected_fields"`

	// SensitiveFields: таблица -> поля, изменение которых требует апрува человека.
	SensitiveFields map[string][]string `json:"sensitive_fields"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Clone — глубокая копия: слайсы и мапы не разделяются с оригиналом.
// Кэш политик отдает наружу именно копии.
func (p StudioPolicy) Clone() StudioPolicy {
	cp := p
	if p.Authorities != nil {
		cp.Authorities = make(map[Authority]bool, len(p.Authorities))
		for a, ok := range p.Authorities {
			cp.Authorities[a] = ok
		}
	}
	if p.BlockedEmailDomains != nil {
		cp.BlockedEmailDomains = append([]string(nil), p.BlockedEmailDomains...)
	}
	cp.ProtectedFields = cloneFieldMap(p.ProtectedFields)
	cp.SensitiveFields = cloneFieldMap(p.SensitiveFields)
	return cp
}

func cloneFieldMap(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for table, fields := range m {
		out[table] = append([]string(nil), fields...)
	}
	return out
}

// IsDomainBlocked — проверка без учета регистра.
func (p *StudioPolicy) IsDomainBlocked(domain string) bool {
	if p == nil || domain == "" {
		return false
	}
	for _, d := range p.BlockedEmailDomains {
		if strings.EqualFold(d, domain) {
			return true
		}
	}
	return false
}

func (p *StudioPolicy) IsProtected(table, field string) bool {
	if p == nil {
		return false
	}
	return containsField(p.ProtectedFields[table], field)
}

func (p *StudioPolicy) IsSensitive(table, field string) bool {
	if p == nil {
		return false
	}
	return containsField(p.SensitiveFields[table], field)
}

func containsField(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

// StudioStatus — состояние студии в Control Plane.
type StudioStatus string

const (
	StudioActive StudioStatus = "active"
	StudioLocked StudioStatus = "locked" // Экстренная блокировка оператором
)

type Studio struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    StudioStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
