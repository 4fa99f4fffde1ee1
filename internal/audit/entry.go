package audit

import (
	"time"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

// Outcome — класс исхода авторизации.
type Outcome string

const (
	OutcomeProposed Outcome = "proposed" // Создан Proposal, мутации не было
	OutcomeExecuted Outcome = "executed" // Мутация применена
	OutcomeDenied   Outcome = "denied"   // Guardrail запретил, мутации не было
	OutcomeFailed   Outcome = "failed"   // Отказ прав, исключение или сбой мутации
)

// Entry — неизменяемая запись одного исхода авторизации. Append-only:
// ядро никогда не обновляет и не удаляет записи. Это единственный
// долговременный выход подсистемы.
type Entry struct {
	ID      string `json:"id"`       // UUID записи
	TraceID string `json:"trace_id"` // Сквозной ID запроса

	StudioID string `json:"studio_id"` // Кто (тенант)
	UserID   string `json:"user_id"`   // Кто (пользователь)
	Action   string `json:"action"`    // Что хотел сделать, напр. "client.update"
	Table    string `json:"table"`     // Целевая сущность
	TargetID string `json:"target_id,omitempty"`

	// Снапшоты состояния вокруг мутации. Пусты для denied/proposed/failed.
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after,omitempty"`

	Risk    domain.RiskTier `json:"risk"`
	Outcome Outcome         `json:"outcome"`

	// ProposalID связывает executed-запись с исходным Proposal (traceability).
	ProposalID string `json:"proposal_id,omitempty"`

	Reason     string    `json:"reason,omitempty"` // Причина guardrail для denied/proposed
	Error      string    `json:"error,omitempty"`  // Безопасное описание сбоя для failed
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
}
