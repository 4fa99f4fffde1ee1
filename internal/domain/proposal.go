package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Статусы State Machine
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalApproved ProposalStatus = "APPROVED"
	ProposalRejected ProposalStatus = "REJECTED"
	// CANCELLED выставляет сам шлюз: заявка создана, но proposed-запись
	// журнала не записалась. Оператору такая заявка не показывается.
	ProposalCancelled ProposalStatus = "CANCELLED"
)

var (
	ErrInvalidTransition = errors.New("invalid proposal status transition")
	ErrAlreadyProcessed  = errors.New("proposal already processed")
	ErrNotFound          = errors.New("not found")
)

// ExecutionHint — когда исполнять одобренное действие.
// Само планирование отложенного запуска — внешняя забота.
type ExecutionHint string

const (
	ExecuteImmediate ExecutionHint = "immediate"
	ExecuteScheduled ExecutionHint = "scheduled"
)

// Proposal — одна отложенная, еще не исполненная мутация.
// Создается, когда guardrail вернул needs_approval; потребляется ровно один раз
// шагом одобрения. Никогда не мутируется по месту: одобрение порождает НОВОЕ
// исполнение, а не правку Proposal.
type Proposal struct {
	ID       string `json:"id"`
	StudioID string `json:"studio_id"`
	UserID   string `json:"user_id"`

	ToolName string `json:"tool_name"`
	// Args — исходные аргументы инструмента, непрозрачные для ядра.
	// Захватываются по значению и при одобрении передаются обратно дословно.
	Args json.RawMessage `json:"args"`

	RequiresApproval bool          `json:"requires_approval"`
	Summary          string        `json:"summary"` // Однострочное описание для оператора
	Reason           string        `json:"reason"`  // Причина отсрочки от guardrail
	Risk             RiskTier      `json:"risk"`
	Execution        ExecutionHint `json:"execution"`
	Preview          string        `json:"preview"` // Диф "поле: старое → новое"

	Status     ProposalStatus `json:"status"`
	ReviewerID *string        `json:"reviewer_id,omitempty"`
	Comment    *string        `json:"comment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanTransitionTo проверяет правила конечного автомата.
func (p *Proposal) CanTransitionTo(next ProposalStatus) error {
	if p.Status != ProposalPending {
		return ErrAlreadyProcessed
	}
	if next == ProposalPending {
		return ErrInvalidTransition
	}
	return nil
}
