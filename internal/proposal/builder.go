package proposal

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/atelier-gate/internal/domain"
)

// Input — все, что инструмент знает о отложенной мутации.
// Builder не ходит за состоянием сам: снапшот "до" поставляет инструмент.
type Input struct {
	ToolName string
	Call     domain.Ctx
	Args     json.RawMessage
	Summary  string
	Reason   string
	Risk     domain.RiskTier

	// Before — снапшот сущности до мутации; Fields — предлагаемые изменения.
	// Из их дифа рендерится Preview.
	Before map[string]interface{}
	Fields map[string]domain.Value
}

// Builder конструирует неизменяемые Proposal для needs_approval-ветки.
type Builder struct {
	clock func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{clock: time.Now}
}

// WithClock подменяет источник времени в тестах.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// Build захватывает аргументы по значению (копия среза), так что последующие
// мутации рабочих данных вызывающего не влияют на отложенное исполнение.
func (b *Builder) Build(in Input) domain.Proposal {
	args := make(json.RawMessage, len(in.Args))
	copy(args, in.Args)

	now := b.clock()
	return domain.Proposal{
		ID:               uuid.New().String(),
		StudioID:         in.Call.StudioID,
		UserID:           in.Call.UserID,
		ToolName:         in.ToolName,
		Args:             args,
		RequiresApproval: true,
		Summary:          in.Summary,
		Reason:           in.Reason,
		Risk:             in.Risk,
		Execution:        domain.ExecuteImmediate,
		Preview:          RenderPreview(in.Before, in.Fields),
		Status:           domain.ProposalPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// RenderPreview — детерминированный, свободный от побочных эффектов рендер
// дифа "поле: старое → новое". Поля идут в алфавитном порядке.
func RenderPreview(before map[string]interface{}, fields map[string]domain.Value) string {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, n := range names {
		lines = append(lines, fmt.Sprintf("%s: %s -> %s", n, renderOld(before[n]), fields[n].String()))
	}
	return strings.Join(lines, "\n")
}

func renderOld(v interface{}) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%v", v)
}
