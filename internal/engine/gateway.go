package engine

/*
Файл gateway.go реализует единый паттерн вызова мутирующего инструмента:

	Start → AuthorityChecked → Evaluated → {Denied | ProposalCreated | Executed} → Responded

Каждый вызов дает ровно один Response и ровно одну запись в Audit Trail.
Ни одна ветка не меняет данные и не отказывает в доступе без записи в журнале.
Инструменты получают эти гарантии «бесплатно» — им не нужно воспроизводить
последовательность authority → guardrail → audit самостоятельно.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xela07ax/atelier-gate/internal/audit"
	"github.com/xela07ax/atelier-gate/internal/domain"
	"github.com/xela07ax/atelier-gate/internal/proposal"
	"go.uber.org/zap"
)

// Tool — контракт мутирующего инструмента. Схема args непрозрачна для ядра;
// шлюзу важно лишь уметь получить дескриптор, снапшот "до" и применить мутацию.
type Tool interface {
	Name() string
	Authority() domain.Authority

	// Describe строит Action Descriptor из аргументов. Может читать
	// бизнес-данные для производных сигналов (например, домен e-mail).
	Describe(ctx context.Context, call domain.Ctx, args json.RawMessage) (domain.ActionDescriptor, error)

	// Snapshot возвращает ID цели и состояние "до". Если цель не существует,
	// возвращает ошибку — Proposal без снапшота не строится.
	Snapshot(ctx context.Context, call domain.Ctx, args json.RawMessage) (targetID string, before map[string]interface{}, err error)

	// Apply выполняет мутацию и возвращает состояние "после".
	Apply(ctx context.Context, call domain.Ctx, args json.RawMessage) (after map[string]interface{}, err error)

	// Summarize — однострочное описание действия для оператора.
	Summarize(args json.RawMessage) string
}

// Evaluator — трехвариантное guardrail-решение.
type Evaluator interface {
	Evaluate(call domain.Ctx, d domain.ActionDescriptor) (domain.GuardrailDecision, error)
}

// ProposalStore — персистентность отложенных действий.
type ProposalStore interface {
	CreateProposal(ctx context.Context, p domain.Proposal) error
	// ConsumeProposal атомарно переводит PENDING → APPROVED и возвращает
	// Proposal. Повторный вызов для того же ID дает domain.ErrAlreadyProcessed.
	ConsumeProposal(ctx context.Context, id, reviewerID string) (*domain.Proposal, error)
	// CancelProposal снимает PENDING-заявку. Компенсация: создание заявки
	// без proposed-записи журнала не должно оставить ее в очереди решений.
	CancelProposal(ctx context.Context, id string) error
}

type Gateway struct {
	evaluator Evaluator
	trail     *audit.Trail
	proposals ProposalStore
	builder   *proposal.Builder
	tools     map[string]Tool
	metrics   *Metrics
	logger    *zap.Logger
}

func NewGateway(evaluator Evaluator, trail *audit.Trail, proposals ProposalStore, metrics *Metrics, logger *zap.Logger) *Gateway {
	return &Gateway{
		evaluator: evaluator,
		trail:     trail,
		proposals: proposals,
		builder:   proposal.NewBuilder(),
		tools:     make(map[string]Tool),
		metrics:   metrics,
		logger:    logger.Named("gateway"),
	}
}

// Register добавляет инструмент в реестр. Вызывается при сборке в main,
// до старта сервера — без синхронизации.
func (g *Gateway) Register(t Tool) {
	g.tools[t.Name()] = t
}

// Handle — точка входа слоя оркестрации: handle(args, ctx) -> Response.
func (g *Gateway) Handle(ctx context.Context, call domain.Ctx, toolName string, args json.RawMessage) domain.Response {
	start := time.Now()
	g.metrics.TotalRequests.WithLabelValues(call.StudioID, toolName).Inc()

	resp := g.process(ctx, call, toolName, args, start)

	g.metrics.RequestDuration.
		WithLabelValues(call.StudioID, toolName, string(resp.Type)).
		Observe(time.Since(start).Seconds())
	return resp
}

func (g *Gateway) process(ctx context.Context, call domain.Ctx, toolName string, args json.RawMessage, start time.Time) domain.Response {
	tool, ok := g.tools[toolName]
	if !ok {
		g.logFailure(ctx, call, toolName, "", fmt.Errorf("unknown tool %q", toolName), start)
		return domain.ErrorResponse(fmt.Sprintf("unknown tool %q", toolName))
	}

	// --- AuthorityChecked ---
	// Бинарный гейт тенанта, до guardrail и любого I/O.
	if err := domain.RequireAuthority(call, tool.Authority()); err != nil {
		g.logFailure(ctx, call, toolName, "", err, start)
		var missing *domain.AuthorityMissingError
		if errors.As(err, &missing) {
			return domain.ErrorResponse(missing.Error())
		}
		return domain.ErrorResponse("authority check failed")
	}

	d, err := tool.Describe(ctx, call, args)
	if err != nil {
		g.logFailure(ctx, call, toolName, "", err, start)
		return domain.ErrorResponse("invalid action arguments")
	}

	// --- Evaluated ---
	dec, err := g.evaluator.Evaluate(call, d)
	if err != nil {
		g.logFailure(ctx, call, d.Action, d.Table, err, start)
		return domain.ErrorResponse("action could not be evaluated")
	}
	g.metrics.DecisionTotal.WithLabelValues(dec.Decision.String()).Inc()

	switch dec.Decision {
	case domain.DecisionDeny:
		return g.deny(ctx, call, d, dec.Reason, start)
	case domain.DecisionNeedsApproval:
		return g.propose(ctx, call, tool, d, args, dec.Reason, start)
	default:
		return g.execute(ctx, call, tool, d, args, start)
	}
}

// deny: мутации не было, фиксируем запрет и отвечаем причиной guardrail.
func (g *Gateway) deny(ctx context.Context, call domain.Ctx, d domain.ActionDescriptor, reason string, start time.Time) domain.Response {
	if err := g.trail.Denial(ctx, call, d, reason, start); err != nil {
		g.metrics.AuditFailures.Inc()
		return domain.ErrorResponse("audit log unavailable, action aborted")
	}
	return domain.Denied(reason)
}

// propose: строим Proposal, персистим, журналируем. Бизнес-состояние не тронуто.
func (g *Gateway) propose(ctx context.Context, call domain.Ctx, tool Tool, d domain.ActionDescriptor, args json.RawMessage, reason string, start time.Time) domain.Response {
	targetID, before, err := tool.Snapshot(ctx, call, args)
	if err != nil {
		// Нет снапшота "до" — нет Proposal (например, цель не существует).
		g.logFailure(ctx, call, d.Action, d.Table, err, start)
		return domain.ErrorResponse("target entity is not available")
	}

	p := g.builder.Build(proposal.Input{
		ToolName: tool.Name(),
		Call:     call,
		Args:     args,
		Summary:  tool.Summarize(args),
		Reason:   reason,
		Risk:     d.Risk,
		Before:   before,
		Fields:   d.Fields,
	})

	if err := g.proposals.CreateProposal(ctx, p); err != nil {
		g.logFailure(ctx, call, d.Action, d.Table, err, start)
		return domain.ErrorResponse("could not store the pending action")
	}

	// Запись журнала строго до ответа: одобрение необратимо после фиксации.
	if err := g.trail.Proposal(ctx, call, d, p, targetID, start); err != nil {
		g.metrics.AuditFailures.Inc()
		// Компенсация: незажурналированная заявка не должна остаться в очереди,
		// иначе ее можно одобрить и исполнить без proposed-следа в трейле.
		if cerr := g.proposals.CancelProposal(context.WithoutCancel(ctx), p.ID); cerr != nil {
			g.logger.Error("failed to cancel unlogged proposal",
				zap.String("proposal_id", p.ID),
				zap.Error(cerr))
		}
		return domain.ErrorResponse("audit log unavailable, action aborted")
	}

	g.logger.Info("action held for approval",
		zap.String("studio_id", call.StudioID),
		zap.String("tool", tool.Name()),
		zap.String("proposal_id", p.ID),
		zap.String("reason", reason),
	)
	return domain.ApprovalRequired([]domain.Proposal{p}, "action requires human approval: "+reason)
}

// execute: применяем мутацию и фиксируем снапшоты до/после.
func (g *Gateway) execute(ctx context.Context, call domain.Ctx, tool Tool, d domain.ActionDescriptor, args json.RawMessage, start time.Time) domain.Response {
	targetID, before, err := tool.Snapshot(ctx, call, args)
	if err != nil {
		g.logFailure(ctx, call, d.Action, d.Table, err, start)
		return domain.ErrorResponse("target entity is not available")
	}

	after, err := safeApply(ctx, tool, call, args)
	if err != nil {
		g.logFailure(ctx, call, d.Action, d.Table, err, start)
		return domain.ErrorResponse("the action could not be completed")
	}

	// Мутация и audit-запись — единое целое: сбой журнала означает сбой вызова,
	// вызывающему нельзя отвечать success без следа в трейле.
	if err := g.trail.Execution(ctx, call, d, targetID, before, after, start); err != nil {
		g.metrics.AuditFailures.Inc()
		return domain.ErrorResponse("action applied but audit write failed, treat as failed")
	}

	return domain.Success(after, fmt.Sprintf("%s completed", d.Action))
}

// safeApply переводит панику мутации в обычную ошибку: необработанное
// исключение в allow-ветке должно стать failed-записью и error-ответом.
func safeApply(ctx context.Context, tool Tool, call domain.Ctx, args json.RawMessage) (after map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Apply(ctx, call, args)
}

// logFailure — failed-запись журнала. Сбой самой записи здесь уже не меняет
// исход (вызов и так завершается ошибкой), поэтому только считаем метрику.
func (g *Gateway) logFailure(ctx context.Context, call domain.Ctx, action, table string, cause error, start time.Time) {
	if err := g.trail.Failure(ctx, call, action, table, cause, start); err != nil {
		g.metrics.AuditFailures.Inc()
	}
}
