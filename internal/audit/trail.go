package audit

/*
Файл trail.go реализует журнал авторизации (Audit Trail).

Запись синхронная и строго предшествует ответу вызывающему: мутация и ее
audit-запись трактуются как единое целое с точки зрения долговечности.
Если запись не удалась, весь вызов считается сбойным — вызывающий никогда
не увидит success без соответствующей записи в журнале.
*/

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/atelier-gate/internal/domain"
	"github.com/xela07ax/atelier-gate/internal/infra"
	"go.uber.org/zap"
)

// Store — append-only приемник записей (PostgreSQL в проде).
type Store interface {
	Append(ctx context.Context, e Entry) error
}

type Trail struct {
	store  Store
	logger *zap.Logger
	clock  func() time.Time
}

func NewTrail(store Store, logger *zap.Logger) *Trail {
	return &Trail{
		store:  store,
		logger: logger.Named("audit"),
		clock:  time.Now,
	}
}

// WithClock подменяет источник времени в тестах.
func (t *Trail) WithClock(clock func() time.Time) *Trail {
	t.clock = clock
	return t
}

// Proposal фиксирует создание отложенного действия. Снапшоты не пишутся:
// бизнес-состояние не тронуто.
func (t *Trail) Proposal(ctx context.Context, call domain.Ctx, d domain.ActionDescriptor, p domain.Proposal, targetID string, started time.Time) error {
	return t.append(ctx, started, Entry{
		StudioID:   call.StudioID,
		UserID:     call.UserID,
		Action:     d.Action,
		Table:      d.Table,
		TargetID:   targetID,
		Risk:       d.Risk,
		Outcome:    OutcomeProposed,
		ProposalID: p.ID,
		Reason:     p.Reason,
	})
}

// Execution фиксирует примененную мутацию со снапшотами до/после.
// Журнал дописывается даже если вызывающий уже отменил запрос:
// после примененной мутации долговечность трейла важнее отзывчивости.
func (t *Trail) Execution(ctx context.Context, call domain.Ctx, d domain.ActionDescriptor, targetID string, before, after map[string]interface{}, started time.Time) error {
	return t.append(context.WithoutCancel(ctx), started, Entry{
		StudioID:   call.StudioID,
		UserID:     call.UserID,
		Action:     d.Action,
		Table:      d.Table,
		TargetID:   targetID,
		Before:     before,
		After:      after,
		Risk:       d.Risk,
		Outcome:    OutcomeExecuted,
		ProposalID: call.ProposalID,
	})
}

// Denial фиксирует запрет guardrail. Мутации не было.
func (t *Trail) Denial(ctx context.Context, call domain.Ctx, d domain.ActionDescriptor, reason string, started time.Time) error {
	return t.append(ctx, started, Entry{
		StudioID: call.StudioID,
		UserID:   call.UserID,
		Action:   d.Action,
		Table:    d.Table,
		Risk:     d.Risk,
		Outcome:  OutcomeDenied,
		Reason:   reason,
	})
}

// Failure фиксирует отказ прав, некорректный вход или сбой мутации.
func (t *Trail) Failure(ctx context.Context, call domain.Ctx, action, table string, cause error, started time.Time) error {
	e := Entry{
		StudioID: call.StudioID,
		UserID:   call.UserID,
		Action:   action,
		Table:    table,
		Outcome:  OutcomeFailed,
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	return t.append(context.WithoutCancel(ctx), started, e)
}

func (t *Trail) append(ctx context.Context, started time.Time, e Entry) error {
	e.ID = uuid.New().String()
	e.TraceID = infra.TraceIDFrom(ctx)
	if e.Timestamp.IsZero() {
		e.Timestamp = t.clock()
	}
	// Латентность вызова до исхода включительно — питает P95 в Overview
	if !started.IsZero() {
		e.DurationMs = t.clock().Sub(started).Milliseconds()
	}

	if err := t.store.Append(ctx, e); err != nil {
		// Сбой журнала — сбой всего вызова (см. контракт Trail).
		t.logger.Error("audit append failed",
			zap.String("studio_id", e.StudioID),
			zap.String("action", e.Action),
			zap.String("outcome", string(e.Outcome)),
			zap.Error(err),
		)
		return err
	}
	return nil
}
