package guardrail

import (
	"fmt"
	"sort"

	"github.com/xela07ax/atelier-gate/internal/domain"
	"go.uber.org/zap"
)

// PolicyProvider отдает политику студии из Hot Path (RAM, без I/O).
type PolicyProvider interface {
	PolicyFor(studioID string) *domain.StudioPolicy
}

// LockoutChecker — проверка экстренной блокировки студии оператором.
type LockoutChecker interface {
	IsLocked(studioID string) bool
}

// Evaluator связывает чистую решающую процедуру Decide с состоянием
// шлюза (кэш политик, lockout). Сам по себе состояния не держит и
// безопасен при любой конкурентности.
type Evaluator struct {
	policies PolicyProvider
	lockout  LockoutChecker
	logger   *zap.Logger
}

func NewEvaluator(policies PolicyProvider, lockout LockoutChecker, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		policies: policies,
		lockout:  lockout,
		logger:   logger.Named("guardrail"),
	}
}

func (e *Evaluator) Evaluate(call domain.Ctx, d domain.ActionDescriptor) (domain.GuardrailDecision, error) {
	// Lockout — самое строгое deny-правило, действует даже при Elevated.
	if e.lockout != nil && e.lockout.IsLocked(call.StudioID) {
		return domain.Deny("studio is locked by an operator"), nil
	}

	dec, err := Decide(e.policies.PolicyFor(call.StudioID), call, d)
	if err != nil {
		return domain.GuardrailDecision{}, err
	}

	if dec.Decision != domain.DecisionAllow {
		e.logger.Debug("guardrail intercepted action",
			zap.String("studio_id", call.StudioID),
			zap.String("action", d.Action),
			zap.String("decision", dec.Decision.String()),
			zap.String("reason", dec.Reason),
		)
	}
	return dec, nil
}

// Decide — чистая, детерминированная и тотальная решающая процедура.
// Правила упорядочены по приоритету, побеждает первое совпавшее:
//
//  1. deny-правила (заблокированный домен, защищенное поле);
//  2. needs-approval (риск medium/high, чувствительные поля, новый домен);
//  3. allow — дефолт.
//
// Deny всегда сильнее needs-approval, needs-approval всегда сильнее allow:
// однажды совпавшее строгое правило не ослабляется. Elevated-контекст
// (исполнение одобренного Proposal) пропускает только needs-approval ступень.
// Ошибка возможна лишь для некорректного входа (неизвестный risk tier).
func Decide(p *domain.StudioPolicy, call domain.Ctx, d domain.ActionDescriptor) (domain.GuardrailDecision, error) {
	if !d.Risk.Valid() {
		return domain.GuardrailDecision{}, fmt.Errorf("guardrail: unknown risk tier %q", d.Risk)
	}

	// Политика не настроена — жесткий запрет (Zero Trust).
	if p == nil {
		return domain.Deny("no guardrail policy configured for studio"), nil
	}

	// Поля обходим в стабильном порядке, чтобы причина была детерминированной.
	fields := sortedFieldNames(d.Fields)

	// --- 1. Deny-правила ---
	if emailDomain := d.Signal(domain.SignalEmailDomain); p.IsDomainBlocked(emailDomain) {
		return domain.Deny(fmt.Sprintf("email domain %q is on the studio block list", emailDomain)), nil
	}
	for _, f := range fields {
		if p.IsProtected(d.Table, f) {
			return domain.Deny(fmt.Sprintf("field %q on %s is protected and can not be modified by the assistant", f, d.Table)), nil
		}
	}

	// --- 2. Needs-approval правила ---
	// Пустой набор полей не является спец-случаем: no-op — забота инструмента.
	if !call.Elevated {
		if d.Risk != domain.RiskLow {
			return domain.NeedsApproval(fmt.Sprintf("risk tier %q requires human approval", d.Risk)), nil
		}
		for _, f := range fields {
			if p.IsSensitive(d.Table, f) {
				return domain.NeedsApproval(fmt.Sprintf("field %q on %s is marked sensitive by studio policy", f, d.Table)), nil
			}
		}
		if d.Signal(domain.SignalNewEmailDomain) == "true" {
			return domain.NeedsApproval(fmt.Sprintf(
				"email domain %q has not been seen for this studio before", d.Signal(domain.SignalEmailDomain))), nil
		}
	}

	// --- 3. Allow ---
	return domain.Allow("no guardrail rule matched"), nil
}

func sortedFieldNames(fields map[string]domain.Value) []string {
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
