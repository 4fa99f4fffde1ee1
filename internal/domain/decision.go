package domain

// Decision — исход Guardrail Evaluator. Закрытое перечисление вместо
// строковых тегов: ветвления по нему проверяются компилятором.
type Decision uint8

const (
	DecisionAllow Decision = iota
	DecisionNeedsApproval
	DecisionDeny
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionNeedsApproval:
		return "needs_approval"
	case DecisionDeny:
		return "deny"
	}
	return "unknown"
}

// GuardrailDecision — решение плюс человекочитаемая причина.
// Чистая функция от (Ctx, ActionDescriptor, политика студии), без состояния.
type GuardrailDecision struct {
	Decision Decision
	Reason   string
}

func Allow(reason string) GuardrailDecision {
	return GuardrailDecision{Decision: DecisionAllow, Reason: reason}
}

func NeedsApproval(reason string) GuardrailDecision {
	return GuardrailDecision{Decision: DecisionNeedsApproval, Reason: reason}
}

func Deny(reason string) GuardrailDecision {
	return GuardrailDecision{Decision: DecisionDeny, Reason: reason}
}
