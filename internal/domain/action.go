package domain

import "fmt"

// RiskTier — грубая классификация чувствительности действия.
// Декларируется инструментом (или оркестратором LLM) при построении дескриптора.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

func (r RiskTier) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// ParseRiskTier разбирает уровень риска из входных данных инструмента.
// Пустая строка трактуется как дефолт вызывающего.
func ParseRiskTier(s string, fallback RiskTier) (RiskTier, error) {
	if s == "" {
		return fallback, nil
	}
	r := RiskTier(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown risk tier %q", s)
	}
	return r, nil
}

// Signal — имя производного сигнала, на который могут опираться guardrail-правила.
type Signal string

const (
	// SignalEmailDomain — домен e-mail адреса, извлеченный из полей действия.
	SignalEmailDomain Signal = "email_domain"
	// SignalNewEmailDomain — "true", если домен ранее не встречался у контактов студии.
	SignalNewEmailDomain Signal = "new_email_domain"
)

// ActionDescriptor — вход Guardrail Evaluator. Строится инструментом
// непосредственно перед мутацией и никогда не персистится.
type ActionDescriptor struct {
	Authority Authority
	Action    string // Символьное имя, например "client.update"
	Table     string
	Fields    map[string]Value
	Risk      RiskTier
	Signals   map[Signal]string
}

// Signal безопасно достает сигнал (пустая строка, если не задан).
func (d ActionDescriptor) Signal(name Signal) string {
	if d.Signals == nil {
		return ""
	}
	return d.Signals[name]
}
