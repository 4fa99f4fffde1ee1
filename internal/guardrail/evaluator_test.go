package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

func testPolicy() *domain.StudioPolicy {
	return &domain.StudioPolicy{
		StudioID: "studio-1",
		Authorities: map[domain.Authority]bool{
			domain.AuthorityUpdateClient: true,
			domain.AuthoritySendEmail:    true,
		},
		BlockedEmailDomains: []string{"competitor.com"},
		ProtectedFields: map[string][]string{
			"clients": {"balance"},
		},
		SensitiveFields: map[string][]string{
			"clients": {"discount_pct", "hourly_rate"},
		},
	}
}

func callCtx() domain.Ctx {
	return domain.Ctx{StudioID: "studio-1", UserID: "user-1"}
}

func descriptor(fields map[string]domain.Value) domain.ActionDescriptor {
	return domain.ActionDescriptor{
		Authority: domain.AuthorityUpdateClient,
		Action:    "client.update",
		Table:     "clients",
		Fields:    fields,
		Risk:      domain.RiskLow,
	}
}

func TestDecideAllowByDefault(t *testing.T) {
	dec, err := Decide(testPolicy(), callCtx(), descriptor(map[string]domain.Value{
		"name": domain.StringValue("Anna"),
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAllow, dec.Decision)
	assert.NotEmpty(t, dec.Reason)
}

func TestDecideEmptyFieldsAllowed(t *testing.T) {
	// Пустой набор полей — не спец-случай: решение allow, no-op решает инструмент.
	dec, err := Decide(testPolicy(), callCtx(), descriptor(map[string]domain.Value{}))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAllow, dec.Decision)
}

func TestDecideNilPolicyDenies(t *testing.T) {
	dec, err := Decide(nil, callCtx(), descriptor(nil))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionDeny, dec.Decision)
}

func TestDecideUnknownRiskIsError(t *testing.T) {
	d := descriptor(nil)
	d.Risk = domain.RiskTier("catastrophic")
	_, err := Decide(testPolicy(), callCtx(), d)
	require.Error(t, err)
}

func TestDecideProtectedFieldDenied(t *testing.T) {
	dec, err := Decide(testPolicy(), callCtx(), descriptor(map[string]domain.Value{
		"balance": domain.NumberValue(0),
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionDeny, dec.Decision)
	assert.Contains(t, dec.Reason, "balance")
}

func TestDecideSensitiveFieldNeedsApproval(t *testing.T) {
	dec, err := Decide(testPolicy(), callCtx(), descriptor(map[string]domain.Value{
		"discount_pct": domain.NumberValue(50),
	}))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNeedsApproval, dec.Decision)
	assert.Contains(t, dec.Reason, "discount_pct")
}

func TestDecideRiskTierNeedsApproval(t *testing.T) {
	for _, risk := range []domain.RiskTier{domain.RiskMedium, domain.RiskHigh} {
		d := descriptor(map[string]domain.Value{"name": domain.StringValue("Anna")})
		d.Risk = risk
		dec, err := Decide(testPolicy(), callCtx(), d)
		require.NoError(t, err)
		assert.Equal(t, domain.DecisionNeedsApproval, dec.Decision, "risk %s", risk)
	}
}

func TestDecideBlockedDomainDenied(t *testing.T) {
	d := descriptor(map[string]domain.Value{"email": domain.StringValue("boss@Competitor.COM")})
	d.Signals = map[domain.Signal]string{domain.SignalEmailDomain: "Competitor.COM"}

	dec, err := Decide(testPolicy(), callCtx(), d)
	require.NoError(t, err)
	// Сравнение доменов без учета регистра
	assert.Equal(t, domain.DecisionDeny, dec.Decision)
}

func TestDecideNewDomainNeedsApproval(t *testing.T) {
	d := descriptor(map[string]domain.Value{"email": domain.StringValue("anna@fresh.io")})
	d.Signals = map[domain.Signal]string{
		domain.SignalEmailDomain:    "fresh.io",
		domain.SignalNewEmailDomain: "true",
	}

	dec, err := Decide(testPolicy(), callCtx(), d)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionNeedsApproval, dec.Decision)
}

// Deny строже needs_approval: даже если поле одновременно чувствительное
// и домен заблокирован, побеждает запрет.
func TestDecideDenyBeatsNeedsApproval(t *testing.T) {
	p := testPolicy()
	p.SensitiveFields["clients"] = append(p.SensitiveFields["clients"], "email")

	d := descriptor(map[string]domain.Value{"email": domain.StringValue("x@competitor.com")})
	d.Risk = domain.RiskHigh
	d.Signals = map[domain.Signal]string{
		domain.SignalEmailDomain:    "competitor.com",
		domain.SignalNewEmailDomain: "true",
	}

	dec, err := Decide(p, callCtx(), d)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionDeny, dec.Decision)
}

// Elevated-контекст (исполнение одобренного Proposal) снимает только
// needs-approval ступень. Deny-правила продолжают действовать.
func TestDecideElevatedSkipsApprovalOnly(t *testing.T) {
	call := callCtx()
	call.Elevated = true

	d := descriptor(map[string]domain.Value{"discount_pct": domain.NumberValue(50)})
	d.Risk = domain.RiskHigh
	dec, err := Decide(testPolicy(), call, d)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAllow, dec.Decision)

	// Но защищенное поле остается запрещенным
	d = descriptor(map[string]domain.Value{"balance": domain.NumberValue(0)})
	dec, err = Decide(testPolicy(), call, d)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionDeny, dec.Decision)
}

// --- Evaluator с lockout ---

type fakePolicies struct{ p *domain.StudioPolicy }

func (f fakePolicies) PolicyFor(string) *domain.StudioPolicy { return f.p }

type fakeLockout struct{ locked bool }

func (f fakeLockout) IsLocked(string) bool { return f.locked }

func TestEvaluatorLockedStudioDeniesEverything(t *testing.T) {
	e := NewEvaluator(fakePolicies{p: testPolicy()}, fakeLockout{locked: true}, zap.NewNop())

	call := callCtx()
	call.Elevated = true // Блокировка сильнее Elevated

	dec, err := e.Evaluate(call, descriptor(map[string]domain.Value{"name": domain.StringValue("A")}))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionDeny, dec.Decision)
}

func TestEvaluatorPassesThroughDecision(t *testing.T) {
	e := NewEvaluator(fakePolicies{p: testPolicy()}, fakeLockout{}, zap.NewNop())

	dec, err := e.Evaluate(callCtx(), descriptor(map[string]domain.Value{"name": domain.StringValue("A")}))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionAllow, dec.Decision)
}
