package guardrail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

type fakePolicyRepo struct {
	policies []domain.StudioPolicy
}

func (r *fakePolicyRepo) GetAllPolicies(ctx context.Context) ([]domain.StudioPolicy, error) {
	return r.policies, nil
}

func newWarmCache(t *testing.T) *MemoPolicies {
	t.Helper()
	repo := &fakePolicyRepo{policies: []domain.StudioPolicy{*testPolicy()}}
	cache := NewMemoPolicies(repo, nil, zap.NewNop())
	require.NoError(t, cache.Refresh(context.Background()))
	return cache
}

func TestPolicyForUnknownStudio(t *testing.T) {
	cache := newWarmCache(t)
	assert.Nil(t, cache.PolicyFor("ghost-studio"))
}

// Мутация выданной политики не протекает в кэш: копия глубокая,
// вложенные слайсы и мапы не разделяются.
func TestPolicyForReturnsIsolatedCopy(t *testing.T) {
	cache := newWarmCache(t)

	p := cache.PolicyFor("studio-1")
	require.NotNil(t, p)
	p.BlockedEmailDomains[0] = "hacked.example"
	p.ProtectedFields["clients"][0] = "name"
	p.SensitiveFields["clients"] = nil
	p.Authorities["DROP_EVERYTHING"] = true

	fresh := cache.PolicyFor("studio-1")
	require.NotNil(t, fresh)
	assert.True(t, fresh.IsDomainBlocked("competitor.com"))
	assert.True(t, fresh.IsProtected("clients", "balance"))
	assert.True(t, fresh.IsSensitive("clients", "discount_pct"))
	assert.False(t, fresh.Authorities["DROP_EVERYTHING"])
}
