package proposal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

func TestBuildCapturesArgsByValue(t *testing.T) {
	raw := json.RawMessage(`{"client_id":"c-1"}`)
	b := NewBuilder()

	p := b.Build(Input{
		ToolName: "client.update",
		Call:     domain.Ctx{StudioID: "studio-1", UserID: "user-1"},
		Args:     raw,
		Risk:     domain.RiskMedium,
	})

	// Мутация рабочего буфера вызывающего не должна влиять на Proposal
	raw[2] = 'X'
	assert.Equal(t, `{"client_id":"c-1"}`, string(p.Args))

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.ProposalPending, p.Status)
	assert.True(t, p.RequiresApproval)
	assert.Equal(t, domain.ExecuteImmediate, p.Execution)
	assert.Equal(t, "studio-1", p.StudioID)
}

func TestBuildUsesClock(t *testing.T) {
	fixed := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	b := NewBuilder().WithClock(func() time.Time { return fixed })

	p := b.Build(Input{ToolName: "email.send", Risk: domain.RiskLow})
	assert.Equal(t, fixed, p.CreatedAt)
	assert.Equal(t, fixed, p.UpdatedAt)
}

func TestRenderPreviewDeterministic(t *testing.T) {
	before := map[string]interface{}{
		"discount_pct": 10,
		"name":         "Anna",
	}
	fields := map[string]domain.Value{
		"name":         domain.StringValue("Anna K."),
		"discount_pct": domain.NumberValue(25),
		"notes":        domain.StringValue("vip"),
	}

	want := "discount_pct: 10 -> 25\nname: Anna -> Anna K.\nnotes: — -> vip"
	// Порядок полей стабилен при любом обходе map
	for i := 0; i < 10; i++ {
		require.Equal(t, want, RenderPreview(before, fields))
	}
}

func TestRenderPreviewEmptyFields(t *testing.T) {
	assert.Equal(t, "", RenderPreview(nil, nil))
}
