package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

type fakeClientStore struct {
	client       map[string]interface{}
	knownDomains map[string]bool
	updated      map[string]domain.Value
}

func (s *fakeClientStore) GetClient(ctx context.Context, studioID, clientID string) (map[string]interface{}, error) {
	return s.client, nil
}

func (s *fakeClientStore) UpdateClientFields(ctx context.Context, studioID, clientID string, fields map[string]domain.Value) (map[string]interface{}, error) {
	s.updated = fields
	return map[string]interface{}{"name": "Anna K."}, nil
}

func (s *fakeClientStore) KnownEmailDomain(ctx context.Context, studioID, emailDomain string) (bool, error) {
	return s.knownDomains[emailDomain], nil
}

func TestUpdateClientDescribeSignals(t *testing.T) {
	store := &fakeClientStore{knownDomains: map[string]bool{"studio.io": true}}
	tool := NewUpdateClientTool(store)

	call := domain.Ctx{StudioID: "studio-1"}

	// Известный домен: сигнал new_email_domain не ставится
	d, err := tool.Describe(context.Background(), call,
		json.RawMessage(`{"client_id":"c-1","fields":{"email":"anna@STUDIO.io"}}`))
	require.NoError(t, err)
	assert.Equal(t, "studio.io", d.Signal(domain.SignalEmailDomain))
	assert.Empty(t, d.Signal(domain.SignalNewEmailDomain))

	// Новый домен помечается
	d, err = tool.Describe(context.Background(), call,
		json.RawMessage(`{"client_id":"c-1","fields":{"email":"anna@fresh.io"}}`))
	require.NoError(t, err)
	assert.Equal(t, "true", d.Signal(domain.SignalNewEmailDomain))
}

func TestUpdateClientRejectsUnknownField(t *testing.T) {
	tool := NewUpdateClientTool(&fakeClientStore{})

	_, err := tool.Describe(context.Background(), domain.Ctx{},
		json.RawMessage(`{"client_id":"c-1","fields":{"password_hash":"x"}}`))
	require.Error(t, err)
}

func TestUpdateClientRejectsNestedValue(t *testing.T) {
	tool := NewUpdateClientTool(&fakeClientStore{})

	_, err := tool.Describe(context.Background(), domain.Ctx{},
		json.RawMessage(`{"client_id":"c-1","fields":{"notes":{"a":1}}}`))
	require.Error(t, err)
}

func TestUpdateClientRiskDefaultsLow(t *testing.T) {
	tool := NewUpdateClientTool(&fakeClientStore{})

	d, err := tool.Describe(context.Background(), domain.Ctx{},
		json.RawMessage(`{"client_id":"c-1","fields":{"name":"A"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLow, d.Risk)

	_, err = tool.Describe(context.Background(), domain.Ctx{},
		json.RawMessage(`{"client_id":"c-1","fields":{"name":"A"},"risk":"cosmic"}`))
	require.Error(t, err)
}

func TestUpdateClientSummarizeSorted(t *testing.T) {
	tool := NewUpdateClientTool(&fakeClientStore{})

	got := tool.Summarize(json.RawMessage(`{"client_id":"c-1","fields":{"notes":"x","name":"A"}}`))
	assert.Equal(t, "update client c-1 (name, notes)", got)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "studio.io", domainOf("anna@Studio.IO"))
	assert.Equal(t, "", domainOf("not-an-email"))
	assert.Equal(t, "", domainOf("trailing@"))
	// Берется домен после последнего @
	assert.Equal(t, "b.com", domainOf(`weird@a.com@b.com`))
}

func TestCreateInvoiceDefaultsMediumRisk(t *testing.T) {
	tool := NewCreateInvoiceTool(nil, nil)

	d, err := tool.Describe(context.Background(), domain.Ctx{},
		json.RawMessage(`{"client_id":"c-1","amount":120,"currency":"EUR","due_date":"2026-04-01"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.RiskMedium, d.Risk)
	assert.Equal(t, "invoices", d.Table)
}

func TestCreateInvoiceValidation(t *testing.T) {
	tool := NewCreateInvoiceTool(nil, nil)

	cases := []string{
		`{"amount":120,"currency":"EUR","due_date":"2026-04-01"}`,       // нет client_id
		`{"client_id":"c-1","amount":-5,"currency":"EUR","due_date":"2026-04-01"}`, // отрицательная сумма
		`{"client_id":"c-1","amount":120,"due_date":"2026-04-01"}`,      // нет валюты
		`{"client_id":"c-1","amount":120,"currency":"EUR"}`,             // нет срока
	}
	for _, raw := range cases {
		_, err := tool.Describe(context.Background(), domain.Ctx{}, json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestSendEmailParseValidation(t *testing.T) {
	tool := NewSendEmailTool(nil, nil)

	_, err := tool.parse(json.RawMessage(`{"to":"broken-address","subject":"hi"}`))
	require.Error(t, err)

	_, err = tool.parse(json.RawMessage(`{"to":"anna@studio.io"}`))
	require.Error(t, err) // нет темы

	args, err := tool.parse(json.RawMessage(`{"to":"anna@studio.io","subject":"hi","body":"text"}`))
	require.NoError(t, err)
	assert.Equal(t, "anna@studio.io", args.To)
}
