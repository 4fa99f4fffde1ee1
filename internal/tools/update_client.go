package tools

/*
Пакет tools содержит мутирующие инструменты ассистента. Каждый инструмент —
тонкий адаптер над своим хранилищем или коннектором: схема аргументов
принадлежит инструменту, а последовательность authority → guardrail → audit
гарантируется шлюзом (engine.Gateway).
*/

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

// ClientStore — чтение и запись карточек клиентов студии.
type ClientStore interface {
	GetClient(ctx context.Context, studioID, clientID string) (map[string]interface{}, error)
	UpdateClientFields(ctx context.Context, studioID, clientID string, fields map[string]domain.Value) (map[string]interface{}, error)
	// KnownEmailDomain — встречался ли домен среди контактов студии.
	KnownEmailDomain(ctx context.Context, studioID, emailDomain string) (bool, error)
}

type updateClientArgs struct {
	ClientID string                     `json:"client_id"`
	Fields   map[string]json.RawMessage `json:"fields"`
	Risk     string                     `json:"risk,omitempty"` // Декларируется оркестратором, дефолт low
}

// UpdateClientTool меняет поля карточки клиента.
type UpdateClientTool struct {
	store ClientStore
}

func NewUpdateClientTool(store ClientStore) *UpdateClientTool {
	return &UpdateClientTool{store: store}
}

func (t *UpdateClientTool) Name() string                { return "client.update" }
func (t *UpdateClientTool) Authority() domain.Authority { return domain.AuthorityUpdateClient }

func (t *UpdateClientTool) Describe(ctx context.Context, call domain.Ctx, raw json.RawMessage) (domain.ActionDescriptor, error) {
	args, fields, err := t.parse(raw)
	if err != nil {
		return domain.ActionDescriptor{}, err
	}

	risk, err := domain.ParseRiskTier(args.Risk, domain.RiskLow)
	if err != nil {
		return domain.ActionDescriptor{}, err
	}

	d := domain.ActionDescriptor{
		Authority: t.Authority(),
		Action:    t.Name(),
		Table:     "clients",
		Fields:    fields,
		Risk:      risk,
		Signals:   map[domain.Signal]string{},
	}

	// Производный сигнал: домен нового e-mail и встречался ли он у студии.
	if email, ok := fields["email"]; ok && email.Kind() == domain.ValueString {
		emailDomain := domainOf(email.Str())
		d.Signals[domain.SignalEmailDomain] = emailDomain

		known, err := t.store.KnownEmailDomain(ctx, call.StudioID, emailDomain)
		if err != nil {
			return domain.ActionDescriptor{}, fmt.Errorf("email domain lookup: %w", err)
		}
		if !known {
			d.Signals[domain.SignalNewEmailDomain] = "true"
		}
	}

	return d, nil
}

func (t *UpdateClientTool) Snapshot(ctx context.Context, call domain.Ctx, raw json.RawMessage) (string, map[string]interface{}, error) {
	args, _, err := t.parse(raw)
	if err != nil {
		return "", nil, err
	}
	before, err := t.store.GetClient(ctx, call.StudioID, args.ClientID)
	if err != nil {
		return "", nil, err
	}
	return args.ClientID, before, nil
}

func (t *UpdateClientTool) Apply(ctx context.Context, call domain.Ctx, raw json.RawMessage) (map[string]interface{}, error) {
	args, fields, err := t.parse(raw)
	if err != nil {
		return nil, err
	}
	return t.store.UpdateClientFields(ctx, call.StudioID, args.ClientID, fields)
}

func (t *UpdateClientTool) Summarize(raw json.RawMessage) string {
	args, fields, err := t.parse(raw)
	if err != nil {
		return "update client record"
	}
	names := make([]string, 0, len(fields))
	for n := range fields {
		names = append(names, n)
	}
	return fmt.Sprintf("update client %s (%s)", args.ClientID, strings.Join(sortedStrings(names), ", "))
}

func (t *UpdateClientTool) parse(raw json.RawMessage) (updateClientArgs, map[string]domain.Value, error) {
	var args updateClientArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, nil, fmt.Errorf("client.update: bad args: %w", err)
	}
	if args.ClientID == "" {
		return args, nil, fmt.Errorf("client.update: client_id is required")
	}

	fields, err := decodeFields(args.Fields)
	if err != nil {
		return args, nil, fmt.Errorf("client.update: %w", err)
	}
	// Имена полей сверяются с allow-list сущности до guardrail.
	if err := domain.ValidateFields("clients", fields); err != nil {
		return args, nil, fmt.Errorf("client.update: %w", err)
	}
	return args, fields, nil
}
