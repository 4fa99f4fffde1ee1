package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

// InvoiceStore — запись счетов студии.
type InvoiceStore interface {
	InsertInvoice(ctx context.Context, studioID string, fields map[string]domain.Value) (map[string]interface{}, error)
}

// ClientReader — проверка существования клиента перед выставлением счета.
type ClientReader interface {
	GetClient(ctx context.Context, studioID, clientID string) (map[string]interface{}, error)
}

type createInvoiceArgs struct {
	ClientID string  `json:"client_id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	DueDate  string  `json:"due_date"`
	Memo     string  `json:"memo,omitempty"`
	Risk     string  `json:"risk,omitempty"`
}

// CreateInvoiceTool выставляет счет клиенту. Финансовое действие:
// дефолтный risk tier — medium, то есть без апрува не исполняется.
type CreateInvoiceTool struct {
	invoices InvoiceStore
	clients  ClientReader
}

func NewCreateInvoiceTool(invoices InvoiceStore, clients ClientReader) *CreateInvoiceTool {
	return &CreateInvoiceTool{invoices: invoices, clients: clients}
}

func (t *CreateInvoiceTool) Name() string                { return "invoice.create" }
func (t *CreateInvoiceTool) Authority() domain.Authority { return domain.AuthorityCreateInvoice }

func (t *CreateInvoiceTool) Describe(ctx context.Context, call domain.Ctx, raw json.RawMessage) (domain.ActionDescriptor, error) {
	args, fields, err := t.parse(raw)
	if err != nil {
		return domain.ActionDescriptor{}, err
	}

	risk, err := domain.ParseRiskTier(args.Risk, domain.RiskMedium)
	if err != nil {
		return domain.ActionDescriptor{}, err
	}

	return domain.ActionDescriptor{
		Authority: t.Authority(),
		Action:    t.Name(),
		Table:     "invoices",
		Fields:    fields,
		Risk:      risk,
	}, nil
}

// Snapshot: счета еще нет, "до" пустое; но клиент обязан существовать.
func (t *CreateInvoiceTool) Snapshot(ctx context.Context, call domain.Ctx, raw json.RawMessage) (string, map[string]interface{}, error) {
	args, _, err := t.parse(raw)
	if err != nil {
		return "", nil, err
	}
	if _, err := t.clients.GetClient(ctx, call.StudioID, args.ClientID); err != nil {
		return "", nil, fmt.Errorf("invoice.create: client lookup: %w", err)
	}
	return args.ClientID, map[string]interface{}{}, nil
}

func (t *CreateInvoiceTool) Apply(ctx context.Context, call domain.Ctx, raw json.RawMessage) (map[string]interface{}, error) {
	_, fields, err := t.parse(raw)
	if err != nil {
		return nil, err
	}
	return t.invoices.InsertInvoice(ctx, call.StudioID, fields)
}

func (t *CreateInvoiceTool) Summarize(raw json.RawMessage) string {
	args, _, err := t.parse(raw)
	if err != nil {
		return "create invoice"
	}
	return fmt.Sprintf("invoice client %s for %.2f %s", args.ClientID, args.Amount, args.Currency)
}

func (t *CreateInvoiceTool) parse(raw json.RawMessage) (createInvoiceArgs, map[string]domain.Value, error) {
	var args createInvoiceArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, nil, fmt.Errorf("invoice.create: bad args: %w", err)
	}
	if args.ClientID == "" {
		return args, nil, fmt.Errorf("invoice.create: client_id is required")
	}
	if args.Amount <= 0 {
		return args, nil, fmt.Errorf("invoice.create: amount must be positive")
	}
	if args.Currency == "" {
		return args, nil, fmt.Errorf("invoice.create: currency is required")
	}
	if args.DueDate == "" {
		return args, nil, fmt.Errorf("invoice.create: due_date is required")
	}

	fields := map[string]domain.Value{
		"client_id": domain.StringValue(args.ClientID),
		"amount":    domain.NumberValue(args.Amount),
		"currency":  domain.StringValue(args.Currency),
		"due_date":  domain.StringValue(args.DueDate),
	}
	if args.Memo != "" {
		fields["memo"] = domain.StringValue(args.Memo)
	}
	if err := domain.ValidateFields("invoices", fields); err != nil {
		return args, nil, fmt.Errorf("invoice.create: %w", err)
	}
	return args, fields, nil
}
