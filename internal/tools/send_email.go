package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

// Mailer — исходящая почта; в проде это engine.ReliabilityWrapper
// поверх реального провайдера.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DomainChecker — часть ClientStore, нужная письму для сигнала "новый домен".
type DomainChecker interface {
	KnownEmailDomain(ctx context.Context, studioID, emailDomain string) (bool, error)
}

type sendEmailArgs struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Risk    string `json:"risk,omitempty"`
}

// SendEmailTool отправляет письмо от имени студии.
type SendEmailTool struct {
	mailer Mailer
	known  DomainChecker
}

func NewSendEmailTool(mailer Mailer, known DomainChecker) *SendEmailTool {
	return &SendEmailTool{mailer: mailer, known: known}
}

func (t *SendEmailTool) Name() string                { return "email.send" }
func (t *SendEmailTool) Authority() domain.Authority { return domain.AuthoritySendEmail }

func (t *SendEmailTool) Describe(ctx context.Context, call domain.Ctx, raw json.RawMessage) (domain.ActionDescriptor, error) {
	args, err := t.parse(raw)
	if err != nil {
		return domain.ActionDescriptor{}, err
	}

	risk, err := domain.ParseRiskTier(args.Risk, domain.RiskLow)
	if err != nil {
		return domain.ActionDescriptor{}, err
	}

	emailDomain := domainOf(args.To)
	signals := map[domain.Signal]string{
		domain.SignalEmailDomain: emailDomain,
	}
	known, err := t.known.KnownEmailDomain(ctx, call.StudioID, emailDomain)
	if err != nil {
		return domain.ActionDescriptor{}, fmt.Errorf("email domain lookup: %w", err)
	}
	if !known {
		signals[domain.SignalNewEmailDomain] = "true"
	}

	return domain.ActionDescriptor{
		Authority: t.Authority(),
		Action:    t.Name(),
		Table:     "emails",
		Fields: map[string]domain.Value{
			"to":      domain.StringValue(args.To),
			"subject": domain.StringValue(args.Subject),
			"body":    domain.StringValue(args.Body),
		},
		Risk:    risk,
		Signals: signals,
	}, nil
}

// Snapshot: у отправки письма нет прежнего состояния — "до" пустое,
// целью считаем адресата.
func (t *SendEmailTool) Snapshot(ctx context.Context, call domain.Ctx, raw json.RawMessage) (string, map[string]interface{}, error) {
	args, err := t.parse(raw)
	if err != nil {
		return "", nil, err
	}
	return args.To, map[string]interface{}{}, nil
}

func (t *SendEmailTool) Apply(ctx context.Context, call domain.Ctx, raw json.RawMessage) (map[string]interface{}, error) {
	args, err := t.parse(raw)
	if err != nil {
		return nil, err
	}
	if err := t.mailer.Send(ctx, args.To, args.Subject, args.Body); err != nil {
		return nil, fmt.Errorf("email.send: %w", err)
	}
	return map[string]interface{}{
		"to":      args.To,
		"subject": args.Subject,
		"status":  "sent",
	}, nil
}

func (t *SendEmailTool) Summarize(raw json.RawMessage) string {
	args, err := t.parse(raw)
	if err != nil {
		return "send email"
	}
	return fmt.Sprintf("send email %q to %s", args.Subject, args.To)
}

func (t *SendEmailTool) parse(raw json.RawMessage) (sendEmailArgs, error) {
	var args sendEmailArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, fmt.Errorf("email.send: bad args: %w", err)
	}
	if args.To == "" || domainOf(args.To) == "" {
		return args, fmt.Errorf("email.send: valid recipient address is required")
	}
	if args.Subject == "" {
		return args, fmt.Errorf("email.send: subject is required")
	}
	return args, nil
}
