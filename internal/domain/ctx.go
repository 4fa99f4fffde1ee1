package domain

import "fmt"

// Authority — непрозрачный capability-токен, открывающий класс операций
// для студии (тенанта). Назначается вне шлюза (администрирование политик)
// и неизменен в течение жизни запроса.
type Authority string

const (
	AuthorityReadClients    Authority = "READ_CLIENTS"
	AuthorityUpdateClient   Authority = "UPDATE_CLIENT"
	AuthorityDeleteClient   Authority = "DELETE_CLIENT"
	AuthoritySendEmail      Authority = "SEND_EMAIL"
	AuthorityCreateSession  Authority = "CREATE_SESSION"
	AuthorityCreateInvoice  Authority = "CREATE_INVOICE"
	AuthorityApproveActions Authority = "APPROVE_ACTIONS" // Право оператора решать судьбу Proposal
)

// knownAuthorities — закрытый список валидных токенов.
// RequireAuthority отклоняет неизвестные значения еще до проверки контекста.
var knownAuthorities = map[Authority]struct{}{
	AuthorityReadClients:    {},
	AuthorityUpdateClient:   {},
	AuthorityDeleteClient:   {},
	AuthoritySendEmail:      {},
	AuthorityCreateSession:  {},
	AuthorityCreateInvoice:  {},
	AuthorityApproveActions: {},
}

// Ctx — контекст одного вызова инструмента. Создается один раз на входящий
// запрос (после верификации токена), никогда не мутируется и не персистится.
type Ctx struct {
	StudioID  string
	UserID    string
	SessionID string // Для склейки многошаговых диалогов (опционально)

	// Authorities — набор прав, выданных студии. Источник правды — Policy Store,
	// резолвится выше по стеку при построении контекста.
	Authorities map[Authority]bool

	// Elevated выставляется ТОЛЬКО путем исполнения одобренного Proposal.
	// Снимает needs-approval правила, но никогда — deny.
	Elevated   bool
	ProposalID string // ID исходного Proposal при Elevated-исполнении
}

// Has проверяет наличие права в контексте.
func (c Ctx) Has(a Authority) bool {
	return c.Authorities[a]
}

// AuthorityMissingError — у вызывающего нет требуемого capability.
// Терминальная ошибка, автоматически не ретраится.
type AuthorityMissingError struct {
	Authority Authority
}

func (e *AuthorityMissingError) Error() string {
	return fmt.Sprintf("missing authority %s", e.Authority)
}

// RequireAuthority — бинарный гейт уровня тенанта («может ли студия в принципе
// делать X»). Проверяется первым и дешево, до обращения к guardrail и любому I/O.
func RequireAuthority(c Ctx, a Authority) error {
	if _, ok := knownAuthorities[a]; !ok {
		return fmt.Errorf("unknown authority token %q", a)
	}
	if !c.Has(a) {
		return &AuthorityMissingError{Authority: a}
	}
	return nil
}
