package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/atelier-gate/internal/domain"
	"github.com/xela07ax/atelier-gate/internal/infra"
	"go.uber.org/zap"
)

// Approve — внешняя точка входа исполнения одобренного действия:
// approve(proposalId, approverCtx) -> Response.
//
// Proposal потребляется ровно один раз: атомарный переход PENDING → APPROVED
// выполняет хранилище (UPDATE ... WHERE status='PENDING'). Повторный Approve
// для того же ID детерминированно дает error-ответ — мутация не выполняется
// дважды. Затем тот же Tool Invocation Wrapper прогоняется заново с исходными
// args под Elevated-контекстом: needs-approval правила сняты, deny-правила
// действуют по-прежнему, а executed-запись журнала ссылается на исходный
// Proposal.
func (g *Gateway) Approve(ctx context.Context, proposalID string, approver domain.Ctx) domain.Response {
	start := time.Now()
	if err := domain.RequireAuthority(approver, domain.AuthorityApproveActions); err != nil {
		g.logFailure(ctx, approver, "proposal.approve", "", err, start)
		return domain.ErrorResponse(err.Error())
	}

	p, err := g.proposals.ConsumeProposal(ctx, proposalID, approver.UserID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyProcessed):
			return domain.ErrorResponse("proposal already processed")
		case errors.Is(err, domain.ErrNotFound):
			return domain.ErrorResponse("proposal not found")
		default:
			g.logFailure(ctx, approver, "proposal.approve", "", err, start)
			return domain.ErrorResponse("could not consume the proposal")
		}
	}

	// Elevated-контекст: студия и автор берутся из Proposal, решивший оператор
	// остается в журнале через ConsumeProposal. Право инструмента выдается
	// конструктивно — сам факт одобрения и есть удовлетворение условия.
	elevated := domain.Ctx{
		StudioID:    p.StudioID,
		UserID:      p.UserID,
		Authorities: map[domain.Authority]bool{domain.AuthorityApproveActions: true},
		Elevated:    true,
		ProposalID:  p.ID,
	}
	for a := range approver.Authorities {
		elevated.Authorities[a] = true
	}
	if tool, ok := g.tools[p.ToolName]; ok {
		elevated.Authorities[tool.Authority()] = true
	}

	g.logger.Info("executing approved proposal",
		zap.String("proposal_id", p.ID),
		zap.String("tool", p.ToolName),
		zap.String("reviewer_id", approver.UserID),
	)
	return g.Handle(ctx, elevated, p.ToolName, p.Args)
}

// StartDecisionListener подписывается на решения операторов из консоли.
// Формат сообщения: "proposalID:reviewerID". Отклонения сюда не попадают —
// консоль фиксирует их в БД сама, исполнять нечего.
func (g *Gateway) StartDecisionListener(ctx context.Context, rdb *redis.Client) {
	for {
		pubsub := rdb.Subscribe(ctx, infra.RedisChanApprovalDecisions)

		if _, err := pubsub.Receive(ctx); err != nil {
			g.logger.Error("failed to subscribe to approval decisions", zap.Error(err))
			pubsub.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
				continue
			}
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				g.handleDecisionSignal(ctx, msg.Payload)
			}
		}

		pubsub.Close()
	}
}

func (g *Gateway) handleDecisionSignal(ctx context.Context, payload string) {
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		g.logger.Error("invalid decision signal format", zap.String("payload", payload))
		return
	}
	proposalID, reviewerID := parts[0], parts[1]

	approver := domain.Ctx{
		UserID:      reviewerID,
		Authorities: map[domain.Authority]bool{domain.AuthorityApproveActions: true},
	}

	resp := g.Approve(ctx, proposalID, approver)
	if resp.Type == domain.ResponseError {
		g.logger.Warn("approved proposal execution failed",
			zap.String("proposal_id", proposalID),
			zap.String("message", resp.Message),
		)
	}
}
