package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

type fakeProposalRepo struct {
	proposals map[string]*domain.Proposal
	rejected  map[string]string // proposal_id -> reviewer_id
}

func newFakeProposalRepo(ps ...*domain.Proposal) *fakeProposalRepo {
	repo := &fakeProposalRepo{
		proposals: make(map[string]*domain.Proposal),
		rejected:  make(map[string]string),
	}
	for _, p := range ps {
		repo.proposals[p.ID] = p
	}
	return repo
}

func (r *fakeProposalRepo) GetProposalByID(ctx context.Context, id string) (*domain.Proposal, error) {
	p, ok := r.proposals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProposalRepo) FindProposals(ctx context.Context, studioID string, status domain.ProposalStatus) ([]*domain.Proposal, error) {
	out := make([]*domain.Proposal, 0)
	for _, p := range r.proposals {
		if p.StudioID == studioID && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProposalRepo) RejectProposal(ctx context.Context, id, reviewerID, comment string) error {
	p, ok := r.proposals[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Status != domain.ProposalPending {
		return domain.ErrAlreadyProcessed
	}
	p.Status = domain.ProposalRejected
	r.rejected[id] = reviewerID
	return nil
}

func pendingProposal(id, studioID string) *domain.Proposal {
	return &domain.Proposal{
		ID:       id,
		StudioID: studioID,
		UserID:   "user-1",
		ToolName: "client.update",
		Status:   domain.ProposalPending,
	}
}

// Оператор не может решить заявку чужой студии: ни отклонить, ни одобрить.
// Чужая заявка неотличима от несуществующей.
func TestDecideProposalForeignStudio(t *testing.T) {
	repo := newFakeProposalRepo(pendingProposal("p-1", "studio-A"))
	svc := NewProposalService(repo, nil, zap.NewNop())

	err := svc.DecideProposal(context.Background(), "studio-B", "p-1", false, "op-9", "looks wrong")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, repo.rejected)
	assert.Equal(t, domain.ProposalPending, repo.proposals["p-1"].Status)

	// Одобрение отбивается до публикации сигнала шлюзу
	err = svc.DecideProposal(context.Background(), "studio-B", "p-1", true, "op-9", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.ProposalPending, repo.proposals["p-1"].Status)
}

func TestDecideProposalRejectOwnStudio(t *testing.T) {
	repo := newFakeProposalRepo(pendingProposal("p-1", "studio-A"))
	svc := NewProposalService(repo, nil, zap.NewNop())

	err := svc.DecideProposal(context.Background(), "studio-A", "p-1", false, "op-1", "not today")
	require.NoError(t, err)
	assert.Equal(t, "op-1", repo.rejected["p-1"])
	assert.Equal(t, domain.ProposalRejected, repo.proposals["p-1"].Status)
}

func TestDecideProposalAlreadyProcessed(t *testing.T) {
	p := pendingProposal("p-1", "studio-A")
	p.Status = domain.ProposalApproved
	repo := newFakeProposalRepo(p)
	svc := NewProposalService(repo, nil, zap.NewNop())

	err := svc.DecideProposal(context.Background(), "studio-A", "p-1", true, "op-1", "")
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)
}

func TestDecideProposalUnknownID(t *testing.T) {
	svc := NewProposalService(newFakeProposalRepo(), nil, zap.NewNop())

	err := svc.DecideProposal(context.Background(), "studio-A", "ghost", false, "op-1", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}
