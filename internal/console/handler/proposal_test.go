package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/atelier-gate/internal/console/service"
	"github.com/xela07ax/atelier-gate/internal/domain"
	"github.com/xela07ax/atelier-gate/internal/infra/auth"
)

type fakeProposalRepo struct {
	proposals map[string]*domain.Proposal
	rejected  map[string]string // proposal_id -> reviewer_id
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

func newProposalFixture() (*fakeProposalRepo, *ProposalHandler) {
	repo := &fakeProposalRepo{
		proposals: map[string]*domain.Proposal{
			"p-1": {
				ID:       "p-1",
				StudioID: "studio-A",
				UserID:   "user-1",
				ToolName: "client.update",
				Status:   domain.ProposalPending,
			},
		},
		rejected: make(map[string]string),
	}
	svc := service.NewProposalService(repo, nil, zap.NewNop())
	return repo, NewProposalHandler(svc)
}

// authedRequest собирает запрос с chi-параметром id и claims оператора,
// как после auth-middleware.
func authedRequest(method, id, studioID, operatorID, body string) *http.Request {
	r := httptest.NewRequest(method, "/v1/proposals/"+id+"/decide", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)

	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = auth.WithClaims(ctx, &domain.CustomClaims{UserID: operatorID, StudioID: studioID})
	return r.WithContext(ctx)
}

// Оператор чужой студии получает 404, решение не сохраняется.
func TestDecideCrossStudioIsNotFound(t *testing.T) {
	repo, h := newProposalFixture()

	w := httptest.NewRecorder()
	h.Decide(w, authedRequest(http.MethodPost, "p-1", "studio-B", "op-9", `{"approved":false,"comment":"no"}`))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, repo.rejected)
	assert.Equal(t, domain.ProposalPending, repo.proposals["p-1"].Status)

	// Одобрение чужой заявки отбивается так же
	w = httptest.NewRecorder()
	h.Decide(w, authedRequest(http.MethodPost, "p-1", "studio-B", "op-9", `{"approved":true}`))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.ProposalPending, repo.proposals["p-1"].Status)
}

func TestDecideRejectOwnStudio(t *testing.T) {
	repo, h := newProposalFixture()

	w := httptest.NewRecorder()
	h.Decide(w, authedRequest(http.MethodPost, "p-1", "studio-A", "op-1", `{"approved":false,"comment":"not today"}`))

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "op-1", repo.rejected["p-1"])
	assert.Equal(t, domain.ProposalRejected, repo.proposals["p-1"].Status)
}

// Детали чужой заявки тоже неотличимы от несуществующей.
func TestGetDetailsCrossStudioIsNotFound(t *testing.T) {
	_, h := newProposalFixture()

	w := httptest.NewRecorder()
	h.GetDetails(w, authedRequest(http.MethodGet, "p-1", "studio-B", "op-9", ""))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
