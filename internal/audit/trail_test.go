package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/atelier-gate/internal/domain"
)

type captureStore struct {
	entries []Entry
	fail    error
}

func (s *captureStore) Append(ctx context.Context, e Entry) error {
	if s.fail != nil {
		return s.fail
	}
	s.entries = append(s.entries, e)
	return nil
}

var fixedClock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestTrail(store Store) *Trail {
	return NewTrail(store, zap.NewNop()).WithClock(func() time.Time { return fixedClock })
}

func testCall() domain.Ctx {
	return domain.Ctx{StudioID: "studio-1", UserID: "user-1"}
}

func testDescriptor() domain.ActionDescriptor {
	return domain.ActionDescriptor{
		Action: "client.update",
		Table:  "clients",
		Risk:   domain.RiskLow,
	}
}

func TestTrailExecutionEntry(t *testing.T) {
	store := &captureStore{}
	trail := newTestTrail(store)

	before := map[string]interface{}{"name": "Anna"}
	after := map[string]interface{}{"name": "Anna K."}

	call := testCall()
	call.ProposalID = "prop-7" // Elevated-исполнение ссылается на Proposal

	require.NoError(t, trail.Execution(context.Background(), call, testDescriptor(), "c-1", before, after, fixedClock))

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, OutcomeExecuted, e.Outcome)
	assert.Equal(t, "c-1", e.TargetID)
	assert.Equal(t, before, e.Before)
	assert.Equal(t, after, e.After)
	assert.Equal(t, "prop-7", e.ProposalID)
	assert.NotEmpty(t, e.ID)
	assert.NotEmpty(t, e.TraceID)
	assert.False(t, e.Timestamp.IsZero())
}

// Латентность вызова фиксируется в записи: Overview считает по ней P95.
func TestTrailStampsDuration(t *testing.T) {
	store := &captureStore{}
	trail := newTestTrail(store)

	started := fixedClock.Add(-1500 * time.Millisecond)
	require.NoError(t, trail.Execution(context.Background(), testCall(), testDescriptor(), "c-1", nil, nil, started))

	require.Len(t, store.entries, 1)
	assert.Equal(t, int64(1500), store.entries[0].DurationMs)

	require.NoError(t, trail.Denial(context.Background(), testCall(), testDescriptor(), "blocked", started))
	assert.Equal(t, int64(1500), store.entries[1].DurationMs)
}

// Запись журнала переживает отмену вызывающего: мутация уже применена.
func TestTrailExecutionSurvivesCancel(t *testing.T) {
	store := &captureStore{}
	trail := newTestTrail(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, trail.Execution(ctx, testCall(), testDescriptor(), "c-1", nil, nil, fixedClock))
	require.Len(t, store.entries, 1)
}

func TestTrailDenialEntry(t *testing.T) {
	store := &captureStore{}
	trail := newTestTrail(store)

	require.NoError(t, trail.Denial(context.Background(), testCall(), testDescriptor(), "field is protected", fixedClock))

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, OutcomeDenied, e.Outcome)
	assert.Equal(t, "field is protected", e.Reason)
	assert.Empty(t, e.Before)
	assert.Empty(t, e.After)
}

func TestTrailProposalEntry(t *testing.T) {
	store := &captureStore{}
	trail := newTestTrail(store)

	p := domain.Proposal{ID: "prop-1", Reason: "risk tier requires approval"}
	require.NoError(t, trail.Proposal(context.Background(), testCall(), testDescriptor(), p, "c-1", fixedClock))

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, OutcomeProposed, e.Outcome)
	assert.Equal(t, "prop-1", e.ProposalID)
	assert.Equal(t, p.Reason, e.Reason)
}

func TestTrailFailureEntry(t *testing.T) {
	store := &captureStore{}
	trail := newTestTrail(store)

	require.NoError(t, trail.Failure(context.Background(), testCall(), "client.update", "clients", errors.New("boom"), fixedClock))

	require.Len(t, store.entries, 1)
	e := store.entries[0]
	assert.Equal(t, OutcomeFailed, e.Outcome)
	assert.Equal(t, "boom", e.Error)
}

// Сбой хранилища журнала — это сбой вызова, ошибка не глотается.
func TestTrailStoreFailurePropagates(t *testing.T) {
	store := &captureStore{fail: errors.New("db down")}
	trail := newTestTrail(store)

	err := trail.Execution(context.Background(), testCall(), testDescriptor(), "c-1", nil, nil, fixedClock)
	require.Error(t, err)
}
