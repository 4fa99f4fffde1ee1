package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOfRejectsStructures(t *testing.T) {
	_, err := ValueOf(map[string]interface{}{"nested": 1})
	require.Error(t, err)

	_, err = ValueOf([]interface{}{1, 2})
	require.Error(t, err)
}

func TestValueUnmarshalScalar(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`"anna@studio.io"`), &v))
	assert.Equal(t, ValueString, v.Kind())
	assert.Equal(t, "anna@studio.io", v.Str())

	require.NoError(t, json.Unmarshal([]byte(`12.5`), &v))
	assert.Equal(t, ValueNumber, v.Kind())
	assert.Equal(t, 12.5, v.Num())

	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.Equal(t, ValueNull, v.Kind())

	// Вложенный объект не пролезает мимо закрытого типа
	require.Error(t, json.Unmarshal([]byte(`{"a":1}`), &v))
}

func TestValueStringRendering(t *testing.T) {
	assert.Equal(t, "null", NullValue().String())
	assert.Equal(t, "12.5", NumberValue(12.5).String())
	assert.Equal(t, "15", NumberValue(15).String())
	assert.Equal(t, "true", BoolValue(true).String())
}

func TestValidateFields(t *testing.T) {
	ok := map[string]Value{"name": StringValue("A"), "discount_pct": NumberValue(10)}
	require.NoError(t, ValidateFields("clients", ok))

	bad := map[string]Value{"password_hash": StringValue("x")}
	require.Error(t, ValidateFields("clients", bad))

	require.Error(t, ValidateFields("rockets", ok))
}

func TestProposalTransitions(t *testing.T) {
	p := &Proposal{Status: ProposalPending}
	require.NoError(t, p.CanTransitionTo(ProposalApproved))
	require.NoError(t, p.CanTransitionTo(ProposalRejected))
	assert.ErrorIs(t, p.CanTransitionTo(ProposalPending), ErrInvalidTransition)

	p.Status = ProposalApproved
	assert.ErrorIs(t, p.CanTransitionTo(ProposalRejected), ErrAlreadyProcessed)
}
