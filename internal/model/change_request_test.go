package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTransitions(t *testing.T) {
	all := []RequestStatus{
		RequestStatusPending,
		RequestStatusTeacherApproved,
		RequestStatusTeacherRejected,
		RequestStatusAdminRejected,
		RequestStatusCompleted,
	}
	allowed := map[[2]RequestStatus]bool{
		{RequestStatusPending, RequestStatusTeacherApproved}:       true,
		{RequestStatusPending, RequestStatusTeacherRejected}:       true,
		{RequestStatusPending, RequestStatusCompleted}:             true,
		{RequestStatusTeacherApproved, RequestStatusCompleted}:     true,
		{RequestStatusTeacherRejected, RequestStatusCompleted}:     true,
		{RequestStatusTeacherRejected, RequestStatusAdminRejected}: true,
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]RequestStatus{from, to}]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	for _, s := range []RequestStatus{RequestStatusCompleted, RequestStatusAdminRejected} {
		assert.True(t, s.IsTerminal())
		assert.False(t, s.IsOpen())
		assert.Empty(t, requestTransitions[s])
	}
	assert.False(t, RequestStatusPending.IsTerminal())
	assert.True(t, RequestStatusPending.IsOpen())
	assert.True(t, RequestStatusTeacherRejected.IsOpen())
	assert.False(t, RequestStatusTeacherApproved.IsOpen())
}

func TestParseRequestType(t *testing.T) {
	typ, err := ParseRequestType("TROCA_AULA")
	require.NoError(t, err)
	assert.Equal(t, RequestTypeTrocaAula, typ)
	assert.True(t, typ.IsReschedule())
	assert.True(t, RequestTypeTrocaProfessor.IsReschedule())
	assert.False(t, RequestTypeCancelamento.IsReschedule())

	_, err = ParseRequestType("troca_aula")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
