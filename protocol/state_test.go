package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{Idle, Negotiating, true},
		{Negotiating, Transferring, true},
		{Transferring, Transferring, true},
		{Transferring, Finalizing, true},
		{Finalizing, Done, true},
		{Idle, Failed, true},
		{Finalizing, Failed, true},
		{Transferring, Cancelled, true},
		{Negotiating, Cancelled, false},
		{Idle, Transferring, false},
		{Negotiating, Done, false},
		{Done, Failed, false},
		{Cancelled, Transferring, false},
		{Failed, Idle, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestStateTerminal(t *testing.T) {
	assert.True(t, Done.Terminal())
	assert.True(t, Failed.Terminal())
	assert.True(t, Cancelled.Terminal())
	assert.False(t, Transferring.Terminal())
	assert.Equal(t, "error", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}
