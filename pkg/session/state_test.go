package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Set(t *testing.T) {
	cases := map[string]State{
		"uninitialized": StateUninitialized,
		"Closed":        StateUninitialized,
		"initialized":   StateInitialized,
		" paused ":      StateInitialized,
		"RUNNING":       StateRunning,
		"playing":       StateRunning,
	}
	for plain, expected := range cases {
		t.Run(plain, func(t *testing.T) {
			var actual State
			require.NoError(t, actual.Set(plain))
			assert.Equal(t, expected, actual)
		})
	}

	var actual State
	assert.Error(t, actual.Set("foo"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized,initialized,running", AllStates.String())
	assert.Equal(t, "illegal-session-state-66", State(66).String())
}

func TestState_IsMoreActiveThan(t *testing.T) {
	assert.True(t, StateRunning.IsMoreActiveThan(StateInitialized))
	assert.True(t, StateInitialized.IsMoreActiveThan(StateUninitialized))
	assert.False(t, StateInitialized.IsMoreActiveThan(StateInitialized))
	assert.False(t, StateUninitialized.IsMoreActiveThan(StateRunning))
}

func TestCollapsePlan(t *testing.T) {
	cases := []struct {
		current  State
		target   State
		expected []effect
	}{
		{StateRunning, StateRunning, nil},
		{StateRunning, StateInitialized, []effect{effectStop}},
		{StateRunning, StateUninitialized, []effect{effectStop, effectClose}},
		{StateInitialized, StateRunning, nil},
		{StateInitialized, StateInitialized, nil},
		{StateInitialized, StateUninitialized, []effect{effectClose}},
		{StateUninitialized, StateRunning, nil},
		{StateUninitialized, StateInitialized, nil},
		{StateUninitialized, StateUninitialized, nil},
	}
	for _, c := range cases {
		t.Run(c.current.String()+"->"+c.target.String(), func(t *testing.T) {
			assert.Equal(t, c.expected, collapsePlan(c.current, c.target))
		})
	}
}
