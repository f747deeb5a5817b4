package session

import (
	"fmt"
	"strings"
)

// State of a Session. The numeric order is the activity order:
// Uninitialized < Initialized < Running.
type State uint8

const (
	StateUninitialized = State(0)
	StateInitialized   = State(1)
	StateRunning       = State(2)
)

var (
	AllStates = States{
		StateUninitialized,
		StateInitialized,
		StateRunning,
	}
)

func (this *State) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "uninitialized", "closed":
		*this = StateUninitialized
		return nil
	case "initialized", "paused":
		*this = StateInitialized
		return nil
	case "running", "playing":
		*this = StateRunning
		return nil
	default:
		return fmt.Errorf("illegal-session-state: %s", plain)
	}
}

func (this State) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-session-state-%d", this)
	}
	return string(v)
}

func (this State) MarshalText() (text []byte, err error) {
	switch this {
	case StateUninitialized:
		return []byte("uninitialized"), nil
	case StateInitialized:
		return []byte("initialized"), nil
	case StateRunning:
		return []byte("running"), nil
	default:
		return nil, fmt.Errorf("illegal session state: %d", this)
	}
}

func (this *State) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

// IsMoreActiveThan compares in activity order.
func (this State) IsMoreActiveThan(other State) bool {
	return this > other
}

type States []State

func (this States) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this States) String() string {
	return strings.Join(this.Strings(), ",")
}
