package session

type effect uint8

const (
	// effectStop stops block delivery and leaves the session Initialized.
	effectStop = effect(0)
	// effectClose releases the backend handle and leaves the session
	// Uninitialized.
	effectClose = effect(1)
)

func (this effect) String() string {
	switch this {
	case effectStop:
		return "stop"
	case effectClose:
		return "close"
	default:
		return "illegal-effect"
	}
}

// collapses lists, per current state and target state, the ordered effects
// which bring a session down to the target. Missing entries are no-ops.
var collapses = map[State]map[State][]effect{
	StateRunning: {
		StateInitialized:   {effectStop},
		StateUninitialized: {effectStop, effectClose},
	},
	StateInitialized: {
		StateUninitialized: {effectClose},
	},
}

func collapsePlan(current, target State) []effect {
	if !current.IsMoreActiveThan(target) {
		return nil
	}
	return collapses[current][target]
}
