package verification

// State is one step of a verification attempt
type State string

const (
	StateIdle           State = "idle"
	StateLivenessCheck  State = "liveness-check"
	StateCapturing      State = "capturing"
	StateMatching       State = "matching"
	StateSuccess        State = "success"
	StateFailed         State = "failed"
	StateLivenessFailed State = "liveness-failed"
)

// Terminal reports whether no further transition follows s
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateFailed, StateLivenessFailed:
		return true
	}
	return false
}

// next lists the legal transitions; every attempt starts again from idle
var next = map[State][]State{
	StateIdle:          {StateLivenessCheck},
	StateLivenessCheck: {StateCapturing, StateLivenessFailed},
	StateCapturing:     {StateMatching, StateFailed},
	StateMatching:      {StateSuccess, StateFailed},
}

// CanTransition reports whether from -> to is a legal edge
func CanTransition(from, to State) bool {
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}
