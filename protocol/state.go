package protocol

// State is the lifecycle state of a transfer session.
type State int

// Session states.
const (
	Idle State = iota
	Negotiating
	Transferring
	Finalizing
	Done
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Negotiating:
		return "negotiating"
	case Transferring:
		return "transferring"
	case Finalizing:
		return "finalizing"
	case Done:
		return "done"
	case Failed:
		return "error"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends the session.
func (s State) Terminal() bool {
	return s == Done || s == Failed || s == Cancelled
}

// CanTransition reports whether a session in state s may move to next.
//
// The forward path is Idle, Negotiating, Transferring, Finalizing, Done.
// Any live state may fail. Only a running transfer may be cancelled, since
// cancellation is observed at chunk boundaries.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case Failed:
		return true
	case Cancelled:
		return s == Transferring
	case Negotiating:
		return s == Idle
	case Transferring:
		return s == Negotiating || s == Transferring
	case Finalizing:
		return s == Transferring
	case Done:
		return s == Finalizing
	default:
		return false
	}
}
