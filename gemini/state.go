package gemini

// State tracks the live transport lifecycle. Legal transitions:
//
//	Idle -> Connecting -> Open -> Closing -> Closed
//	Connecting -> Closed           (handshake failure)
//	Open -> Error -> Closed        (mid-session failure)
//	Closed -> Connecting           (reconnect)
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
