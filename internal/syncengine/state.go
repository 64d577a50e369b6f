package syncengine

// ConnectionState is the state of the relay link.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	// StateClosed is final, reached through Close or a terminal error.
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error
}
