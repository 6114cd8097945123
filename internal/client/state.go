package client

// ConnState is the transport connection state machine. Reconnection side
// effects (re-join rooms) hang off the transitions, and consumers read it as
// their connectivity indicator.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

// String returns the lowercase state name.
func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}
