package session

import "fmt"

// State is the connection lifecycle of a Session. It only advances
// Disconnected → Connecting → Handshaking → Ready; any failure drops it back
// to Disconnected.
type State int32

const (
	Disconnected State = iota
	Connecting
	Handshaking
	Ready
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Handshaking:
		return "handshaking"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}
