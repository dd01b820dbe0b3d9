package session

// State tracks the session lifecycle.
type State int

// Session states. A session moves NotStarted, Connecting, Verifying,
// Ready, then Stopped; Failed is terminal and reachable from Connecting
// or Verifying.
const (
	StateNotStarted State = iota
	StateConnecting
	StateVerifying
	StateReady
	StateStopped
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateConnecting:
		return "Connecting"
	case StateVerifying:
		return "Verifying"
	case StateReady:
		return "Ready"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
