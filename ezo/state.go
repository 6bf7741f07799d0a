package ezo

// State represents the scheduler stage of the head command.
type State uint8

// Scheduler states, derived from the head command and the clock.
const (
	// StateIdle indicates the command queue is empty.
	StateIdle State = iota
	// StateAwaitingSend indicates the head command has not been written yet.
	StateAwaitingSend
	// StateSettling indicates the head command was sent and its settle delay has not elapsed.
	StateSettling
	// StateReadyToRead indicates the settle delay elapsed and the response can be read.
	StateReadyToRead
)

// IsIdle returns if the queue is empty.
func (s State) IsIdle() bool { return s == StateIdle }

// String returns string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingSend:
		return "awaiting-send"
	case StateSettling:
		return "settling"
	case StateReadyToRead:
		return "ready-to-read"
	default:
		return "unknown"
	}
}
