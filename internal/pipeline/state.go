package pipeline

// State is a point in the pipeline lifecycle.
//
//	Created -> Opening -> Running -> Draining -> Closed
//	              |                     |
//	              +-------> Failed <----+
//
// A fatal error while running moves through Draining so open resources are
// released before Failed is reported. Closed and Failed are terminal.
type State string

const (
	StateCreated  State = "created"
	StateOpening  State = "opening"
	StateRunning  State = "running"
	StateDraining State = "draining"
	StateClosed   State = "closed"
	StateFailed   State = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// States lists every state in lifecycle order.
func States() []State {
	return []State{StateCreated, StateOpening, StateRunning, StateDraining, StateClosed, StateFailed}
}
