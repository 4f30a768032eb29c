// In file: internal/agent/state.go
package agent

// State is a node of the orchestration state machine shared by both modes:
//
//	AwaitingModel -> ProcessingResponse -> {Continuing | Done | Aborted}
//	Continuing -> AwaitingModel
type State string

// States of a run. Only StateDone and StateAborted are terminal.
const (
	StateAwaitingModel      State = "awaiting_model"
	StateProcessingResponse State = "processing_response"
	StateContinuing         State = "continuing"
	StateDone               State = "done"
	StateAborted            State = "aborted"
)

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateAborted
}

func (s State) String() string {
	return string(s)
}
