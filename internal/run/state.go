package run

// State is the externally observable position of a run. Transitions are
// driven solely by the orchestrator; each one is emitted as a progress
// event.
type State string

const (
	StateReady         State = "ready"
	StatePreprocessing State = "preprocessing"
	StateAnalyzing     State = "analyzing"
	StateGenerating    State = "generating"
	StateVerifying     State = "verifying"
	StateCorrecting    State = "correcting"
	StateDone          State = "done"
	StateErrored       State = "errored"
)

// Terminal reports whether no further transitions can follow.
func (s State) Terminal() bool {
	return s == StateDone || s == StateErrored
}

// Event is one progress notification. Detail carries the failure cause
// in StateErrored and is empty or informational elsewhere.
type Event struct {
	State  State  `json:"state"`
	Detail string `json:"detail,omitempty"`
}

// Steps is the ordered step enumeration mirrored from the state machine.
// The daemon returns it when a run is accepted so progress UIs can lay
// out the step list before events arrive.
var Steps = []State{StateAnalyzing, StateGenerating, StateVerifying, StateCorrecting, StateDone}
