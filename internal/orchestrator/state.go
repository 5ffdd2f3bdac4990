// internal/orchestrator/state.go
package orchestrator

// State is a step of one orchestration run.
type State string

const (
	StateStart      State = "start"
	StateClassified State = "classified"
	StateDispatched State = "dispatched"
	StateAggregated State = "aggregated"
	StateExplained  State = "explained"
	StateDone       State = "done"
)

// next lists the legal transitions. Explained is skipped when no
// explanation was requested.
var next = map[State][]State{
	StateStart:      {StateClassified},
	StateClassified: {StateDispatched},
	StateDispatched: {StateAggregated},
	StateAggregated: {StateExplained, StateDone},
	StateExplained:  {StateDone},
}

// trace records the states a run passed through.
type trace struct {
	states []State
}

func newTrace() *trace {
	return &trace{states: []State{StateStart}}
}

func (t *trace) current() State {
	return t.states[len(t.states)-1]
}

// advance moves to s. An illegal transition is a programming error.
func (t *trace) advance(s State) {
	for _, allowed := range next[t.current()] {
		if allowed == s {
			t.states = append(t.states, s)
			return
		}
	}
	panic("orchestrator: illegal transition " + string(t.current()) + " -> " + string(s))
}

func (t *trace) strings() []string {
	out := make([]string, len(t.states))
	for i, s := range t.states {
		out[i] = string(s)
	}
	return out
}
