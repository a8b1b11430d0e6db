package workitem

// StateType is the tracker's coarse state category. State names are opaque;
// only the category ordering matters for move decisions.
type StateType string

const (
	StateBacklog   StateType = "backlog"
	StateUnstarted StateType = "unstarted"
	StateStarted   StateType = "started"
	StatePaused    StateType = "paused"
	StateCompleted StateType = "completed"
	StateCancelled StateType = "cancelled"
)

var stateRank = map[StateType]int{
	StateBacklog:   0,
	StateUnstarted: 1,
	StateStarted:   2,
	StatePaused:    2, // paused sits beside started, not behind it
	StateCompleted: 3,
	StateCancelled: 3,
}

// Rank returns the ordering position of a state category. Unknown
// categories rank as -1 and never validate as a forward move.
func (t StateType) Rank() int {
	if r, ok := stateRank[t]; ok {
		return r
	}
	return -1
}

// IsForward reports whether moving from one state category to another is a
// forward transition. Backward moves require an explicit negative-signal
// rationale and are rejected here.
func IsForward(from, to StateType) bool {
	fr, tr := from.Rank(), to.Rank()
	if fr < 0 || tr < 0 {
		return false
	}
	return tr > fr
}
