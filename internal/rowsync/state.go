package rowsync

// Lifecycle is whether a row has a server id yet.
type Lifecycle int

const (
	LifecycleNew Lifecycle = iota
	LifecyclePersisted
)

func (l Lifecycle) String() string {
	if l == LifecyclePersisted {
		return "persisted"
	}
	return "new"
}

// Phase is where a row stands in its save cycle.
type Phase int

const (
	PhaseIdle    Phase = iota
	PhasePending       // timer armed
	PhaseSaving        // holds the gate
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseSaving:
		return "saving"
	}
	return "idle"
}

// State is the tagged state of one row.
type State struct {
	Lifecycle Lifecycle
	Phase     Phase
	// Intent is set while an explicit save waits for the gate.
	Intent bool
}
