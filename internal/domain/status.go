package domain

// Status is the room lifecycle state.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

var transitions = map[Status]Status{
	StatusWaiting: StatusPlaying,
	StatusPlaying: StatusEnded,
}

// CanTransitionTo reports whether the lifecycle allows moving from s to target.
// The lifecycle is strictly waiting -> playing -> ended.
func (s Status) CanTransitionTo(target Status) bool {
	next, ok := transitions[s]
	return ok && next == target
}

func (s Status) String() string {
	return string(s)
}
