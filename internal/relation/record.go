package relation

// Status is the lifecycle state of a relationship counter.
type Status int

const (
	// StatusInactive is reported for identities that never started a counter.
	StatusInactive Status = iota
	StatusActive
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	default:
		return "inactive"
	}
}

// UserRecord is the relationship counter of one chat.
type UserRecord struct {
	Identity string
	Day      int
	Status   Status
}
