package ordering

// State tracks one section's layout edit lifecycle.
//
//	Clean  --edit-->  Dirty  --save-->  Saving  --ack-->  Clean
//	                    ^                 |  \
//	                    +-----failure-----+   newer differing push
//	                                           v
//	                                        Conflict --ack--> Clean
type State int

const (
	Clean State = iota
	Dirty
	Saving
	Conflict
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Dirty:
		return "dirty"
	case Saving:
		return "saving"
	case Conflict:
		return "conflict"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
