package mixer

// Status is the transport state of the whole mixer. There is exactly one,
// never one per track.
type Status int

const (
	Stopped Status = iota
	Playing
	Paused
)

func (s Status) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}
