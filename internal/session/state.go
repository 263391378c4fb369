package session

// State is the lifecycle position of the loaded image.
type State int

const (
	Empty State = iota
	Loaded
	Detecting
	Detected
	Rendered
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loaded:
		return "loaded"
	case Detecting:
		return "detecting"
	case Detected:
		return "detected"
	case Rendered:
		return "rendered"
	default:
		return "unknown"
	}
}
