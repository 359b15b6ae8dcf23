package tone

// State identifies the delivery state of the pipeline.
type State uint32

const (
	// Filling means that the ring buffer is filled ahead of the first
	// request.
	Filling State = iota
	// Steady means that the last request was fully served.
	Steady
	// Underrun means that the last request was completed with silence.
	Underrun
)

func (s State) String() string {
	switch s {
	case Filling:
		return "filling"
	case Steady:
		return "steady"
	case Underrun:
		return "underrun"
	}
	return "unknown"
}

// served returns the state after a request of requested samples was
// answered with n buffered samples.
func served(n, requested int) State {
	if n < requested {
		return Underrun
	}
	return Steady
}
