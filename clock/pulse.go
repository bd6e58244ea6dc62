package clock

import "time"

// Kind identifies the kind of pulse delivered to a sink
type Kind int

const (
	KindStart Kind = iota // precedes the first clock of a run
	KindClock             // recurs once per tick (1/96 bar)
	KindStop              // sent once per stop, undated
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindClock:
		return "clock"
	case KindStop:
		return "stop"
	}
	return "unknown"
}

// Sink receives pulses from a PulseScheduler. A zero `at` means deliver
// immediately; otherwise `at` is the absolute wall-clock send time.
// Send must not block - delivery mechanisms that need to wait do so on
// their own goroutine. Errors are logged by the scheduler, never retried.
type Sink interface {
	Send(kind Kind, at time.Time) error
}
