package midi

import (
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-pulse/clock"
	"go-pulse/debug"
)

// Sink delivers clock pulses to one MIDI output port as system realtime
// messages: START, 24-per-quarter TIMING CLOCK, STOP.
type Sink struct {
	name string
	send func(gomidi.Message) error
}

// NewSink wraps a port send function, e.g. one from PortManager.Sender.
func NewSink(name string, send func(gomidi.Message) error) *Sink {
	return &Sink{name: name, send: send}
}

func (s *Sink) Name() string { return s.name }

// Send implements clock.Sink. Dated pulses are delivered on their own timer
// goroutine so the scheduler's poll is never suspended; a zero `at` sends
// inline (used for STOP).
func (s *Sink) Send(kind clock.Kind, at time.Time) error {
	var msg gomidi.Message
	switch kind {
	case clock.KindStart:
		msg = gomidi.Start()
	case clock.KindClock:
		msg = gomidi.TimingClock()
	case clock.KindStop:
		msg = gomidi.Stop()
	default:
		return nil
	}

	if at.IsZero() {
		return s.send(msg)
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		if err := s.send(msg); err != nil {
			debug.Log("midi", "send failed: port=%s kind=%s err=%v", s.name, kind, err)
		}
	})
	return nil
}
