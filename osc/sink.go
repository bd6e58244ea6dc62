// Package osc syncs remote peers to the pulse scheduler using the oscsync
// protocol: /sync/pulse messages carry (tempo, count) and are broadcast to
// every registered slave on each bar boundary.
package osc

import (
	"net"
	"sync"
	"time"

	"github.com/scgolang/osc"
	"github.com/scgolang/syncosc"

	"go-pulse/clock"
	"go-pulse/debug"
)

// Addresses the syncosc protocol leaves to the master's transport control.
const (
	AddressStart = "/sync/start"
	AddressStop  = "/sync/stop"
)

// SendFunc delivers one OSC message to one slave address.
type SendFunc func(addr net.Addr, m osc.Message) error

// Sink broadcasts scheduler pulses to registered slave addresses.
// It counts clock pulses itself and, per the oscsync protocol, only puts a
// /sync/pulse on the wire at bar boundaries (count % 96 == 0); slaves run
// their own tickers in between.
type Sink struct {
	send  SendFunc
	tempo func() float64

	mu     sync.Mutex
	slaves map[string]net.Addr
	count  int32
}

// NewSink creates a sink that broadcasts with send and reads the current
// tempo from tempo (usually PulseScheduler.Tempo).
func NewSink(send SendFunc, tempo func() float64) *Sink {
	return &Sink{
		send:   send,
		tempo:  tempo,
		slaves: make(map[string]net.Addr),
	}
}

// AddSlave registers a slave address for pulse broadcast.
func (s *Sink) AddSlave(addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slaves[addr.String()] = addr
	debug.Log("osc", "slave added: %s (%d total)", addr, len(s.slaves))
}

// RemoveSlave unregisters a slave address.
func (s *Sink) RemoveSlave(addr net.Addr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slaves, addr.String())
	debug.Log("osc", "slave removed: %s (%d left)", addr, len(s.slaves))
}

// Send implements clock.Sink.
func (s *Sink) Send(kind clock.Kind, at time.Time) error {
	switch kind {
	case clock.KindStart:
		s.mu.Lock()
		s.count = 0
		s.mu.Unlock()
		s.deliver(osc.Message{Address: AddressStart}, at)
	case clock.KindClock:
		s.mu.Lock()
		count := s.count
		s.count++
		s.mu.Unlock()
		if count%syncosc.PulsesPerBar != 0 {
			return nil
		}
		s.deliver(osc.Message{
			Address: syncosc.AddressPulse,
			Arguments: osc.Arguments{
				osc.Float(float32(s.tempo())),
				osc.Int(count),
			},
		}, at)
	case clock.KindStop:
		s.deliver(osc.Message{Address: AddressStop}, at)
	}
	return nil
}

// welcome sends the current pulse to a single just-registered slave.
func (s *Sink) welcome(addr net.Addr) {
	s.mu.Lock()
	count := s.count
	s.mu.Unlock()
	if err := s.send(addr, osc.Message{
		Address: syncosc.AddressPulse,
		Arguments: osc.Arguments{
			osc.Float(float32(s.tempo())),
			osc.Int(count),
		},
	}); err != nil {
		debug.Log("osc", "welcome pulse failed: slave=%s err=%v", addr, err)
	}
}

// deliver broadcasts m to all slaves at time `at`. Undated messages go out
// inline (UDP sends are cheap enough for the poll); dated ones wait on
// their own timer goroutine.
func (s *Sink) deliver(m osc.Message, at time.Time) {
	s.mu.Lock()
	slaves := make([]net.Addr, 0, len(s.slaves))
	for _, addr := range s.slaves {
		slaves = append(slaves, addr)
	}
	s.mu.Unlock()

	if len(slaves) == 0 {
		return
	}

	broadcast := func() {
		for _, addr := range slaves {
			if err := s.send(addr, m); err != nil {
				debug.Log("osc", "send failed: slave=%s addr=%s err=%v", addr, m.Address, err)
			}
		}
	}

	if at.IsZero() {
		broadcast()
		return
	}
	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, broadcast)
}
