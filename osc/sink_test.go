package osc

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/scgolang/osc"
	"github.com/scgolang/syncosc"

	"go-pulse/clock"
)

type capture struct {
	mu   sync.Mutex
	msgs []osc.Message
}

func (c *capture) send(addr net.Addr, m osc.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *capture) wait(t *testing.T, n int) []osc.Message {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.msgs) >= n {
			msgs := append([]osc.Message(nil), c.msgs...)
			c.mu.Unlock()
			return msgs
		}
		c.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("never captured %d messages", n)
	return nil
}

func testAddr(t *testing.T) net.Addr {
	t.Helper()
	addr, err := net.ResolveUDPAddr("udp", "127.0.0.1:5775")
	if err != nil {
		t.Fatal(err)
	}
	return addr
}

func TestSinkBroadcastsBarBoundaries(t *testing.T) {
	c := &capture{}
	sink := NewSink(c.send, func() float64 { return 120 })
	sink.AddSlave(testAddr(t))

	// Two bars of clocks after a start: pulses 0 and 96 hit the wire, the
	// 190 in between stay local.
	sink.Send(clock.KindStart, time.Time{})
	for i := 0; i < 2*syncosc.PulsesPerBar; i++ {
		sink.Send(clock.KindClock, time.Time{})
	}

	msgs := c.wait(t, 3)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want start + 2 pulses", len(msgs))
	}
	if msgs[0].Address != AddressStart {
		t.Errorf("first message %s, want %s", msgs[0].Address, AddressStart)
	}
	for i, want := range []int32{0, 96} {
		m := msgs[i+1]
		if m.Address != syncosc.AddressPulse {
			t.Fatalf("message %d address %s, want %s", i+1, m.Address, syncosc.AddressPulse)
		}
		count, err := m.Arguments[1].ReadInt32()
		if err != nil {
			t.Fatal(err)
		}
		if count != want {
			t.Errorf("pulse %d count = %d, want %d", i, count, want)
		}
	}
}

func TestSinkStartResetsCount(t *testing.T) {
	c := &capture{}
	sink := NewSink(c.send, func() float64 { return 120 })
	sink.AddSlave(testAddr(t))

	sink.Send(clock.KindStart, time.Time{})
	for i := 0; i < 10; i++ {
		sink.Send(clock.KindClock, time.Time{})
	}
	sink.Send(clock.KindStop, time.Time{})
	sink.Send(clock.KindStart, time.Time{})
	sink.Send(clock.KindClock, time.Time{})

	// start, pulse 0, stop, start, pulse 0 again
	msgs := c.wait(t, 5)
	last := msgs[len(msgs)-1]
	if last.Address != syncosc.AddressPulse {
		t.Fatalf("last message %s, want %s", last.Address, syncosc.AddressPulse)
	}
	count, err := last.Arguments[1].ReadInt32()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("pulse count after restart = %d, want 0", count)
	}
}

func TestSinkNoSlavesNoTraffic(t *testing.T) {
	c := &capture{}
	sink := NewSink(c.send, func() float64 { return 120 })

	sink.Send(clock.KindStart, time.Time{})
	sink.Send(clock.KindClock, time.Time{})
	sink.Send(clock.KindStop, time.Time{})

	time.Sleep(10 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) != 0 {
		t.Errorf("sink with no slaves sent %d messages", len(c.msgs))
	}
}

func TestSinkRemoveSlave(t *testing.T) {
	c := &capture{}
	sink := NewSink(c.send, func() float64 { return 120 })
	addr := testAddr(t)
	sink.AddSlave(addr)
	sink.RemoveSlave(addr)

	sink.Send(clock.KindClock, time.Time{})
	time.Sleep(10 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) != 0 {
		t.Errorf("removed slave still received %d messages", len(c.msgs))
	}
}

func TestClampTempo(t *testing.T) {
	for _, tc := range []struct{ in, want float64 }{
		{10, MinTempo},
		{120, 120},
		{1000, MaxTempo},
	} {
		if got := ClampTempo(tc.in); got != tc.want {
			t.Errorf("ClampTempo(%f) = %f, want %f", tc.in, got, tc.want)
		}
	}
}
