package clock

import "time"

// Timer is the periodic-tick capability driving a PulseScheduler's polls.
// Abstracted so tests can drive polls manually instead of sleeping.
// TickEvery must not invoke fn before it returns; fn is invoked from a
// single goroutine per registration.
type Timer interface {
	Now() time.Time
	TickEvery(d time.Duration, fn func(now time.Time)) (stop func())
}

// WallTimer runs callbacks off a real time.Ticker.
type WallTimer struct{}

func (WallTimer) Now() time.Time { return time.Now() }

func (WallTimer) TickEvery(d time.Duration, fn func(now time.Time)) (stop func()) {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				fn(now)
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}
