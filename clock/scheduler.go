package clock

import (
	"sync"
	"time"

	"go-pulse/debug"
)

// Tick resolution: 96 subdivisions per bar (24 per quarter note).
const TicksPerBar = 96

// Scheduling constants. Look-ahead and schedule-window stay within the
// desired jitter tolerance, and the poll interval is much smaller than the
// schedule window so no window is scanned larger than intended.
const (
	PollInterval      = time.Millisecond
	LookAhead         = 10 * time.Millisecond
	ScheduleWindow    = 10 * time.Millisecond
	AdditionalLatency = 10 * time.Millisecond
)

const scheduleWindowMillis = float64(ScheduleWindow) / float64(time.Millisecond)

// PulseScheduler generates a steady start/clock/stop pulse stream at a
// mutable tempo and stamps each pulse with a corrected wall-clock send time.
// It is driven by a coarse periodic timer: each poll scans the half-open
// virtual-time window since the last scan and emits every tick inside it,
// anchoring send times to the upcoming window deadline rather than "now" so
// poll jitter never reaches the sinks.
type PulseScheduler struct {
	timer Timer

	mu      sync.Mutex
	bpm     float64
	running bool

	elapsed  float64   // virtual ms scheduled so far
	tick     int64     // 1/96-bar subdivisions emitted since start
	deadline time.Time // wall clock of the next window scan

	// staged is mutated freely by collaborators; working is an immutable
	// snapshot taken at Start and used for the whole run.
	staged  []Sink
	working []Sink

	stopPoll func()
}

// NewPulseScheduler creates an idle scheduler. bpm must be positive;
// range policy (e.g. clamping to 30-300) is the caller's concern.
func NewPulseScheduler(timer Timer, bpm float64) *PulseScheduler {
	return &PulseScheduler{
		timer: timer,
		bpm:   bpm,
	}
}

// Start snapshots the staged sinks and begins polling. No-op if running.
func (s *PulseScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.working = append([]Sink(nil), s.staged...)
	s.deadline = s.timer.Now().Add(LookAhead)
	s.tick = 0
	s.elapsed = 0
	s.running = true
	s.stopPoll = s.timer.TickEvery(PollInterval, s.poll)
	debug.Log("clock", "start: bpm=%.2f sinks=%d", s.bpm, len(s.working))
}

// Stop emits an undated STOP to the working set, halts polling, and resets
// tick and elapsed time. Tempo is left unchanged. No-op if idle.
func (s *PulseScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop := s.stopPoll
	s.stopPoll = nil
	s.emit(KindStop, time.Time{})
	debug.Log("clock", "stop: ticks=%d", s.tick)
	s.tick = 0
	s.elapsed = 0
	s.mu.Unlock()

	// Outside the lock: the poll goroutine may be blocked on it right now.
	if stop != nil {
		stop()
	}
}

// SetTempo changes the tempo, preserving the current bar position so
// scheduling stays continuous through a mid-run change. bpm must be positive.
func (s *PulseScheduler) SetTempo(bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bars := MillisToBars(s.elapsed, s.bpm)
	s.bpm = bpm
	s.elapsed = BarsToMillis(bars, s.bpm)
	debug.Log("clock", "tempo=%.2f", bpm)
}

// Tempo returns the current tempo in BPM.
func (s *PulseScheduler) Tempo() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// Running reports whether the scheduler is between Start and Stop.
func (s *PulseScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Position returns the bar position that has been scheduled so far.
func (s *PulseScheduler) Position() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MillisToBars(s.elapsed, s.bpm)
}

// State returns the tick counter, run state and tempo in one call.
func (s *PulseScheduler) State() (tick int64, running bool, bpm float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick, s.running, s.bpm
}

// AddSink stages a sink for the next run. A sink added while running does
// not receive pulses until the next Start.
func (s *PulseScheduler) AddSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.staged {
		if existing == sink {
			return
		}
	}
	s.staged = append(s.staged, sink)
}

// RemoveSink unstages a sink. The working set of an in-progress run is
// untouched; the sink keeps receiving pulses until the next Stop.
func (s *PulseScheduler) RemoveSink(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.staged {
		if existing == sink {
			s.staged = append(s.staged[:i], s.staged[i+1:]...)
			return
		}
	}
}

// poll runs every PollInterval while running. Once the look-ahead reaches
// the next window deadline it scans the window [elapsed, elapsed+window) in
// virtual time and emits every tick whose bar position falls inside it.
func (s *PulseScheduler) poll(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && !now.Add(LookAhead).Before(s.deadline) {
		s.scanWindow()
	}
}

func (s *PulseScheduler) scanWindow() {
	t0 := MillisToBars(s.elapsed, s.bpm)
	t1 := MillisToBars(s.elapsed+scheduleWindowMillis, s.bpm)

	pos := float64(s.tick) / TicksPerBar
	for pos < t1 {
		// Ticks below t0 were handled by a prior scan. The boundary at t1
		// is excluded so consecutive windows never emit the same tick.
		if pos >= t0 {
			at := s.deadline.Add(millisDuration(BarsToMillis(pos, s.bpm)-s.elapsed) + AdditionalLatency)
			if s.tick == 0 {
				s.emit(KindStart, at)
			}
			s.emit(KindClock, at)
			debug.LogEvery(TicksPerBar, "clock", "tick=%d bar=%.3f", s.tick, pos)
		}
		s.tick++
		pos = float64(s.tick) / TicksPerBar
	}

	s.elapsed += scheduleWindowMillis
	s.deadline = s.deadline.Add(ScheduleWindow)
}

func (s *PulseScheduler) emit(kind Kind, at time.Time) {
	for _, sink := range s.working {
		if err := sink.Send(kind, at); err != nil {
			debug.Log("clock", "sink send failed: kind=%s err=%v", kind, err)
		}
	}
}

func millisDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
