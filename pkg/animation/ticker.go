// Package animation drives state from the frame loop.
//
// A [Scheduler] holds the active [Ticker]s and is stepped once per frame
// by the engine before pending writes are drained. A [Controller] uses a
// ticker to write a float64 StateCell on every tick, so widgets that read
// the cell rebuild each frame while the animation runs:
//
//	value := core.UseState(ctx, 0.0)
//	ctrl := animation.NewController(eng.Animations(), value, 300*time.Millisecond)
//	ctrl.Curve = animation.EaseOut
//	ctrl.Forward()
package animation

import (
	"slices"
	"sync"
	"time"
)

// Scheduler owns the active tickers of one engine.
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	active []*Ticker

	// OnStart is called when a ticker starts, so the host can request a
	// frame.
	OnStart func()
}

// NewScheduler returns a scheduler reading time from clock. A nil clock
// uses SystemClock.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{clock: clock}
}

// Now returns the scheduler's current time.
func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// NewTicker creates a stopped ticker that calls callback with the time
// elapsed since Start on every Step.
func (s *Scheduler) NewTicker(callback func(elapsed time.Duration)) *Ticker {
	return &Ticker{sched: s, callback: callback}
}

// Step calls every active ticker in start order and returns how many ran.
// Tickers started by a callback first run on the next Step.
func (s *Scheduler) Step() int {
	s.mu.Lock()
	if len(s.active) == 0 {
		s.mu.Unlock()
		return 0
	}
	tickers := slices.Clone(s.active)
	now := s.clock.Now()
	s.mu.Unlock()

	ran := 0
	for _, t := range tickers {
		if !t.IsActive() || t.callback == nil {
			continue
		}
		t.callback(now.Sub(t.start))
		ran++
	}
	return ran
}

// Active reports whether any ticker is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active) > 0
}

// StopAll stops every ticker.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.active {
		t.isActive = false
	}
	s.active = nil
}

// Ticker calls a callback on each frame while active.
type Ticker struct {
	sched    *Scheduler
	callback func(elapsed time.Duration)
	isActive bool
	start    time.Time
}

// Start activates the ticker. Starting an active ticker does nothing.
func (t *Ticker) Start() {
	s := t.sched
	s.mu.Lock()
	if t.isActive {
		s.mu.Unlock()
		return
	}
	t.isActive = true
	t.start = s.clock.Now()
	s.active = append(s.active, t)
	onStart := s.OnStart
	s.mu.Unlock()
	if onStart != nil {
		onStart()
	}
}

// Stop deactivates the ticker.
func (t *Ticker) Stop() {
	s := t.sched
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.isActive {
		return
	}
	t.isActive = false
	if i := slices.Index(s.active, t); i >= 0 {
		s.active = slices.Delete(s.active, i, i+1)
	}
}

// IsActive returns whether the ticker is running.
func (t *Ticker) IsActive() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	return t.isActive
}

// Elapsed returns the time since the ticker started, or 0 when stopped.
func (t *Ticker) Elapsed() time.Duration {
	if !t.IsActive() {
		return 0
	}
	return t.sched.clock.Now().Sub(t.start)
}
