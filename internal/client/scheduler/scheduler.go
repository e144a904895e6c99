// Package scheduler arms one-shot cancellable timers used to force
// transitions at a fixed instant.
package scheduler

import (
	"sync"
	"time"
)

// Handle identifies one armed timer. The zero Handle is never active.
type Handle uint64

// Scheduler keeps at most one outstanding timer. Arming replaces the
// previous one.
type Scheduler struct {
	mu     sync.Mutex
	now    func() time.Time
	timer  *time.Timer
	active Handle
	gen    uint64
}

type Option func(*Scheduler)

// WithClock overrides the clock used to compute the delay.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(opts ...Option) *Scheduler {
	s := &Scheduler{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Arm cancels any outstanding timer and schedules onFire at fireAt.
// A fireAt in the past (or now) fires on the next tick.
func (s *Scheduler) Arm(fireAt time.Time, onFire func()) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	s.gen++
	h := Handle(s.gen)
	s.active = h

	delay := fireAt.Sub(s.now())
	if delay < 0 {
		delay = 0
	}
	s.timer = time.AfterFunc(delay, func() { s.fire(h, onFire) })
	return h
}

func (s *Scheduler) fire(h Handle, onFire func()) {
	s.mu.Lock()
	if s.active != h {
		s.mu.Unlock()
		return
	}
	s.active = 0
	s.timer = nil
	s.mu.Unlock()

	onFire()
}

// Cancel stops h if it is still the outstanding timer. Cancelling a
// fired, superseded or zero handle is a no-op.
func (s *Scheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == 0 || s.active != h {
		return
	}
	s.stopLocked()
}

// Stop cancels whatever timer is outstanding.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Active reports whether a timer is outstanding.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != 0
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.active = 0
}
