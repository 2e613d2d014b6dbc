// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package watch

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Scheduler provides the clock and delayed callbacks the device runs on.
// Callbacks must be delivered on the goroutine that owns the Device.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

//////////////////////////////////////////////////////////////
// Loop scheduler
//////////////////////////////////////////////////////////////

// LoopScheduler runs on wall-clock time. Expired timers do not call f
// directly; they hand it to post, which queues it for the session loop.
type LoopScheduler struct {
	post func(func())
}

// NewLoopScheduler creates a scheduler that delivers callbacks through post
func NewLoopScheduler(post func(func())) *LoopScheduler {
	return &LoopScheduler{post: post}
}

// Now returns the wall-clock time
func (l *LoopScheduler) Now() time.Time {
	return time.Now()
}

// AfterFunc posts f to the loop once d has elapsed
func (l *LoopScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { l.post(f) })
}

//////////////////////////////////////////////////////////////
// Manual scheduler
//////////////////////////////////////////////////////////////

// ManualScheduler is a virtual clock for tests and replays. Time only moves
// in Advance, which runs due callbacks synchronously in deadline order.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	when    time.Time
	seq     uint64
	f       func()
	stopped bool
	fired   bool
}

// NewManualScheduler creates a virtual clock starting at start
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the virtual time
func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules f at Now()+d
func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	t := &manualTimer{s: m, when: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that falls due on
// the way, including ones scheduled by earlier callbacks.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	end := m.now.Add(d)
	for {
		t := m.nextLocked(end)
		if t == nil {
			break
		}
		m.now = t.when
		t.fired = true

		m.mu.Unlock()
		t.f()
		m.mu.Lock()
	}
	m.now = end
	m.mu.Unlock()
}

// Pending returns the number of timers that have neither fired nor stopped
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compactLocked()
	return len(m.timers)
}

func (m *ManualScheduler) nextLocked(end time.Time) *manualTimer {
	m.compactLocked()
	if len(m.timers) == 0 {
		return nil
	}
	sort.Slice(m.timers, func(i, j int) bool {
		if m.timers[i].when.Equal(m.timers[j].when) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].when.Before(m.timers[j].when)
	})
	if m.timers[0].when.After(end) {
		return nil
	}
	return m.timers[0]
}

func (m *ManualScheduler) compactLocked() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.timers = live
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

//////////////////////////////////////////////////////////////
// Timer slot
//////////////////////////////////////////////////////////////

// timerSlot holds at most one pending callback. Every Schedule or Cancel
// bumps the generation, so a callback that was already handed to the loop
// before it was cancelled finds a stale generation and does nothing.
type timerSlot struct {
	sched Scheduler
	gen   uint64
	timer Timer
}

func (s *timerSlot) Schedule(d time.Duration, f func()) {
	s.Cancel()
	gen := s.gen
	s.timer = s.sched.AfterFunc(d, func() {
		if gen != s.gen {
			return
		}
		s.timer = nil
		f()
	})
}

func (s *timerSlot) Cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *timerSlot) Active() bool {
	return s.timer != nil
}
