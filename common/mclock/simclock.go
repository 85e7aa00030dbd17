// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package mclock

import (
	"container/heap"
	"sync"
	"time"
)

// Simulated implements Clock and allows testing code that uses time. It
// simulates a virtual timeline that only advances when Run is called.
type Simulated struct {
	mu     sync.RWMutex
	now    AbsTime
	scheduled simTimerHeap
	cond   *sync.Cond
}

// simTimer implements ChanTimer on the virtual clock.
type simTimer struct {
	at       AbsTime
	index    int
	s        *Simulated
	ch       chan AbsTime
	fired    bool
	callback func()
}

func (s *Simulated) init() {
	if s.cond == nil {
		s.cond = sync.NewCond(&s.mu)
	}
}

// Run moves the clock forward by the given duration, firing all timers
// scheduled at or before the new time, in chronological order.
func (s *Simulated) Run(d time.Duration) {
	s.mu.Lock()
	s.init()
	end := s.now.Add(d)

	for len(s.scheduled) > 0 && s.scheduled[0].at <= end {
		ev := heap.Pop(&s.scheduled).(*simTimer)
		s.now = ev.at
		ev.fired = true
		cb, ch := ev.callback, ev.ch
		s.mu.Unlock()
		if cb != nil {
			cb()
		}
		if ch != nil {
			ch <- ev.at
		}
		s.mu.Lock()
	}
	s.now = end
	s.cond.Broadcast()
	s.mu.Unlock()
}

// ActiveTimers returns the number of timers currently scheduled.
func (s *Simulated) ActiveTimers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scheduled)
}

// WaitForTimers waits until the clock has at least n scheduled timers.
func (s *Simulated) WaitForTimers(n int) {
	s.mu.Lock()
	s.init()
	defer s.mu.Unlock()
	for len(s.scheduled) < n {
		s.cond.Wait()
	}
}

// Now returns the current virtual time.
func (s *Simulated) Now() AbsTime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now
}

// Sleep blocks until the clock has advanced by d.
func (s *Simulated) Sleep(d time.Duration) {
	<-s.After(d)
}

// After returns a channel which fires once the clock has advanced by d.
func (s *Simulated) After(d time.Duration) <-chan AbsTime {
	t := s.NewTimer(d)
	return t.C()
}

// AfterFunc schedules f to run once the clock has advanced by d.
func (s *Simulated) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	t := &simTimer{at: s.now.Add(d), s: s, callback: f}
	heap.Push(&s.scheduled, t)
	s.cond.Broadcast()
	return t
}

// NewTimer creates a resettable timer on the virtual clock.
func (s *Simulated) NewTimer(d time.Duration) ChanTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	t := &simTimer{at: s.now.Add(d), s: s, ch: make(chan AbsTime, 1)}
	heap.Push(&s.scheduled, t)
	s.cond.Broadcast()
	return t
}

func (t *simTimer) C() <-chan AbsTime {
	return t.ch
}

func (t *simTimer) Reset(d time.Duration) {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.index >= 0 {
		heap.Remove(&s.scheduled, t.index)
	}
	t.at = s.now.Add(d)
	t.fired = false
	heap.Push(&s.scheduled, t)
	s.cond.Broadcast()
}

func (t *simTimer) Stop() bool {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.fired || t.index < 0 {
		return false
	}
	heap.Remove(&s.scheduled, t.index)
	t.index = -1
	return true
}

type simTimerHeap []*simTimer

func (h simTimerHeap) Len() int            { return len(h) }
func (h simTimerHeap) Less(i, j int) bool  { return h[i].at < h[j].at }
func (h simTimerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *simTimerHeap) Push(x any) {
	t := x.(*simTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *simTimerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
