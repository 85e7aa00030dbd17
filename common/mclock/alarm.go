// Copyright 2022 The go-ethereum Authors
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

// Alarm sends timed notifications on a channel. A user reschedules the
// alarm to its next known deadline instead of running its own ticker.
type Alarm struct {
	clock Clock
	ch    chan struct{}

	timer    Timer
	scheduled bool
	deadline AbsTime
}

// NewAlarm creates a new Alarm backed by the given clock.
func NewAlarm(clock Clock) *Alarm {
	if clock == nil {
		clock = System{}
	}
	return &Alarm{
		clock: clock,
		ch:    make(chan struct{}, 1),
	}
}

// C returns the channel on which notifications are sent.
func (e *Alarm) C() <-chan struct{} {
	return e.ch
}

// Schedule arranges for a notification at the given absolute time. If a
// notification was already scheduled, it is rescheduled only if the new
// time is earlier. Zero/past deadlines notify on the next tick.
func (e *Alarm) Schedule(deadline AbsTime) {
	now := e.clock.Now()
	if e.scheduled {
		if deadline >= e.deadline {
			return
		}
		e.timer.Stop()
	}
	d := deadline.Sub(now)
	e.deadline = deadline
	e.scheduled = true
	e.timer = e.clock.AfterFunc(d, func() {
		e.scheduled = false
		select {
		case e.ch <- struct{}{}:
		default:
		}
	})
}
