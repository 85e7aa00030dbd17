// Copyright 2016 The go-ethereum Authors
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

// Package event implements the subscription-based delivery used to get
// routed replies out of the engine's lock-held path and onto a client's
// channel (spec §5: "no external lock is held while signalling a client").
package event

// Subscription represents a stream of events. The carrier of the events is
// typically a channel, but isn't part of the interface.
type Subscription interface {
	Err() <-chan error
	Unsubscribe()
}

type funcSub struct {
	unsub func()
	err   chan error
	once  chan struct{}
}

// NewSubscription runs a producer function as the backing for a
// subscription. The given function should run until the unsubscribe
// channel provided to it is closed.
func NewSubscription(producer func(unsub <-chan struct{}) error) Subscription {
	s := &funcSub{
		err:  make(chan error, 1),
		once: make(chan struct{}),
	}
	go func() {
		err := producer(s.once)
		s.err <- err
		close(s.err)
	}()
	return s
}

func (s *funcSub) Err() <-chan error { return s.err }

func (s *funcSub) Unsubscribe() {
	select {
	case <-s.once:
	default:
		close(s.once)
		<-s.err
	}
}
