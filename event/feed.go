// Copyright 2023 The go-ethereum Authors
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

package event

import (
	"context"
	"sync"
)

// FeedOf implements one-to-many subscriptions where the carrier of events
// is a channel of type T. The querymanager uses one per tracked client so
// queue_reply (spec §4.8) can hand a decoded reply to the client goroutine
// without holding the engine lock across the send.
type FeedOf[T any] struct {
	mu   sync.Mutex
	subs map[*feedOfSub[T]]struct{}
}

type feedOfSub[T any] struct {
	feed *FeedOf[T]
	ch   chan<- T
	err  chan error
}

// Subscribe adds a channel to the feed. Future sends will be delivered on
// the returned subscription's channel until it is unsubscribed.
func (f *FeedOf[T]) Subscribe(ch chan<- T) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[*feedOfSub[T]]struct{})
	}
	sub := &feedOfSub[T]{feed: f, ch: ch, err: make(chan error, 1)}
	f.subs[sub] = struct{}{}
	return sub
}

func (s *feedOfSub[T]) Err() <-chan error { return s.err }

func (s *feedOfSub[T]) Unsubscribe() {
	s.feed.mu.Lock()
	delete(s.feed.subs, s)
	s.feed.mu.Unlock()
	close(s.err)
}

// Send delivers value to every current subscriber, blocking until all
// sends complete. It returns the number of subscribers the value was
// delivered to.
func (f *FeedOf[T]) Send(value T) (nsent int) {
	return f.send(context.Background(), false, value)
}

// SendWithCtx is like Send, but when drop is true a subscriber that isn't
// ready to receive within ctx is skipped instead of blocking Send.
func (f *FeedOf[T]) SendWithCtx(ctx context.Context, drop bool, value T) (nsent, ndropped int) {
	f.mu.Lock()
	subs := make([]*feedOfSub[T], 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- value:
			nsent++
		case <-ctx.Done():
			if drop {
				ndropped++
				continue
			}
			s.ch <- value
			nsent++
		}
	}
	return nsent, ndropped
}

func (f *FeedOf[T]) send(ctx context.Context, drop bool, value T) int {
	nsent, _ := f.SendWithCtx(ctx, drop, value)
	return nsent
}
