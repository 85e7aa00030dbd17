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

// Package querymanager tracks per-client outstanding local queries and
// delivers replies to the right subscribers (component I, spec §4.9).
package querymanager

import (
	"context"
	"sync"
	"time"

	"github.com/gnunet-go/gap/gap"
	"github.com/gnunet-go/gap/event"
)

// ClientID identifies a connected local client (a CS socket handle in
// the original; opaque here).
type ClientID uint64

// Delivery is what a tracked client receives when a matching reply
// arrives.
type Delivery struct {
	Key     gap.Key
	Type    gap.BlockType
	Payload []byte
}

type record struct {
	key      gap.Key
	typ      gap.BlockType
	client   ClientID
	deadline time.Time
}

// Manager maintains the dynamic array of (key, type, client) tuples
// from spec §4.9, growing/shrinking it by a factor of 2 as load changes.
type Manager struct {
	mu      sync.Mutex
	records []record
	feeds   map[ClientID]*event.FeedOf[Delivery]
}

func New() *Manager {
	return &Manager{feeds: make(map[ClientID]*event.FeedOf[Delivery])}
}

// Subscribe registers ch to receive Deliveries for client, returning the
// subscription so the caller can Unsubscribe on disconnect.
func (m *Manager) Subscribe(client ClientID, ch chan<- Delivery) event.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.feeds[client]
	if !ok {
		f = new(event.FeedOf[Delivery])
		m.feeds[client] = f
	}
	return f.Subscribe(ch)
}

// Track implements spec §4.9's track: records that client is waiting
// for key/type, with deadline bounding how long a non-D_BLOCK result
// may still be delivered once expired.
func (m *Manager) Track(key gap.Key, typ gap.BlockType, client ClientID, deadline time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.growIfFull()
	m.records = append(m.records, record{key: key, typ: typ, client: client, deadline: deadline})
}

// Untrack removes the (key, client) record, implementing spec §4.9's
// untrack. O(n), matching the spec's stated complexity.
func (m *Manager) Untrack(key gap.Key, client ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.records[:0]
	for _, r := range m.records {
		if r.key == key && r.client == client {
			continue
		}
		out = append(out, r)
	}
	m.records = out
	m.shrinkIfSparse()
}

// ClientExit removes every record for client and retires its feed
// (spec §4.9's "client-exit hook").
func (m *Manager) ClientExit(client ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.records[:0]
	for _, r := range m.records {
		if r.client == client {
			continue
		}
		out = append(out, r)
	}
	m.records = out
	delete(m.feeds, client)
	m.shrinkIfSparse()
}

// ProcessResponse implements spec §4.9's process_response: walk every
// tracked record, deliver to every client whose (key, type) matches
// (ANY matches everything). Expired non-data replies are dropped unless
// the matching record's own type is D_BLOCK (clients asking for data
// explicitly bypass the expiration check).
func (m *Manager) ProcessResponse(key gap.Key, typ gap.BlockType, payload []byte) {
	m.mu.Lock()
	now := time.Now()
	var targets []ClientID
	for _, r := range m.records {
		if r.key != key {
			continue
		}
		if r.typ != gap.BlockTypeAny && r.typ != typ {
			continue
		}
		if r.typ != gap.BlockTypeData && !r.deadline.IsZero() && now.After(r.deadline) {
			continue
		}
		targets = append(targets, r.client)
	}
	feeds := make(map[ClientID]*event.FeedOf[Delivery], len(targets))
	for _, c := range targets {
		if f, ok := m.feeds[c]; ok {
			feeds[c] = f
		}
	}
	m.mu.Unlock()

	// SendWithCtx with drop=true keeps a slow or gone client from ever
	// stalling the routing engine's reply path (spec §5: "keep those
	// callbacks non-blocking").
	delivery := Delivery{Key: key, Type: typ, Payload: payload}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	for _, f := range feeds {
		f.SendWithCtx(ctx, true, delivery)
	}
}

// growIfFull doubles records' capacity when the backing array is full
// (spec §4.9: "Grows x2 on fill").
func (m *Manager) growIfFull() {
	if len(m.records) < cap(m.records) {
		return
	}
	newCap := 8
	if cap(m.records) > 0 {
		newCap = cap(m.records) * 2
	}
	grown := make([]record, len(m.records), newCap)
	copy(grown, m.records)
	m.records = grown
}

// shrinkIfSparse halves capacity when the table is at most a quarter
// full (spec §4.9: "shrinks x½ when <= 1/4 full").
func (m *Manager) shrinkIfSparse() {
	if cap(m.records) <= 8 {
		return
	}
	if len(m.records) > cap(m.records)/4 {
		return
	}
	newCap := cap(m.records) / 2
	shrunk := make([]record, len(m.records), newCap)
	copy(shrunk, m.records)
	m.records = shrunk
}
