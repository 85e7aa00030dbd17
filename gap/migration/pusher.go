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

// Package migration implements the migration/cover-traffic pusher
// (component J, spec §4.10): it fills spare upload bandwidth with
// cached or randomly-sampled content so an observer can't distinguish
// locally-originated traffic from relayed traffic.
package migration

import (
	"math/rand"
	"time"

	"github.com/gnunet-go/gap/gap"
	"github.com/gnunet-go/gap/common/lru"
	"github.com/gnunet-go/gap/common/mclock"
	"github.com/gnunet-go/gap/common/prque"
	"github.com/gnunet-go/gap/log"
)

// Datastore is the external content source the pusher refills from.
type Datastore interface {
	// GetRandom returns an arbitrary stored block, or ok=false if the
	// store is empty.
	GetRandom() (key gap.Key, value []byte, onDemand bool, ok bool)
	// Materialize expands an ON_DEMAND block into its real payload.
	Materialize(key gap.Key) ([]byte, bool)
}

// CoverTraffic gates outbound pushes the same way the routing engine
// gates query forwarding (spec §4.2).
type CoverTraffic interface {
	HasSufficientCover(level int) bool
}

type migrationRecord struct {
	key       gap.Key
	payload   []byte
	onDemand  bool
	served    []gap.PeerID // up to cfg.MaxReceivers peers already sent this block
	serveHits int          // total times served, the prque priority for eviction
}

func (r *migrationRecord) hasServed(peer gap.PeerID) bool {
	for _, p := range r.served {
		if p == peer {
			return true
		}
	}
	return false
}

// Pusher implements the per-call selection algorithm of spec §4.10.
type Pusher struct {
	cfg   gap.Config
	clock mclock.Clock
	log   log.Logger
	store Datastore
	cover CoverTraffic

	cache      lru.BasicLRU[gap.Key, *migrationRecord]
	evictQueue *prque.Prque[int, gap.Key]
	lastEvict  mclock.AbsTime
}

func New(cfg gap.Config, clock mclock.Clock, logger log.Logger, store Datastore, cover CoverTraffic) *Pusher {
	p := &Pusher{
		cfg:   cfg,
		clock: clock,
		log:   logger,
		store: store,
		cover: cover,
		cache: lru.NewBasicLRU[gap.Key, *migrationRecord](cfg.MaxRecords),
	}
	p.evictQueue = prque.New[int, gap.Key](nil)
	return p
}

// Push is called by the transport when it has spare padding to fill for
// target (spec §4.10's "called by the transport with (target_peer,
// padding)"). It returns the bytes to send, or nil if nothing is sent.
func (p *Pusher) Push(target gap.PeerID, targetHash gap.Key, padding int) []byte {
	if !p.cover.HasSufficientCover(1) {
		return nil
	}

	record := p.selectForPeer(target, targetHash)
	if record == nil {
		record = p.refill()
		if record == nil {
			return nil
		}
	}

	payload := record.payload
	if record.onDemand {
		materialized, ok := p.store.Materialize(record.key)
		if !ok {
			p.log.Debug("migration block vanished before materialize", "key", record.key)
			p.cache.Remove(record.key)
			return nil
		}
		payload = materialized
	}

	wrapped := p.wrap(record.key, payload)
	fit, ok := gap.TryMigrate(wrapped, padding)
	if !ok {
		p.log.Debug("migration block didn't fit padding", "padding", padding, "size", len(wrapped))
		return nil
	}

	record.served = append(record.served, target)
	record.serveHits++
	p.evictQueue.Push(record.key, record.serveHits)
	if len(record.served) >= p.cfg.MaxReceivers {
		p.cache.Remove(record.key)
	}
	return fit
}

// selectForPeer walks the cache looking for the block the target peer
// hasn't received whose key is closest to targetHash, "first wins
// because the walk order is fixed" (spec §4.10) — this is LRU recency
// order, the same order Keys() returns.
func (p *Pusher) selectForPeer(target gap.PeerID, targetHash gap.Key) *migrationRecord {
	var best *migrationRecord
	for _, key := range p.cache.Keys() {
		rec, ok := p.cache.Get(key)
		if !ok || rec.hasServed(target) {
			continue
		}
		if best == nil || gap.Closer(targetHash, rec.key, best.key) {
			best = rec
		}
	}
	return best
}

// refill evicts the most-served cached block, throttled to once per
// MaxPollFrequency, and replaces it with a freshly sampled random block
// (spec §4.10).
func (p *Pusher) refill() *migrationRecord {
	now := p.clock.Now()
	if p.lastEvict != 0 && now.Sub(p.lastEvict) < p.cfg.MaxPollFrequency {
		if p.cache.Len() < p.cfg.MaxRecords {
			return p.sample()
		}
		return nil
	}
	if p.cache.Len() >= p.cfg.MaxRecords && !p.evictQueue.Empty() {
		victim := p.evictQueue.PopItem()
		p.cache.Remove(victim)
	}
	p.lastEvict = now
	return p.sample()
}

func (p *Pusher) sample() *migrationRecord {
	key, value, onDemand, ok := p.store.GetRandom()
	if !ok {
		return nil
	}
	rec := &migrationRecord{key: key, payload: value, onDemand: onDemand}
	p.cache.Add(key, rec)
	return rec
}

// wrap normalises expiration mod MaxMigrationExpiration, randomises it,
// and adds the migration header (spec §4.10).
func (p *Pusher) wrap(key gap.Key, payload []byte) []byte {
	expMs := int64(p.cfg.MaxMigrationExpiration / time.Millisecond)
	exp := rand.Int63n(expMs)
	header := make([]byte, 12)
	putU32(header[0:], uint32(exp>>32))
	putU32(header[4:], uint32(exp))
	putU32(header[8:], uint32(len(payload)))
	out := make([]byte, 0, len(header)+64+len(payload))
	out = append(out, header...)
	out = append(out, key[:]...)
	out = append(out, payload...)
	return out
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
