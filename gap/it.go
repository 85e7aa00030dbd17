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

package gap

import (
	"math/rand"
	"time"

	"github.com/gnunet-go/gap/common/mclock"
)

// itSlot is one row of the indirection table (component F, spec §3): who
// is waiting for a reply to which key, and which replies have already
// been relayed to them.
type itSlot struct {
	valid     bool
	key       Key
	blockType BlockType
	priority  uint32
	ttl       mclock.AbsTime // absolute deadline; meaningless when !valid

	destinations []PeerID // bounded MaxHostsWaiting
	seen         []Key    // bounded 2*MaxSeenValues before retirement

	seenReplyWasUnique bool // meaningful only when len(seen) == 1
	lookupInProgress   bool // guards delayed-mix double-processing
}

// indirectionTable is the hash-addressed array of routing slots
// (component F). Not safe for concurrent use on its own; the engine
// guards each slot with the lookup-exclusion lock (spec §5).
type indirectionTable struct {
	slots    []itSlot
	selector uint64
	cfg      Config
}

func newIndirectionTable(cfg Config, selector uint64) *indirectionTable {
	size := cfg.IndirectionTableSize
	if size <= 0 || size&(size-1) != 0 {
		fatalf("indirection table size %d is not a positive power of two", size)
	}
	return &indirectionTable{slots: make([]itSlot, size), selector: selector, cfg: cfg}
}

func (it *indirectionTable) slotFor(key Key) *itSlot {
	return &it.slots[hashSlot(key, it.selector, len(it.slots))]
}

// forwardDecision is the result of needsForwarding: whether the caller
// should treat the query as locally routed (probe the datastore) and/or
// forward it onward, plus a debugging case ID matching the admission
// branch taken. waiterAdded reports whether sender was newly recorded
// as a slot destination, so the caller knows to bump its refcount.
type forwardDecision struct {
	routed      bool
	forward     bool
	waiterAdded bool
	caseID      int
}

// needsForwarding is the routing admission function (component F, spec
// §4.3): the hardest single piece of the system. The numbered branches
// and their case IDs are load-bearing, not incidental — see spec §8
// scenario 6 for a worked cross-multiplication example (case 17).
func (it *indirectionTable) needsForwarding(now mclock.AbsTime, key Key, blockType BlockType, ttl int32, priority uint32, sender PeerID, netSize int) forwardDecision {
	slot := it.slotFor(key)
	equal := slot.valid && slot.key == key
	decrement := it.cfg.TTLDecrement
	newTTL := absTimeFromTTL(now, ttl)

	// Case 21: the slot is long dead and the incoming query isn't
	// already near-expired itself; reclaim it outright. The threshold is
	// inclusive of exactly -5*TTLDecrement (spec §8: that boundary value
	// must take this branch, not the negative-TTL tap below).
	if slot.ttl < now && slot.ttl < now.Add(-10*decrement) && ttl >= int32(-5*decrement/time.Millisecond) {
		added := it.replace(slot, key, blockType, ttl, priority, sender, now)
		return forwardDecision{routed: true, forward: true, waiterAdded: added, caseID: 21}
	}

	// Case 0: an expired-TTL query for the pending request only taps
	// onto it; do not reset the seen-set or forward again.
	if ttl < 0 && equal {
		added := it.grow(slot, ttl, priority, sender, now)
		return forwardDecision{routed: false, forward: false, waiterAdded: added, caseID: 0}
	}

	// Cases 1/2: the slot holds something relatively expired enough
	// (older than both a flat threshold and a network-size-scaled one)
	// that we start using it fresh, regardless of key equality.
	if slot.ttl < newTTL &&
		slot.ttl.Add(time.Duration(netSize)*decrement) < newTTL &&
		slot.ttl.Add(10*decrement) < newTTL &&
		slot.ttl < now {
		resetSeen(slot)
		slot.seenReplyWasUnique = false
		if equal && slot.lookupInProgress {
			added := it.grow(slot, ttl, priority, sender, now)
			return forwardDecision{routed: false, forward: false, waiterAdded: added, caseID: 1}
		}
		added := it.replace(slot, key, blockType, ttl, priority, sender, now)
		return forwardDecision{routed: true, forward: true, waiterAdded: added, caseID: 2}
	}

	if equal {
		if len(slot.seen) == 0 {
			if slot.ttl < newTTL && slot.ttl.Add(decrement) < newTTL {
				if slot.lookupInProgress {
					added := it.grow(slot, ttl, priority, sender, now)
					return forwardDecision{routed: false, forward: false, waiterAdded: added, caseID: 3}
				}
				added := it.replace(slot, key, blockType, ttl, priority, sender, now)
				return forwardDecision{routed: true, forward: true, waiterAdded: added, caseID: 4}
			}
			added := it.grow(slot, ttl, priority, sender, now)
			if added {
				if slot.lookupInProgress {
					return forwardDecision{routed: false, forward: false, waiterAdded: true, caseID: 5}
				}
				return forwardDecision{routed: true, forward: false, waiterAdded: true, caseID: 6}
			}
			return forwardDecision{routed: false, forward: false, caseID: 7}
		}

		if slot.seenReplyWasUnique {
			if slot.ttl < newTTL {
				resetSeen(slot)
				slot.seenReplyWasUnique = false
				if slot.lookupInProgress {
					added := it.replace(slot, key, blockType, ttl, priority, sender, now)
					return forwardDecision{routed: false, forward: false, waiterAdded: added, caseID: 8}
				}
				forward := slot.ttl.Add(decrement) < newTTL
				added := it.replace(slot, key, blockType, ttl, priority, sender, now)
				return forwardDecision{routed: true, forward: forward, waiterAdded: added, caseID: 9}
			}
			added := it.grow(slot, ttl, priority, sender, now)
			if added {
				if slot.lookupInProgress {
					return forwardDecision{routed: false, forward: false, waiterAdded: true, caseID: 10}
				}
				return forwardDecision{routed: true, forward: false, waiterAdded: true, caseID: 11}
			}
			return forwardDecision{routed: false, forward: false, caseID: 12}
		}

		// Multiple replies already seen (KSK/SKS-style): never re-issue.
		ttlHigherOrEqual := !(slot.ttl < newTTL)
		added := it.grow(slot, ttl, priority, sender, now)
		if added {
			return forwardDecision{routed: true, forward: false, waiterAdded: true, caseID: 13}
		}
		return forwardDecision{routed: ttlHigherOrEqual, forward: false, caseID: 14}
	}

	// A different query holding the slot, but its unique answer already
	// satisfied the original requester: evict it eagerly.
	if slot.ttl.Add(decrement) < newTTL && slot.ttl < now && slot.seenReplyWasUnique {
		added := it.replace(slot, key, blockType, ttl, priority, sender, now)
		return forwardDecision{routed: true, forward: true, waiterAdded: added, caseID: 15}
	}

	// A different, still-valid query. Need a strong reason to evict it.
	if ttl < 0 {
		return forwardDecision{routed: false, forward: false, caseID: 16}
	}

	remainMs := int64(slot.ttl.Sub(now) / time.Millisecond)
	if remainMs*int64(priority) > 10*int64(ttl)*int64(slot.priority) {
		added := it.replace(slot, key, blockType, ttl, priority, sender, now)
		return forwardDecision{routed: true, forward: true, waiterAdded: added, caseID: 17}
	}

	if it.cfg.TieBreakerChance > 0 && rand.Intn(it.cfg.TieBreakerChance) == 0 {
		added := it.replace(slot, key, blockType, ttl, priority, sender, now)
		return forwardDecision{routed: true, forward: true, waiterAdded: added, caseID: 20}
	}

	return forwardDecision{routed: false, forward: false, caseID: 18}
}

// replace fully overwrites slot with a fresh request: destinations and
// seen-set are cleared (decrementing the old destinations' refcounts is
// the caller engine's job, since it owns the peer table), and sender
// becomes the sole waiter. Returns true if sender was recorded as that
// waiter, so the caller can bump its refcount (spec §4.3's "on any
// successful add of a new waiter, the sender's refcount is bumped").
func (it *indirectionTable) replace(slot *itSlot, key Key, blockType BlockType, ttl int32, priority uint32, sender PeerID, now mclock.AbsTime) bool {
	slot.valid = true
	slot.key = key
	slot.blockType = blockType
	slot.priority = priority
	slot.ttl = absTimeFromTTL(now, ttl)
	slot.destinations = slot.destinations[:0]
	slot.seen = slot.seen[:0]
	slot.seenReplyWasUnique = false
	slot.lookupInProgress = false
	if sender == NoPeer {
		return false
	}
	slot.destinations = append(slot.destinations, sender)
	return true
}

// grow extends slot's ttl/priority and adds sender as a waiter if there
// is room and it isn't already waiting. Returns true if sender was newly
// added. Per spec §4.3: "reject add-sender if already present (return an
// error the caller treats as success)".
func (it *indirectionTable) grow(slot *itSlot, ttl int32, priority uint32, sender PeerID, now mclock.AbsTime) bool {
	newDeadline := absTimeFromTTL(now, ttl)
	if newDeadline > slot.ttl {
		slot.ttl = newDeadline
	}
	slot.priority += priority
	if sender == NoPeer {
		return false
	}
	for _, d := range slot.destinations {
		if d == sender {
			return false
		}
	}
	if len(slot.destinations) >= it.cfg.MaxHostsWaiting {
		return false
	}
	slot.destinations = append(slot.destinations, sender)
	return true
}

func resetSeen(slot *itSlot) {
	slot.seen = slot.seen[:0]
}

// addSeen appends a content hash to slot's seen-set, returning true if
// the slot should be retired afterward (the soft 2x cap was exceeded).
func (it *indirectionTable) addSeen(slot *itSlot, hash Key) (retire bool) {
	slot.seen = append(slot.seen, hash)
	if len(slot.seen) == 1 {
		return false
	}
	return len(slot.seen) > 2*it.cfg.MaxSeenValues
}

// hasSeen reports whether hash is already in slot's seen-set (spec §4.5
// step 5: duplicate-reply detection).
func hasSeen(slot *itSlot, hash Key) bool {
	for _, h := range slot.seen {
		if h == hash {
			return true
		}
	}
	return false
}

// clear resets slot to the unused state, as required by spec §3's
// invariant that destinations, seen-set, priority, type, and ttl are
// reset together.
func (it *indirectionTable) clear(slot *itSlot) {
	*slot = itSlot{}
}
