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

	"github.com/gnunet-go/gap/common/mclock"
)

// qrtBitmapBytes sizes the per-slot "already sent to this peer" bitmap.
// The spec names it BITMAP_SIZE without fixing a value; 64 bytes (512
// peer slots) matches the table's own QUERY_RECORD_COUNT order of
// magnitude and is generous for any single LAN-scale peer set.
const qrtBitmapBytes = 64

// qrtSlot is one entry of the outbound query-record table (component D,
// spec §3/§4.4).
type qrtSlot struct {
	valid      bool
	expiration mclock.AbsTime
	sendCount  int
	query      Query
	bitmap     [qrtBitmapBytes]byte
	noTarget   PeerID
}

func (s *qrtSlot) bitIndex(peer PeerID) int {
	return int(uint32(peer) % (qrtBitmapBytes * 8))
}

func (s *qrtSlot) bitSet(peer PeerID) bool {
	i := s.bitIndex(peer)
	return s.bitmap[i/8]&(1<<uint(i%8)) != 0
}

func (s *qrtSlot) setBit(peer PeerID) {
	i := s.bitIndex(peer)
	s.bitmap[i/8] |= 1 << uint(i%8)
}

// queryRecordTable is the fixed ring of currently-forwarded outbound
// queries (component D). Guarded by the engine lock (spec §5).
type queryRecordTable struct {
	slots      []qrtSlot
	fillCursor int
	selector   uint64
	cfg        Config

	// resolveReturnTo maps a query's internal ReturnTo peer ID to the
	// 64-byte hash that goes on the wire (NoPeer resolves to this
	// engine's own identity hash).
	resolveReturnTo func(PeerID) Key
}

func newQueryRecordTable(cfg Config, selector uint64, resolveReturnTo func(PeerID) Key) *queryRecordTable {
	return &queryRecordTable{
		slots:           make([]qrtSlot, cfg.QueryRecordCount),
		selector:        selector,
		cfg:             cfg,
		resolveReturnTo: resolveReturnTo,
	}
}

// rankingInputs bundles the collaborators enqueue's selection pass needs,
// kept separate from Config since they're runtime objects, not tunables.
type rankingInputs struct {
	peers    *peerTable
	rtt      *replyTrackTable
	now      mclock.AbsTime
	origin   PeerID
	key      Key
	noTarget PeerID
}

// ranking implements the peer-selection score from spec §4.4. Distance is
// approximated from the leading 8 bytes of the XOR metric: GNUnet's real
// distance is a full 512-bit value, but only its high-order magnitude
// matters for the `>>10` damping term, so truncating to a uint64 loses no
// information a Go int could represent anyway.
func ranking(peer PeerID, in rankingInputs) int {
	if peer == in.noTarget {
		return 0
	}
	score := int(0x7FFF) * int(in.rtt.weight(in.origin, peer))
	if score > 0x7FFFFFF {
		score = 0x7FFFFFF
	}
	if hash, ok := in.peers.resolve(peer); ok {
		dist := xorDistance64(in.key, hash) >> 10
		bound := 1 + int(0xFFFF*10/(1+int64(dist)))
		score += rand.Intn(bound)
	}
	score += rand.Intn(0x10000)
	return score
}

func xorDistance64(a, b Key) uint64 {
	var x uint64
	for i := 0; i < 8; i++ {
		x = x<<8 | uint64(a[i]^b[i])
	}
	return x
}

// enqueue implements spec §4.4's enqueue: find the oldest-or-matching
// slot, probabilistically clear its bitmap, store the query, and push it
// immediately to a weighted sample of up to 4 connected peers.
func (qrt *queryRecordTable) enqueue(now mclock.AbsTime, q Query, target PeerID, hasTarget bool, exclude PeerID, peers *peerTable, rtt *replyTrackTable, transport Transport) {
	slot := qrt.findSlot(q.Key, now)
	matching := slot.valid && slot.query.Key == q.Key
	if !matching || rand.Float64() < qrt.cfg.QRTRebroadcastProbability {
		slot.bitmap = [qrtBitmapBytes]byte{}
	}

	if !matching {
		slot.sendCount = 0
	}
	slot.valid = true
	slot.expiration = absTimeFromTTL(now, q.TTL)
	slot.query = q
	slot.noTarget = exclude

	in := rankingInputs{peers: peers, rtt: rtt, now: now, origin: q.ReturnTo, key: q.Key, noTarget: exclude}

	candidates := make([]PeerID, 0, 32)
	transport.ForAllConnectedPeers(func(p PeerID) {
		candidates = append(candidates, p)
	})

	chosen := weightedSample(candidates, 4, func(p PeerID) int { return ranking(p, in) })
	if hasTarget {
		chosen = appendUnique(chosen, target)
	}

	deadline := qrt.cfg.TTLDecrement
	priority := qrt.cfg.BaseQueryPriority * q.Priority * 2
	payload := encodeQueryWire(q, qrt.resolveReturnTo)
	for _, p := range chosen {
		slot.setBit(p)
		slot.sendCount++
		transport.Unicast(p, payload, priority, deadline)
	}
}

// findSlot returns the oldest slot, preferring one whose key already
// matches (spec §4.4: "find the oldest or matching slot").
func (qrt *queryRecordTable) findSlot(key Key, now mclock.AbsTime) *qrtSlot {
	var oldest *qrtSlot
	for i := range qrt.slots {
		s := &qrt.slots[i]
		if s.valid && s.query.Key == key {
			return s
		}
		if oldest == nil || s.expiration < oldest.expiration {
			oldest = s
		}
	}
	return oldest
}

// cancel clears any live slot matching key, used when a reply fully
// answers an outstanding query (spec §4.5 step 8, §4.6 step 4).
func (qrt *queryRecordTable) cancel(key Key) {
	for i := range qrt.slots {
		if qrt.slots[i].valid && qrt.slots[i].query.Key == key {
			qrt.slots[i] = qrtSlot{}
		}
	}
}

// fill is the transport's transmit-fill callback (spec §4.4): walk the
// ring from a persistent cursor, packing in queries the given peer
// hasn't seen yet and isn't the excluded/return-to peer for, until buf
// is full or the ring wraps.
func (qrt *queryRecordTable) fill(peer PeerID, buf []byte) int {
	written := 0
	n := len(qrt.slots)
	for i := 0; i < n; i++ {
		idx := (qrt.fillCursor + i) % n
		s := &qrt.slots[idx]
		if !s.valid {
			continue
		}
		if s.bitSet(peer) || peer == s.noTarget || peer == s.query.ReturnTo {
			continue
		}
		wire := encodeQueryWire(s.query, qrt.resolveReturnTo)
		if written+len(wire) > len(buf) {
			// Spec §4.4: "stop when full." The walk ends at the first
			// query that does not fit; a later, shorter query (fewer
			// follow-up keys) is not tried.
			break
		}
		copy(buf[written:], wire)
		written += len(wire)
		s.setBit(peer)
		s.sendCount++
	}
	qrt.fillCursor = (qrt.fillCursor + 1) % n
	return written
}

// encodeQueryWire renders q as it would go out on the wire, matching
// spec §6's layout: `type[u32] priority[u32] ttl[i32] return_to[64]
// key[64] ...keys[64]`.
func encodeQueryWire(q Query, resolveReturnTo func(PeerID) Key) []byte {
	keys := 1 + len(q.FollowUp)
	buf := make([]byte, 12+64+64*keys)
	putU32(buf[0:], uint32(q.Type))
	putU32(buf[4:], q.Priority)
	putU32(buf[8:], uint32(q.TTL))
	returnTo := resolveReturnTo(q.ReturnTo)
	copy(buf[12:], returnTo[:])
	copy(buf[76:], q.Key[:])
	for i, k := range q.FollowUp {
		copy(buf[76+64*(i+1):], k[:])
	}
	return buf
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// weightedSample draws up to k items from items without replacement,
// probability proportional to score at draw time (scores are
// recomputed each draw since they include a random jitter term).
func weightedSample(items []PeerID, k int, score func(PeerID) int) []PeerID {
	pool := append([]PeerID(nil), items...)
	out := make([]PeerID, 0, k)
	for len(out) < k && len(pool) > 0 {
		total := 0
		weights := make([]int, len(pool))
		for i, p := range pool {
			w := score(p)
			if w < 0 {
				w = 0
			}
			weights[i] = w
			total += w
		}
		var pick int
		if total == 0 {
			pick = rand.Intn(len(pool))
		} else {
			r := rand.Intn(total)
			acc := 0
			for i, w := range weights {
				acc += w
				if r < acc {
					pick = i
					break
				}
			}
		}
		out = append(out, pool[pick])
		pool = append(pool[:pick], pool[pick+1:]...)
	}
	return out
}

func appendUnique(list []PeerID, p PeerID) []PeerID {
	for _, e := range list {
		if e == p {
			return list
		}
	}
	return append(list, p)
}
