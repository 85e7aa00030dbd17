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
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gnunet-go/gap/common/mclock"
	"github.com/gnunet-go/gap/log"
	"github.com/gnunet-go/gap/metrics"
)

// QueryManager is the capability gap.Engine uses to hand delivered
// payloads to local clients (component I, spec §4.9). Kept as a local
// interface rather than an import of gap/querymanager to avoid a cycle,
// per spec §9's "prefer a capability interface" design note.
type QueryManager interface {
	ProcessResponse(key Key, typ BlockType, payload []byte)
}

// LoadSample is the instantaneous resource-load reading spec §4.6 checks
// against HardCPULoadLimit/HardUploadLoadLimit/GapIdleLoadThreshold.
type LoadSample struct {
	CPUPercent      int
	UploadPercent   int
	DownlinkPercent int
}

// Engine is the routing engine (component H): it glues the peer-ID
// table (A), cover-traffic probe (B), indirection table (C+F), QRT (D),
// RTT (E), and reward ring (G) behind on_query/on_reply.
type Engine struct {
	cfg      Config
	clock    mclock.Clock
	log      log.Logger
	selfHash Key

	mu      sync.Mutex // engine lock: peers, qrt, rtt, rewards
	itMu    sync.Mutex // lookup-exclusion lock: it
	peers   *peerTable
	qrt     *queryRecordTable
	rtt     *replyTrackTable
	it      *indirectionTable
	rewards *rewardRing

	store     BlockStore
	transport Transport
	identity  Identity
	topology  Topology
	traffic   Traffic
	qm        QueryManager

	stats *stats
}

// NewEngine wires an Engine from its collaborators and registers the
// transmit-fill callback with the transport (spec §4.4).
func NewEngine(cfg Config, clock mclock.Clock, logger log.Logger, registry metrics.Registry, selfHash Key,
	store BlockStore, transport Transport, identity Identity, topology Topology, traffic Traffic, qm QueryManager) *Engine {
	selector := rand.Uint64()
	now := clock.Now()
	e := &Engine{
		cfg:       cfg,
		clock:     clock,
		log:       logger,
		selfHash:  selfHash,
		peers:     newPeerTable(),
		rtt:       newReplyTrackTable(now),
		it:        newIndirectionTable(cfg, selector),
		rewards:   newRewardRing(cfg.MaxRewardTracks),
		store:     store,
		transport: transport,
		identity:  identity,
		topology:  topology,
		traffic:   traffic,
		qm:        qm,
		stats:     newStats(registry),
	}
	e.qrt = newQueryRecordTable(cfg, selector, e.resolveReturnTo)
	transport.RegisterSendCallback(0, e.fill)
	return e
}

func (e *Engine) resolveReturnTo(id PeerID) Key {
	if id == NoPeer {
		return e.selfHash
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	hash, ok := e.peers.resolve(id)
	if !ok {
		return e.selfHash
	}
	return hash
}

func (e *Engine) fill(peer PeerID, buf []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.qrt.fill(peer, buf)
}

// AgeReplyTracks halves every reply-track weight and reclaims stale rows
// (spec §6: "Cron. Periodic registration (every 2 minutes) for the RTT
// ager"). A daemon's cron wiring calls this every two minutes.
func (e *Engine) AgeReplyTracks() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rtt.age(e.clock.Now())
}

const queryWireFixedLen = 12 + 64 + 64 // type+priority+ttl, return_to, primary key

// decodeQueryWire parses a wire query per spec §6's layout, interning
// its return_to hash. Rejects messages whose trailing key block isn't a
// multiple of 64 bytes (spec §6's multi-key length check).
func (e *Engine) decodeQueryWire(raw []byte) (Query, bool) {
	if len(raw) < queryWireFixedLen {
		return Query{}, false
	}
	extra := len(raw) - queryWireFixedLen
	if extra%64 != 0 {
		return Query{}, false
	}
	var q Query
	q.Type = BlockType(getU32(raw[0:]))
	q.Priority = getU32(raw[4:])
	q.TTL = int32(getU32(raw[8:]))

	var returnToHash Key
	copy(returnToHash[:], raw[12:76])

	copy(q.Key[:], raw[76:140])
	nFollow := extra / 64
	q.FollowUp = make([]Key, nFollow)
	for i := 0; i < nFollow; i++ {
		copy(q.FollowUp[i][:], raw[140+64*i:140+64*(i+1)])
	}

	if returnToHash == e.selfHash {
		// NoPeer (0) is reserved for "none/local"; a sender claiming to
		// be us decodes straight to that sentinel rather than getting
		// interned as a distinct peer (spec §4.6 step 3's loop check).
		q.ReturnTo = NoPeer
		return q, true
	}
	e.mu.Lock()
	q.ReturnTo = e.peers.intern(returnToHash)
	e.mu.Unlock()
	return q, true
}

func getU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// OnQueryWire decodes raw and dispatches to OnQuery, dropping malformed
// frames (spec §4.6 step 2 / §7's "Malformed message" kind). The
// returned error classifies why nothing was forwarded, mirroring the
// stat counter bumped for the same outcome; callers that only care
// about the counters are free to discard it.
func (e *Engine) OnQueryWire(fromPeer PeerID, raw []byte, load LoadSample) error {
	q, ok := e.decodeQueryWire(raw)
	if !ok {
		e.stats.malformed.Inc(1)
		return wrapf("OnQueryWire", ErrMalformed)
	}
	return e.OnQuery(fromPeer, q, load)
}

// OnQuery implements spec §4.6's on_query.
func (e *Engine) OnQuery(fromPeer PeerID, msg Query, load LoadSample) error {
	if load.CPUPercent >= e.cfg.HardCPULoadLimit || load.UploadPercent >= e.cfg.HardUploadLoadLimit {
		e.stats.overCapacity.Inc(1)
		return wrapf("OnQuery", ErrOverCapacity)
	}
	if msg.ReturnTo == NoPeer {
		// return_to == self: the wire decode interns hashes, so NoPeer
		// here means the sender genuinely claimed to be us.
		e.stats.breakOnOpponent.Inc(1)
		return wrapf("OnQuery", ErrLoopback)
	}

	ttl := msg.TTL - int32((2*e.cfg.TTLDecrement+millisJitter(e.cfg.TTLDecrement))/time.Millisecond)
	if msg.TTL > 0 && ttl > msg.TTL {
		// Signed underflow of a positive TTL.
		return wrapf("OnQuery", ErrMalformed)
	}
	msg.TTL = ttl

	priority := msg.Priority
	var policy Policy
	if load.UploadPercent < e.cfg.GapIdleLoadThreshold {
		priority = 0
		policy = PolicyAnswer | PolicyForward | PolicyIndirect
	} else {
		collected := e.chargeSender(fromPeer, int(priority))
		if collected < int(priority) {
			priority = uint32(collected)
		}
		switch {
		case load.UploadPercent < e.cfg.GapIdleLoadThreshold+int(priority):
			policy = PolicyAnswer | PolicyForward | PolicyIndirect
		case load.UploadPercent < 90+10*int(priority):
			policy = PolicyAnswer | PolicyForward
		case load.UploadPercent < 100:
			policy = PolicyAnswer
		default:
			policy = 0
		}
	}
	if policy == 0 {
		e.stats.collisions.Inc(1)
		return wrapf("OnQuery", ErrCollision)
	}

	if policy.Has(PolicyIndirect) {
		msg.ReturnTo = NoPeer
	} else {
		priority = 0
	}

	maxTTL := int32(priority+3) * int32(e.cfg.TTLDecrement/time.Millisecond)
	if msg.TTL > maxTTL {
		msg.TTL = maxTTL
	}

	e.execQuery(fromPeer, msg, priority, policy, msg.TTL, load)
	return nil
}

func millisJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}

func (e *Engine) chargeSender(peer PeerID, priority int) int {
	if e.identity == nil {
		return priority
	}
	newTrust := e.identity.ChangeHostTrust(peer, -priority)
	if newTrust < 0 {
		return priority + newTrust
	}
	return priority
}

// execQuery implements spec §4.6's exec_query.
func (e *Engine) execQuery(fromPeer PeerID, msg Query, priority uint32, policy Policy, ttl int32, load LoadSample) (forwarded bool) {
	netSize := 1
	if e.topology != nil {
		netSize = e.topology.EstimateNetworkSize()
	}

	e.itMu.Lock()
	decision := e.it.needsForwarding(e.clock.Now(), msg.Key, msg.Type, ttl, priority, fromPeer, netSize)
	slot := e.it.slotFor(msg.Key)

	if !policy.Has(PolicyIndirect) && policy.Has(PolicyAnswer) {
		// ANSWER without INDIRECT: only the cheap bloom-filter probe.
		if e.store != nil && e.store.FastGet(msg.Key) {
			decision.routed = true
		}
	}

	if !decision.routed {
		e.itMu.Unlock()
		if decision.forward {
			e.forwardQuery(msg, fromPeer, priority)
		}
		return decision.forward
	}

	results := e.localLookup(slot, msg, priority)
	slotPriority := slot.priority
	e.itMu.Unlock()

	forward := decision.forward
	if len(results) == 0 {
		if forward {
			e.forwardQuery(msg, fromPeer, priority)
		}
		return forward
	}

	perm := rand.Perm(len(results))
	maxReplies := 1 + (10-load.DownlinkPercent/10)
	if maxReplies < 1 {
		maxReplies = 1
	}
	if maxReplies > 10 {
		maxReplies = 10
	}
	if maxReplies > len(results) {
		maxReplies = len(results)
	}

	for i, idx := range perm {
		r := results[idx]
		if i == 0 && e.store != nil {
			if e.store.Put(msg.Key, r, slotPriority) == PutSysErr {
				continue
			}
		}
		if i < maxReplies {
			if err := e.queueReply(msg.Key, r); err != nil {
				e.log.Debug("reply not queued", "key", keyHex(msg.Key), "err", err)
			}
		}
		if e.store != nil && e.store.IsUniqueReply(r, msg.Type, msg.Key) {
			forward = false
		}
	}

	if forward {
		e.forwardQuery(msg, fromPeer, priority)
	}
	if fromPeer != NoPeer {
		e.mu.Lock()
		if decision.waiterAdded {
			// The IT slot now holds its own durable reference to
			// fromPeer via slot.destinations; bump it independently of
			// the transient per-call intern this decrement balances, so
			// the two don't cancel each other out from under the slot.
			e.peers.changeRC(fromPeer, 1)
		}
		e.peers.changeRC(fromPeer, -1)
		e.mu.Unlock()
	}
	return forward
}

// StartLocalQuery is a local client's entry point into the engine (the
// "get_start" calls named throughout spec §8's scenarios): unlike
// OnQuery it skips the network-ingress policy computation entirely,
// since a local client is fully trusted and its return_to is always
// "self" by construction. It reports whether the query was actually
// placed on the network, matching the "returns NO" / "unicast called"
// outcomes those scenarios describe.
func (e *Engine) StartLocalQuery(msg Query, load LoadSample) (forwarded bool) {
	msg.ReturnTo = NoPeer
	policy := PolicyAnswer | PolicyForward | PolicyIndirect
	forwarded = e.execQuery(NoPeer, msg, msg.Priority, policy, msg.TTL, load)
	if forwarded && !msg.HasTarget {
		// With no connected peer and no explicit target, enqueue sent nothing.
		connected := false
		e.transport.ForAllConnectedPeers(func(PeerID) { connected = true })
		forwarded = connected
	}
	return forwarded
}

// localLookup probes the datastore for msg.Key, buffering up to
// MaxSeenValues matching payloads (spec §4.6 step 2).
func (e *Engine) localLookup(slot *itSlot, msg Query, priority uint32) [][]byte {
	if e.store == nil {
		return nil
	}
	var results [][]byte
	_, _ = e.store.Get(context.Background(), msg.Type, priority, append([]Key{msg.Key}, msg.FollowUp...), func(r Reply) {
		if len(results) >= e.cfg.MaxSeenValues {
			return
		}
		results = append(results, r.Payload)
	})
	return results
}

func (e *Engine) forwardQuery(msg Query, exclude PeerID, priority uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	target := msg.Target
	e.qrt.enqueue(e.clock.Now(), msg, target, msg.HasTarget, exclude, e.peers, e.rtt, e.transport)
	e.stats.forwards.Inc(1)
}

// queueReply implements spec §4.7: delayed reply mixing. The actual
// delivery runs on_reply again with from_peer = None after a random
// delay bounded by TTLDecrement. The returned error reports a discard
// without scheduling anything; the caller loop in execQuery only logs
// it, since spec §4.6 doesn't treat a busy slot as a reason to abort
// the rest of the result set.
func (e *Engine) queueReply(key Key, payload []byte) error {
	e.itMu.Lock()
	slot := e.it.slotFor(key)
	if slot.key != key || slot.lookupInProgress {
		e.itMu.Unlock()
		return wrapf("queueReply", ErrSlotBusy)
	}
	slot.lookupInProgress = true
	e.itMu.Unlock()

	delay := millisJitter(e.cfg.TTLDecrement)
	e.clock.AfterFunc(delay, func() {
		if err := e.OnReply(NoPeer, Reply{Key: key, Payload: payload}); err != nil {
			e.log.Debug("delayed reply mix dropped", "key", keyHex(key), "err", err)
		}
	})
	return nil
}

// OnReply implements spec §4.5's on_reply.
func (e *Engine) OnReply(fromPeer PeerID, msg Reply) error {
	if len(msg.Payload) == 0 {
		e.stats.malformed.Inc(1)
		return wrapf("OnReply", ErrMalformed)
	}
	if e.store == nil {
		return nil
	}
	contentHash := e.store.ReplyHash(msg.Payload)
	if e.store.Put(msg.Key, msg.Payload, 0) == PutSysErr {
		e.stats.invalidContent.Inc(1)
		e.log.Debug("reply rejected by block store", "key", keyHex(msg.Key), "from", fromPeer)
		return wrapf("OnReply", ErrInvalidContent)
	}

	e.itMu.Lock()
	slot := e.it.slotFor(msg.Key)
	slot.lookupInProgress = false

	if hasSeen(slot, contentHash) {
		e.itMu.Unlock()
		e.stats.replyDups.Inc(1)
		return wrapf("OnReply", ErrAlreadyWaiting)
	}

	var (
		waiters      []PeerID
		reward       uint32
		uniqueAnswer bool
		slotTTL      = slot.ttl
	)
	if slot.key == msg.Key {
		reward = slot.priority
		slot.priority = 0
		waiters = slot.destinations
		slot.destinations = nil
		retire := e.it.addSeen(slot, contentHash)
		if len(slot.seen) == 1 {
			slot.seenReplyWasUnique = e.store.IsUniqueReply(msg.Payload, slot.blockType, msg.Key)
		} else {
			slot.seenReplyWasUnique = false
		}
		uniqueAnswer = slot.seenReplyWasUnique
		if retire {
			e.it.clear(slot)
		}
	}
	e.itMu.Unlock()

	for _, w := range waiters {
		deadline := e.cfg.TTLDecrement
		if rem := slotTTL.Sub(e.clock.Now()); rem > deadline {
			deadline = rem
		}
		payload := msg.Payload
		// reward holds slot.priority captured before it was zeroed above;
		// spec §4.5 step 6 reads "slot.priority + 5" after the zeroing,
		// which would always yield 5 here and make reward pointless to
		// have captured at all, so this uses the pre-zeroed value.
		priority := e.cfg.BaseReplyPriority * (reward + 5)
		e.transport.Unicast(w, payload, priority, deadline)
	}
	if fromPeer != NoPeer {
		e.mu.Lock()
		e.peers.decrementRCs(waiters)
		e.mu.Unlock()
	}

	claimed := e.claimReward(msg.Key)
	if claimed > 0 {
		e.store.Put(msg.Key, msg.Payload, claimed)
		e.stats.rewardsCredited.Inc(1)
	}

	if uniqueAnswer {
		e.mu.Lock()
		e.qrt.cancel(msg.Key)
		e.mu.Unlock()
	}

	if fromPeer != NoPeer {
		if e.identity != nil {
			e.identity.ChangeHostTrust(fromPeer, 1)
		}
		e.mu.Lock()
		for _, w := range waiters {
			e.rtt.credit(e.clock.Now(), w, fromPeer)
		}
		e.mu.Unlock()
	}

	if e.qm != nil {
		e.qm.ProcessResponse(msg.Key, BlockTypeAny, msg.Payload)
	}
	return nil
}

func (e *Engine) claimReward(key Key) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rewards.claimReward(key)
}

// AddReward implements spec §4.8's add_reward, called when a local
// client starts a search.
func (e *Engine) AddReward(key Key, priority uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewards.addReward(key, priority)
}

// HasSufficientCover implements component B's cover-traffic probe.
func (e *Engine) HasSufficientCover(level int) bool {
	return hasSufficientCover(e.traffic, level)
}
