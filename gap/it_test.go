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
	"testing"
	"time"

	"github.com/gnunet-go/gap/common/mclock"
	"github.com/stretchr/testify/require"
)

func testITConfig() Config {
	cfg := DefaultConfig()
	cfg.IndirectionTableSize = 1024
	return cfg
}

func keyFromByte(b byte) Key {
	var k Key
	k[0] = b
	return k
}

// Scenario 6 from spec §8: eviction by priority via the cross-multiplied
// TTL/priority displacement check, expecting exactly case_id = 17.
func TestNeedsForwardingEvictionByPriority(t *testing.T) {
	cfg := testITConfig()
	it := newIndirectionTable(cfg, 1)
	now := mclock.AbsTime(0)

	k1, k2 := keyFromByte(1), keyFromByte(2)
	slot := it.slotFor(k1)
	slot.valid = true
	slot.key = k1
	slot.priority = 1
	slot.ttl = now.Add(1000 * time.Millisecond)

	decision := it.needsForwarding(now, k2, BlockTypeData, 100, 50, PeerID(7), 10)

	require.Equal(t, 17, decision.caseID)
	require.True(t, decision.routed)
	require.True(t, decision.forward)
	require.Equal(t, k2, slot.key)
	require.Equal(t, BlockTypeData, slot.blockType)
}

// A TTL of exactly -5*TTLDecrement must take the dead-slot branch, per
// spec §8's explicit boundary-behaviour property (not the negative-TTL
// same-key tap).
func TestNeedsForwardingDeadSlotBoundary(t *testing.T) {
	cfg := testITConfig()
	it := newIndirectionTable(cfg, 2)
	now := mclock.AbsTime(0)

	k1 := keyFromByte(3)
	slot := it.slotFor(k1)
	slot.valid = true
	slot.key = k1
	slot.priority = 1
	slot.ttl = now.Add(-20 * cfg.TTLDecrement)

	boundaryTTL := int32(-5 * cfg.TTLDecrement / time.Millisecond)
	decision := it.needsForwarding(now, k1, BlockTypeAny, boundaryTTL, 1, PeerID(1), 1)

	require.Equal(t, 21, decision.caseID)
	require.True(t, decision.routed)
	require.True(t, decision.forward)
}

// One tick past the dead-slot boundary falls back to the negative-TTL
// tap-onto-pending-request branch instead.
func TestNeedsForwardingJustBelowDeadSlotBoundary(t *testing.T) {
	cfg := testITConfig()
	it := newIndirectionTable(cfg, 2)
	now := mclock.AbsTime(0)

	k1 := keyFromByte(3)
	slot := it.slotFor(k1)
	slot.valid = true
	slot.key = k1
	slot.priority = 1
	slot.ttl = now.Add(-20 * cfg.TTLDecrement)

	belowBoundary := int32(-5*cfg.TTLDecrement/time.Millisecond) - 1
	decision := it.needsForwarding(now, k1, BlockTypeAny, belowBoundary, 1, PeerID(1), 1)

	require.Equal(t, 0, decision.caseID)
	require.False(t, decision.routed)
	require.False(t, decision.forward)
}

// Negative TTL against a matching pending slot only taps on: no route,
// no forward, but the sender is added as a waiter.
func TestNeedsForwardingNegativeTTLTap(t *testing.T) {
	cfg := testITConfig()
	it := newIndirectionTable(cfg, 3)
	now := mclock.AbsTime(0)

	k1 := keyFromByte(5)
	slot := it.slotFor(k1)
	slot.valid = true
	slot.key = k1
	slot.priority = 4
	slot.ttl = now.Add(10 * time.Second)

	decision := it.needsForwarding(now, k1, BlockTypeAny, -10, 2, PeerID(9), 1)

	require.Equal(t, 0, decision.caseID)
	require.False(t, decision.routed)
	require.False(t, decision.forward)
	require.True(t, decision.waiterAdded)
	require.Contains(t, slot.destinations, PeerID(9))
}

// An empty, never-used slot (zero value) for a brand new key should be
// claimed and routed.
func TestNeedsForwardingFreshSlot(t *testing.T) {
	cfg := testITConfig()
	it := newIndirectionTable(cfg, 4)
	// Past time zero, so the zero-value slot's ttl is already expired.
	now := mclock.AbsTime(time.Hour)

	k1 := keyFromByte(9)
	decision := it.needsForwarding(now, k1, BlockTypeData, 5000, 10, PeerID(2), 1)

	require.True(t, decision.routed)
	require.True(t, decision.forward)
	require.True(t, decision.waiterAdded)
	slot := it.slotFor(k1)
	require.True(t, slot.valid)
	require.Equal(t, k1, slot.key)
	require.Equal(t, BlockTypeData, slot.blockType)
}

func TestReplaceClearsSeenAndDestinations(t *testing.T) {
	cfg := testITConfig()
	it := newIndirectionTable(cfg, 5)
	now := mclock.AbsTime(0)

	k1 := keyFromByte(1)
	slot := it.slotFor(k1)
	slot.destinations = []PeerID{PeerID(1), PeerID(2)}
	slot.seen = []Key{keyFromByte(0xAA)}

	added := it.replace(slot, k1, BlockTypeData, 1000, 5, PeerID(3), now)

	require.True(t, added)
	require.Equal(t, []PeerID{PeerID(3)}, slot.destinations)
	require.Empty(t, slot.seen)
	require.Equal(t, uint32(5), slot.priority)
	require.Equal(t, BlockTypeData, slot.blockType)
}

func TestGrowRejectsDuplicateSenderAsSuccess(t *testing.T) {
	cfg := testITConfig()
	it := newIndirectionTable(cfg, 6)
	now := mclock.AbsTime(0)

	slot := &itSlot{valid: true, ttl: now.Add(time.Second), destinations: []PeerID{PeerID(1)}}
	added := it.grow(slot, 1000, 1, PeerID(1), now)

	require.False(t, added)
	require.Equal(t, []PeerID{PeerID(1)}, slot.destinations)
}

func TestAddSeenRetiresPastSoftCap(t *testing.T) {
	cfg := testITConfig()
	cfg.MaxSeenValues = 2
	it := newIndirectionTable(cfg, 7)
	slot := &itSlot{valid: true}

	// Soft cap is 2x MaxSeenValues; only the entry that pushes the
	// count past 4 should ask the caller to retire the slot.
	for i := 0; i < 4; i++ {
		retire := it.addSeen(slot, keyFromByte(byte(i)))
		require.False(t, retire)
	}
	retire := it.addSeen(slot, keyFromByte(4))
	require.True(t, retire)

	require.True(t, hasSeen(slot, keyFromByte(0)))
	require.False(t, hasSeen(slot, keyFromByte(200)))
}
