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

package migration

import (
	"testing"
	"time"

	"github.com/gnunet-go/gap/gap"
	"github.com/gnunet-go/gap/common/mclock"
	"github.com/gnunet-go/gap/log"
	"github.com/stretchr/testify/require"
)

func keyFromByte(b byte) gap.Key {
	var k gap.Key
	k[0] = b
	return k
}

type fakeDatastore struct {
	blocks   []gap.Key
	values   map[gap.Key][]byte
	onDemand map[gap.Key]bool
	next     int
}

func newFakeDatastore() *fakeDatastore {
	return &fakeDatastore{values: make(map[gap.Key][]byte), onDemand: make(map[gap.Key]bool)}
}

func (d *fakeDatastore) add(key gap.Key, value []byte, onDemand bool) {
	d.blocks = append(d.blocks, key)
	d.values[key] = value
	d.onDemand[key] = onDemand
}

func (d *fakeDatastore) GetRandom() (gap.Key, []byte, bool, bool) {
	if len(d.blocks) == 0 {
		return gap.Key{}, nil, false, false
	}
	key := d.blocks[d.next%len(d.blocks)]
	d.next++
	return key, d.values[key], d.onDemand[key], true
}

func (d *fakeDatastore) Materialize(key gap.Key) ([]byte, bool) {
	if d.onDemand[key] {
		v, ok := d.values[key]
		return v, ok
	}
	return nil, false
}

type fakeCover struct{ sufficient bool }

func (c *fakeCover) HasSufficientCover(level int) bool { return c.sufficient }

func testConfig() gap.Config {
	cfg := gap.DefaultConfig()
	cfg.MaxRecords = 4
	cfg.MaxReceivers = 2
	cfg.MaxPollFrequency = 250 * time.Millisecond
	cfg.MaxMigrationExpiration = 24 * time.Hour
	return cfg
}

func newTestPusher(store Datastore, cover CoverTraffic) (*Pusher, *mclock.Simulated) {
	clock := &mclock.Simulated{}
	clock.Run(time.Hour)
	p := New(testConfig(), clock, log.New(), store, cover)
	return p, clock
}

func TestPushRefusesWithoutSufficientCover(t *testing.T) {
	store := newFakeDatastore()
	store.add(keyFromByte(1), []byte("a"), false)
	p, _ := newTestPusher(store, &fakeCover{sufficient: false})

	out := p.Push(gap.PeerID(1), keyFromByte(0xFF), 4096)
	require.Nil(t, out)
}

func TestPushSamplesFromEmptyCacheOnFirstCall(t *testing.T) {
	store := newFakeDatastore()
	store.add(keyFromByte(1), []byte("payload"), false)
	p, _ := newTestPusher(store, &fakeCover{sufficient: true})

	out := p.Push(gap.PeerID(1), keyFromByte(0xFF), 4096)
	require.NotNil(t, out)
	require.Equal(t, keyFromByte(1), gap.Key(out[12:76]))
	require.Equal(t, []byte("payload"), out[76:])
}

func TestPushReturnsNilWhenDatastoreEmpty(t *testing.T) {
	store := newFakeDatastore()
	p, _ := newTestPusher(store, &fakeCover{sufficient: true})

	out := p.Push(gap.PeerID(1), keyFromByte(0xFF), 4096)
	require.Nil(t, out)
}

func TestPushMaterializesOnDemandBlocks(t *testing.T) {
	store := newFakeDatastore()
	store.add(keyFromByte(2), []byte("lazy-content"), true)
	p, _ := newTestPusher(store, &fakeCover{sufficient: true})

	out := p.Push(gap.PeerID(1), keyFromByte(0xFF), 4096)
	require.NotNil(t, out)
	require.Equal(t, []byte("lazy-content"), out[76:])
}

func TestPushReturnsNilWhenPaddingTooSmall(t *testing.T) {
	store := newFakeDatastore()
	store.add(keyFromByte(1), []byte("payload-too-big-for-the-padding"), false)
	p, _ := newTestPusher(store, &fakeCover{sufficient: true})

	out := p.Push(gap.PeerID(1), keyFromByte(0xFF), 4)
	require.Nil(t, out)
}

func TestPushEvictsBlockAfterMaxReceivers(t *testing.T) {
	store := newFakeDatastore()
	store.add(keyFromByte(1), []byte("x"), false)
	p, clock := newTestPusher(store, &fakeCover{sufficient: true})

	// MaxReceivers is 2: the same single cached block is cleared once
	// it has been served to that many distinct peers.
	require.NotNil(t, p.Push(gap.PeerID(1), keyFromByte(0xFF), 4096))
	require.Equal(t, 1, p.cache.Len())

	clock.Run(p.cfg.MaxPollFrequency)
	require.NotNil(t, p.Push(gap.PeerID(2), keyFromByte(0xFF), 4096))
	require.Equal(t, 0, p.cache.Len(), "block should be evicted after MaxReceivers distinct peers")
}

func TestSelectForPeerSkipsAlreadyServedPeer(t *testing.T) {
	store := newFakeDatastore()
	store.add(keyFromByte(1), []byte("x"), false)
	p, _ := newTestPusher(store, &fakeCover{sufficient: true})

	rec := p.sample()
	rec.served = append(rec.served, gap.PeerID(9))

	got := p.selectForPeer(gap.PeerID(9), keyFromByte(0xFF))
	require.Nil(t, got)

	got = p.selectForPeer(gap.PeerID(10), keyFromByte(0xFF))
	require.NotNil(t, got)
}

func TestSelectForPeerPrefersCloserKey(t *testing.T) {
	store := newFakeDatastore()
	p, _ := newTestPusher(store, &fakeCover{sufficient: true})

	far := &migrationRecord{key: keyFromByte(0x01), payload: []byte("far")}
	near := &migrationRecord{key: keyFromByte(0x7F), payload: []byte("near")}
	p.cache.Add(far.key, far)
	p.cache.Add(near.key, near)

	target := keyFromByte(0x7E)
	got := p.selectForPeer(gap.PeerID(1), target)
	require.Equal(t, near.key, got.key)
}
