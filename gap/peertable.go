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

// peerEntry holds a single interned peer's hash and outstanding
// reference count.
type peerEntry struct {
	hash Key
	rc   int
}

// peerTable maps 512-bit peer identities to small integer IDs with
// reference counting (component A, spec §4.1). It is not safe for
// concurrent use on its own; callers hold the engine lock.
type peerTable struct {
	byHash map[Key]PeerID
	byID   map[PeerID]*peerEntry
	nextID PeerID
}

func newPeerTable() *peerTable {
	return &peerTable{
		byHash: make(map[Key]PeerID),
		byID:   make(map[PeerID]*peerEntry),
		nextID: 1, // 0 is reserved for none/local
	}
}

// intern finds or allocates the ID for hash, incrementing its refcount.
func (t *peerTable) intern(hash Key) PeerID {
	if id, ok := t.byHash[hash]; ok {
		t.byID[id].rc++
		return id
	}
	id := t.nextID
	t.nextID++
	t.byHash[hash] = id
	t.byID[id] = &peerEntry{hash: hash, rc: 1}
	return id
}

// resolve returns the peer hash for id, or false if id is unknown.
func (t *peerTable) resolve(id PeerID) (Key, bool) {
	if id == NoPeer {
		return Key{}, false
	}
	e, ok := t.byID[id]
	if !ok {
		return Key{}, false
	}
	return e.hash, true
}

// changeRC adjusts id's refcount by delta, reclaiming the ID when it
// reaches zero. A refcount driven negative is a fatal invariant
// violation (spec §4.1: "on refcount underflow: fatal").
func (t *peerTable) changeRC(id PeerID, delta int) {
	if id == NoPeer {
		return
	}
	e, ok := t.byID[id]
	if !ok {
		fatalf("changeRC on unknown peer id %d", id)
	}
	e.rc += delta
	if e.rc < 0 {
		fatalf("peer id %d refcount underflow", id)
	}
	if e.rc == 0 {
		delete(t.byID, id)
		delete(t.byHash, e.hash)
	}
}

// decrementRCs decrements the refcount of every id in ids by one.
func (t *peerTable) decrementRCs(ids []PeerID) {
	for _, id := range ids {
		t.changeRC(id, -1)
	}
}

// refcount returns id's current reference count, or 0 if unknown.
func (t *peerTable) refcount(id PeerID) int {
	if id == NoPeer {
		return 0
	}
	if e, ok := t.byID[id]; ok {
		return e.rc
	}
	return 0
}
