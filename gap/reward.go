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

// rewardEntry is one (key, priority) slot of the reward ring.
type rewardEntry struct {
	key      Key
	valid    bool
	priority uint32
}

// rewardRing is a fixed-size ring of per-request trust bounties paid on
// good replies (component G, spec §3/§4.8). No eviction policy beyond
// round-robin overwrite; stale entries just age out as newer requests
// take their slot.
type rewardRing struct {
	entries []rewardEntry
	next    int
}

func newRewardRing(size int) *rewardRing {
	return &rewardRing{entries: make([]rewardEntry, size)}
}

// addReward writes (key, priority) into the next ring slot, overwriting
// whatever was there. Called when a local client asks for content.
func (r *rewardRing) addReward(key Key, priority uint32) {
	r.entries[r.next] = rewardEntry{key: key, valid: true, priority: priority}
	r.next = (r.next + 1) % len(r.entries)
}

// claimReward sums and zeroes every ring entry matching key, returning
// the sum. Idempotent on the empty: a second call for the same key
// returns zero (spec §8: "claim_reward(k) is idempotent on the empty").
func (r *rewardRing) claimReward(key Key) uint32 {
	var sum uint32
	for i := range r.entries {
		if r.entries[i].valid && r.entries[i].key == key {
			sum += r.entries[i].priority
			r.entries[i].valid = false
			r.entries[i].priority = 0
		}
	}
	return sum
}
