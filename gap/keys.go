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

import "math/bits"

// XorDistance returns the bitwise XOR distance between two 512-bit keys
// as the position of its highest set bit (0 = identical). The migration
// pusher uses this to find the cached block closest to a receiving
// peer's ID (spec §4.10); the indirection table's slot hash uses a
// simpler mix (hashSlot, below) since it only needs uniform spread, not
// a metric.
func XorDistance(a, b Key) int {
	for i := 0; i < len(a); i++ {
		x := a[i] ^ b[i]
		if x != 0 {
			return (len(a)-1-i)*8 + bits.Len8(x)
		}
	}
	return 0
}

// Closer reports whether a is strictly closer to target than b under the
// XOR metric.
func Closer(target, a, b Key) bool {
	for i := 0; i < len(target); i++ {
		da := target[i] ^ a[i]
		db := target[i] ^ b[i]
		if da != db {
			return da < db
		}
	}
	return false
}

// hashSlot mixes a key with the table's per-process random selector to
// pick an indirection-table slot (spec §3: "a single deterministic hash
// mixing the key with a per-process random selector").
func hashSlot(key Key, selector uint64, tableSize int) int {
	h := selector
	for i := 0; i < len(key); i += 8 {
		var chunk uint64
		for j := 0; j < 8 && i+j < len(key); j++ {
			chunk = chunk<<8 | uint64(key[i+j])
		}
		h ^= chunk
		h *= 0x9E3779B97F4A7C15 // 64-bit golden-ratio constant, spreads XOR'd chunks
	}
	return int(h & uint64(tableSize-1))
}
