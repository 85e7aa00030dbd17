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

	"github.com/stretchr/testify/require"
)

func TestRewardRingClaimSumsMatchingEntries(t *testing.T) {
	r := newRewardRing(4)
	k := keyFromByte(1)

	r.addReward(k, 5)
	r.addReward(keyFromByte(2), 100)
	r.addReward(k, 3)

	require.Equal(t, uint32(8), r.claimReward(k))
}

func TestRewardRingClaimIsIdempotentOnEmpty(t *testing.T) {
	r := newRewardRing(4)
	k := keyFromByte(1)
	r.addReward(k, 5)

	first := r.claimReward(k)
	second := r.claimReward(k)

	require.Equal(t, uint32(5), first)
	require.Equal(t, uint32(0), second)
}

func TestRewardRingOverwritesOldestSlot(t *testing.T) {
	r := newRewardRing(2)
	k := keyFromByte(1)

	r.addReward(k, 1)
	r.addReward(keyFromByte(2), 2)
	r.addReward(keyFromByte(3), 3) // wraps, overwrites k's slot

	require.Equal(t, uint32(0), r.claimReward(k))
	require.Equal(t, uint32(3), r.claimReward(keyFromByte(3)))
}
