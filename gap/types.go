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

// Package gap implements the GNUnet-style anonymous routing core: query
// indirection, reply de-duplication, trust-aware admission, and the
// mixing delay that keeps locally-cached answers indistinguishable from
// remotely-fetched ones.
package gap

import (
	"time"

	"github.com/gnunet-go/gap/common/mclock"
)

func millisDuration(ms int32) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Key is a 512-bit content or peer identifier.
type Key [64]byte

// PeerID is a small integer standing in for a 512-bit peer hash, handed
// out by the intern table. ID zero means "none/local".
type PeerID uint32

const NoPeer PeerID = 0

// BlockType tags the kind of content a query or reply carries.
type BlockType uint32

const (
	BlockTypeAny BlockType = 0
	BlockTypeData BlockType = 1
)

// Policy is the admission decision bitmask computed in OnQuery.
type Policy uint8

const (
	PolicyAnswer Policy = 1 << iota
	PolicyForward
	PolicyIndirect
)

func (p Policy) Has(bit Policy) bool { return p&bit != 0 }

// Query is the decoded wire form of a GAP query message (spec §3).
type Query struct {
	Type       BlockType
	Priority   uint32
	TTL        int32 // signed relative TTL in milliseconds
	ReturnTo   PeerID
	Key        Key
	FollowUp   []Key
	Target     PeerID // zero if none (direct-ask)
	HasTarget  bool
}

// Reply is the decoded wire form of a GAP reply message (spec §3).
type Reply struct {
	Key     Key
	Payload []byte
}

// absTimeFromTTL returns the absolute deadline ttlMillis milliseconds
// past now. ttlMillis is signed: a negative TTL yields a deadline
// already in the past, which is how needsForwarding recognizes expired
// queries.
func absTimeFromTTL(now mclock.AbsTime, ttlMillis int32) mclock.AbsTime {
	return now.Add(millisDuration(ttlMillis))
}

func keyHex(k Key) string {
	var buf [16]byte
	n := 8
	for i := 0; i < n; i++ {
		b := k[i]
		buf[i*2] = hexDigit(b >> 4)
		buf[i*2+1] = hexDigit(b & 0xf)
	}
	return string(buf[:])
}

func hexDigit(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'a' + (b - 10)
}

// encodeKeyCount mirrors the wire-format length check from spec §6: a
// multi-key query's body length beyond the fixed header must be a
// multiple of 64 bytes.
func encodeKeyCount(bodyLen int) (int, bool) {
	if bodyLen%64 != 0 {
		return 0, false
	}
	return bodyLen / 64, true
}
