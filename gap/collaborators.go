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
	"time"
)

// PutResult mirrors the block-store's {OK, SYSERR} outcome (spec §6).
type PutResult int

const (
	PutOK PutResult = iota
	PutSysErr
)

// BlockStore is the external content-addressed store (spec §6, out of
// scope to implement here). fast_get must not perform IO; it's a
// bloom-filter probe consulted on the "ANSWER without INDIRECT" branch.
type BlockStore interface {
	Put(key Key, value []byte, priority uint32) PutResult
	Get(ctx context.Context, typ BlockType, priority uint32, keys []Key, cb func(Reply)) (count int, err error)
	FastGet(key Key) bool
	IsUniqueReply(value []byte, typ BlockType, key Key) bool
	ReplyHash(value []byte) Key
}

// Transport is the external peer connection surface (spec §6).
type Transport interface {
	Unicast(peer PeerID, msg []byte, priority uint32, deadline time.Duration)
	ForAllConnectedPeers(cb func(PeerID))
	RegisterSendCallback(minPadding int, fill func(peer PeerID, buf []byte) int)
}

// Identity is the external trust-accounting surface (spec §6).
type Identity interface {
	ChangeHostTrust(peer PeerID, delta int) (newTrust int)
}

// Topology is the external network-size estimator (spec §6).
type Topology interface {
	EstimateNetworkSize() int
}

// TrafficSample is one bucket of the cover-traffic collaborator's report.
type TrafficSample struct {
	Count int
	Peers []PeerID
	Sizes []int
}

// Traffic is the external cover-traffic observer (spec §6). A nil
// Traffic means no cover traffic is available, per spec §4.2.
type Traffic interface {
	Get(windowMillis int64, msgType BlockType, outbound bool) TrafficSample
}

// hasSufficientCover implements the cover-traffic probe (component B,
// spec §4.2): any level > 0 demand is refused when no Traffic
// collaborator is wired in.
func hasSufficientCover(traffic Traffic, level int) bool {
	if level <= 0 {
		return true
	}
	if traffic == nil {
		return false
	}
	sample := traffic.Get(5000, BlockTypeAny, true)
	return sample.Count > 0
}
