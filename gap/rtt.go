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
	"math"
	"time"

	"github.com/gnunet-go/gap/common/mclock"
)

const rttHalfLife = 10 * time.Second
const rttRecordTTL = 10 * time.Minute

// rttRow is one origin's per-responder weight table (spec §3: "a linked
// list of (responder, count) pairs"; modeled here as a map, per DESIGN.md's
// "arena of slots, not cyclic pointer graphs" decision).
type rttRow struct {
	weights      map[PeerID]float64
	lastActivity mclock.AbsTime
}

// replyTrackTable ages peer "good replier" weights per origin (component
// E, spec §3 and §4.5/§4.4). Not safe for concurrent use on its own;
// callers hold the engine lock.
type replyTrackTable struct {
	rows    map[PeerID]*rttRow
	lastAge mclock.AbsTime
}

func newReplyTrackTable(now mclock.AbsTime) *replyTrackTable {
	return &replyTrackTable{rows: make(map[PeerID]*rttRow), lastAge: now}
}

// credit records that responder answered a request originated by origin,
// called from on_reply for each waiter served (spec §4.5 step 9).
func (t *replyTrackTable) credit(now mclock.AbsTime, origin, responder PeerID) {
	row, ok := t.rows[origin]
	if !ok {
		row = &rttRow{weights: make(map[PeerID]float64)}
		t.rows[origin] = row
	}
	row.weights[responder]++
	row.lastActivity = now
}

// weight returns responder's current decayed weight for origin, used by
// the QRT's ranking function (spec §4.4: response_count_from_RTT).
func (t *replyTrackTable) weight(origin, responder PeerID) float64 {
	row, ok := t.rows[origin]
	if !ok {
		return 0
	}
	return row.weights[responder]
}

// age halves every row's weights according to elapsed time since the
// last age call (10s half-life, spec §3), drops zero-weight responders,
// and reclaims rows with no responders or untouched for over 10 minutes.
// Invoked by the cron-registered ager every 2 minutes (spec §6).
func (t *replyTrackTable) age(now mclock.AbsTime) {
	elapsed := now.Sub(t.lastAge)
	t.lastAge = now
	if elapsed <= 0 {
		return
	}
	decay := math.Pow(0.5, float64(elapsed)/float64(rttHalfLife))

	for origin, row := range t.rows {
		if now.Sub(row.lastActivity) > rttRecordTTL {
			delete(t.rows, origin)
			continue
		}
		for peer, w := range row.weights {
			w *= decay
			if w < 0.01 {
				delete(row.weights, peer)
				continue
			}
			row.weights[peer] = w
		}
		if len(row.weights) == 0 {
			delete(t.rows, origin)
		}
	}
}
