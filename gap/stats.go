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

import "github.com/gnunet-go/gap/metrics"

// stats holds the "distinguishing statistics" named throughout spec §7:
// no-ops when metrics.Enabled is false, per the Statistics external
// contract in spec §6.
type stats struct {
	routingDuplicates metrics.Counter
	breakOnOpponent   metrics.Counter
	collisions        metrics.Counter
	replyDups         metrics.Counter
	invalidContent    metrics.Counter
	malformed         metrics.Counter
	overCapacity      metrics.Counter
	rewardsCredited   metrics.Counter
	forwards          metrics.Counter
}

func newStats(r metrics.Registry) *stats {
	return &stats{
		routingDuplicates: metrics.GetOrRegisterCounter("gap/routing/duplicates", r),
		breakOnOpponent:   metrics.GetOrRegisterCounter("gap/routing/break_on_opponent", r),
		collisions:        metrics.GetOrRegisterCounter("gap/routing/collisions", r),
		replyDups:         metrics.GetOrRegisterCounter("gap/reply/dups", r),
		invalidContent:    metrics.GetOrRegisterCounter("gap/reply/invalid_content", r),
		malformed:         metrics.GetOrRegisterCounter("gap/query/malformed", r),
		overCapacity:      metrics.GetOrRegisterCounter("gap/query/over_capacity", r),
		rewardsCredited:   metrics.GetOrRegisterCounter("gap/reward/credited", r),
		forwards:          metrics.GetOrRegisterCounter("gap/routing/forwards", r),
	}
}
