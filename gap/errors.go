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
	"fmt"
)

// Sentinel errors for the policy-drop outcomes spec §7 distinguishes by
// statistic. None of these close the underlying connection; they are
// reported to the caller in addition to the matching counter bump, so a
// caller that wants to react to a specific drop reason can errors.Is
// against one of these instead of polling metrics.
var (
	ErrCollision      = fmt.Errorf("gap: routing collision")
	ErrAlreadyWaiting = fmt.Errorf("gap: a reply is already recorded for this slot")
	ErrSlotBusy       = fmt.Errorf("gap: slot has a lookup already in flight")
	ErrMalformed      = fmt.Errorf("gap: malformed message")
	ErrOverCapacity   = fmt.Errorf("gap: over capacity, dropped")
	ErrInvalidContent = fmt.Errorf("gap: invalid content rejected by block store")
	ErrLoopback       = fmt.Errorf("gap: return_to is self")
)

// wrapf attaches op context to a sentinel without losing errors.Is-ability.
func wrapf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// fatalf reports an invariant violation that the specification requires
// to abort rather than be handled: refcount underflow, double-free of an
// interned ID, or destroying a table with live slots.
func fatalf(format string, args ...any) {
	panic(fmt.Sprintf("gap: fatal invariant violation: "+format, args...))
}
