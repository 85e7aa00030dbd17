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

// TryMigrate fits a wrapped migration payload into the remaining bytes
// the transport has offered the pusher (spec §4.10). It never truncates
// a block header or key, only entire payload, so a payload that can't
// fit at all is rejected rather than mangled.
func TryMigrate(wrapped []byte, remaining int) ([]byte, bool) {
	if remaining <= 0 || len(wrapped) > remaining {
		return nil, false
	}
	return wrapped, true
}
