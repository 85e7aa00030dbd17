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

package event

import "sync"

// JoinSubscriptions joins multiple subscriptions into one. Unsubscribing
// the result unsubscribes all of them. An error on any one of them is
// forwarded to the joined subscription's error channel.
func JoinSubscriptions(subs ...Subscription) Subscription {
	return NewSubscription(func(unsub <-chan struct{}) error {
		var wg sync.WaitGroup
		defer wg.Wait()

		errCh := make(chan error, len(subs))
		for _, s := range subs {
			wg.Add(1)
			go func(s Subscription) {
				defer wg.Done()
				select {
				case err := <-s.Err():
					errCh <- err
				case <-unsub:
					s.Unsubscribe()
				}
			}(s)
		}

		select {
		case err := <-errCh:
			return err
		case <-unsub:
			return nil
		}
	})
}
