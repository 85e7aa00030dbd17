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

package lookup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gnunet-go/gap/gap"
	"github.com/gnunet-go/gap/log"
	"github.com/stretchr/testify/require"
)

func keyFromByte(b byte) gap.Key {
	var k gap.Key
	k[0] = b
	return k
}

type fakeStore struct {
	values      map[gap.Key][]byte
	sawPriority uint32
	mu          sync.Mutex
}

func (s *fakeStore) Get(ctx context.Context, typ gap.BlockType, priority uint32, keys []gap.Key, cb func(gap.Reply)) (int, error) {
	s.mu.Lock()
	s.sawPriority = priority
	s.mu.Unlock()
	n := 0
	for _, k := range keys {
		if v, ok := s.values[k]; ok {
			cb(gap.Reply{Key: k, Payload: v})
			n++
		}
	}
	return n, nil
}

func TestWorkerDeliversFoundResultsToOnResult(t *testing.T) {
	key := keyFromByte(1)
	store := &fakeStore{values: map[gap.Key][]byte{key: []byte("hit")}}
	w := New(store, log.New(), 4)
	go w.Run()
	defer w.Stop()

	delivered := make(chan []byte, 1)
	w.Submit(Job{
		Type: gap.BlockTypeData,
		Keys: []gap.Key{key},
		OnResult: func(k gap.Key, payload []byte) {
			delivered <- payload
		},
	})

	select {
	case payload := <-delivered:
		require.Equal(t, []byte("hit"), payload)
	case <-time.After(time.Second):
		t.Fatal("expected the worker to deliver the found result")
	}
}

func TestWorkerUsesExtremePriority(t *testing.T) {
	store := &fakeStore{values: map[gap.Key][]byte{}}
	w := New(store, log.New(), 4)
	go w.Run()
	defer w.Stop()

	done := make(chan struct{})
	w.Submit(Job{
		Type:     gap.BlockTypeData,
		Keys:     []gap.Key{keyFromByte(1)},
		OnResult: func(gap.Key, []byte) {},
	})
	// process runs synchronously inside Run's loop iteration; submit a
	// second no-op job and wait for it to confirm the first has drained.
	w.Submit(Job{OnResult: func(gap.Key, []byte) {}, Type: gap.BlockTypeData})
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(done)
	}()
	<-done

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Equal(t, ExtremePriority, store.sawPriority)
}

func TestWorkerProcessesJobsInFIFOOrder(t *testing.T) {
	store := &fakeStore{values: map[gap.Key][]byte{
		keyFromByte(1): []byte("one"),
		keyFromByte(2): []byte("two"),
	}}
	w := New(store, log.New(), 4)
	go w.Run()
	defer w.Stop()

	var mu sync.Mutex
	var order []string
	done := make(chan struct{}, 2)
	submit := func(label string, key gap.Key) {
		w.Submit(Job{
			Type: gap.BlockTypeData,
			Keys: []gap.Key{key},
			OnResult: func(gap.Key, []byte) {
				mu.Lock()
				order = append(order, label)
				mu.Unlock()
				done <- struct{}{}
			},
		})
	}
	submit("first", keyFromByte(1))
	submit("second", keyFromByte(2))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("expected both jobs to complete")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

// erroringThenRecoveringStore fails its first Get, then serves normally,
// modeling a transient datastore hiccup without any fields the worker
// goroutine and the test touch concurrently.
type erroringThenRecoveringStore struct {
	mu      sync.Mutex
	calls   int
	key     gap.Key
	payload []byte
}

func (s *erroringThenRecoveringStore) Get(ctx context.Context, typ gap.BlockType, priority uint32, keys []gap.Key, cb func(gap.Reply)) (int, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		return 0, errors.New("boom")
	}
	for _, k := range keys {
		if k == s.key {
			cb(gap.Reply{Key: k, Payload: s.payload})
		}
	}
	return 1, nil
}

func TestWorkerLogsStoreErrorsWithoutPanicking(t *testing.T) {
	key := keyFromByte(9)
	store := &erroringThenRecoveringStore{key: key, payload: []byte("recovered")}
	w := New(store, log.New(), 4)
	go w.Run()
	defer w.Stop()

	w.Submit(Job{
		Type:     gap.BlockTypeData,
		Keys:     []gap.Key{key},
		OnResult: func(gap.Key, []byte) {},
	})
	// A follow-up job confirms the worker kept running after the error.
	called := make(chan struct{})
	w.Submit(Job{
		Type: gap.BlockTypeData,
		Keys: []gap.Key{key},
		OnResult: func(gap.Key, []byte) {
			close(called)
		},
	})

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("expected the worker to keep processing after a store error")
	}
}

func TestWorkerStopPreventsFurtherSubmits(t *testing.T) {
	store := &fakeStore{values: map[gap.Key][]byte{}}
	w := New(store, log.New(), 1)
	go w.Run()
	w.Stop()

	// Submit must not block forever once the worker has stopped, even
	// if the channel is saturated.
	done := make(chan struct{})
	go func() {
		w.Submit(Job{OnResult: func(gap.Key, []byte) {}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit should return promptly after Stop")
	}
}
