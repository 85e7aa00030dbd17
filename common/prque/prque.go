// CookieJar - A contestant's algorithm toolbox
// Copyright (c) 2013 Peter Szilagyi. All rights reserved.
//
// CookieJar is dual licensed: use of this source code is governed by a BSD
// license that can be found in the LICENSE file. Alternatively, the CookieJar
// toolbox may be used in accordance with the terms and conditions contained
// in a signed written agreement between you and the author(s).

// Package prque implements a priority queue data structure supporting
// arbitrary value types and int/int64 priorities.
//
// GAP's migration pusher (spec §4.10) uses it to pick the most-served
// cached block for eviction in O(log n).
package prque

import "container/heap"

// Prque is a priority queue data structure. The item with the greatest
// priority is always popped first.
type Prque[P int64 | int, V any] struct {
	cont *sstack[P, V]
}

// New creates a new priority queue. setIndex, if non-nil, is invoked every
// time an item's position in the queue changes, so the caller can later
// remove it directly via Remove without a linear scan.
func New[P int64 | int, V any](setIndex SetIndexCallback[V]) *Prque[P, V] {
	return &Prque[P, V]{cont: newSstack[P, V](setIndex)}
}

// Push adds an item with the given priority.
func (p *Prque[P, V]) Push(data V, priority P) {
	heap.Push(p.cont, &item[P, V]{data, priority})
}

// Peek returns the value with the greatest priority without popping it.
func (p *Prque[P, V]) Peek() (V, P) {
	it := p.cont.blocks[0][0]
	return it.value, it.priority
}

// Pop removes the item with the greatest priority and returns it along
// with its priority.
func (p *Prque[P, V]) Pop() (V, P) {
	it := heap.Pop(p.cont).(*item[P, V])
	return it.value, it.priority
}

// PopItem pops the value with the greatest priority, discarding the
// priority itself.
func (p *Prque[P, V]) PopItem() V {
	return heap.Pop(p.cont).(*item[P, V]).value
}

// Remove removes the item at index i, as tracked by the setIndex callback
// passed to New.
func (p *Prque[P, V]) Remove(i int) V {
	return heap.Remove(p.cont, i).(*item[P, V]).value
}

// Empty checks whether the priority queue is empty.
func (p *Prque[P, V]) Empty() bool {
	return p.cont.Len() == 0
}

// Size returns the number of elements in the priority queue.
func (p *Prque[P, V]) Size() int {
	return p.cont.Len()
}

// Reset clears the contents of the priority queue.
func (p *Prque[P, V]) Reset() {
	*p.cont = *newSstack[P, V](p.cont.setIndex)
}
