// queue.go - unbounded multi-producer single-consumer queue.
// Copyright (C) 2017  David Anthony Stainton
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package queue implements the per-user inbox: an unbounded,
// multi-producer single-consumer queue backed by a growable ring
// buffer. Many senders may clone a *Queue into their own outbound map;
// exactly one consumer drains it with Recv.
package queue

import (
	"sync"

	"github.com/frochet/routesim/userrequest"
)

// initialCapacity is the ring buffer's starting size; it doubles on
// overflow rather than ever rejecting or blocking a Send.
const initialCapacity = 16

// Queue is an unbounded MPSC queue of userrequest.Request. Send never
// blocks. Recv blocks until an item is available or the queue is
// closed, mirroring the ",ok" idiom of a native Go channel -- but
// unlike a channel, Close is idempotent: it is safe to call exactly
// once from the single owner that decides the queue is done, no
// matter how many senders reference it.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []userrequest.Request
	head   int
	count  int
	closed bool
}

// New builds an empty, open Queue.
func New() *Queue {
	q := &Queue{buf: make([]userrequest.Request, initialCapacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send enqueues req. It never blocks and is safe to call concurrently
// from many producers. A Send after Close is silently dropped: by the
// time a queue's owner closes it, every producer has already finished
// its own send pass, per the pass-1/pass-2 barrier.
func (q *Queue) Send(req userrequest.Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if q.count == len(q.buf) {
		q.grow()
	}
	tail := (q.head + q.count) % len(q.buf)
	q.buf[tail] = req
	q.count++
	q.cond.Signal()
}

// grow doubles the ring buffer's capacity, relinearizing the existing
// elements starting at index 0. Caller must hold q.mu.
func (q *Queue) grow() {
	grown := make([]userrequest.Request, len(q.buf)*2)
	for i := 0; i < q.count; i++ {
		grown[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = grown
	q.head = 0
}

// Recv blocks until an item is available, returning (item, true), or
// until the queue is closed and drained, returning (zero, false).
func (q *Queue) Recv() (userrequest.Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		return userrequest.Request{}, false
	}
	req := q.buf[q.head]
	q.buf[q.head] = userrequest.Request{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return req, true
}

// Close marks the queue closed: Recv drains whatever remains buffered,
// then reports false forever after. Close is idempotent and intended
// to be called exactly once by the queue's single owner (the driver),
// never by individual senders.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}
