//
// Copyright 2026 The xnixcore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package ipc

import (
	"sync"
	"time"

	"github.com/xnix-project/xnixcore/errno"
	"github.com/xnix-project/xnixcore/handle"
)

type recvResult struct {
	msg Message
	err error
}

type pendingRecv struct {
	ch chan recvResult
}

type pendingSend struct {
	msg Message
	ch  chan error
}

// Endpoint is the rendezvous object spec.md §4.10 describes: a
// synchronous send/recv queue pair plus an async FIFO fed from an
// AsyncPool, and poll registrants for wait_any.
type Endpoint struct {
	handle.Refcounted

	mu         sync.Mutex
	closed     bool
	sendQueue  []*pendingSend
	recvQueue  []*pendingRecv
	asyncQueue []*asyncNode
	pool       *AsyncPool
	pollRegs   []chan struct{}
}

// NewEndpoint creates an endpoint. pool may be nil if the endpoint
// never carries async traffic (SendAsync then fails with ENOSYS
// unless a receiver is already waiting).
func NewEndpoint(pool *AsyncPool) *Endpoint {
	return &Endpoint{pool: pool}
}

func (e *Endpoint) notifyPoll() {
	for _, ch := range e.pollRegs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Ready reports whether a non-blocking receive would succeed right
// now (wait_any's per-handle readiness predicate).
func (e *Endpoint) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.asyncQueue) > 0 || len(e.sendQueue) > 0
}

func (e *Endpoint) registerPoll(ch chan struct{}) {
	e.mu.Lock()
	e.pollRegs = append(e.pollRegs, ch)
	e.mu.Unlock()
}

func (e *Endpoint) unregisterPoll(ch chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, c := range e.pollRegs {
		if c == ch {
			e.pollRegs = append(e.pollRegs[:i], e.pollRegs[i+1:]...)
			return
		}
	}
}

// Close wakes every parked sender/receiver with ECLOSED and marks the
// endpoint dead; further operations fail the same way.
func (e *Endpoint) Close() {
	e.mu.Lock()
	e.closed = true
	sq := e.sendQueue
	rq := e.recvQueue
	e.sendQueue = nil
	e.recvQueue = nil
	e.mu.Unlock()

	closedErr := errno.Wrap(errno.ECLOSED, "ipc: endpoint closed")
	for _, pw := range sq {
		pw.ch <- closedErr
	}
	for _, rw := range rq {
		rw.ch <- recvResult{err: closedErr}
	}
}

// Send implements spec.md §4.10 Send. senderTID identifies the caller
// for reply_to. nonblock forces EAGAIN instead of parking; timeoutMs
// of 0 with nonblock false blocks indefinitely.
func (e *Endpoint) Send(msg Message, senderTID uint64, nonblock bool, timeoutMs uint32) error {
	msg.SenderTID = senderTID

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errno.Wrap(errno.ECLOSED, "ipc: send to closed endpoint")
	}
	if len(e.recvQueue) > 0 {
		rw := e.recvQueue[0]
		e.recvQueue = e.recvQueue[1:]
		e.mu.Unlock()
		rw.ch <- recvResult{msg: msg}
		return nil
	}
	if nonblock {
		e.mu.Unlock()
		return errno.Wrap(errno.EAGAIN, "ipc: send would block")
	}
	pw := &pendingSend{msg: msg, ch: make(chan error, 1)}
	e.sendQueue = append(e.sendQueue, pw)
	e.notifyPoll()
	e.mu.Unlock()

	if timeoutMs == 0 {
		return <-pw.ch
	}
	select {
	case err := <-pw.ch:
		return err
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		if e.removeSend(pw) {
			return errno.Wrap(errno.ETIMEDOUT, "ipc: send timed out")
		}
		return <-pw.ch
	}
}

func (e *Endpoint) removeSend(pw *pendingSend) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, q := range e.sendQueue {
		if q == pw {
			e.sendQueue = append(e.sendQueue[:i], e.sendQueue[i+1:]...)
			return true
		}
	}
	return false
}

// Receive implements spec.md §4.10 Receive: async messages are
// consumed before unblocked sync senders, per the Ordering invariant.
func (e *Endpoint) Receive(nonblock bool, timeoutMs uint32) (Message, error) {
	e.mu.Lock()
	if len(e.asyncQueue) > 0 {
		n := e.asyncQueue[0]
		e.asyncQueue = e.asyncQueue[1:]
		e.mu.Unlock()
		msg := Message{Regs: n.regs}
		if e.pool != nil {
			e.pool.release(n)
		}
		return msg, nil
	}
	if len(e.sendQueue) > 0 {
		pw := e.sendQueue[0]
		e.sendQueue = e.sendQueue[1:]
		e.mu.Unlock()
		pw.ch <- nil
		return pw.msg, nil
	}
	if e.closed {
		e.mu.Unlock()
		return Message{}, errno.Wrap(errno.ECLOSED, "ipc: receive from closed endpoint")
	}
	if nonblock {
		e.mu.Unlock()
		return Message{}, errno.Wrap(errno.EAGAIN, "ipc: receive would block")
	}
	rw := &pendingRecv{ch: make(chan recvResult, 1)}
	e.recvQueue = append(e.recvQueue, rw)
	e.mu.Unlock()

	if timeoutMs == 0 {
		r := <-rw.ch
		return r.msg, r.err
	}
	select {
	case r := <-rw.ch:
		return r.msg, r.err
	case <-time.After(time.Duration(timeoutMs) * time.Millisecond):
		if e.removeRecv(rw) {
			return Message{}, errno.Wrap(errno.ETIMEDOUT, "ipc: receive timed out")
		}
		r := <-rw.ch
		return r.msg, r.err
	}
}

func (e *Endpoint) removeRecv(rw *pendingRecv) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, q := range e.recvQueue {
		if q == rw {
			e.recvQueue = append(e.recvQueue[:i], e.recvQueue[i+1:]...)
			return true
		}
	}
	return false
}

// SendAsync implements spec.md §4.10 Async send: hands the message
// directly to a parked receiver if one exists, otherwise acquires a
// pool node and enqueues it.
func (e *Endpoint) SendAsync(regs [8]uint32, senderTID uint64) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errno.Wrap(errno.ECLOSED, "ipc: send_async to closed endpoint")
	}
	if len(e.recvQueue) > 0 {
		rw := e.recvQueue[0]
		e.recvQueue = e.recvQueue[1:]
		e.mu.Unlock()
		rw.ch <- recvResult{msg: Message{Regs: regs, SenderTID: senderTID}}
		return nil
	}
	if e.pool == nil {
		e.mu.Unlock()
		return errno.Wrap(errno.ENOSYS, "ipc: endpoint has no async pool")
	}
	n, err := e.pool.acquire()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	n.regs = regs
	e.asyncQueue = append(e.asyncQueue, n)
	e.notifyPoll()
	e.mu.Unlock()
	return nil
}

// Call is Send followed by a receive on a reply endpoint synthesized
// for this call (spec.md §4.10 Call: "a per-thread reply endpoint is
// synthesized on demand" — here, on a per-call basis, which is
// observably equivalent for a single outstanding call per thread).
func Call(ep *Endpoint, req Message, senderTID uint64, timeoutMs uint32) (Message, error) {
	reply := NewEndpoint(nil)
	req.replyTo = reply
	if err := ep.Send(req, senderTID, false, timeoutMs); err != nil {
		return Message{}, err
	}
	return reply.Receive(false, timeoutMs)
}

// Reply sends resp back on the reply-to endpoint captured by Call.
func Reply(req Message, resp Message) error {
	if req.replyTo == nil {
		return errno.Wrap(errno.EINVAL, "ipc: message carries no reply-to endpoint")
	}
	return req.replyTo.Send(resp, req.SenderTID, false, 0)
}
