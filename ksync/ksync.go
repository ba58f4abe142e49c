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

// Package ksync implements the four synchronization primitives of
// spec.md §4.5 (spinlock, mutex, semaphore, condvar), grounded on
// _examples/original_source/kernel/include/xnix/sync.h and
// kernel/lib/semaphore.c.
//
// A hosted thread is a goroutine (see package sched), so "block on a
// wait channel and call schedule" is implemented as "append a wakeup
// channel to the waiter list under the guard spinlock, release the
// guard, then block on a native Go channel receive" — which is
// exactly the ordering spec.md requires (the waiter record is linked
// before the guard is released, so the same thread being woken
// prematurely cannot race the sleep transition).
package ksync

import (
	"runtime"

	"github.com/xnix-project/xnixcore/atomics"
)

// Spinlock is the lowest-level lock: acquire spins a bounded pause
// loop rather than sleeping, so it must never be held across a sleep.
type Spinlock struct {
	locked atomics.Uint32
}

func (s *Spinlock) Lock() {
	for !s.TryLock() {
		runtime.Gosched()
	}
}

func (s *Spinlock) TryLock() bool {
	return s.locked.CompareAndSwap(0, 1)
}

func (s *Spinlock) Unlock() {
	s.locked.Store(0)
}

// irqDisableDepth simulates the per-CPU interrupt-disable count that a
// real spin_lock_irqsave would manipulate. It has no bearing on
// goroutine scheduling (Go has no asynchronous interrupt-context
// reentrancy into the same goroutine) but is kept so irq handlers and
// ksync agree on "interrupts are logically off" for assertions and
// for parity with the reference API shape.
var irqDisableDepth uint32

// LockIRQSave is mandatory for any lock that may be acquired from
// interrupt context (spec.md §4.5): kmsg's ring and the console
// multiplexer use it because they may be touched from an IRQ handler
// or from a panic path.
func (s *Spinlock) LockIRQSave() uint32 {
	prev := irqDisableDepth
	irqDisableDepth++
	s.Lock()
	return prev
}

func (s *Spinlock) UnlockIRQRestore(flags uint32) {
	s.Unlock()
	irqDisableDepth = flags
}

// waiter is a single queued blocker; the channel is closed exactly
// once to wake it (broadcast semantics come from closing, not
// sending, so multiple wakers can never double-deliver).
type waiter chan struct{}

func newWaiter() waiter { return make(chan struct{}) }

// Mutex composes a guard spinlock protecting the owner token and
// waiters queue with sleep-based blocking. Owner 0 means unlocked —
// idalloc reserves id 0 as an invalid sentinel, so real thread ids
// (always >= 1) double as a natural "unlocked" marker here.
type Mutex struct {
	guard   Spinlock
	owner   uint64
	waiters []waiter
}

// Lock acquires the mutex on behalf of the given owner token
// (typically a TID). It spins on the guard, and if the mutex is busy,
// enqueues and blocks until woken, re-checking ownership each time
// (Unlock wakes every waiter; the open question on mutex fairness is
// resolved as wake-all in spec.md §9 / SPEC_FULL.md §5).
func (m *Mutex) Lock(owner uint64) {
	for {
		m.guard.Lock()
		if m.owner == 0 {
			m.owner = owner
			m.guard.Unlock()
			return
		}
		w := newWaiter()
		m.waiters = append(m.waiters, w)
		m.guard.Unlock()
		<-w
	}
}

func (m *Mutex) TryLock(owner uint64) bool {
	m.guard.Lock()
	defer m.guard.Unlock()
	if m.owner == 0 {
		m.owner = owner
		return true
	}
	return false
}

// Unlock clears ownership under the guard then wakes all waiters.
func (m *Mutex) Unlock() {
	m.guard.Lock()
	m.owner = 0
	ws := m.waiters
	m.waiters = nil
	m.guard.Unlock()
	for _, w := range ws {
		close(w)
	}
}

func (m *Mutex) Owner() uint64 {
	m.guard.Lock()
	defer m.guard.Unlock()
	return m.owner
}

// Semaphore is an integer count plus a waiter queue.
type Semaphore struct {
	guard   Spinlock
	count   int
	waiters []waiter
}

func NewSemaphore(count int) *Semaphore {
	return &Semaphore{count: count}
}

// Down blocks while count <= 0, per spec.md §4.5.
func (s *Semaphore) Down() {
	s.guard.Lock()
	for s.count <= 0 {
		w := newWaiter()
		s.waiters = append(s.waiters, w)
		s.guard.Unlock()
		<-w
		s.guard.Lock()
	}
	s.count--
	s.guard.Unlock()
}

// Up increments the count and wakes all waiters (they re-check the
// condition on wake, so waking more than strictly necessary is safe).
func (s *Semaphore) Up() {
	s.guard.Lock()
	s.count++
	ws := s.waiters
	s.waiters = nil
	s.guard.Unlock()
	for _, w := range ws {
		close(w)
	}
}

func (s *Semaphore) Count() int {
	s.guard.Lock()
	defer s.guard.Unlock()
	return s.count
}

// Condvar is a wait queue used alongside a Mutex.
type Condvar struct {
	guard   Spinlock
	waiters []waiter
}

// Wait atomically releases mtx, blocks on cv, and reacquires mtx
// (under owner) on wake.
func (c *Condvar) Wait(mtx *Mutex, owner uint64) {
	c.guard.Lock()
	w := newWaiter()
	c.waiters = append(c.waiters, w)
	c.guard.Unlock()

	mtx.Unlock()
	<-w
	mtx.Lock(owner)
}

// Signal wakes one waiter.
func (c *Condvar) Signal() {
	c.guard.Lock()
	if len(c.waiters) == 0 {
		c.guard.Unlock()
		return
	}
	w := c.waiters[0]
	c.waiters = c.waiters[1:]
	c.guard.Unlock()
	close(w)
}

// Broadcast wakes every waiter.
func (c *Condvar) Broadcast() {
	c.guard.Lock()
	ws := c.waiters
	c.waiters = nil
	c.guard.Unlock()
	for _, w := range ws {
		close(w)
	}
}
