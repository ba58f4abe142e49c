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

package irq

import (
	"sync"

	"github.com/xnix-project/xnixcore/errno"
	"github.com/xnix-project/xnixcore/ipc"
)

// ring is a small bounded byte ring; a full ring drops the oldest
// byte, matching kmsg's overwrite policy for bounded device buffers.
type ring struct {
	buf   []byte
	head  int
	count int
}

func newRing(size int) *ring {
	if size < 1 {
		size = 64
	}
	return &ring{buf: make([]byte, size)}
}

func (r *ring) push(b byte) {
	idx := (r.head + r.count) % len(r.buf)
	if r.count == len(r.buf) {
		r.head = (r.head + 1) % len(r.buf)
	} else {
		r.count++
	}
	r.buf[idx] = b
}

func (r *ring) drain(out []byte) int {
	n := 0
	for n < len(out) && r.count > 0 {
		out[n] = r.buf[r.head]
		r.head = (r.head + 1) % len(r.buf)
		r.count--
		n++
	}
	return n
}

type binding struct {
	ring  *ring
	notif *ipc.Notification
	bits  uint32
}

// UserIRQ is the sole mechanism by which user drivers observe device
// events (spec.md §4.11 User IRQ binding): bind attaches a
// notification and a per-IRQ ring buffer; Occur is called by a device
// simulation (or a test) each time the IRQ fires.
type UserIRQ struct {
	mu       sync.Mutex
	chip     ChipOps
	bindings map[int]*binding
}

func NewUserIRQ(chip ChipOps) *UserIRQ {
	return &UserIRQ{chip: chip, bindings: make(map[int]*binding)}
}

// Bind attaches notif/bits and enables the line.
func (u *UserIRQ) Bind(irq int, notif *ipc.Notification, bits uint32, ringSize int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.bindings[irq]; exists {
		return errno.Wrap(errno.EBUSY, "irq: %d already bound", irq)
	}
	u.bindings[irq] = &binding{ring: newRing(ringSize), notif: notif, bits: bits}
	u.chip.Enable(irq)
	return nil
}

// Unbind disables the line and detaches its binding.
func (u *UserIRQ) Unbind(irq int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.bindings[irq]; !ok {
		return errno.Wrap(errno.EINVAL, "irq: %d not bound", irq)
	}
	delete(u.bindings, irq)
	u.chip.Disable(irq)
	return nil
}

// Occur pushes a device-specific data byte into irq's ring and signals
// its notification. Called by a device driver's IRQ handler.
func (u *UserIRQ) Occur(irq int, data byte) error {
	u.mu.Lock()
	b, ok := u.bindings[irq]
	if !ok {
		u.mu.Unlock()
		return errno.Wrap(errno.ENOENT, "irq: %d not bound", irq)
	}
	b.ring.push(data)
	u.mu.Unlock()

	b.notif.Signal(b.bits)
	return nil
}

// Read drains up to len(buf) bytes. If blocking and the ring is
// currently empty, it waits for the next Occur's signal before
// re-checking.
func (u *UserIRQ) Read(irq int, buf []byte, blocking bool) (int, error) {
	u.mu.Lock()
	b, ok := u.bindings[irq]
	u.mu.Unlock()
	if !ok {
		return 0, errno.Wrap(errno.EINVAL, "irq: %d not bound", irq)
	}

	for {
		u.mu.Lock()
		n := b.ring.drain(buf)
		u.mu.Unlock()
		if n > 0 || !blocking {
			return n, nil
		}
		b.notif.Wait()
	}
}
