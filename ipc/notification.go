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

	"github.com/xnix-project/xnixcore/handle"
)

// Notification is a sticky bitmask signal (spec.md §4.10 Notification):
// Signal ORs bits into the pending mask and wakes waiters; Wait blocks
// while the mask is zero, then atomically reads and clears it.
type Notification struct {
	handle.Refcounted

	mu       sync.Mutex
	mask     uint32
	waiters  []chan struct{}
	pollRegs []chan struct{}
}

func NewNotification() *Notification {
	return &Notification{}
}

// Signal ORs bits into the mask and wakes every blocked Wait caller
// (spec.md: "wakes the waiter, at most one by convention") and
// broadcasts to every wait_any poll registrant.
func (n *Notification) Signal(bits uint32) {
	n.mu.Lock()
	n.mask |= bits
	ws := n.waiters
	n.waiters = nil
	n.mu.Unlock()

	for _, w := range ws {
		close(w)
	}
	n.mu.Lock()
	polls := n.pollRegs
	n.mu.Unlock()
	for _, p := range polls {
		select {
		case p <- struct{}{}:
		default:
		}
	}
}

// Wait blocks while the mask is zero, then atomically reads and
// clears it.
func (n *Notification) Wait() uint32 {
	for {
		n.mu.Lock()
		if n.mask != 0 {
			bits := n.mask
			n.mask = 0
			n.mu.Unlock()
			return bits
		}
		w := make(chan struct{})
		n.waiters = append(n.waiters, w)
		n.mu.Unlock()
		<-w
	}
}

// Ready reports whether a Wait would return immediately.
func (n *Notification) Ready() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mask != 0
}

func (n *Notification) registerPoll(ch chan struct{}) {
	n.mu.Lock()
	n.pollRegs = append(n.pollRegs, ch)
	n.mu.Unlock()
}

func (n *Notification) unregisterPoll(ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, c := range n.pollRegs {
		if c == ch {
			n.pollRegs = append(n.pollRegs[:i], n.pollRegs[i+1:]...)
			return
		}
	}
}
