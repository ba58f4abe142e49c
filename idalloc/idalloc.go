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

// Package idalloc implements the bitmap resource ID allocator of
// spec.md §4.7, grounded on
// _examples/original_source/main/include/xnix/resource.h. Used for
// TIDs, PIDs and handle-table slots. Id 0 is reserved for "invalid"
// sentinels by higher layers (e.g. ksync.Mutex's unlocked owner), so
// it is marked used from construction and never handed out.
package idalloc

import "sync"

// Allocator is a static or growable bitmap allocator behind one
// surface; the Growable field selects which policy Alloc follows on
// exhaustion.
type Allocator struct {
	mu       sync.Mutex
	bitmap   []uint64
	capacity uint32
	used     uint32
	max      uint32 // 0 with growable == unbounded
	growable bool
	cursor   uint32
}

// NewStatic fixes capacity at max; Alloc fails when full.
func NewStatic(max uint32) *Allocator {
	return newAllocator(max, max, false)
}

// NewGrowable starts at initial capacity and doubles (carrying over
// old bits) up to max, or without bound if max == 0.
func NewGrowable(initial, max uint32) *Allocator {
	if initial == 0 {
		initial = 64
	}
	return newAllocator(initial, max, true)
}

func newAllocator(initial, max uint32, growable bool) *Allocator {
	if initial < 1 {
		initial = 1
	}
	words := (initial + 63) / 64
	a := &Allocator{
		bitmap:   make([]uint64, words),
		capacity: initial,
		max:      max,
		growable: growable,
	}
	a.markUsed(0) // id 0 reserved
	a.used = 1
	return a
}

func (a *Allocator) bitSet(i uint32) bool { return a.bitmap[i/64]&(1<<(i%64)) != 0 }
func (a *Allocator) markUsed(i uint32)    { a.bitmap[i/64] |= 1 << (i % 64) }
func (a *Allocator) markFree(i uint32)    { a.bitmap[i/64] &^= 1 << (i % 64) }

// Alloc returns a fresh id, or false if exhausted (static) or the max
// ceiling has been reached (growable).
func (a *Allocator) Alloc() (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if id, ok := a.findFree(); ok {
		a.markUsed(id)
		a.used++
		a.cursor = id + 1
		return id, true
	}

	if !a.growable {
		return 0, false
	}
	if !a.grow() {
		return 0, false
	}
	id, ok := a.findFree()
	if !ok {
		return 0, false
	}
	a.markUsed(id)
	a.used++
	a.cursor = id + 1
	return id, true
}

func (a *Allocator) findFree() (uint32, bool) {
	for scanned := uint32(0); scanned < a.capacity; scanned++ {
		i := (a.cursor + scanned) % a.capacity
		if !a.bitSet(i) {
			return i, true
		}
	}
	return 0, false
}

// grow doubles the bitmap, capped at max (if max != 0).
func (a *Allocator) grow() bool {
	newCap := a.capacity * 2
	if a.max != 0 && newCap > a.max {
		if a.capacity >= a.max {
			return false
		}
		newCap = a.max
	}
	words := (newCap + 63) / 64
	grown := make([]uint64, words)
	copy(grown, a.bitmap)
	a.bitmap = grown
	a.capacity = words * 64
	if a.max != 0 && a.capacity > a.max {
		a.capacity = a.max
	}
	return true
}

// Free returns id to the pool. Freeing id 0 or an unused id is a
// silent no-op.
func (a *Allocator) Free(id uint32) {
	if id == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if id >= a.capacity || !a.bitSet(id) {
		return
	}
	a.markFree(id)
	a.used--
}

func (a *Allocator) IsUsed(id uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id >= a.capacity {
		return false
	}
	return a.bitSet(id)
}

func (a *Allocator) Capacity() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.capacity
}

func (a *Allocator) Used() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// Destroy releases the allocator's storage.
func (a *Allocator) Destroy() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bitmap = nil
	a.capacity = 0
	a.used = 0
}
