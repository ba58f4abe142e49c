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

// Package physmem implements the bitmap-backed physical frame
// allocator of spec.md §4.2, grounded on
// _examples/original_source/main/include/xnix/physmem.h. One bit per
// 4 KiB frame over the usable range [start, end); allocation rotates
// a cursor so single-page allocation amortizes to O(1) in the common
// case, and multi-page allocation scans for a run of clear bits.
package physmem

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const PageSize = 4096

// Allocator is the per-kernel-context physical frame allocator. Per
// spec.md §9 it is carried as an explicit value inside the kernel
// context rather than as module-level global state.
//
// A hosted core has no real physical address bus, so the allocator
// owns a real Go-backed arena standing in for RAM; "physical
// addresses" are offsets into that arena plus base, and Bytes gives
// kheap (and later vmm's cross-address-space copies) safe access to
// the underlying storage without resorting to unsafe pointer
// arithmetic on synthetic addresses.
type Allocator struct {
	mu     sync.Mutex
	base   uintptr
	npages uint32
	bitmap []uint64 // one bit per frame, 1 = allocated
	cursor uint32
	free   uint32
	arena  []byte
}

// New creates an allocator over the usable range [start, end), as
// reported by the boot path. start is rounded up to a page boundary;
// the bitmap itself is carved out of the range it describes and
// marked reserved, mirroring the reference's "bitmap lives in the
// earliest frames" initialization.
func New(start, end uintptr) *Allocator {
	if start%PageSize != 0 {
		start += PageSize - (start % PageSize)
	}
	if end <= start {
		return &Allocator{base: start, npages: 0}
	}
	npages := uint32((end - start) / PageSize)
	words := (npages + 63) / 64

	a := &Allocator{
		base:   start,
		npages: npages,
		bitmap: make([]uint64, words),
		free:   npages,
		arena:  make([]byte, npages*PageSize),
	}

	// Reserve the frames the bitmap itself occupies.
	bitmapBytes := uint32(words * 8)
	bitmapPages := (bitmapBytes + PageSize - 1) / PageSize
	if bitmapPages > npages {
		bitmapPages = npages
	}
	for i := uint32(0); i < bitmapPages; i++ {
		a.markUsed(i)
		a.free--
	}

	logrus.WithFields(logrus.Fields{
		"base":   start,
		"npages": npages,
	}).Debug("physmem: allocator initialized")

	return a
}

func (a *Allocator) bitSet(i uint32) bool {
	return a.bitmap[i/64]&(1<<(i%64)) != 0
}

func (a *Allocator) markUsed(i uint32) { a.bitmap[i/64] |= 1 << (i % 64) }
func (a *Allocator) markFree(i uint32) { a.bitmap[i/64] &^= 1 << (i % 64) }

// AllocPage allocates a single frame, returning its base address and
// true on success, or false on exhaustion (the sole failure signal;
// never panics).
func (a *Allocator) AllocPage() (uintptr, bool) {
	return a.AllocPages(1)
}

// AllocPages allocates n contiguous frames.
func (a *Allocator) AllocPages(n uint32) (uintptr, bool) {
	if n == 0 {
		return 0, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if n > a.free {
		return 0, false
	}

	start, ok := a.findRun(n)
	if !ok {
		return 0, false
	}
	for i := start; i < start+n; i++ {
		a.markUsed(i)
	}
	a.free -= n
	a.cursor = (start + n) % maxUint32(a.npages, 1)
	return a.base + uintptr(start)*PageSize, true
}

// findRun scans starting at the rotating cursor so repeated
// single-page allocation and free amortize to O(1).
func (a *Allocator) findRun(n uint32) (uint32, bool) {
	if a.npages == 0 {
		return 0, false
	}
	run := uint32(0)
	runStart := uint32(0)
	for scanned := uint32(0); scanned < a.npages; scanned++ {
		i := (a.cursor + scanned) % a.npages
		if !a.bitSet(i) {
			if run == 0 {
				runStart = i
			}
			run++
			if run == n {
				return runStart, true
			}
		} else {
			run = 0
		}
	}
	return 0, false
}

// FreePages reverses AllocPages(n); the caller supplies n because the
// allocator keeps no external per-allocation metadata (kheap is the
// layer that remembers page counts for its clients).
func (a *Allocator) FreePages(base uintptr, n uint32) {
	if n == 0 || base < a.base {
		return
	}
	first := uint32((base - a.base) / PageSize)
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := first; i < first+n && i < a.npages; i++ {
		if a.bitSet(i) {
			a.markFree(i)
			a.free++
		}
	}
}

// Stats returns (total, free) frame counts for diagnostics / kmsg.
func (a *Allocator) Stats() (total, free uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.npages, a.free
}

// Bytes returns a slice of the backing arena covering [addr, addr+n).
// It panics on an out-of-range address, the hosted equivalent of a
// programming bug in the kernel itself (an arch port would instead
// fault); callers that cross a trust boundary (the user-copy helpers
// in package syscalls) must bounds-check before calling this.
func (a *Allocator) Bytes(addr uintptr, n uint32) []byte {
	off := addr - a.base
	return a.arena[off : off+uintptr(n)]
}

// Base returns the start of the usable range this allocator manages.
func (a *Allocator) Base() uintptr { return a.base }

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
