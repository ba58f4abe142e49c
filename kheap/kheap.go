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

// Package kheap implements the kernel heap of spec.md §4.3, grounded
// on _examples/original_source/kernel/main/mm/kmalloc.c. Unlike the
// original (whose kfree only ever releases one page, a bug the source
// itself flags with a TODO), this carries spec.md's fix: every
// allocation is prefixed with an 8-byte header recording its page
// count, so Kfree always reverses the matching page run exactly.
// There is deliberately no sub-page slab here; one may be layered on
// top without changing this contract.
package kheap

import (
	"encoding/binary"

	"github.com/xnix-project/xnixcore/physmem"
)

const headerSize = 8

// Heap wraps a physical allocator with page-rounding and the
// size-carrying header. Addresses it hands out are physmem addresses;
// Bytes/Kfree translate them back through the same allocator's arena,
// so a hosted caller never needs real pointer arithmetic.
type Heap struct {
	pm *physmem.Allocator
}

func New(pm *physmem.Allocator) *Heap {
	return &Heap{pm: pm}
}

// Kmalloc reserves ceil((n+header)/PageSize) frames and returns the
// address just past the header, or 0 on OOM / n==0.
func (h *Heap) Kmalloc(n uint32) uintptr {
	if n == 0 {
		return 0
	}
	total := n + headerSize
	pages := (total + physmem.PageSize - 1) / physmem.PageSize

	base, ok := h.pm.AllocPages(pages)
	if !ok {
		return 0
	}

	binary.LittleEndian.PutUint32(h.pm.Bytes(base, headerSize), pages)
	return base + headerSize
}

// Kzalloc is Kmalloc followed by a zero-fill of the requested region.
func (h *Heap) Kzalloc(n uint32) uintptr {
	addr := h.Kmalloc(n)
	if addr == 0 {
		return 0
	}
	buf := h.pm.Bytes(addr, n)
	for i := range buf {
		buf[i] = 0
	}
	return addr
}

// Bytes exposes the live storage behind an address returned by
// Kmalloc/Kzalloc, for reading or writing n bytes.
func (h *Heap) Bytes(addr uintptr, n uint32) []byte {
	return h.pm.Bytes(addr, n)
}

// Kfree reads the page count back out of the header and returns the
// whole run to the physical allocator.
func (h *Heap) Kfree(addr uintptr) {
	if addr == 0 {
		return
	}
	base := addr - headerSize
	pages := binary.LittleEndian.Uint32(h.pm.Bytes(base, headerSize))
	h.pm.FreePages(base, pages)
}
