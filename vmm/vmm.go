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

// Package vmm implements the virtual memory operations table of
// spec.md §4.4: address-space lifecycle, page mapping with flags, the
// kernel direct map, TLB discipline and page-fault classification.
// Grounded on _examples/original_source/main/include/xnix/mm_ops.h
// and main/arch/x86/mm_ops.c.
//
// A hosted core has no MMU to program, so Ops is an interface with two
// implementations sharing one contract (spec.md §4.4's "a no-MMU
// variant obeys the same interface"): MMU simulates per-address-space
// page tables with a Go map, NoMMU requires v==p. Both enforce the
// same TLB discipline: Unmap (and any protection downgrade) makes the
// mapping unobservable to Query before returning.
package vmm

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xnix-project/xnixcore/errno"
)

var (
	errASNotFound     = errno.Wrap(errno.EINVAL, "vmm: address space not found")
	errNoMMUMismatch  = errno.Wrap(errno.EINVAL, "vmm: no-MMU target requires v == p")
)

// Flags enumerates the per-mapping attributes of spec.md §4.4.
type Flags uint8

const (
	Read Flags = 1 << iota
	Write
	User
	NoCache
)

// PageSize matches physmem.PageSize; duplicated as an untyped
// constant here to avoid vmm depending on physmem (vmm maps frames it
// is handed, it does not allocate them).
const PageSize = 4096

// ASHandle identifies an address space. In the reference it is the
// physical address of the top-level page-translation structure; here
// it is a dense id assigned at creation.
type ASHandle uint64

// KernelDirectMapBase is the compile-time chosen window (spec.md
// §4.4's "e.g. 3 GiB upward") that identity-maps a bounded amount of
// RAM. PhysToVirt/VirtToPhys are constant-time over this window.
const KernelDirectMapBase uintptr = 0xC0000000

func PhysToVirt(p uintptr) uintptr { return KernelDirectMapBase + p }
func VirtToPhys(v uintptr) uintptr { return v - KernelDirectMapBase }

type pageEntry struct {
	frame uintptr
	flags Flags
}

// Ops is the operations table the rest of the kernel depends on.
type Ops interface {
	Init()
	CreateAS() (ASHandle, error)
	DestroyAS(as ASHandle)
	SwitchAS(as ASHandle) error
	Map(as ASHandle, v, p uintptr, flags Flags) error
	Unmap(as ASHandle, v uintptr) error
	Query(as ASHandle, v uintptr) (p uintptr, ok bool)
	QueryFlags(as ASHandle, v uintptr) (p uintptr, flags Flags, ok bool)
	Current() ASHandle
}

// MMU is the default, paging-aware implementation.
type MMU struct {
	mu      sync.RWMutex
	nextID  ASHandle
	spaces  map[ASHandle]map[uintptr]pageEntry
	kernel  map[uintptr]pageEntry // identically mapped into every address space
	current ASHandle
}

func NewMMU() *MMU {
	return &MMU{
		spaces: make(map[ASHandle]map[uintptr]pageEntry),
		kernel: make(map[uintptr]pageEntry),
	}
}

func (m *MMU) Init() {
	logrus.Debug("vmm: MMU ops table initialized")
}

// CreateAS allocates a fresh address space. Per spec.md's invariant,
// the kernel half is present from the start: new spaces inherit the
// kernel map established at init (MapKernel) by reference rather than
// copy, since kernel mappings are shared and immutable from a user
// address space's perspective.
func (m *MMU) CreateAS() (ASHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.spaces[id] = make(map[uintptr]pageEntry)
	return id, nil
}

func (m *MMU) DestroyAS(as ASHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.spaces, as)
}

// SwitchAS records the now-current address space. Switching preserves
// currently executing kernel code addresses because the kernel half
// is looked up separately from the per-space table, never evicted by
// a switch.
func (m *MMU) SwitchAS(as ASHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.spaces[as]; !ok {
		return errASNotFound
	}
	m.current = as
	return nil
}

func (m *MMU) Current() ASHandle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// MapKernel installs a mapping visible from every address space
// (present and future), used once at init to build the direct map.
func (m *MMU) MapKernel(v, p uintptr, flags Flags) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kernel[v] = pageEntry{frame: p, flags: flags}
}

func (m *MMU) Map(as ASHandle, v, p uintptr, flags Flags) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, ok := m.spaces[as]
	if !ok {
		return errASNotFound
	}
	tbl[v] = pageEntry{frame: p, flags: flags}
	return nil
}

// Unmap removes the mapping and invalidates the affected virtual page
// on the issuing CPU before returning, satisfying spec.md's TLB
// invariant (§8 property 5): a Query immediately after Unmap returns
// not-found. invalidate is a named seam for a real arch port to call
// invlpg; in the hosted core the Go map delete already makes the
// mapping unobservable, so it is a no-op that documents intent.
func (m *MMU) Unmap(as ASHandle, v uintptr) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, ok := m.spaces[as]
	if !ok {
		return errASNotFound
	}
	delete(tbl, v)
	invalidate(v)
	return nil
}

func invalidate(v uintptr) {}

func (m *MMU) Query(as ASHandle, v uintptr) (uintptr, bool) {
	p, _, ok := m.QueryFlags(as, v)
	return p, ok
}

func (m *MMU) QueryFlags(as ASHandle, v uintptr) (uintptr, Flags, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if tbl, ok := m.spaces[as]; ok {
		if e, ok := tbl[v]; ok {
			return e.frame, e.flags, true
		}
	}
	if e, ok := m.kernel[v]; ok {
		return e.frame, e.flags, true
	}
	return 0, 0, false
}

// NoMMU satisfies the same Ops contract for targets without paging
// hardware: every mapping must be the identity (v == p), and
// addresses are either present or absent with no flags to speak of
// beyond "valid".
type NoMMU struct {
	mu      sync.RWMutex
	valid   map[uintptr]bool
	current ASHandle
}

func NewNoMMU() *NoMMU { return &NoMMU{valid: make(map[uintptr]bool)} }

func (n *NoMMU) Init()                             {}
func (n *NoMMU) CreateAS() (ASHandle, error)       { return 1, nil }
func (n *NoMMU) DestroyAS(as ASHandle)             {}
func (n *NoMMU) SwitchAS(as ASHandle) error        { n.current = as; return nil }
func (n *NoMMU) Current() ASHandle                 { return n.current }

func (n *NoMMU) Map(as ASHandle, v, p uintptr, flags Flags) error {
	if v != p {
		return errNoMMUMismatch
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.valid[v] = true
	return nil
}

func (n *NoMMU) Unmap(as ASHandle, v uintptr) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.valid, v)
	return nil
}

func (n *NoMMU) Query(as ASHandle, v uintptr) (uintptr, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.valid[v] {
		return v, true
	}
	return 0, false
}

func (n *NoMMU) QueryFlags(as ASHandle, v uintptr) (uintptr, Flags, bool) {
	p, ok := n.Query(as, v)
	if !ok {
		return 0, 0, false
	}
	return p, Read | Write, true
}

// FaultKind classifies a page fault per spec.md §4.4.
type FaultKind int

const (
	FaultKillThread FaultKind = iota // (a) user out-of-range
	FaultExtended                    // (b) growable-heap policy extended and resumed
	FaultPanic                        // (c) kernel fault
)

// GrowPolicy attempts to extend a growable region to cover vaddr,
// returning true if it succeeded and the faulting instruction may be
// resumed (process.Process.GrowPolicy builds one for the heap).
type GrowPolicy func(vaddr uintptr) bool

// ClassifyFault implements the page-fault handler contract: it does
// not itself map anything (any mapping happens inside grow, e.g. the
// mapFn given to process.Process.GrowPolicy), it only decides which of the three spec.md
// outcomes applies.
func ClassifyFault(user bool, vaddr uintptr, grow GrowPolicy) FaultKind {
	if !user {
		return FaultPanic
	}
	if grow != nil && grow(vaddr) {
		return FaultExtended
	}
	return FaultKillThread
}
