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

// Package process implements the process control block and lifecycle
// of spec.md §4.12, grounded on the teacher's process.processService
// factory / process struct shape
// (_examples/nestybox-sysbox-fs/process/process.go) generalized from
// Linux uid/gid/capability fields to the xnix handle table, address
// space and permission state.
package process

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xnix-project/xnixcore/errno"
	"github.com/xnix-project/xnixcore/handle"
	"github.com/xnix-project/xnixcore/idalloc"
	"github.com/xnix-project/xnixcore/perm"
	"github.com/xnix-project/xnixcore/sched"
	"github.com/xnix-project/xnixcore/vmm"
)

// State is a process's lifecycle state.
type State int

const (
	Running State = iota
	Zombie
)

// InheritedHandle names one handle the parent hands to a child at
// spawn time, with an optional destination slot hint.
type InheritedHandle struct {
	Src  handle.Handle
	Name string
	Hint handle.Handle
}

// Process is the PCB of spec.md §4.12: an address space, a handle
// table, a permission state and the thread(s) executing in it.
type Process struct {
	handle.Refcounted

	mu       sync.Mutex
	pid      uint32
	name     string
	state    State
	exitCode int32

	// InstanceID is a SPEC_FULL.md §2 addition: a random identifier
	// that survives PID recycling, so log correlation does not alias
	// an old process's history onto a new one reusing the same PID.
	InstanceID uuid.UUID

	as      vmm.ASHandle
	vmmOps  vmm.Ops
	Handles *handle.Table
	Perm    *perm.State

	heapBase  uintptr
	heapBrk   uintptr
	heapLimit uintptr

	threads  []*sched.Thread
	parent   *Process
	children []*Process
}

func (p *Process) PID() uint32                { return p.pid }
func (p *Process) Name() string               { return p.name }
func (p *Process) AddressSpace() vmm.ASHandle { return p.as }
func (p *Process) Parent() *Process           { return p.parent }

func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Process) ExitCode() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// SetExitCode records the code passed to exit(), read back later by a
// parent's wait/reap path via ExitCode.
func (p *Process) SetExitCode(code int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exitCode = code
}

// Manager owns PID allocation, the vmm ops table backing every
// process's address space, and the live process set. It is the
// process-level analogue of the teacher's processService.
type Manager struct {
	mu        sync.Mutex
	pids      *idalloc.Allocator
	vmmOps    vmm.Ops
	registry  *perm.Registry
	processes map[uint32]*Process
}

func NewManager(vmmOps vmm.Ops, registry *perm.Registry, maxPIDs uint32) *Manager {
	return &Manager{
		pids:      idalloc.NewStatic(maxPIDs),
		vmmOps:    vmmOps,
		registry:  registry,
		processes: make(map[uint32]*Process),
	}
}

// Create implements spec.md's create(name): allocates the PCB, a
// growable handle table, a fresh address space, and attaches profile
// as the initial permission state.
func (m *Manager) Create(name string, profile *perm.Profile) (*Process, error) {
	m.mu.Lock()
	id, ok := m.pids.Alloc()
	if !ok {
		m.mu.Unlock()
		return nil, errno.Wrap(errno.EAGAIN, "process: pid table exhausted")
	}
	m.mu.Unlock()

	as, err := m.vmmOps.CreateAS()
	if err != nil {
		m.mu.Lock()
		m.pids.Free(id)
		m.mu.Unlock()
		return nil, err
	}

	p := &Process{
		pid:        id,
		name:       name,
		InstanceID: uuid.New(),
		as:         as,
		vmmOps:     m.vmmOps,
		Handles:    handle.NewGrowableTable(16, 4096),
		Perm:       perm.NewState(m.registry, profile),
		heapBase:   0,
		heapBrk:    0,
		heapLimit:  0,
	}
	p.Ref()

	m.mu.Lock()
	m.processes[id] = p
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{"pid": id, "name": name, "instance": p.InstanceID}).Debug("process: created")
	return p, nil
}

// Spawn implements spec.md's spawn: a fresh child process inheriting a
// caller-specified handle list from parent, with the child's
// permission profile enforced as a subset of the parent's (§4.9) and
// the initial thread created via entry.
func (m *Manager) Spawn(s *sched.Scheduler, parent *Process, name string, profile *perm.Profile, inherited []InheritedHandle, entry func()) (*Process, error) {
	child, err := m.Create(name, profile)
	if err != nil {
		return nil, err
	}

	if !perm.Subset(parent.Perm, child.Perm) {
		m.Destroy(child)
		return nil, errno.Wrap(errno.EPERM, "process: child profile exceeds parent permissions")
	}

	for _, ih := range inherited {
		if _, err := parent.Handles.Transfer(ih.Src, child.Handles, ih.Name, ih.Hint); err != nil {
			m.Destroy(child)
			return nil, err
		}
	}

	th, err := s.Spawn(name, entry)
	if err != nil {
		m.Destroy(child)
		return nil, err
	}
	th.Owner = child

	child.mu.Lock()
	child.threads = append(child.threads, th)
	child.parent = parent
	child.mu.Unlock()

	// The parent's children list is itself a reference: the child's own
	// exit (one Destroy call) only demotes it to Zombie, awaiting Reap
	// to drop the parent's hold and actually free it.
	child.Ref()

	parent.mu.Lock()
	parent.children = append(parent.children, child)
	parent.mu.Unlock()

	return child, nil
}

// AddThread records th as one of p's threads. Manager.Spawn does the
// equivalent inline for a process's first thread; this is the path a
// same-process thread_create takes for every thread after the first.
func (p *Process) AddThread(th *sched.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.threads = append(p.threads, th)
}

// Destroy decrements the refcount; at zero every handle is freed
// (driving object refcounts), the address space is torn down, the
// permission state is dropped and the PID returns to the allocator.
// While references remain (count above zero) the process lingers as a
// Zombie until a parent reaps it or the last reference disappears.
func (m *Manager) Destroy(p *Process) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyLocked(p)
}

func (m *Manager) destroyLocked(p *Process) {
	if p.Unref() > 0 {
		p.mu.Lock()
		p.state = Zombie
		p.mu.Unlock()
		return
	}

	p.Handles.Destroy()
	m.vmmOps.DestroyAS(p.as)
	delete(m.processes, p.pid)
	m.pids.Free(p.pid)
}

// Reap drops a parent's reference to an already-zombied child,
// finishing the destroy Unref started when the child's own last
// reference went away.
func (m *Manager) Reap(parent, child *Process) error {
	parent.mu.Lock()
	idx := -1
	for i, c := range parent.children {
		if c == child {
			idx = i
			break
		}
	}
	if idx >= 0 {
		parent.children = append(parent.children[:idx], parent.children[idx+1:]...)
	}
	parent.mu.Unlock()

	if idx < 0 {
		return errno.Wrap(errno.EINVAL, "process: %d is not a child of %d", child.pid, parent.pid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyLocked(child)
	return nil
}

// ByPID looks up a live process.
func (m *Manager) ByPID(pid uint32) (*Process, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.processes[pid]
	return p, ok
}

// Current derives the calling thread's owning process, per spec.md
// §4.12 ("derived from thread_current()->owner; a null owner means a
// kernel thread"). Returns nil, false for kernel threads.
func Current(t *sched.Thread) (*Process, bool) {
	if t == nil || t.Owner == nil {
		return nil, false
	}
	p, ok := t.Owner.(*Process)
	return p, ok
}

// Sbrk grows or shrinks the heap break by delta bytes, calling mapFn
// with the new break when growing; returns the new break or an error
// if it would cross heapLimit or mapFn fails.
func (p *Process) Sbrk(delta int, mapFn func(v uintptr) error) (uintptr, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	newBrk := p.heapBrk + uintptr(delta)
	if delta > 0 && p.heapLimit != 0 && newBrk > p.heapLimit {
		return p.heapBrk, errno.Wrap(errno.ENOMEM, "process: heap limit exceeded")
	}
	if delta > 0 && mapFn != nil {
		if err := mapFn(newBrk); err != nil {
			return p.heapBrk, err
		}
	}
	p.heapBrk = newBrk
	return p.heapBrk, nil
}

// InitHeap establishes the growable heap region's bounds; called once
// after image load places the initial break at base.
func (p *Process) InitHeap(base, limit uintptr) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.heapBase = base
	p.heapBrk = base
	p.heapLimit = limit
}

func (p *Process) GrowPolicy(mapFn func(v uintptr) error) vmm.GrowPolicy {
	return func(vaddr uintptr) bool {
		p.mu.Lock()
		withinHeap := vaddr >= p.heapBase && (p.heapLimit == 0 || vaddr < p.heapLimit)
		p.mu.Unlock()
		if !withinHeap {
			return false
		}
		if mapFn != nil {
			return mapFn(vaddr) == nil
		}
		return true
	}
}
