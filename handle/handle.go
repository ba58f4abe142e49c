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

// Package handle implements the capability/handle table of spec.md
// §4.8, grounded on
// _examples/original_source/main/include/xnix/handle.h. A handle is a
// per-process small integer indexing a table entry that carries an
// object reference, a type tag, a rights bitmask and an optional
// name. The named-handle index (Find) is backed by
// github.com/hashicorp/go-immutable-radix, the same library the
// teacher (domain.HandlerServiceIface.HandlerDB) uses to index its
// handler-by-path tree — here it indexes handles by name so children
// can locate inherited handles by a stable string key.
package handle

import (
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/sirupsen/logrus"
	"github.com/xnix-project/xnixcore/errno"
	"github.com/xnix-project/xnixcore/idalloc"
)

// Type tags the kind of kernel object a handle refers to.
type Type int

const (
	TypeNone Type = iota
	TypeEndpoint
	TypeNotification
	TypePhysMemRegion
	TypeIOPortRange
	TypeProcess
	TypeThread
	TypeVMRegion
	TypeMutex
)

// Rights is a bitmask; higher-rights handles can be duplicated to
// lower-rights ones, never the reverse.
type Rights uint8

const (
	Read Rights = 1 << iota
	Write
	Grant
	Manage
)

// Handle is a per-process small non-negative integer. 0 is invalid.
type Handle uint32

const Invalid Handle = 0

// Object is the minimal lifecycle contract every referenced kernel
// object must satisfy so Transfer can bump/reverse its refcount and
// Free can drive it to zero.
type Object interface {
	Ref() int64
	Unref() int64
}

// Refcounted is an embeddable refcount, shared by every concrete
// kernel object type (ipc.Endpoint, ipc.Notification, process.Process,
// the syscalls package's user mutex).
type Refcounted struct {
	n int64
	mu sync.Mutex
}

func (r *Refcounted) Ref() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	return r.n
}

func (r *Refcounted) Unref() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n--
	return r.n
}

func (r *Refcounted) Count() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

type entry struct {
	typ    Type
	object Object
	rights Rights
	name   string
}

// Table is a per-process handle table. A capacity of 0 selects the
// growable variant (doubling up to ceiling); a non-zero capacity
// selects the static variant, matching spec.md §4.8 / §9's "fixed vs.
// growing resource" pattern shared with idalloc.
type Table struct {
	mu      sync.Mutex
	ids     *idalloc.Allocator
	entries map[Handle]*entry
	names   *iradix.Tree
}

// NewStaticTable creates a table with a fixed capacity.
func NewStaticTable(capacity uint32) *Table {
	return &Table{
		ids:     idalloc.NewStatic(capacity),
		entries: make(map[Handle]*entry),
		names:   iradix.New(),
	}
}

// NewGrowableTable creates a table that doubles from initial up to a
// hard ceiling.
func NewGrowableTable(initial, ceiling uint32) *Table {
	return &Table{
		ids:     idalloc.NewGrowable(initial, ceiling),
		entries: make(map[Handle]*entry),
		names:   iradix.New(),
	}
}

// Alloc installs a new handle for object at a free slot.
func (t *Table) Alloc(typ Type, obj Object, rights Rights, name string) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.ids.Alloc()
	for ok {
		// Skip ids AllocAt installed by hint; they stay marked used here
		// and are released by Free along with their entry.
		if _, taken := t.entries[Handle(id)]; !taken {
			break
		}
		id, ok = t.ids.Alloc()
	}
	if !ok {
		return Invalid, errno.Wrap(errno.EMFILE, "handle: table full")
	}
	h := Handle(id)
	t.entries[h] = &entry{typ: typ, object: obj, rights: rights, name: name}
	if name != "" {
		t.names, _, _ = t.names.Insert([]byte(name), h)
	}
	return h, nil
}

// AllocAt attempts to install the handle at the caller-requested slot
// (cross-process transfer hint). Fails if the slot is already used.
func (t *Table) AllocAt(typ Type, obj Object, rights Rights, name string, hint Handle) (Handle, error) {
	if hint == Invalid {
		return Invalid, errno.Wrap(errno.EINVAL, "handle: invalid hint")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[hint]; exists {
		return Invalid, errno.Wrap(errno.EEXIST, "handle: hint slot in use")
	}
	if t.ids.IsUsed(uint32(hint)) {
		return Invalid, errno.Wrap(errno.EEXIST, "handle: hint slot in use")
	}
	// Mark the specific id used in the underlying allocator by
	// allocating until we land on it is infeasible for a bitmap
	// allocator; instead the table tracks hinted ids directly and
	// keeps the allocator's cursor-based Alloc for the common path.
	// A hinted slot beyond the allocator's current capacity is
	// rejected rather than silently growing past the caller's intent.
	if uint32(hint) >= t.ids.Capacity() {
		return Invalid, errno.Wrap(errno.EINVAL, "handle: hint out of range")
	}
	t.entries[hint] = &entry{typ: typ, object: obj, rights: rights, name: name}
	if name != "" {
		t.names, _, _ = t.names.Insert([]byte(name), hint)
	}
	return hint, nil
}

// Free clears a handle table entry. Per SPEC_FULL.md §5 (Open
// Question), a double free is stricter than the reference's silent
// no-op: it returns EINVAL so the refcount invariant (spec.md §8
// property 1) is directly testable.
func (t *Table) Free(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[h]
	if !ok {
		return errno.Wrap(errno.EINVAL, "handle: double free or invalid handle %d", h)
	}
	delete(t.entries, h)
	t.ids.Free(uint32(h))
	if e.name != "" {
		t.names, _, _ = t.names.Delete([]byte(e.name))
	}
	return nil
}

// Lookup validates type and rights and returns the referenced object.
// Type must match exactly (unless expectedType is TypeNone); all bits
// of requiredRights must be present. A failing check touches nothing.
func (t *Table) Lookup(h Handle, expectedType Type, requiredRights Rights) (Object, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[h]
	if !ok {
		return nil, false
	}
	if expectedType != TypeNone && e.typ != expectedType {
		return nil, false
	}
	if e.rights&requiredRights != requiredRights {
		return nil, false
	}
	return e.object, true
}

// Find resolves a handle by its stable printable name.
func (t *Table) Find(name string) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.names.Get([]byte(name))
	if !ok {
		return Invalid, false
	}
	return v.(Handle), true
}

// Duplicate creates a second handle to the same object with rights
// that must be a subset of the original (spec.md §8 property 2).
func (t *Table) Duplicate(h Handle, newRights Rights) (Handle, error) {
	t.mu.Lock()
	e, ok := t.entries[h]
	if !ok {
		t.mu.Unlock()
		return Invalid, errno.Wrap(errno.EINVAL, "handle: invalid handle %d", h)
	}
	if newRights&^e.rights != 0 {
		t.mu.Unlock()
		return Invalid, errno.Wrap(errno.EPERM, "handle: rights escalation on duplicate")
	}
	typ, obj, name := e.typ, e.object, e.name
	t.mu.Unlock()

	obj.Ref()
	nh, err := t.Alloc(typ, obj, e.rights&newRights, name)
	if err != nil {
		obj.Unref()
		return Invalid, err
	}
	return nh, nil
}

// Transfer is the sole mechanism for passing a kernel-object reference
// across a process boundary: it bumps the object's refcount, installs
// it in dst (at hint if given, else the first free slot), and reverses
// the refcount bump if allocation fails. Per SPEC_FULL.md §5 this
// preserves the source's rights rather than downgrading them.
func (src *Table) Transfer(srcH Handle, dst *Table, name string, hint Handle) (Handle, error) {
	src.mu.Lock()
	e, ok := src.entries[srcH]
	if !ok {
		src.mu.Unlock()
		return Invalid, errno.Wrap(errno.EINVAL, "handle: invalid source handle %d", srcH)
	}
	typ, obj, rights := e.typ, e.object, e.rights
	if name == "" {
		name = e.name
	}
	src.mu.Unlock()

	obj.Ref()

	var dstH Handle
	var err error
	if hint != Invalid {
		dstH, err = dst.AllocAt(typ, obj, rights, name, hint)
	} else {
		dstH, err = dst.Alloc(typ, obj, rights, name)
	}
	if err != nil {
		obj.Unref()
		logrus.WithError(err).Debug("handle: transfer failed, refcount reversed")
		return Invalid, err
	}
	return dstH, nil
}

// Len reports the number of live entries (diagnostics).
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Destroy drops every live entry, unreferencing each object once
// (spec.md §4.12: "all handles are freed, driving object refcounts").
// The table must not be used afterward.
func (t *Table) Destroy() {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[Handle]*entry)
	t.names = iradix.New()
	t.mu.Unlock()

	for _, e := range entries {
		e.object.Unref()
	}
}
