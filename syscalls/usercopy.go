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

package syscalls

import (
	"github.com/xnix-project/xnixcore/errno"
	"github.com/xnix-project/xnixcore/physmem"
	"github.com/xnix-project/xnixcore/process"
	"github.com/xnix-project/xnixcore/vmm"
)

// copyFromUser validates that every page of [addr, addr+size) is
// mapped with User|Read in p's address space and returns a copy of
// the underlying bytes. Per spec.md §4.13, user pointers are never
// dereferenced directly by a handler; this is the sole crossing point.
func copyFromUser(ops vmm.Ops, phys *physmem.Allocator, p *process.Process, addr uintptr, size int) ([]byte, error) {
	return copyUser(ops, phys, p, addr, size, vmm.Read)
}

// copyToUser is copyFromUser's write-direction counterpart: it checks
// that every page is mapped with User|Write and returns a copy of the
// current bytes. The slice does not alias the physical arena; writes
// reach user memory only through writeBack.
func copyToUser(ops vmm.Ops, phys *physmem.Allocator, p *process.Process, addr uintptr, size int) ([]byte, error) {
	return copyUser(ops, phys, p, addr, size, vmm.Write)
}

func copyUser(ops vmm.Ops, phys *physmem.Allocator, p *process.Process, addr uintptr, size int, need vmm.Flags) ([]byte, error) {
	if size < 0 {
		return nil, errno.Wrap(errno.EINVAL, "usercopy: negative size")
	}
	if size == 0 {
		return nil, nil
	}

	out := make([]byte, 0, size)
	start := addr - (addr % vmm.PageSize)
	for base := start; base < addr+uintptr(size); base += vmm.PageSize {
		phy, flags, ok := ops.QueryFlags(p.AddressSpace(), base)
		if !ok || flags&vmm.User == 0 || flags&need != need {
			return nil, errno.Wrap(errno.EFAULT, "usercopy: page at %#x not mapped with required rights", base)
		}

		pageBytes := phys.Bytes(phy, physmem.PageSize)
		lo := uintptr(0)
		if base < addr {
			lo = addr - base
		}
		hi := uintptr(vmm.PageSize)
		if end := addr + uintptr(size); base+vmm.PageSize > end {
			hi = end - base
		}
		out = append(out, pageBytes[lo:hi]...)
	}
	return out, nil
}

// writeBack copies data into the physical frames backing
// [addr, addr+len(data)) in p's address space, checking each page for
// User|Write itself and failing with EFAULT on the first that lacks it.
func writeBack(ops vmm.Ops, phys *physmem.Allocator, p *process.Process, addr uintptr, data []byte) error {
	start := addr - (addr % vmm.PageSize)
	written := 0
	for base := start; written < len(data); base += vmm.PageSize {
		phy, flags, ok := ops.QueryFlags(p.AddressSpace(), base)
		if !ok || flags&vmm.User == 0 || flags&vmm.Write == 0 {
			return errno.Wrap(errno.EFAULT, "usercopy: page at %#x not mapped writable", base)
		}
		pageBytes := phys.Bytes(phy, physmem.PageSize)
		lo := uintptr(0)
		if base < addr {
			lo = addr - base
		}
		n := copy(pageBytes[lo:], data[written:])
		written += n
	}
	return nil
}
