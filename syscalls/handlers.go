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
	"bytes"
	"encoding/binary"

	"github.com/xnix-project/xnixcore/arch"
	"github.com/xnix-project/xnixcore/errno"
	"github.com/xnix-project/xnixcore/handle"
	"github.com/xnix-project/xnixcore/ipc"
	"github.com/xnix-project/xnixcore/process"
	"github.com/xnix-project/xnixcore/sched"
	"github.com/xnix-project/xnixcore/vmm"
)

// Syscall numbers. 1-99 reuse
// _examples/original_source/main/include/xnix/abi/syscall.h's
// assignments; everything that header leaves undefined (handle,
// permission, notification, irq, kmsg, debug) takes the next free
// numbers in the same block, per that header's own comment that
// numbers "can only be added to, never changed".
const (
	SysExit               = 2
	SysEndpointCreate     = 3
	SysIPCSend            = 4
	SysIPCRecv            = 5
	SysIPCCall            = 6
	SysIPCReply           = 7
	SysIOPortOutb         = 8
	SysIOPortInb          = 9
	SysSleep              = 10
	SysSpawn              = 11
	// SysExec has no original_source assignment (SYS_SPAWN is that
	// header's one process-creation primitive); 12 and 13 are already
	// taken by SYS_MODULE_COUNT/SYS_WRITE, neither implemented here, so
	// exec takes the next free number in the same 1-99 block instead.
	SysExec               = 27
	SysHandleFind         = 14
	SysHandleClose        = 15
	SysHandleDuplicate    = 16
	SysHandleGrant        = 17
	SysPermCheck          = 18
	SysNotificationCreate = 19
	SysNotificationWait   = 20
	SysIRQBind            = 21
	SysIRQUnbind          = 22
	SysIRQRead            = 23
	SysKmsgRead           = 24
	SysDebugWrite         = 25
	SysSbrk               = 26

	// 200-299 is original_source's unpopulated "memory management"
	// range; mmap_phys/munmap/physmem_info take the first three slots.
	SysMmapPhys    = 200
	SysMunmap      = 201
	SysPhysmemInfo = 202

	SysThreadCreate = 300
	SysThreadExit   = 301
	SysThreadJoin   = 302
	SysThreadSelf   = 303
	SysThreadYield  = 304
	SysThreadDetach = 305

	SysMutexCreate  = 310
	SysMutexDestroy = 311
	SysMutexLock    = 312
	SysMutexUnlock  = 313
)

// RegisterAll installs every handler defined in this package on t.
func RegisterAll(t *Table) {
	t.Register(SysExit, "exit", 1, sysExit)
	t.Register(SysEndpointCreate, "endpoint_create", 0, sysEndpointCreate)
	t.Register(SysIPCSend, "ipc_send", 4, sysIPCSend)
	t.Register(SysIPCRecv, "ipc_recv", 4, sysIPCRecv)
	t.Register(SysIPCCall, "ipc_call", 4, sysIPCCall)
	t.Register(SysIPCReply, "ipc_reply", 2, sysIPCReply)
	t.Register(SysIOPortOutb, "ioport_outb", 3, sysIOPortOutb)
	t.Register(SysIOPortInb, "ioport_inb", 2, sysIOPortInb)
	t.Register(SysSleep, "sleep", 1, sysSleep)
	t.Register(SysSpawn, "spawn", 1, sysSpawn)
	t.Register(SysExec, "exec", 1, sysSpawn)
	t.Register(SysHandleFind, "handle_find", 2, sysHandleFind)
	t.Register(SysHandleClose, "handle_close", 1, sysHandleClose)
	t.Register(SysHandleDuplicate, "handle_duplicate", 2, sysHandleDuplicate)
	t.Register(SysHandleGrant, "handle_grant", 2, sysHandleGrant)
	t.Register(SysPermCheck, "perm_check", 2, sysPermCheck)
	t.Register(SysNotificationCreate, "notification_create", 0, sysNotificationCreate)
	t.Register(SysNotificationWait, "notification_wait", 1, sysNotificationWait)
	t.Register(SysIRQBind, "irq_bind", 3, sysIRQBind)
	t.Register(SysIRQUnbind, "irq_unbind", 1, sysIRQUnbind)
	t.Register(SysIRQRead, "irq_read", 4, sysIRQRead)
	t.Register(SysKmsgRead, "kmsg_read", 3, sysKmsgRead)
	t.Register(SysDebugWrite, "debug_write", 2, sysDebugWrite)
	t.Register(SysSbrk, "sbrk", 1, sysSbrk)
	t.Register(SysMmapPhys, "mmap_phys", 4, sysMmapPhys)
	t.Register(SysMunmap, "munmap", 2, sysMunmap)
	t.Register(SysPhysmemInfo, "physmem_info", 1, sysPhysmemInfo)

	t.Register(SysThreadSelf, "thread_self", 0, sysThreadSelf)
	t.Register(SysThreadYield, "thread_yield", 0, sysThreadYield)
	t.Register(SysThreadExit, "thread_exit", 1, sysThreadExit)
	t.Register(SysThreadCreate, "thread_create", 3, sysThreadCreate)
	t.Register(SysThreadJoin, "thread_join", 2, sysThreadJoin)
	t.Register(SysThreadDetach, "thread_detach", 1, sysThreadDetach)

	t.Register(SysMutexCreate, "mutex_create", 0, sysMutexCreate)
	t.Register(SysMutexDestroy, "mutex_destroy", 1, sysMutexDestroy)
	t.Register(SysMutexLock, "mutex_lock", 1, sysMutexLock)
	t.Register(SysMutexUnlock, "mutex_unlock", 1, sysMutexUnlock)
}

func requireProcess(p *process.Process) error {
	if p == nil {
		return errno.Wrap(errno.EPERM, "syscalls: kernel thread may not issue this call")
	}
	return nil
}

func requirePerm(p *process.Process, node string) error {
	if !p.Perm.CheckNode(node) {
		return errno.Wrap(errno.EACCES, "syscalls: %s not granted", node)
	}
	return nil
}

// --- Process / thread lifecycle ---

func sysExit(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	p.SetExitCode(int32(f.Arg(0)))
	k.Sched.DestroyCurrent(th)
	k.Procs.Destroy(p)
	return nil
}

func sysThreadSelf(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	f.Ret = int32(th.TID)
	return nil
}

func sysThreadYield(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	th.Yield()
	return nil
}

func sysThreadExit(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	k.Sched.DestroyCurrent(th)
	return nil
}

// spawnArgsSize is the user-memory layout SYS_SPAWN/SYS_EXEC's ebx
// points at: two fixed NUL-terminated fields, name then profile.
// original_source defines one generic "ebx=spawn_args*" primitive and
// no separate exec number; spec.md's "spawn, exec" pair share this
// mechanism here, exec simply naming a profile that may differ from
// the caller's own (spec.md §8 scenario 6's subset-refusal case).
const spawnArgsSize = 64

func readSpawnArgs(k *Kernel, p *process.Process, addr uintptr) (name, profile string, err error) {
	data, err := copyFromUser(k.VMM, k.Phys, p, addr, spawnArgsSize)
	if err != nil {
		return "", "", err
	}
	return cstr(data[0:32]), cstr(data[32:64]), nil
}

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// sysSpawn backs both SysSpawn and SysExec: ebx=*spawnArgs. The child's
// profile must already be a subset of the caller's (process.Manager.Spawn
// enforces this and destroys the child on refusal); its initial thread
// runs a no-op entry, since this hosted core has no on-disk executable
// or instruction stream to load (see arch.Trampoline's doc comment).
func sysSpawn(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.proc.spawn"); err != nil {
		return err
	}
	name, profileName, err := readSpawnArgs(k, p, f.Arg(0))
	if err != nil {
		return err
	}
	profile, ok := k.Profiles.Find(profileName)
	if !ok {
		return errno.Wrap(errno.ENOENT, "syscalls: no such profile %q", profileName)
	}
	child, err := k.Procs.Spawn(k.Sched, p, name, profile, nil, func() {})
	if err != nil {
		return err
	}
	f.Ret = int32(child.PID())
	return nil
}

// sysThreadCreate: ebx=entry, ecx=arg, edx=stack_top. entry and
// stack_top name a user code address and stack this hosted core
// cannot execute (arch.Trampoline bodies are Go closures, not a
// decoded instruction stream); the new thread's body is a no-op, which
// still exercises the TID allocation, owner and scheduler bookkeeping
// a loaded entry point would go through. arg and stack_top are
// otherwise unused.
func sysThreadCreate(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.thread.create"); err != nil {
		return err
	}
	nt, err := k.Sched.Spawn(p.Name()+"-thread", func() {})
	if err != nil {
		return err
	}
	nt.Owner = p
	p.AddThread(nt)
	f.Ret = int32(nt.TID)
	return nil
}

// sysThreadJoin: ebx=tid, ecx=retval_ptr (0 to discard). Blocks until
// tid's thread has exited, writes its exit code to retval_ptr if given,
// and reaps it.
//
// TODO: ReapZombies drains every zombie thread process-wide, not just
// tid's; harmless today since nothing else yet depends on a sibling
// zombie surviving a join it wasn't the target of.
func sysThreadJoin(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	tid := uint64(f.Arg(0))
	target, ok := k.Sched.ThreadByTID(tid)
	if !ok {
		return errno.Wrap(errno.ENOENT, "syscalls: no such thread %d", tid)
	}
	for target.State() != sched.Zombie {
		k.Sched.Block(th, target)
	}
	code := target.ExitCode()
	k.Sched.ReapZombies()
	if retp := f.Arg(1); retp != 0 {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(code))
		if err := writeBack(k.VMM, k.Phys, p, retp, buf); err != nil {
			return err
		}
	}
	return nil
}

// sysThreadDetach: ebx=tid. This scheduler has no background reaper,
// so detach's only observable effect is reaping tid now if it has
// already exited; a still-running detached thread is simply never
// joined, matching pthread_detach's "resources released automatically
// on exit" without needing a join call.
func sysThreadDetach(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	tid := uint64(f.Arg(0))
	target, ok := k.Sched.ThreadByTID(tid)
	if !ok {
		return errno.Wrap(errno.ENOENT, "syscalls: no such thread %d", tid)
	}
	if target.State() == sched.Zombie {
		k.Sched.ReapZombies()
	}
	return nil
}

// --- Memory ---

func sysSbrk(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.vm.sbrk"); err != nil {
		return err
	}
	brk, err := p.Sbrk(int(int32(f.Arg(0))), func(v uintptr) error {
		return k.VMM.Map(p.AddressSpace(), v, v, vmm.Read|vmm.Write|vmm.User)
	})
	if err != nil {
		return err
	}
	f.Ret = int32(brk)
	return nil
}

// sysMmapPhys: ebx=phys addr, ecx=virt addr, edx=length bytes,
// esi=flags (vmm.Flags bitmask; User is implied and always added).
// Both addresses are rounded down to a page boundary and length up to
// a whole number of pages. Typical caller: a driver profile mapping an
// MMIO region it already knows the physical address of.
func sysMmapPhys(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.vm.mmap_phys"); err != nil {
		return err
	}
	length := f.Arg(2)
	if length == 0 {
		return errno.Wrap(errno.EINVAL, "syscalls: mmap_phys length must be nonzero")
	}
	phys := f.Arg(0) - f.Arg(0)%vmm.PageSize
	virt := f.Arg(1) - f.Arg(1)%vmm.PageSize
	flags := vmm.Flags(f.Arg(3)) | vmm.User
	pages := (length + vmm.PageSize - 1) / vmm.PageSize
	for i := uintptr(0); i < pages; i++ {
		off := i * vmm.PageSize
		if err := k.VMM.Map(p.AddressSpace(), virt+off, phys+off, flags); err != nil {
			return err
		}
	}
	f.Ret = int32(virt)
	return nil
}

// sysMunmap: ebx=virt addr, ecx=length bytes.
func sysMunmap(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.vm.munmap"); err != nil {
		return err
	}
	length := f.Arg(1)
	if length == 0 {
		return errno.Wrap(errno.EINVAL, "syscalls: munmap length must be nonzero")
	}
	virt := f.Arg(0) - f.Arg(0)%vmm.PageSize
	pages := (length + vmm.PageSize - 1) / vmm.PageSize
	for i := uintptr(0); i < pages; i++ {
		if err := k.VMM.Unmap(p.AddressSpace(), virt+i*vmm.PageSize); err != nil {
			return err
		}
	}
	return nil
}

// sysPhysmemInfo: ebx=out ptr to {total_pages u32, free_pages u32}.
func sysPhysmemInfo(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.vm.physmem_info"); err != nil {
		return err
	}
	total, free := k.Phys.Stats()
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], total)
	binary.LittleEndian.PutUint32(buf[4:8], free)
	return writeBack(k.VMM, k.Phys, p, f.Arg(0), buf)
}

// --- IPC ---

func sysEndpointCreate(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.ipc.endpoint_create"); err != nil {
		return err
	}
	ep := ipc.NewEndpoint(nil)
	h, err := p.Handles.Alloc(handle.TypeEndpoint, ep, handle.Read|handle.Write, "")
	if err != nil {
		return err
	}
	f.Ret = int32(h)
	return nil
}

func lookupEndpoint(p *process.Process, h handle.Handle, rights handle.Rights) (*ipc.Endpoint, error) {
	obj, ok := p.Handles.Lookup(h, handle.TypeEndpoint, rights)
	if !ok {
		return nil, errno.Wrap(errno.EINVAL, "syscalls: invalid endpoint handle %d", h)
	}
	return obj.(*ipc.Endpoint), nil
}

func readRegsFromUser(k *Kernel, p *process.Process, addr uintptr) ([8]uint32, error) {
	var regs [8]uint32
	data, err := copyFromUser(k.VMM, k.Phys, p, addr, 32)
	if err != nil {
		return regs, err
	}
	for i := 0; i < 8; i++ {
		regs[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return regs, nil
}

func writeRegsToUser(k *Kernel, p *process.Process, addr uintptr, regs [8]uint32) error {
	buf := make([]byte, 32)
	for i, r := range regs {
		binary.LittleEndian.PutUint32(buf[i*4:], r)
	}
	return writeBack(k.VMM, k.Phys, p, addr, buf)
}

// sysIPCSend: ebx=endpoint handle, ecx=regs ptr (8 u32), edx=timeoutMs, esi=nonblock(0/1)
func sysIPCSend(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.ipc.send"); err != nil {
		return err
	}
	ep, err := lookupEndpoint(p, handle.Handle(f.Arg(0)), handle.Write)
	if err != nil {
		return err
	}
	regs, err := readRegsFromUser(k, p, f.Arg(1))
	if err != nil {
		return err
	}
	msg := ipc.NewMessage(p.Handles, regs, nil, nil)
	return ep.Send(msg, th.TID, f.Arg(3) != 0, uint32(f.Arg(2)))
}

// sysIPCRecv: ebx=endpoint handle, ecx=out regs ptr, edx=timeoutMs, esi=nonblock
// returns a positive pending-call id in Ret if the message expects a
// reply, 0 if it was a one-way message.
func sysIPCRecv(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.ipc.recv"); err != nil {
		return err
	}
	ep, err := lookupEndpoint(p, handle.Handle(f.Arg(0)), handle.Read)
	if err != nil {
		return err
	}
	msg, err := ep.Receive(f.Arg(3) != 0, uint32(f.Arg(2)))
	if err != nil {
		return err
	}
	if err := writeRegsToUser(k, p, f.Arg(1), msg.Regs); err != nil {
		return err
	}
	if msg.HasReplyTo() {
		f.Ret = int32(k.stashCall(msg))
	} else {
		f.Ret = 0
	}
	return nil
}

// sysIPCCall: ebx=endpoint handle, ecx=req regs ptr, edx=out regs ptr, esi=timeoutMs
func sysIPCCall(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.ipc.call"); err != nil {
		return err
	}
	ep, err := lookupEndpoint(p, handle.Handle(f.Arg(0)), handle.Read|handle.Write)
	if err != nil {
		return err
	}
	regs, err := readRegsFromUser(k, p, f.Arg(1))
	if err != nil {
		return err
	}
	req := ipc.NewMessage(p.Handles, regs, nil, nil)
	resp, err := ipc.Call(ep, req, th.TID, uint32(f.Arg(3)))
	if err != nil {
		return err
	}
	return writeRegsToUser(k, p, f.Arg(2), resp.Regs)
}

// sysIPCReply: ebx=pending-call id from a prior recv, ecx=resp regs ptr
func sysIPCReply(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.ipc.reply"); err != nil {
		return err
	}
	req, ok := k.takeCall(uint64(f.Arg(0)))
	if !ok {
		return errno.Wrap(errno.EINVAL, "syscalls: unknown pending call %d", f.Arg(0))
	}
	regs, err := readRegsFromUser(k, p, f.Arg(1))
	if err != nil {
		return err
	}
	resp := ipc.NewMessage(p.Handles, regs, nil, nil)
	return ipc.Reply(req, resp)
}

// --- Notification ---

func sysNotificationCreate(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.notification.create"); err != nil {
		return err
	}
	n := ipc.NewNotification()
	h, err := p.Handles.Alloc(handle.TypeNotification, n, handle.Read|handle.Write, "")
	if err != nil {
		return err
	}
	f.Ret = int32(h)
	return nil
}

func sysNotificationWait(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	obj, ok := p.Handles.Lookup(handle.Handle(f.Arg(0)), handle.TypeNotification, handle.Read)
	if !ok {
		return errno.Wrap(errno.EINVAL, "syscalls: invalid notification handle")
	}
	f.Ret = int32(obj.(*ipc.Notification).Wait())
	return nil
}

// --- Handle table ---

func sysHandleFind(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	name, err := copyFromUser(k.VMM, k.Phys, p, f.Arg(0), int(f.Arg(1)))
	if err != nil {
		return err
	}
	h, ok := p.Handles.Find(string(name))
	if !ok {
		return errno.Wrap(errno.ENOENT, "syscalls: no handle named %q", name)
	}
	f.Ret = int32(h)
	return nil
}

func sysHandleClose(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.handle.close"); err != nil {
		return err
	}
	return p.Handles.Free(handle.Handle(f.Arg(0)))
}

func sysHandleDuplicate(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.handle.duplicate"); err != nil {
		return err
	}
	nh, err := p.Handles.Duplicate(handle.Handle(f.Arg(0)), handle.Rights(f.Arg(1)))
	if err != nil {
		return err
	}
	f.Ret = int32(nh)
	return nil
}

// sysHandleGrant duplicates a handle into a child process's table
// (ebx=src handle, ecx=dst pid); the dst must be a child so the
// subset-at-spawn invariant already accounts for whatever it receives
// here being no more than the grantor itself holds.
func sysHandleGrant(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.handle.grant"); err != nil {
		return err
	}
	dst, ok := k.Procs.ByPID(uint32(f.Arg(1)))
	if !ok {
		return errno.Wrap(errno.ENOENT, "syscalls: no such process %d", f.Arg(1))
	}
	if dst.Parent() != p {
		return errno.Wrap(errno.EPERM, "syscalls: process %d is not a child of the caller", f.Arg(1))
	}
	nh, err := p.Handles.Transfer(handle.Handle(f.Arg(0)), dst.Handles, "", handle.Invalid)
	if err != nil {
		return err
	}
	f.Ret = int32(nh)
	return nil
}

// --- Permission ---

func sysPermCheck(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	name, err := copyFromUser(k.VMM, k.Phys, p, f.Arg(0), int(f.Arg(1)))
	if err != nil {
		return err
	}
	if p.Perm.CheckNode(string(name)) {
		f.Ret = 1
	} else {
		f.Ret = 0
	}
	return nil
}

// --- I/O ports ---

func sysIOPortOutb(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	port := int(f.Arg(1))
	if !p.Perm.CheckIOPort(port) {
		return errno.Wrap(errno.EACCES, "syscalls: port %d not granted", port)
	}
	k.ioPorts[port&0xFFFF] = uint32(f.Arg(2))
	return nil
}

func sysIOPortInb(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	port := int(f.Arg(1))
	if !p.Perm.CheckIOPort(port) {
		return errno.Wrap(errno.EACCES, "syscalls: port %d not granted", port)
	}
	f.Ret = int32(k.ioPorts[port&0xFFFF])
	return nil
}

// --- IRQ ---

func sysIRQBind(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.irq.bind"); err != nil {
		return err
	}
	obj, ok := p.Handles.Lookup(handle.Handle(f.Arg(1)), handle.TypeNotification, handle.Write)
	if !ok {
		return errno.Wrap(errno.EINVAL, "syscalls: invalid notification handle")
	}
	return k.IRQ.Bind(int(f.Arg(0)), obj.(*ipc.Notification), uint32(f.Arg(2)), 64)
}

func sysIRQUnbind(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.irq.unbind"); err != nil {
		return err
	}
	return k.IRQ.Unbind(int(f.Arg(0)))
}

// sysIRQRead: ebx=irq, ecx=out buf ptr, edx=buf len, esi=blocking(0/1)
func sysIRQRead(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if err := requirePerm(p, "xnix.irq.read"); err != nil {
		return err
	}
	buf := make([]byte, int(f.Arg(2)))
	n, err := k.IRQ.Read(int(f.Arg(0)), buf, f.Arg(3) != 0)
	if err != nil {
		return err
	}
	if err := writeBack(k.VMM, k.Phys, p, f.Arg(1), buf[:n]); err != nil {
		return err
	}
	f.Ret = int32(n)
	return nil
}

// --- Misc ---

func sysSleep(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	k.Sched.SleepTicks(th, uint64(f.Arg(0)))
	return nil
}

func sysKmsgRead(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	seq := uint32(f.Arg(0))
	buf := make([]byte, int(f.Arg(2)))
	n, err := k.Kmsg.Read(&seq, buf)
	if err != nil {
		return err
	}
	if err := writeBack(k.VMM, k.Phys, p, f.Arg(1), buf[:n]); err != nil {
		return err
	}
	f.Ret = int32(n)
	return nil
}

func sysDebugWrite(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	if !p.Perm.CheckNode("xnix.debug.console") {
		return errno.Wrap(errno.EACCES, "syscalls: xnix.debug.console not granted")
	}
	text, err := copyFromUser(k.VMM, k.Phys, p, f.Arg(0), int(f.Arg(1)))
	if err != nil {
		return err
	}
	k.Kmsg.LogRaw(0, 0, string(text))
	f.Ret = int32(len(text))
	return nil
}

// --- Sync (mutex) ---

func sysMutexCreate(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	m := &userMutex{}
	h, err := p.Handles.Alloc(handle.TypeMutex, m, handle.Read|handle.Write, "")
	if err != nil {
		return err
	}
	f.Ret = int32(h)
	return nil
}

func sysMutexDestroy(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	return p.Handles.Free(handle.Handle(f.Arg(0)))
}

func lookupMutex(p *process.Process, h handle.Handle) (*userMutex, error) {
	obj, ok := p.Handles.Lookup(h, handle.TypeMutex, handle.Read|handle.Write)
	if !ok {
		return nil, errno.Wrap(errno.EINVAL, "syscalls: invalid mutex handle %d", h)
	}
	return obj.(*userMutex), nil
}

func sysMutexLock(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	m, err := lookupMutex(p, handle.Handle(f.Arg(0)))
	if err != nil {
		return err
	}
	m.Lock(th.TID)
	return nil
}

func sysMutexUnlock(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error {
	if err := requireProcess(p); err != nil {
		return err
	}
	m, err := lookupMutex(p, handle.Handle(f.Arg(0)))
	if err != nil {
		return err
	}
	m.Unlock()
	return nil
}
