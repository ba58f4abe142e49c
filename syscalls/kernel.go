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
	"sync"

	"github.com/xnix-project/xnixcore/ipc"
	"github.com/xnix-project/xnixcore/irq"
	"github.com/xnix-project/xnixcore/kmsg"
	"github.com/xnix-project/xnixcore/perm"
	"github.com/xnix-project/xnixcore/physmem"
	"github.com/xnix-project/xnixcore/process"
	"github.com/xnix-project/xnixcore/sched"
	"github.com/xnix-project/xnixcore/vmm"
)

// Kernel bundles every subsystem a syscall handler may touch. It is
// the handler-visible half of the boot-assembled kernel instance
// (package boot constructs one and installs its syscalls on a Table).
type Kernel struct {
	Sched    *sched.Scheduler
	Procs    *process.Manager
	VMM      vmm.Ops
	Phys     *physmem.Allocator
	Registry *perm.Registry
	Profiles *perm.ProfileSet
	IRQ      *irq.UserIRQ
	Kmsg     *kmsg.Ring

	ioPorts [65536]uint32

	mu          sync.Mutex
	pendingCall uint64
	pendingMsgs map[uint64]ipc.Message
}

func NewKernel(s *sched.Scheduler, procs *process.Manager, vmmOps vmm.Ops, phys *physmem.Allocator, reg *perm.Registry, profiles *perm.ProfileSet, userIRQ *irq.UserIRQ, log *kmsg.Ring) *Kernel {
	RegisterPermissionNodes(reg)
	return &Kernel{
		Sched:       s,
		Procs:       procs,
		VMM:         vmmOps,
		Phys:        phys,
		Registry:    reg,
		Profiles:    profiles,
		IRQ:         userIRQ,
		Kmsg:        log,
		pendingMsgs: make(map[uint64]ipc.Message),
	}
}

// stashCall retains a received Message that carries a reply-to
// endpoint, keyed by a synthetic id the recv handler hands back to
// user space so a later SYS_IPC_REPLY can retrieve it. Needed because
// the ABI can only carry a Message's regs across a syscall boundary,
// not its unexported replyTo endpoint.
func (k *Kernel) stashCall(msg ipc.Message) uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pendingCall++
	id := k.pendingCall
	k.pendingMsgs[id] = msg
	return id
}

func (k *Kernel) takeCall(id uint64) (ipc.Message, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	msg, ok := k.pendingMsgs[id]
	delete(k.pendingMsgs, id)
	return msg, ok
}
