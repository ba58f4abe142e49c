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

import "github.com/xnix-project/xnixcore/perm"

// permNodes is the fixed set of concrete permission nodes every
// handler checks (spec.md §4.13: "permission checks are performed
// inside each handler, close to the operation they gate"). They must
// be registered before any perm.State resolves, since a node absent
// from the registry can never match a profile's wildcard rule.
var permNodes = []string{
	"xnix.ipc.endpoint_create",
	"xnix.ipc.send",
	"xnix.ipc.recv",
	"xnix.ipc.call",
	"xnix.ipc.reply",
	"xnix.handle.close",
	"xnix.handle.duplicate",
	"xnix.handle.grant",
	"xnix.vm.sbrk",
	"xnix.vm.mmap_phys",
	"xnix.vm.munmap",
	"xnix.vm.physmem_info",
	"xnix.irq.bind",
	"xnix.irq.unbind",
	"xnix.irq.read",
	"xnix.io.port.in",
	"xnix.io.port.out",
	"xnix.notification.create",
	"xnix.proc.spawn",
	"xnix.proc.exit",
	"xnix.thread.create",
	"xnix.debug.console",
}

// RegisterPermissionNodes installs every node syscall handlers check.
// Call once at boot, before any process's permission profile resolves.
func RegisterPermissionNodes(reg *perm.Registry) {
	for _, n := range permNodes {
		reg.Register(n)
	}
}
