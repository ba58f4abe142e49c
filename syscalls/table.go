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

// Package syscalls implements the numbered syscall dispatch table of
// spec.md §4.13, grounded on
// _examples/original_source/main/include/xnix/abi/syscall.h (the
// numbers below reuse that file's assignments where it defines one)
// and main/kernel/sys/syscall.c for the dispatch-loop shape.
package syscalls

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/xnix-project/xnixcore/arch"
	"github.com/xnix-project/xnixcore/errno"
	"github.com/xnix-project/xnixcore/process"
	"github.com/xnix-project/xnixcore/sched"
)

// maxSyscalls is spec.md's "dense numbered table (size ≈ 1024)".
const maxSyscalls = 1024

// Handler is one syscall entry point. p is nil for a dispatch from a
// kernel thread (no owning process); most handlers treat that as
// EPERM, since nearly every syscall operates on process-owned state.
// th is the calling thread, needed by the thread_self/yield/exit family.
type Handler func(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) error

type entry struct {
	name    string
	argc    int
	handler Handler
}

// Table is the dense dispatch table. An unregistered number is left
// at its zero value and Dispatch reports ENOSYS for it.
type Table struct {
	entries [maxSyscalls]entry
}

func NewTable() *Table { return &Table{} }

// Register installs handler at num. Panics on an out-of-range number
// since that is a wiring bug caught at init time, never at runtime.
func (t *Table) Register(num uint32, name string, argc int, handler Handler) {
	if int(num) >= len(t.entries) {
		panic("syscalls: number out of range")
	}
	t.entries[num] = entry{name: name, argc: argc, handler: handler}
}

// Dispatch extracts (number, args[0..5]) from f, invokes the
// registered handler, and writes the int32 return value back into
// f.Ret: 0 or a positive count on success, the negated Errno on
// failure (spec.md §6: "Errors are negative small integers").
func (t *Table) Dispatch(k *Kernel, p *process.Process, th *sched.Thread, f *arch.Frame) {
	if int(f.Num) >= len(t.entries) || t.entries[f.Num].handler == nil {
		f.Ret = -int32(errno.ENOSYS)
		return
	}
	e := t.entries[f.Num]
	if err := e.handler(k, p, th, f); err != nil {
		f.Ret = -int32(toErrno(err))
		logrus.WithFields(logrus.Fields{"syscall": e.name, "num": f.Num}).WithError(err).Debug("syscalls: handler failed")
		return
	}
}

// toErrno recovers the Errno an errno.Wrap-produced error carries, or
// falls back to EIO for a handler error that didn't originate from
// the errno vocabulary.
func toErrno(err error) errno.Errno {
	var e errno.Errno
	if errors.As(err, &e) {
		return e
	}
	return errno.EIO
}
