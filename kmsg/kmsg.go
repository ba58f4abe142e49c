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

// Package kmsg implements the kernel log ring of spec.md §4.14,
// grounded on _examples/original_source/main/include/xnix/kmsg.h and
// main/kernel/sys/sys_kmsg.c. A fixed-size circular buffer of entries
// each carrying a monotonically increasing sequence number, timestamp,
// level and facility; Read renders entries in the wire format of
// spec.md §6 ("<level>,<seq>,<timestamp>;text\n").
package kmsg

import (
	"fmt"

	"github.com/xnix-project/xnixcore/errno"
	"github.com/xnix-project/xnixcore/ksync"
)

// Facility mirrors kmsg.h's KMSG_* constants.
type Facility uint8

const (
	Kern Facility = iota
	Driver
	MM
	Sched
)

// Level mirrors a conventional syslog-style severity ordering.
type Level uint8

const (
	Emerg Level = iota
	Err
	Warn
	Info
	Debug
)

type entry struct {
	seq       uint32
	timestamp uint64
	level     Level
	facility  Facility
	text      string
}

// Ring is the kernel log buffer. Capacity is fixed at construction
// (spec.md's CFG_KMSG_BUF_SIZE); once full, the oldest entry is
// dropped to admit the newest, same as the physical reference's
// circular buffer.
type Ring struct {
	lock    ksync.Spinlock
	entries []entry
	head    int // index of the oldest live entry
	count   int
	nextSeq uint32
	nowFn   func() uint64
}

// New creates a ring with room for capacity entries. nowFn supplies
// the boot-tick timestamp (injected so callers control time rather
// than this package reading the wall clock, keeping the package
// deterministic for tests).
func New(capacity int, nowFn func() uint64) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	if nowFn == nil {
		nowFn = func() uint64 { return 0 }
	}
	return &Ring{entries: make([]entry, capacity), nowFn: nowFn}
}

// Log formats text and appends it, per kmsg_log.
func (r *Ring) Log(level Level, facility Facility, format string, args ...interface{}) {
	r.LogRaw(level, facility, fmt.Sprintf(format, args...))
}

// LogRaw appends a pre-formatted line, per kmsg_log_raw. Acquires the
// ring's lock with IRQ save/restore (SPEC_FULL.md §5 decision 4) since
// an IRQ handler may log directly.
func (r *Ring) LogRaw(level Level, facility Facility, text string) {
	flags := r.lock.LockIRQSave()
	defer r.lock.UnlockIRQRestore(flags)

	e := entry{
		seq:       r.nextSeq,
		timestamp: r.nowFn(),
		level:     level,
		facility:  facility,
		text:      text,
	}
	r.nextSeq++

	idx := (r.head + r.count) % len(r.entries)
	if r.count == len(r.entries) {
		r.head = (r.head + 1) % len(r.entries)
	} else {
		r.count++
	}
	r.entries[idx] = e
}

// Read renders the next entry at or after *seq into buf, advancing
// *seq past it. Returns the byte count, or (0, ENOENT) if no entry
// with seq >= *seq exists yet (spec.md's "-1: no more entries"),
// or (0, ERANGE) if buf is too small for the rendered line (spec.md's
// "-2: buffer too small").
func (r *Ring) Read(seq *uint32, buf []byte) (int, error) {
	flags := r.lock.LockIRQSave()
	defer r.lock.UnlockIRQRestore(flags)

	for i := 0; i < r.count; i++ {
		e := r.entries[(r.head+i)%len(r.entries)]
		if e.seq < *seq {
			continue
		}
		line := fmt.Sprintf("<%d>,%d,%d;%s\n", e.level, e.seq, e.timestamp, e.text)
		if len(line) > len(buf) {
			return 0, errno.Wrap(errno.ERANGE, "kmsg: buffer too small for entry %d", e.seq)
		}
		n := copy(buf, line)
		*seq = e.seq + 1
		return n, nil
	}
	return 0, errno.Wrap(errno.ENOENT, "kmsg: no entries at or after seq %d", *seq)
}

// Seq reports the sequence number the next LogRaw call will assign.
func (r *Ring) Seq() uint32 {
	flags := r.lock.LockIRQSave()
	defer r.lock.UnlockIRQRestore(flags)
	return r.nextSeq
}
