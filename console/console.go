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

// Package console implements the early-console fan-out of spec.md
// §4.15, grounded on
// _examples/original_source/main/drivers/early_console.c (the ordered
// backend list, the hardware lock, emergency mode) merged with
// main/include/xnix/console.h (named backends, sync vs. async mode,
// color). SerialBackend and FramebufferBackend are the two concrete
// backends; Multiplexer is the fan-out the original calls
// early_console / console interchangeably before user space redirects
// output to the console server.
package console

import (
	"github.com/xnix-project/xnixcore/errno"
	"github.com/xnix-project/xnixcore/ksync"
)

// Color mirrors kcolor_t's 16-color palette plus the "leave it alone"
// default.
type Color int

const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGray
	DarkGray
	LightBlue
	LightGreen
	LightCyan
	LightRed
	Pink
	Yellow
	White
	Default Color = -1
)

// Mode distinguishes a backend that must be invoked with the output
// lock held (a direct hardware write) from one that merely drains a
// ring buffer on its own consumer goroutine.
type Mode int

const (
	Sync Mode = iota
	Async
)

// Backend is one fan-out target; Putc is its only output hook.
// Coloring and clearing are optional: a backend opts in by also
// implementing ColorBackend or ClearBackend, mirroring the C struct's
// optional function pointers, and Multiplexer skips a backend that
// does not.
type Backend interface {
	Name() string
	Mode() Mode
	Init() error
	Putc(c byte)
}

// ColorBackend is implemented by a backend that can set or reset its
// output color; Multiplexer type-asserts for it rather than requiring
// every Backend to carry unused color state.
type ColorBackend interface {
	SetColor(c Color)
	ResetColor()
}

// ClearBackend is implemented by a backend that can clear its screen.
type ClearBackend interface {
	Clear()
}

// Consumer is implemented by an Async backend with its own drain
// goroutine; Multiplexer.StartConsumers calls Start on each after the
// scheduler is up, matching console_start_consumers's requirement that
// it run only once threads can be created.
type Consumer interface {
	Start()
}

// Multiplexer fans kernel output out to every registered backend in
// registration order, single Spinlock serializing concurrent writers
// exactly as early_hw_lock does. In emergency mode Putc (and so Puts)
// bypasses that lock so a panic on one CPU is never blocked behind a
// stuck writer on another; SetColor, ResetColor and Clear still take
// the lock in every mode.
type Multiplexer struct {
	lock ksync.Spinlock

	backends []Backend
	byName   map[string]int

	active    bool
	emergency bool
}

// NewMultiplexer returns an empty, active fan-out.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{byName: make(map[string]int), active: true}
}

// Register appends be to the fan-out list. Duplicate names are
// rejected; use Replace to swap an existing backend.
func (m *Multiplexer) Register(be Backend) error {
	if _, exists := m.byName[be.Name()]; exists {
		return errno.Wrap(errno.EEXIST, "console: backend %q already registered", be.Name())
	}
	m.byName[be.Name()] = len(m.backends)
	m.backends = append(m.backends, be)
	return nil
}

// Replace swaps the backend named name for be in place, preserving
// fan-out order.
func (m *Multiplexer) Replace(name string, be Backend) error {
	idx, ok := m.byName[name]
	if !ok {
		return errno.Wrap(errno.ENOENT, "console: no backend named %q", name)
	}
	delete(m.byName, name)
	m.backends[idx] = be
	m.byName[be.Name()] = idx
	return nil
}

// Init calls Init on every registered backend in order, stopping at
// the first failure.
func (m *Multiplexer) Init() error {
	for _, be := range m.backends {
		if err := be.Init(); err != nil {
			return err
		}
	}
	return nil
}

// Putc fans c out to every backend. In emergency mode the hardware
// lock is bypassed entirely, matching early_putc's rationale: a panic
// path must never block on a lock another CPU might be holding.
func (m *Multiplexer) Putc(c byte) {
	if !m.active && !m.emergency {
		return
	}
	if m.emergency {
		for _, be := range m.backends {
			be.Putc(c)
		}
		return
	}
	flags := m.lock.LockIRQSave()
	defer m.lock.UnlockIRQRestore(flags)
	for _, be := range m.backends {
		be.Putc(c)
	}
}

// Puts fans s out byte by byte; a backend with no batched-write hook
// beyond Putc simply sees one call per byte, same as the C fallback
// loop in early_puts.
func (m *Multiplexer) Puts(s string) {
	if !m.active && !m.emergency {
		return
	}
	for i := 0; i < len(s); i++ {
		m.Putc(s[i])
	}
}

// SetColor sets c on every backend that implements ColorBackend.
func (m *Multiplexer) SetColor(c Color) {
	flags := m.lock.LockIRQSave()
	defer m.lock.UnlockIRQRestore(flags)
	for _, be := range m.backends {
		if cb, ok := be.(ColorBackend); ok {
			cb.SetColor(c)
		}
	}
}

// ResetColor resets color on every backend that implements ColorBackend.
func (m *Multiplexer) ResetColor() {
	flags := m.lock.LockIRQSave()
	defer m.lock.UnlockIRQRestore(flags)
	for _, be := range m.backends {
		if cb, ok := be.(ColorBackend); ok {
			cb.ResetColor()
		}
	}
}

// Clear clears every backend that implements ClearBackend.
func (m *Multiplexer) Clear() {
	if !m.active && !m.emergency {
		return
	}
	flags := m.lock.LockIRQSave()
	defer m.lock.UnlockIRQRestore(flags)
	for _, be := range m.backends {
		if cb, ok := be.(ClearBackend); ok {
			cb.Clear()
		}
	}
}

// StartConsumers starts every Async backend's drain goroutine. Call
// once the scheduler can create threads; calling it earlier is a
// caller bug, not something this package guards against, matching the
// original's comment that it "needs the scheduler initialized".
func (m *Multiplexer) StartConsumers() {
	for _, be := range m.backends {
		if be.Mode() == Async {
			if c, ok := be.(Consumer); ok {
				c.Start()
			}
		}
	}
}

// Disable stops fan-out for ordinary output while leaving emergency
// mode able to reactivate it, matching early_console_disable's "user
// space console server took over" transition.
func (m *Multiplexer) Disable() { m.active = false }

// EmergencyMode flips into the panic path: output reactivates
// unconditionally and the hardware lock is bypassed on every write.
func (m *Multiplexer) EmergencyMode() {
	m.emergency = true
	m.active = true
}

// Active reports whether ordinary (non-emergency) output is live.
func (m *Multiplexer) Active() bool { return m.active }
