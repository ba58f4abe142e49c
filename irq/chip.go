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

// Package irq implements the interrupt dispatch and IRQ→userland
// layer of spec.md §4.11, recovered in full from
// _examples/original_source/main/arch/x86/drivers/{pic.c,ioapic.c,
// lapic_timer.c} (the distillation collapsed these to one line). The
// two chips simulate their hardware registers in memory rather than
// touching real I/O ports, consistent with the hosted model
// (SPEC_FULL.md §0).
package irq

import "sync"

// ChipOps is the irqchip_ops vtable of spec.md §4.11.
type ChipOps interface {
	Name() string
	Init()
	Enable(irq int)
	Disable(irq int)
	EOI(irq int)
	Masked(irq int) bool
}

// PIC models a legacy 8259-style controller: one mask bit per line,
// grounded on pic.c's ICW1-4 init sequence and per-bit enable/disable.
type PIC struct {
	mu     sync.Mutex
	masked [16]bool
}

func NewPIC() *PIC {
	p := &PIC{}
	for i := range p.masked {
		p.masked[i] = true // pic_init masks every line (0xFF on both PICs)
	}
	return p
}

func (p *PIC) Name() string { return "8259-pic" }
func (p *PIC) Init()        {}

func (p *PIC) Enable(irq int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if irq >= 0 && irq < len(p.masked) {
		p.masked[irq] = false
	}
}

func (p *PIC) Disable(irq int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if irq >= 0 && irq < len(p.masked) {
		p.masked[irq] = true
	}
}

// EOI is a no-op beyond bookkeeping in the hosted model: pic.c's
// pic_eoi writes PIC_EOI to the command port(s), cascading to PIC2
// for irq >= 8. There is no real port to write here, so EOI only
// exists as the contract point Dispatch calls.
func (p *PIC) EOI(irq int) {}

func (p *PIC) Masked(irq int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if irq < 0 || irq >= len(p.masked) {
		return true
	}
	return p.masked[irq]
}

// redirectionEntry mirrors ioapic.c's per-line redirection table
// entry: a mask bit and a destination vector.
type redirectionEntry struct {
	masked bool
	vector uint8
}

// APIC models an I/O APIC redirection table: up to 24 lines, each
// independently maskable and routed to a vector, grounded on
// ioapic.c's ioapic_set_entry.
type APIC struct {
	mu      sync.Mutex
	entries [24]redirectionEntry
}

func NewAPIC() *APIC {
	a := &APIC{}
	for i := range a.entries {
		a.entries[i] = redirectionEntry{masked: true, vector: uint8(0x20 + i)}
	}
	return a
}

func (a *APIC) Name() string { return "ioapic" }
func (a *APIC) Init()        {}

func (a *APIC) Enable(irq int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if irq >= 0 && irq < len(a.entries) {
		a.entries[irq].masked = false
	}
}

func (a *APIC) Disable(irq int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if irq >= 0 && irq < len(a.entries) {
		a.entries[irq].masked = true
	}
}

func (a *APIC) EOI(irq int) {}

func (a *APIC) Masked(irq int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if irq < 0 || irq >= len(a.entries) {
		return true
	}
	return a.entries[irq].masked
}
