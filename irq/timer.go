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

package irq

import "github.com/xnix-project/xnixcore/arch"

// Ticker is the subset of *sched.Scheduler the timer driver needs;
// declared here (rather than importing package sched) so irq keeps
// depending only on the scheduling contract it actually drives, not
// the whole scheduler surface.
type Ticker interface {
	Tick(cpuID int) (needsResched bool)
}

// Timer is the PIT/lapic_timer-equivalent driver: its handler feeds
// sched.Tick and issues its own EOI, per spec.md §4.6/§4.11 ("the
// timer IRQ's end-of-interrupt is issued by the tick handler itself,
// not the generic IRQ dispatcher").
type Timer struct {
	chip  ChipOps
	irq   int
	sched Ticker
	cpuID int
}

func NewTimer(chip ChipOps, irqLine int, s Ticker, cpuID int) *Timer {
	return &Timer{chip: chip, irq: irqLine, sched: s, cpuID: cpuID}
}

// Handler is installed on the Dispatcher at t.irq.
func (t *Timer) Handler(irq int, frame *arch.Frame) {
	t.sched.Tick(t.cpuID)
	t.chip.EOI(irq)
}

func (t *Timer) IRQ() int { return t.irq }
