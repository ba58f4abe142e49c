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

import (
	"sync"

	"github.com/xnix-project/xnixcore/arch"
)

const numIRQs = 256

// Handler is a kernel-installed callback for a given IRQ.
type Handler func(irq int, frame *arch.Frame)

// Dispatcher is the handler table of spec.md §4.11. timerIRQ is
// excluded from the auto-EOI Dispatch otherwise performs, because the
// timer's own handler issues its EOI (see Timer.Handler in timer.go)
// to avoid double-EOI across a context switch.
type Dispatcher struct {
	mu       sync.Mutex
	chip     ChipOps
	handlers [numIRQs]Handler
	timerIRQ int
}

func NewDispatcher(chip ChipOps, timerIRQ int) *Dispatcher {
	chip.Init()
	return &Dispatcher{chip: chip, timerIRQ: timerIRQ}
}

func (d *Dispatcher) SetHandler(irq int, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if irq >= 0 && irq < numIRQs {
		d.handlers[irq] = h
	}
}

// Dispatch calls the installed handler (if any) and issues EOI,
// except for the timer IRQ whose handler issues its own.
func (d *Dispatcher) Dispatch(irq int, frame *arch.Frame) {
	d.mu.Lock()
	var h Handler
	if irq >= 0 && irq < numIRQs {
		h = d.handlers[irq]
	}
	d.mu.Unlock()

	if h == nil {
		d.chip.EOI(irq)
		return
	}
	h(irq, frame)
	if irq != d.timerIRQ {
		d.chip.EOI(irq)
	}
}

func (d *Dispatcher) Chip() ChipOps { return d.chip }
