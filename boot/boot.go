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

// Package boot implements the boot-decision step of spec.md §4.16,
// grounded on _examples/original_source/main/kernel/boot/boot.c (the
// cmdline-override logic) and main/include/asm/multiboot.h (the record
// shape) and main/include/arch/hal/feature.h (the published feature
// set). The bootloader interface itself is out of scope (spec.md §1):
// Record stands in for a real multiboot header, populated by the
// hosted entrypoint instead of parsed out of memory the loader left
// behind.
package boot

import (
	"strconv"

	"github.com/sirupsen/logrus"
)

// Feature mirrors hal_features.flags's bitmask.
type Feature uint32

const (
	FeatureMMU Feature = 1 << iota
	FeatureFPU
	FeatureSMP
	FeatureAPIC
	FeatureACPI
	FeatureVirt
)

// Features mirrors struct hal_features, the published result of the
// probe/override sequence every other subsystem consults to decide
// what to load (MMU ops table, IRQ chip, SMP bring-up).
type Features struct {
	Flags     Feature
	CPUCount  uint32
	RAMSizeMB uint32
	CPUVendor string
	CPUModel  string
}

func (f Features) Has(feat Feature) bool { return f.Flags&feat != 0 }

// ProbeFeatures is the hosted stand-in for hal_probe_features: a real
// probe reads CPUID; a hosted kernel has no CPU to ask, so it reports
// every feature this implementation actually has a backend for
// (vmm.MMU, irq.APIC, multi-goroutine "SMP") with cpuCount taken from
// the caller (cmd/xnixcore's --cpus flag), since that is the one
// thing a hosted kernel cannot discover on its own.
func ProbeFeatures(cpuCount int) Features {
	flags := FeatureMMU | FeatureFPU | FeatureAPIC | FeatureACPI
	if cpuCount > 1 {
		flags |= FeatureSMP
	}
	return Features{
		Flags:     flags,
		CPUCount:  uint32(cpuCount),
		CPUVendor: "GenuineHosted",
		CPUModel:  "xnixcore hosted CPU",
	}
}

// BootloaderMagic is MULTIBOOT_BOOTLOADER_MAGIC; a Record with any
// other Magic is treated as if no bootloader info were handed in at
// all (boot_init's own magic check).
const BootloaderMagic = 0x2BADB002

// MemRegion is one multiboot_mmap_entry.
type MemRegion struct {
	Base      uint64
	Length    uint64
	Available bool
}

// Module is one multiboot_mod_list entry: a loaded program image's
// physical bounds plus the name the manifest (see manifest.go) uses
// to attach a permission profile to it.
type Module struct {
	Name  string
	Start uintptr
	End   uintptr
}

// Record is the hosted analogue of struct multiboot_info.
type Record struct {
	Magic      uint32
	MemRegions []MemRegion
	MemUpperKB uint32 // fallback when MemRegions is empty
	Cmdline    string
	Modules    []Module
}

// UsableRAMMB sums every available region, falling back to MemUpperKB
// the way boot_compute_ram_mb falls back to mem_upper when no memory
// map was provided. Returns 0 for a record whose Magic doesn't match
// BootloaderMagic, same as the reference treating an absent/invalid
// record as "no usable info".
func (r *Record) UsableRAMMB() uint32 {
	if r.Magic != BootloaderMagic {
		return 0
	}
	if len(r.MemRegions) > 0 {
		var totalKB uint64
		for _, m := range r.MemRegions {
			if m.Available {
				totalKB += m.Length / 1024
			}
		}
		return uint32(totalKB / 1024)
	}
	if r.MemUpperKB > 0 {
		return (r.MemUpperKB + 1024) / 1024
	}
	return 0
}

// Decision is the final, fully-resolved outcome of Decide: the
// feature set to publish, the parsed cmdline tokens, and the selected
// initial-module index, driver names and debug-console gate cmdline
// overrides can select.
type Decision struct {
	Features     Features
	Cmdline      string
	Tokens       map[string]string
	InitModIndex uint32
	IRQChip      string
	Timer        string
	DebugConsole bool
}

// Decide runs the boot_init sequence: probe, fold in the record's RAM
// size and cmdline, then apply every recognized xnix.* override.
func Decide(probe Features, rec *Record) *Decision {
	d := &Decision{Features: probe}
	if rec != nil {
		d.Cmdline = rec.Cmdline
		if ram := rec.UsableRAMMB(); ram > 0 {
			d.Features.RAMSizeMB = ram
		}
	}
	d.Tokens = ParseCmdline(d.Cmdline)

	if v, ok := d.Tokens["xnix.mmu"]; ok && v == "off" {
		d.Features.Flags &^= FeatureMMU
		logrus.Info("boot: forced MMU off via cmdline")
	}
	if v, ok := d.Tokens["xnix.smp"]; ok && v == "off" {
		d.Features.Flags &^= FeatureSMP
		d.Features.CPUCount = 1
		logrus.Info("boot: forced SMP off via cmdline")
	}
	if v, ok := d.Tokens["xnix.initmod"]; ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			d.InitModIndex = uint32(n)
			logrus.WithField("initmod", d.InitModIndex).Info("boot: xnix.initmod")
		}
	}
	d.IRQChip = d.Tokens["xnix.irqchip"]
	d.Timer = d.Tokens["xnix.timer"]
	_, d.DebugConsole = d.Tokens["xnix.debug.console"]

	return d
}
