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

package boot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mvo5/goconfigparser"
	"github.com/xnix-project/xnixcore/errno"
)

// ModuleEntry names one loadable module the way a real multiboot
// module list's opaque cmdline string would, but resolved against a
// permission profile instead of being left for user code to parse —
// recovered from original_source's module list (raw start/end
// physical addresses with no naming) by attaching the piece the
// distillation dropped: which permission profile governs the spawned
// process.
type ModuleEntry struct {
	Name    string
	Profile string
	Start   uintptr
	End     uintptr
}

// LoadModuleManifest reads an INI-format module manifest:
//
//	[modules]
//	count = 2
//	mod0.name = init
//	mod0.profile = init
//	mod1.name = driver.serial
//	mod1.profile = io_driver
//
// grounded on canonical-snapd's goconfigparser.New/AllowNoSectionHeader/Read/Get
// usage (_examples/canonical-snapd/boot/modeenv_test.go,
// bootloader/grub_test.go). Start/End are left zero; a loader binding
// the manifest to actual module bytes (e.g. from Record.Modules by
// matching Name) fills them in afterward.
func LoadModuleManifest(r io.Reader) ([]ModuleEntry, error) {
	cfg := goconfigparser.New()
	cfg.AllowNoSectionHeader = true
	if err := cfg.Read(r); err != nil {
		return nil, errno.Wrap(errno.EINVAL, "boot: module manifest: %v", err)
	}

	countStr, err := cfg.Get("modules", "count")
	if err != nil {
		return nil, errno.Wrap(errno.EINVAL, "boot: module manifest missing [modules] count")
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 0 {
		return nil, errno.Wrap(errno.EINVAL, "boot: module manifest: invalid count %q", countStr)
	}

	entries := make([]ModuleEntry, 0, count)
	for i := 0; i < count; i++ {
		name, err := cfg.Get("modules", fmt.Sprintf("mod%d.name", i))
		if err != nil {
			return nil, errno.Wrap(errno.EINVAL, "boot: module manifest: mod%d.name missing", i)
		}
		profile, _ := cfg.Get("modules", fmt.Sprintf("mod%d.profile", i))
		entries = append(entries, ModuleEntry{Name: name, Profile: profile})
	}
	return entries, nil
}

// BindModules matches each manifest entry to a Record module by name,
// filling in Start/End so the caller has the physical range to map.
// An entry with no matching Record.Module is left with Start==End==0.
func BindModules(entries []ModuleEntry, rec *Record) {
	if rec == nil {
		return
	}
	byName := make(map[string]Module, len(rec.Modules))
	for _, m := range rec.Modules {
		byName[m.Name] = m
	}
	for i := range entries {
		if m, ok := byName[entries[i].Name]; ok {
			entries[i].Start = m.Start
			entries[i].End = m.End
		}
	}
}

// ResolveInitModule looks up the manifest entry selected by
// Decision.InitModIndex (spec.md §4.16: "the selected initial module
// index identifies the first user program the kernel will spawn once
// syscalls are ready").
func (d *Decision) ResolveInitModule(entries []ModuleEntry) (*ModuleEntry, error) {
	if int(d.InitModIndex) >= len(entries) {
		return nil, errno.Wrap(errno.ENOENT, "boot: initmod index %d out of range (%d modules)", d.InitModIndex, len(entries))
	}
	return &entries[d.InitModIndex], nil
}
