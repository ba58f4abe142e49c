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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleManifest = `
[modules]
count = 2
mod0.name = init
mod0.profile = init
mod1.name = driver.serial
mod1.profile = io_driver
`

func TestLoadModuleManifestParsesEntriesInOrder(t *testing.T) {
	entries, err := LoadModuleManifest(strings.NewReader(sampleManifest))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, ModuleEntry{Name: "init", Profile: "init"}, entries[0])
	require.Equal(t, ModuleEntry{Name: "driver.serial", Profile: "io_driver"}, entries[1])
}

func TestLoadModuleManifestRejectsMissingCount(t *testing.T) {
	_, err := LoadModuleManifest(strings.NewReader("[modules]\nmod0.name = init\n"))
	require.Error(t, err)
}

func TestBindModulesFillsStartEndByName(t *testing.T) {
	entries, err := LoadModuleManifest(strings.NewReader(sampleManifest))
	require.NoError(t, err)

	rec := &Record{Modules: []Module{
		{Name: "init", Start: 0x100000, End: 0x120000},
	}}
	BindModules(entries, rec)

	require.EqualValues(t, 0x100000, entries[0].Start)
	require.EqualValues(t, 0x120000, entries[0].End)
	require.Zero(t, entries[1].Start)
}

func TestResolveInitModuleOutOfRangeReturnsENOENT(t *testing.T) {
	entries, err := LoadModuleManifest(strings.NewReader(sampleManifest))
	require.NoError(t, err)

	d := &Decision{InitModIndex: 5}
	_, err = d.ResolveInitModule(entries)
	require.Error(t, err)
}

func TestResolveInitModuleReturnsSelectedEntry(t *testing.T) {
	entries, err := LoadModuleManifest(strings.NewReader(sampleManifest))
	require.NoError(t, err)

	d := &Decision{InitModIndex: 1}
	mod, err := d.ResolveInitModule(entries)
	require.NoError(t, err)
	require.Equal(t, "driver.serial", mod.Name)
}
