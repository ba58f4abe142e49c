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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCmdlineSplitsKeyValuePairs(t *testing.T) {
	tokens := ParseCmdline("xnix.mmu=off xnix.smp=off xnix.initmod=2")
	require.Equal(t, "off", tokens["xnix.mmu"])
	require.Equal(t, "off", tokens["xnix.smp"])
	require.Equal(t, "2", tokens["xnix.initmod"])
}

func TestParseCmdlineHandlesBareFlags(t *testing.T) {
	tokens := ParseCmdline("xnix.debug.console xnix.irqchip=apic")
	v, ok := tokens["xnix.debug.console"]
	require.True(t, ok)
	require.Empty(t, v)
	require.Equal(t, "apic", tokens["xnix.irqchip"])
}

func TestParseCmdlineEmptyStringYieldsNoTokens(t *testing.T) {
	require.Empty(t, ParseCmdline(""))
	require.Empty(t, ParseCmdline("   "))
}
