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

package main

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/xnix-project/xnixcore/boot"
	"github.com/xnix-project/xnixcore/sched"
)

func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	m.Run()
}

func TestBuildDriverStackDefaultsToPIC(t *testing.T) {
	d := boot.Decide(boot.ProbeFeatures(1), &boot.Record{Magic: boot.BootloaderMagic})
	disp, userIRQ := buildDriverStack(d, sched.NewScheduler(1))
	require.NotNil(t, disp)
	require.NotNil(t, userIRQ)
}

func TestBuildDriverStackSelectsAPICFromCmdline(t *testing.T) {
	rec := &boot.Record{Magic: boot.BootloaderMagic, Cmdline: "xnix.irqchip=apic"}
	d := boot.Decide(boot.ProbeFeatures(1), rec)
	require.Equal(t, "apic", d.IRQChip)
	disp, userIRQ := buildDriverStack(d, sched.NewScheduler(1))
	require.NotNil(t, disp)
	require.NotNil(t, userIRQ)
}
