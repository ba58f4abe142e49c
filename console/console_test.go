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

package console

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeBackend records every call instead of touching hardware.
type fakeBackend struct {
	name       string
	mode       Mode
	written    []byte
	colors     []Color
	resets     int
	clears     int
	initErr    error
	initCalled bool
}

func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) Mode() Mode   { return f.mode }
func (f *fakeBackend) Init() error  { f.initCalled = true; return f.initErr }
func (f *fakeBackend) Putc(c byte)  { f.written = append(f.written, c) }
func (f *fakeBackend) SetColor(c Color) { f.colors = append(f.colors, c) }
func (f *fakeBackend) ResetColor()      { f.resets++ }
func (f *fakeBackend) Clear()           { f.clears++ }

func TestMultiplexerFansOutToEveryBackend(t *testing.T) {
	m := NewMultiplexer()
	a := &fakeBackend{name: "a"}
	b := &fakeBackend{name: "b"}
	require.NoError(t, m.Register(a))
	require.NoError(t, m.Register(b))
	require.NoError(t, m.Init())
	require.True(t, a.initCalled)
	require.True(t, b.initCalled)

	m.Puts("hi")
	require.Equal(t, []byte("hi"), a.written)
	require.Equal(t, []byte("hi"), b.written)
}

func TestMultiplexerRegisterRejectsDuplicateName(t *testing.T) {
	m := NewMultiplexer()
	require.NoError(t, m.Register(&fakeBackend{name: "serial"}))
	err := m.Register(&fakeBackend{name: "serial"})
	require.Error(t, err)
}

func TestMultiplexerReplacePreservesOrder(t *testing.T) {
	m := NewMultiplexer()
	a := &fakeBackend{name: "a"}
	b := &fakeBackend{name: "b"}
	require.NoError(t, m.Register(a))
	require.NoError(t, m.Register(b))

	c := &fakeBackend{name: "c"}
	require.NoError(t, m.Replace("a", c))

	m.Putc('x')
	require.Empty(t, a.written)
	require.Equal(t, []byte("x"), c.written)
	require.Equal(t, []byte("x"), b.written)
}

func TestMultiplexerDisableStopsOrdinaryOutput(t *testing.T) {
	m := NewMultiplexer()
	a := &fakeBackend{name: "a"}
	require.NoError(t, m.Register(a))

	m.Disable()
	m.Putc('x')
	require.Empty(t, a.written)
}

func TestMultiplexerEmergencyModeBypassesDisable(t *testing.T) {
	m := NewMultiplexer()
	a := &fakeBackend{name: "a"}
	require.NoError(t, m.Register(a))
	m.Disable()

	m.EmergencyMode()
	m.Putc('!')
	require.Equal(t, []byte("!"), a.written)
}

func TestMultiplexerColorAndClearReachOnlyCapableBackends(t *testing.T) {
	m := NewMultiplexer()
	a := &fakeBackend{name: "a"}
	require.NoError(t, m.Register(a))

	m.SetColor(Red)
	m.ResetColor()
	m.Clear()
	require.Equal(t, []Color{Red}, a.colors)
	require.Equal(t, 1, a.resets)
	require.Equal(t, 1, a.clears)
}

func TestConsoleHandoffRoutesToServerUntilDetached(t *testing.T) {
	m := NewMultiplexer()
	early := &fakeBackend{name: "early"}
	require.NoError(t, m.Register(early))
	c := NewConsole(m)

	c.Handoff(&ServerLink{})
	require.False(t, m.Active())

	c.Detach()
	require.True(t, m.Active())
	c.Putc('z')
	require.Equal(t, []byte("z"), early.written)
}
