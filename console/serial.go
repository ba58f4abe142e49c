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
	"io"
	"os"

	"golang.org/x/term"
)

// SerialBackend is the hosted analogue of kernel/arch/x86/drivers/serial.c:
// a synchronous line, written to immediately on every Putc with no
// buffering. Grounded on
// _examples/IntuitionAmiga-IntuitionEngine/terminal_host.go's raw-mode
// handling — putting the host terminal in raw mode is what makes a
// real process stand in for an RS-232 line with no host-side echo or
// line buffering of its own.
type SerialBackend struct {
	out      io.Writer
	fd       int
	raw      bool
	oldState *term.State
}

// NewSerialBackend writes to out. If out is os.Stdout and stdout is a
// terminal, Init puts it in raw mode so host echo/line-buffering does
// not double up on what the kernel's own line discipline would do;
// writing to any other io.Writer (a log file, a test buffer) skips raw
// mode entirely since there is no terminal to configure.
func NewSerialBackend(out io.Writer) *SerialBackend {
	return &SerialBackend{out: out}
}

func (s *SerialBackend) Name() string { return "serial" }
func (s *SerialBackend) Mode() Mode   { return Sync }

func (s *SerialBackend) Init() error {
	f, ok := s.out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	s.fd = int(f.Fd())
	old, err := term.MakeRaw(s.fd)
	if err != nil {
		return err
	}
	s.oldState = old
	s.raw = true
	return nil
}

// Close restores the host terminal's prior state, the counterpart of
// term.MakeRaw called from Init; never called from the emergency path
// since a panic must never block on terminal restoration.
func (s *SerialBackend) Close() error {
	if !s.raw {
		return nil
	}
	s.raw = false
	return term.Restore(s.fd, s.oldState)
}

func (s *SerialBackend) Putc(c byte) {
	// Raw mode strips line-discipline LF->CRLF translation; add it
	// back here same as a real serial driver's transmit path does.
	if c == '\n' {
		s.out.Write([]byte{'\r', '\n'})
		return
	}
	s.out.Write([]byte{c})
}
