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

import "github.com/xnix-project/xnixcore/ipc"

// UDM opcodes, grounded on
// _examples/original_source/main/include/xnix/console_udm.h: opcode in
// regs[0], remaining arguments in regs[1..].
const (
	opPutc       = 1
	opSetColor   = 2
	opResetColor = 3
	opClear      = 4
)

// ServerLink forwards console output to the user-space console server
// over an IPC endpoint instead of touching hardware directly — the
// state spec.md §4.15 describes as "once the user-space console
// server is available, kernel output is redirected to it via an IPC
// stub". Sends are fire-and-forget (nonblock) so a wedged or slow
// console server cannot stall the kernel thread producing output.
type ServerLink struct {
	ep        *ipc.Endpoint
	senderTID uint64
}

// NewServerLink binds to ep; senderTID identifies the kernel-side
// sender in the endpoint's queue (spec.md §4.10's Send signature).
func NewServerLink(ep *ipc.Endpoint, senderTID uint64) *ServerLink {
	return &ServerLink{ep: ep, senderTID: senderTID}
}

func (s *ServerLink) send(regs [8]uint32) {
	_ = s.ep.Send(ipc.NewMessage(nil, regs, nil, nil), s.senderTID, true, 0)
}

func (s *ServerLink) Putc(c byte) {
	s.send([8]uint32{opPutc, uint32(c)})
}

func (s *ServerLink) SetColor(c Color) {
	s.send([8]uint32{opSetColor, uint32(int32(c))})
}

func (s *ServerLink) ResetColor() {
	s.send([8]uint32{opResetColor})
}

func (s *ServerLink) Clear() {
	s.send([8]uint32{opClear})
}

// Console is the full output path a kernel uses: an early-console
// Multiplexer for pre-userspace and panic output, plus an optional
// handoff to a user-space console server once one registers. Output
// calls route to the server link when one is attached and the
// multiplexer is not in emergency mode; emergency output always goes
// straight to the early backends, bypassing the server link entirely,
// since panic may occur with the console server itself wedged or
// gone.
type Console struct {
	Early *Multiplexer
	link  *ServerLink
}

// NewConsole wraps an already-populated Multiplexer.
func NewConsole(early *Multiplexer) *Console {
	return &Console{Early: early}
}

// Handoff attaches link as the new output target and disables the
// early backends for ordinary (non-emergency) output, per spec.md
// §4.15: "the early backends are disabled but remain panic-ready."
func (c *Console) Handoff(link *ServerLink) {
	c.link = link
	c.Early.Disable()
}

// Detach drops the server link, e.g. when the console server process
// dies; ordinary output falls back to the early backends until a new
// server hands off again.
func (c *Console) Detach() {
	c.link = nil
	c.Early.active = true
}

func (c *Console) routeToServer() bool {
	return c.link != nil && !c.Early.emergency
}

func (c *Console) Putc(ch byte) {
	if c.routeToServer() {
		c.link.Putc(ch)
		return
	}
	c.Early.Putc(ch)
}

func (c *Console) Puts(s string) {
	if c.routeToServer() {
		for i := 0; i < len(s); i++ {
			c.link.Putc(s[i])
		}
		return
	}
	c.Early.Puts(s)
}

func (c *Console) SetColor(col Color) {
	if c.routeToServer() {
		c.link.SetColor(col)
		return
	}
	c.Early.SetColor(col)
}

func (c *Console) ResetColor() {
	if c.routeToServer() {
		c.link.ResetColor()
		return
	}
	c.Early.ResetColor()
}

func (c *Console) Clear() {
	if c.routeToServer() {
		c.link.Clear()
		return
	}
	c.Early.Clear()
}

// EmergencyMode switches the whole console to panic mode: routing
// reverts unconditionally to the early backends, and their own
// output-lock bypass (Multiplexer.EmergencyMode) takes effect too.
func (c *Console) EmergencyMode() {
	c.Early.EmergencyMode()
}
