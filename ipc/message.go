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

// Package ipc implements the synchronous/asynchronous message-passing
// subsystem of spec.md §4.10, grounded on
// _examples/original_source/main/include/xnix/ipc.h. Blocking here
// parks the calling goroutine directly on a channel rather than going
// through package sched's generic wait_chan mechanism — the same
// simplification package ksync documents, justified the same way: a
// thread's entry body runs on its own gated goroutine (package arch),
// so a native channel receive already yields that goroutine at the Go
// runtime level.
package ipc

import (
	"github.com/xnix-project/xnixcore/handle"
)

// Message is the unit exchanged by Send/Receive/Call/Reply. Regs is
// the eight-word fast register path; Buffer is the optional long-data
// copy (already materialized — cross-address-space fault injection is
// out of scope for the hosted model); Caps is the list
// of capability handles to transfer, resolved against srcTable by the
// receiver via TransferCaps.
type Message struct {
	Regs      [8]uint32
	Buffer    []byte
	Caps      []handle.Handle
	SenderTID uint64

	srcTable *handle.Table
	replyTo  *Endpoint
}

// NewMessage builds a message whose Caps (if any) will later be
// transferred out of srcTable by the receiver's TransferCaps call.
func NewMessage(srcTable *handle.Table, regs [8]uint32, buffer []byte, caps []handle.Handle) Message {
	return Message{Regs: regs, Buffer: buffer, Caps: caps, srcTable: srcTable}
}

// HasReplyTo reports whether this message arrived via Call and so
// expects a matching Reply. package syscalls uses this to decide
// whether a received message needs stashing for a later reply.
func (m *Message) HasReplyTo() bool { return m.replyTo != nil }

// TransferCaps performs the handle transfers this message carries into
// dst, in order, reversing every already-transferred handle if any
// step fails (spec.md §4.10 Send: "perform handle transfers in order
// (reversing on mid-sequence failure)"). A message with no caps or no
// srcTable is a no-op.
func (m *Message) TransferCaps(dst *handle.Table) ([]handle.Handle, error) {
	if m.srcTable == nil || len(m.Caps) == 0 {
		return nil, nil
	}
	transferred := make([]handle.Handle, 0, len(m.Caps))
	for _, h := range m.Caps {
		dh, err := m.srcTable.Transfer(h, dst, "", handle.Invalid)
		if err != nil {
			for _, th := range transferred {
				if obj, ok := dst.Lookup(th, handle.TypeNone, 0); ok {
					obj.Unref()
				}
				_ = dst.Free(th)
			}
			return nil, err
		}
		transferred = append(transferred, dh)
	}
	return transferred, nil
}
