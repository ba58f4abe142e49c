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
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xnix-project/xnixcore/ipc"
)

// recvOne starts a blocking Receive on ep and returns a channel
// delivering its result, giving the goroutine time to park before the
// caller sends so ServerLink's nonblock Send finds a waiting receiver.
func recvOne(ep *ipc.Endpoint) chan ipc.Message {
	out := make(chan ipc.Message, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		msg, _ := ep.Receive(false, 0)
		out <- msg
	}()
	<-started
	time.Sleep(10 * time.Millisecond)
	return out
}

func TestServerLinkPutcSendsOpcodeAndByte(t *testing.T) {
	ep := ipc.NewEndpoint(nil)
	link := NewServerLink(ep, 1)
	out := recvOne(ep)

	link.Putc('Q')

	msg := <-out
	require.EqualValues(t, opPutc, msg.Regs[0])
	require.EqualValues(t, 'Q', msg.Regs[1])
}

func TestServerLinkSetColorSendsOpcode(t *testing.T) {
	ep := ipc.NewEndpoint(nil)
	link := NewServerLink(ep, 1)
	out := recvOne(ep)

	link.SetColor(Cyan)

	msg := <-out
	require.EqualValues(t, opSetColor, msg.Regs[0])
	require.EqualValues(t, Cyan, msg.Regs[1])
}

func TestConsoleRoutesThroughServerLinkAfterHandoff(t *testing.T) {
	ep := ipc.NewEndpoint(nil)
	link := NewServerLink(ep, 1)

	m := NewMultiplexer()
	early := &fakeBackend{name: "early"}
	require.NoError(t, m.Register(early))
	c := NewConsole(m)
	c.Handoff(link)

	out := recvOne(ep)
	c.Putc('x')
	msg := <-out
	require.EqualValues(t, opPutc, msg.Regs[0])
	require.Empty(t, early.written)
}

func TestConsoleEmergencyModeBypassesServerLink(t *testing.T) {
	ep := ipc.NewEndpoint(nil)
	link := NewServerLink(ep, 1)

	m := NewMultiplexer()
	early := &fakeBackend{name: "early"}
	require.NoError(t, m.Register(early))
	c := NewConsole(m)
	c.Handoff(link)

	c.EmergencyMode()
	c.Putc('!')
	require.Equal(t, []byte("!"), early.written)
}
