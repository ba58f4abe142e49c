package ipc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xnix-project/xnixcore/handle"
)

func TestSendReceiveRendezvous(t *testing.T) {
	ep := NewEndpoint(nil)
	done := make(chan error, 1)
	go func() {
		msg := NewMessage(nil, [8]uint32{1, 2, 3}, nil, nil)
		done <- ep.Send(msg, 7, false, 0)
	}()

	time.Sleep(10 * time.Millisecond) // let the sender park
	msg, err := ep.Receive(false, 0)
	require.NoError(t, err)
	require.EqualValues(t, 7, msg.SenderTID)
	require.Equal(t, uint32(1), msg.Regs[0])
	require.NoError(t, <-done)
}

func TestSendNonblockWithNoReceiverReturnsEAGAIN(t *testing.T) {
	ep := NewEndpoint(nil)
	msg := NewMessage(nil, [8]uint32{}, nil, nil)
	err := ep.Send(msg, 1, true, 0)
	require.Error(t, err)
}

func TestReceiveNonblockEmptyReturnsEAGAIN(t *testing.T) {
	ep := NewEndpoint(nil)
	_, err := ep.Receive(true, 0)
	require.Error(t, err)
}

func TestSendTimesOut(t *testing.T) {
	ep := NewEndpoint(nil)
	msg := NewMessage(nil, [8]uint32{}, nil, nil)
	err := ep.Send(msg, 1, false, 20)
	require.Error(t, err)
}

func TestCloseWakesParkedReceiver(t *testing.T) {
	ep := NewEndpoint(nil)
	done := make(chan error, 1)
	go func() {
		_, err := ep.Receive(false, 0)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	ep.Close()
	err := <-done
	require.Error(t, err)
}

func TestAsyncSendThenReceive(t *testing.T) {
	pool := NewAsyncPool(4, 0)
	ep := NewEndpoint(pool)
	require.NoError(t, ep.SendAsync([8]uint32{9}, 3))

	msg, err := ep.Receive(false, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(9), msg.Regs[0])
}

func TestAsyncDeliveredBeforeBlockedSender(t *testing.T) {
	pool := NewAsyncPool(4, 0)
	ep := NewEndpoint(pool)

	go func() {
		_ = ep.Send(NewMessage(nil, [8]uint32{100}, nil, nil), 1, false, 0)
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ep.SendAsync([8]uint32{200}, 2))

	msg, err := ep.Receive(false, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(200), msg.Regs[0], "async message must be delivered before the parked sender")
}

func TestCallReply(t *testing.T) {
	ep := NewEndpoint(nil)
	serverDone := make(chan struct{})
	go func() {
		req, err := ep.Receive(false, 0)
		require.NoError(t, err)
		resp := NewMessage(nil, [8]uint32{req.Regs[0] + 1}, nil, nil)
		require.NoError(t, Reply(req, resp))
		close(serverDone)
	}()

	resp, err := Call(ep, NewMessage(nil, [8]uint32{41}, nil, nil), 5, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(42), resp.Regs[0])
	<-serverDone
}

func TestTransferCapsReversesOnFailure(t *testing.T) {
	src := handle.NewStaticTable(16)
	dst := handle.NewStaticTable(16)

	type obj struct{ handle.Refcounted }
	o1 := &obj{}
	o2 := &obj{}
	h1, err := src.Alloc(handle.TypeEndpoint, o1, handle.Read, "")
	require.NoError(t, err)
	h2, err := src.Alloc(handle.TypeEndpoint, o2, handle.Read, "")
	require.NoError(t, err)

	// Fill dst to exactly one free slot, so the first handle's
	// transfer succeeds and the second's fails, exercising the
	// mid-sequence rollback.
	filler := &obj{}
	var fillerHandles []handle.Handle
	for {
		fh, err := dst.Alloc(handle.TypeEndpoint, filler, handle.Read, "")
		if err != nil {
			break
		}
		fillerHandles = append(fillerHandles, fh)
	}
	require.NoError(t, dst.Free(fillerHandles[len(fillerHandles)-1]))

	msg := NewMessage(src, [8]uint32{}, nil, []handle.Handle{h1, h2})
	_, err = msg.TransferCaps(dst)
	require.Error(t, err, "dst table full on the second handle must fail and roll back the whole sequence")
	require.EqualValues(t, 0, o1.Count(), "h1's successful transfer must be rolled back")
	require.EqualValues(t, 0, o2.Count(), "h2's failed transfer must leave no dangling ref")
}

func TestNotificationSignalWait(t *testing.T) {
	n := NewNotification()
	done := make(chan uint32, 1)
	go func() {
		done <- n.Wait()
	}()
	time.Sleep(10 * time.Millisecond)
	n.Signal(0b101)
	require.Equal(t, uint32(0b101), <-done)
	require.False(t, n.Ready())
}

func TestWaitAnyReturnsImmediatelyReady(t *testing.T) {
	n1 := NewNotification()
	n2 := NewNotification()
	n2.Signal(1)

	i, err := WaitAny([]Waitable{n1, n2}, 10)
	require.NoError(t, err)
	require.Equal(t, 1, i)
}

func TestWaitAnyBlocksThenWakes(t *testing.T) {
	n1 := NewNotification()
	n2 := NewNotification()

	resultCh := make(chan int, 1)
	go func() {
		i, err := WaitAny([]Waitable{n1, n2}, 0)
		require.NoError(t, err)
		resultCh <- i
	}()

	time.Sleep(10 * time.Millisecond)
	n2.Signal(4)
	require.Equal(t, 1, <-resultCh)
}

func TestWaitAnyTimesOut(t *testing.T) {
	n1 := NewNotification()
	_, err := WaitAny([]Waitable{n1}, 20)
	require.Error(t, err)
}
