package kmsg

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/xnix-project/xnixcore/errno"
)

func TestLogAndReadAdvancesSeq(t *testing.T) {
	r := New(8, nil)
	r.Log(Info, Kern, "hello %d", 1)

	var seq uint32
	buf := make([]byte, 128)
	n, err := r.Read(&seq, buf)
	require.NoError(t, err)
	require.Equal(t, "<3>,0,0;hello 1\n", string(buf[:n]))
	require.EqualValues(t, 1, seq)

	_, err = r.Read(&seq, buf)
	require.ErrorIs(t, err, errno.ENOENT)
}

func TestReadTooSmallBufferReturnsERANGE(t *testing.T) {
	r := New(8, nil)
	r.LogRaw(Err, Driver, "a long diagnostic line")

	var seq uint32
	buf := make([]byte, 2)
	_, err := r.Read(&seq, buf)
	require.ErrorIs(t, err, errno.ERANGE)
}

func TestRingDropsOldestWhenFull(t *testing.T) {
	r := New(2, nil)
	r.Log(Info, Kern, "one")
	r.Log(Info, Kern, "two")
	r.Log(Info, Kern, "three") // drops "one"

	var seq uint32
	buf := make([]byte, 64)
	n, err := r.Read(&seq, buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "two")
}

func TestHookFeedsLogrusEntriesIntoRing(t *testing.T) {
	r := New(8, nil)
	logger := logrus.New()
	logger.AddHook(NewHook(r))
	logger.SetOutput(nullWriter{})

	logger.Info("wired up")

	var seq uint32
	buf := make([]byte, 64)
	n, err := r.Read(&seq, buf)
	require.NoError(t, err)
	require.Contains(t, string(buf[:n]), "wired up")
}

type nullWriter struct{}

func (nullWriter) Write(p []byte) (int, error) { return len(p), nil }
