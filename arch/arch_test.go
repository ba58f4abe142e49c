package arch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrampolineRunsOnResume(t *testing.T) {
	ran := false
	exited := false
	tr := NewTrampoline(func(yield func()) {
		ran = true
	}, func() {
		exited = true
	})

	tr.Resume()
	tr.WaitParked()
	require.True(t, ran)
	require.True(t, exited)
	require.True(t, tr.Exited())
}

func TestTrampolineYieldRoundTrips(t *testing.T) {
	order := []string{}
	tr := NewTrampoline(func(yield func()) {
		order = append(order, "a")
		yield()
		order = append(order, "b")
	}, func() {
		order = append(order, "exit")
	})

	tr.Resume()
	tr.WaitParked()
	require.Equal(t, []string{"a"}, order)
	require.False(t, tr.Exited())

	tr.Resume()
	tr.WaitParked()
	require.Equal(t, []string{"a", "b", "exit"}, order)
	require.True(t, tr.Exited())
}

func TestTrampolineDoesNotRunBeforeResume(t *testing.T) {
	ran := make(chan struct{})
	_ = NewTrampoline(func(yield func()) {
		close(ran)
	}, func() {})

	select {
	case <-ran:
		t.Fatal("entry must not run before Resume")
	case <-time.After(20 * time.Millisecond):
	}
}
