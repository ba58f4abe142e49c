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

package ipc

import (
	"time"

	"github.com/xnix-project/xnixcore/errno"
)

// Waitable is anything wait_any can poll: an endpoint (sender or async
// message queued) or a notification (mask non-zero).
type Waitable interface {
	Ready() bool
	registerPoll(ch chan struct{})
	unregisterPoll(ch chan struct{})
}

const maxWaitSet = 8 // spec.md §4.10 IPC_WAIT_MAX

// WaitAny implements spec.md §4.10 Multi-object wait: checks each
// member's readiness once; if none is ready it registers a poll entry
// on every member and blocks on a shared channel until one becomes
// ready or timeoutMs elapses (0 means block indefinitely).
func WaitAny(set []Waitable, timeoutMs uint32) (int, error) {
	if len(set) == 0 || len(set) > maxWaitSet {
		return -1, errno.Wrap(errno.EINVAL, "ipc: wait_any set size %d out of range", len(set))
	}

	if i, ok := firstReady(set); ok {
		return i, nil
	}

	signal := make(chan struct{}, 1)
	for _, w := range set {
		w.registerPoll(signal)
	}
	defer func() {
		for _, w := range set {
			w.unregisterPoll(signal)
		}
	}()

	if timeoutMs == 0 {
		for {
			<-signal
			if i, ok := firstReady(set); ok {
				return i, nil
			}
		}
	}

	deadline := time.After(time.Duration(timeoutMs) * time.Millisecond)
	for {
		select {
		case <-signal:
			if i, ok := firstReady(set); ok {
				return i, nil
			}
		case <-deadline:
			return -1, errno.Wrap(errno.ETIMEDOUT, "ipc: wait_any timed out")
		}
	}
}

func firstReady(set []Waitable) (int, bool) {
	for i, w := range set {
		if w.Ready() {
			return i, true
		}
	}
	return -1, false
}
