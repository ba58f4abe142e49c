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

package kmsg

import "github.com/sirupsen/logrus"

// Hook feeds every logrus entry emitted anywhere in the kernel into a
// Ring, so the user-readable log (read via the kmsg_read syscall) and
// the ambient structured log share one set of call sites instead of
// every package logging twice.
type Hook struct {
	ring *Ring
}

func NewHook(ring *Ring) *Hook { return &Hook{ring: ring} }

func (h *Hook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *Hook) Fire(e *logrus.Entry) error {
	h.ring.LogRaw(levelFromLogrus(e.Level), Kern, e.Message)
	return nil
}

func levelFromLogrus(l logrus.Level) Level {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel:
		return Err
	case logrus.WarnLevel:
		return Warn
	case logrus.InfoLevel:
		return Info
	default:
		return Debug
	}
}
