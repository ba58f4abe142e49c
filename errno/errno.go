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

// Package errno defines the small, fixed, POSIX-compatible error
// vocabulary that every syscall handler and kernel-internal operation
// returns (spec.md §6/§7). There is no out-of-band error channel: a
// failing operation always resolves to one of these.
package errno

import "fmt"

// Errno is a negative-on-the-wire error code. Its Go representation is
// positive (matching stdlib syscall.Errno); syscalls.Dispatch negates
// it before writing the register back per the ABI in spec.md §6.
type Errno int32

const (
	EPERM      Errno = 1
	ENOENT     Errno = 2
	EINTR      Errno = 4
	EIO        Errno = 5
	EAGAIN     Errno = 11
	ENOMEM     Errno = 12
	EACCES     Errno = 13
	EFAULT     Errno = 14
	EBUSY      Errno = 16
	EEXIST     Errno = 17
	EINVAL     Errno = 22
	ERANGE     Errno = 34
	ENOSYS     Errno = 38
	ETIMEDOUT  Errno = 110
	ECLOSED    Errno = 111
	EMFILE     Errno = 24
)

var names = map[Errno]string{
	EPERM:     "operation not permitted",
	ENOENT:    "no such entity",
	EINTR:     "interrupted",
	EIO:       "i/o error",
	EAGAIN:    "resource temporarily unavailable",
	ENOMEM:    "out of memory",
	EACCES:    "permission denied",
	EFAULT:    "bad address",
	EBUSY:     "resource busy",
	EEXIST:    "already exists",
	EINVAL:    "invalid argument",
	ERANGE:    "out of range",
	ENOSYS:    "function not implemented",
	ETIMEDOUT: "timed out",
	ECLOSED:   "endpoint closed",
	EMFILE:    "too many open handles",
}

func (e Errno) Error() string {
	if s, ok := names[e]; ok {
		return s
	}
	return fmt.Sprintf("errno %d", int32(e))
}

// Wrap attaches context to an Errno while keeping it discoverable via
// errors.Is(err, errno.EXXX).
func Wrap(e Errno, format string, args ...interface{}) error {
	return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", e)
}
