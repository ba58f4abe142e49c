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

package syscalls

import (
	"github.com/xnix-project/xnixcore/handle"
	"github.com/xnix-project/xnixcore/ksync"
)

// userMutex makes a ksync.Mutex a handle-table object: SYS_MUTEX_*
// operates on one of these rather than on ksync.Mutex directly, since
// only objects satisfying handle.Object can live in a process's
// handle table.
type userMutex struct {
	handle.Refcounted
	ksync.Mutex
}
