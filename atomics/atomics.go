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

// Package atomics provides the lock-free primitives (spec.md §4.1)
// that the rest of the kernel builds on; ksync's spinlock
// test-and-set is built on Uint32.CompareAndSwap. x86 gives fetch-* and
// CAS a full barrier and plain loads/stores acquire/release
// semantics; Go's sync/atomic already provides sequential consistency
// for these widths, so the wrapper's job is to name the intent at the
// call site, not to add machinery.
package atomics

import "sync/atomic"

// Uint32 is a 32-bit word accessed only through atomic operations.
type Uint32 struct{ v uint32 }

func (a *Uint32) Load() uint32          { return atomic.LoadUint32(&a.v) }
func (a *Uint32) Store(val uint32)      { atomic.StoreUint32(&a.v, val) }
func (a *Uint32) Add(delta uint32) uint32 {
	return atomic.AddUint32(&a.v, delta)
}
func (a *Uint32) Inc() uint32 { return a.Add(1) }
func (a *Uint32) Dec() uint32 { return a.Add(^uint32(0)) }

func (a *Uint32) Exchange(new uint32) uint32 {
	return atomic.SwapUint32(&a.v, new)
}

func (a *Uint32) CompareAndSwap(old, new uint32) bool {
	return atomic.CompareAndSwapUint32(&a.v, old, new)
}

// Int64 is a 64-bit signed counter accessed only through atomic
// operations, for values that must never wrap in practice.
type Int64 struct{ v int64 }

func (a *Int64) Load() int64            { return atomic.LoadInt64(&a.v) }
func (a *Int64) Store(val int64)        { atomic.StoreInt64(&a.v, val) }
func (a *Int64) Add(delta int64) int64  { return atomic.AddInt64(&a.v, delta) }
func (a *Int64) Inc() int64             { return a.Add(1) }
func (a *Int64) Dec() int64             { return a.Add(-1) }

func (a *Int64) CompareAndSwap(old, new int64) bool {
	return atomic.CompareAndSwapInt64(&a.v, old, new)
}

// FenceRead, FenceWrite and FenceFull document ordering intent at call
// sites that rely on Go's memory model rather than an explicit atomic
// op (e.g. publishing a pointer via a mutex-protected field right
// before an atomic flag flips). They compile to nothing; the ordering
// guarantee in this hosted core comes from the surrounding Go
// primitives, the same way the x86 port gets it from mfence/lfence/sfence.
func FenceRead()  {}
func FenceWrite() {}
func FenceFull()  {}
