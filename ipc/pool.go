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
	"sync"

	"github.com/xnix-project/xnixcore/errno"
)

type asyncNode struct {
	regs [8]uint32
}

// AsyncPool is the global free list of fixed-size regs-only records
// spec.md §4.10's Async send describes: a chunk-grown pool rather than
// a per-send allocation, bounded by maxTotal (0 = unbounded).
type AsyncPool struct {
	mu        sync.Mutex
	free      []*asyncNode
	chunkSize int
	total     int
	maxTotal  int
}

func NewAsyncPool(chunkSize, maxTotal int) *AsyncPool {
	if chunkSize < 1 {
		chunkSize = 128
	}
	return &AsyncPool{chunkSize: chunkSize, maxTotal: maxTotal}
}

func (p *AsyncPool) acquire() (*asyncNode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		if !p.grow() {
			return nil, errno.Wrap(errno.ENOMEM, "ipc: async pool exhausted")
		}
	}
	n := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	return n, nil
}

func (p *AsyncPool) release(n *asyncNode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n.regs = [8]uint32{}
	p.free = append(p.free, n)
}

// grow adds chunkSize fresh nodes, capped at maxTotal. Caller holds p.mu.
func (p *AsyncPool) grow() bool {
	want := p.chunkSize
	if p.maxTotal != 0 {
		remaining := p.maxTotal - p.total
		if remaining <= 0 {
			return false
		}
		if want > remaining {
			want = remaining
		}
	}
	for i := 0; i < want; i++ {
		p.free = append(p.free, &asyncNode{})
	}
	p.total += want
	return true
}
