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

// Package perm implements the permission engine of spec.md §4.9,
// grounded on _examples/original_source/main/include/xnix/abi/perm.h.
//
// The node registry is backed by github.com/hashicorp/go-immutable-radix
// (the same library the teacher's domain.HandlerServiceIface.HandlerDB
// uses to index handlers by path) rather than a plain map: wildcard
// resolution needs "every registered node under this dotted prefix",
// which is WalkPrefix on the radix tree, not a full scan of a map.
package perm

import (
	"hash/fnv"
	"strings"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
)

// ID is a dense, registration-order integer identifying a permission
// node.
type ID uint32

const InvalidID ID = 0xFFFFFFFF

type node struct {
	id    ID
	name  string
	depth int
	hash  uint64
}

// Registry is the process-wide node namespace. register is idempotent:
// re-registering an existing name returns its existing ID.
type Registry struct {
	mu    sync.RWMutex
	tree  *iradix.Tree // name -> *node
	byID  []*node
}

func NewRegistry() *Registry {
	return &Registry{tree: iradix.New()}
}

func depthOf(name string) int {
	return strings.Count(name, ".")
}

func fnv1a(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// Register assigns (or returns the existing) dense ID for name.
func (r *Registry) Register(name string) ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.tree.Get([]byte(name)); ok {
		return v.(*node).id
	}
	n := &node{
		id:    ID(len(r.byID)),
		name:  name,
		depth: depthOf(name),
		hash:  fnv1a(name),
	}
	r.byID = append(r.byID, n)
	r.tree, _, _ = r.tree.Insert([]byte(name), n)
	return n.id
}

// Lookup resolves a registered name to its ID.
func (r *Registry) Lookup(name string) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.tree.Get([]byte(name))
	if !ok {
		return InvalidID, false
	}
	return v.(*node).id, true
}

// NameOf returns the registered name for id.
func (r *Registry) NameOf(id ID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.byID) {
		return "", false
	}
	return r.byID[id].name, true
}

// Count returns the number of registered nodes, used by perm.State to
// detect a stale resolution (spec.md §4.9 Check).
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// depthOfID returns the precomputed depth for id, or -1 if unknown.
func (r *Registry) depthOfID(id ID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.byID) {
		return -1
	}
	return r.byID[id].depth
}

// matchIDs resolves a rule node (possibly "xnix.*" or ending in ".*")
// to the set of concrete registered IDs it covers. A plain node
// resolves to itself if registered.
func (r *Registry) matchIDs(ruleNode string) []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ruleNode == "xnix.*" {
		ids := make([]ID, len(r.byID))
		for i, n := range r.byID {
			ids[i] = n.id
		}
		return ids
	}

	if strings.HasSuffix(ruleNode, ".*") {
		prefix := strings.TrimSuffix(ruleNode, "*") // keep trailing dot
		var ids []ID
		r.tree.Root().WalkPrefix([]byte(prefix), func(k []byte, v interface{}) bool {
			ids = append(ids, v.(*node).id)
			return false
		})
		return ids
	}

	if v, ok := r.tree.Get([]byte(ruleNode)); ok {
		return []ID{v.(*node).id}
	}
	return nil
}

// ruleDepth computes the ordering key used to apply wildcard rules
// before the more specific rules they're overridden by (spec.md §4.9
// Resolution): the prefix before a trailing ".*" is one dot shallower
// than the concrete nodes it matches.
func ruleDepth(ruleNode string) int {
	if ruleNode == "xnix.*" {
		return -1
	}
	if strings.HasSuffix(ruleNode, ".*") {
		return depthOf(strings.TrimSuffix(ruleNode, ".*"))
	}
	return depthOf(ruleNode)
}
