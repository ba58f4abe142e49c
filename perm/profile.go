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

package perm

import (
	"fmt"
	"sync"
)

// Value is the verdict a rule assigns to a node.
type Value int

const (
	Deny Value = iota
	Grant
)

// Rule pairs a node (possibly a wildcard) with a grant/deny verdict.
type Rule struct {
	Node  string
	Value Value
	depth int // cached ruleDepth(Node), set at Set/append time
}

// Profile is a named, ordered rule list with optional parent for
// inheritance. spec.md §4.9: profiles own their rule list by value;
// parent is a weak reference (here, just a pointer into the shared
// ProfileSet, never owned or copied).
type Profile struct {
	mu     sync.RWMutex
	name   string
	rules  []Rule
	parent *Profile
}

func newProfile(name string) *Profile {
	return &Profile{name: name}
}

func (p *Profile) Name() string { return p.name }

// Set appends or updates a rule for node. Per spec.md, a profile's
// rules are applied oldest-Set-first within a given depth tier; exact
// re-Set of the same node replaces the prior entry in place so
// re-configuring a profile does not grow its rule list unboundedly.
func (p *Profile) Set(node string, v Value) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.rules {
		if p.rules[i].Node == node {
			p.rules[i].Value = v
			return
		}
	}
	p.rules = append(p.rules, Rule{Node: node, Value: v, depth: ruleDepth(node)})
}

func (p *Profile) rulesSnapshot() []Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// chainRootFirst walks the parent links and returns profiles ordered
// root-first, this profile last, so resolve() applies the most
// general ancestor before the most specific descendant.
func (p *Profile) chainRootFirst() []*Profile {
	var chain []*Profile
	for cur := p; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	// reverse in place
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// ProfileSet owns the named profile namespace (create/find/inherit).
type ProfileSet struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

func NewProfileSet() *ProfileSet {
	return &ProfileSet{profiles: make(map[string]*Profile)}
}

// Create registers a new empty profile. Re-creating an existing name
// returns the existing profile (idempotent, matching Registry.Register's
// style).
func (ps *ProfileSet) Create(name string) *Profile {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if p, ok := ps.profiles[name]; ok {
		return p
	}
	p := newProfile(name)
	ps.profiles[name] = p
	return p
}

func (ps *ProfileSet) Find(name string) (*Profile, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p, ok := ps.profiles[name]
	return p, ok
}

// Inherit sets child's parent to parent, refusing a change that would
// introduce a cycle in the parent chain.
func (ps *ProfileSet) Inherit(child, parent *Profile) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for cur := parent; cur != nil; cur = cur.parent {
		if cur == child {
			return fmt.Errorf("perm: inheriting %q from %q would create a cycle", child.name, parent.name)
		}
	}
	child.parent = parent
	return nil
}

// BuiltinProfiles installs the four documented built-in profiles
// (spec.md §4.9's Permission profile glossary entry) into ps and
// returns them, wired to the node names this package's own doc
// comments and spec.md's worked examples reference
// ("xnix.io.port.*", "xnix.*").
func BuiltinProfiles(ps *ProfileSet, reg *Registry) (initP, driverP, ioDriverP, defaultP *Profile) {
	initP = ps.Create("init")
	initP.Set("xnix.*", Grant)
	reg.Register("xnix.*")

	defaultP = ps.Create("default")
	defaultP.Set("xnix.ipc.*", Grant)
	defaultP.Set("xnix.handle.*", Grant)
	defaultP.Set("xnix.vm.*", Grant)
	defaultP.Set("xnix.proc.spawn", Grant)
	defaultP.Set("xnix.thread.create", Grant)
	reg.Register("xnix.ipc.*")
	reg.Register("xnix.handle.*")
	reg.Register("xnix.vm.*")
	reg.Register("xnix.proc.spawn")
	reg.Register("xnix.thread.create")

	driverP = ps.Create("driver")
	_ = ps.Inherit(driverP, defaultP)
	driverP.Set("xnix.irq.*", Grant)
	reg.Register("xnix.irq.*")

	ioDriverP = ps.Create("io_driver")
	_ = ps.Inherit(ioDriverP, driverP)
	ioDriverP.Set("xnix.io.port.*", Grant)
	reg.Register("xnix.io.port.*")

	return
}
