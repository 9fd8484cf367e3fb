// Copyright 2020-2022 The MGC Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package eval

import (
	"strings"

	"mgc/pkg/project"
)

// NodeEvaluator evaluates pins of graph nodes whose type id matches
// its registered prefix.
type NodeEvaluator interface {
	Evaluate(ctx *Context, node *project.Node, pin string) (Value, error)
}

type registryEntry struct {
	prefix    string
	evaluator NodeEvaluator
}

// Registry dispatches graph nodes by type-id prefix, in
// registration order.
type Registry struct {
	entries []registryEntry
}

// NewRegistry returns a registry with the built-in node
// evaluators registered.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register("effector.", effectorEvaluator{})
	r.Register("decorator.", decoratorEvaluator{})
	r.Register("style.", styleEvaluator{})
	r.Register("transform.", transformEvaluator{})
	r.Register("effect.", effectEvaluator{})
	return r
}

// Register appends a prefix handler.
func (r *Registry) Register(prefix string, e NodeEvaluator) {
	r.entries = append(r.entries, registryEntry{prefix: prefix, evaluator: e})
}

// Find returns the first evaluator whose prefix matches, or nil.
func (r *Registry) Find(typeID string) NodeEvaluator {
	for _, entry := range r.entries {
		if strings.HasPrefix(typeID, entry.prefix) {
			return entry.evaluator
		}
	}
	return nil
}
