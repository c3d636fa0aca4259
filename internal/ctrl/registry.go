// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package ctrl

import "strings"

// GetFunc returns a variable's current value as text, or an error
// message to report as an ERROR reply.
type GetFunc func(tokens []string) (string, error)

// SetFunc applies value to a variable addressed by tokens, returning an
// error message to report as an ERROR reply on failure.
type SetFunc func(tokens []string, value string) error

// node is one registered pattern in the variable tree.
type node struct {
	pattern []string
	get     GetFunc
	set     SetFunc
}

// Registry resolves dot-separated control variable names (e.g.
// "bts.0.trx.0.arfcn") against registered patterns over the static node
// tree {root, net, bts.N, trx.N, ts.N}. A pattern token of "*" matches
// any concrete token at that position (typically a numeric index),
// registered in a route-table style swapped from HTTP paths to dotted
// tokens.
type Registry struct {
	nodes []node
}

// NewRegistry creates an empty variable registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a (pattern, get, set) entry. set may be nil for a
// read-only variable. pattern is dot-separated, e.g. "bts.*.trx.*.arfcn".
func (r *Registry) Register(pattern string, get GetFunc, set SetFunc) {
	r.nodes = append(r.nodes, node{pattern: strings.Split(pattern, "."), get: get, set: set})
}

// lookup finds the registered node matching variable and returns its
// wildcard-captured tokens in pattern order.
func (r *Registry) lookup(variable string) (*node, []string, bool) {
	varTokens := strings.Split(variable, ".")
	for i := range r.nodes {
		n := &r.nodes[i]
		if len(n.pattern) != len(varTokens) {
			continue
		}
		var captures []string
		matched := true
		for j, p := range n.pattern {
			if p == "*" {
				captures = append(captures, varTokens[j])
				continue
			}
			if p != varTokens[j] {
				matched = false
				break
			}
		}
		if matched {
			return n, captures, true
		}
	}
	return nil, nil, false
}

// Get resolves variable and invokes its GetFunc.
func (r *Registry) Get(variable string) (string, error) {
	n, captures, ok := r.lookup(variable)
	if !ok {
		return "", errUnknownVariable(variable)
	}
	if n.get == nil {
		return "", errNotReadable(variable)
	}
	return n.get(captures)
}

// Set resolves variable and invokes its SetFunc.
func (r *Registry) Set(variable, value string) error {
	n, captures, ok := r.lookup(variable)
	if !ok {
		return errUnknownVariable(variable)
	}
	if n.set == nil {
		return errNotWritable(variable)
	}
	return n.set(captures, value)
}

// Variables returns every registered pattern, for TRAP polling.
func (r *Registry) Variables() []string {
	out := make([]string, len(r.nodes))
	for i, n := range r.nodes {
		out[i] = strings.Join(n.pattern, ".")
	}
	return out
}
