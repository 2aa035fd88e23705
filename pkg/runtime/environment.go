package runtime

import (
	"github.com/delyan-kirov/BC/pkg/ast"
)

// Binding pairs a name with an evaluated value.
type Binding struct {
	Name  string
	Value ast.Expr
}

// Environment is an ordered, copy-on-extend mapping from names to values.
// Extending never mutates the receiver, so an environment may be shared
// freely once built. The nil *Environment is the empty environment.
type Environment struct {
	bindings []Binding
}

// NewEnvironment returns an empty environment.
func NewEnvironment() *Environment {
	return &Environment{}
}

// Extend returns a copy of the environment plus name -> value. An existing
// binding of the same name is shadowed, not removed.
func (e *Environment) Extend(name string, value ast.Expr) *Environment {
	var parent []Binding
	if e != nil {
		parent = e.bindings
	}
	bindings := make([]Binding, len(parent), len(parent)+1)
	copy(bindings, parent)
	return &Environment{bindings: append(bindings, Binding{Name: name, Value: value})}
}

// Get retrieves the most recent binding of name.
func (e *Environment) Get(name string) (ast.Expr, bool) {
	if e == nil {
		return nil, false
	}
	for i := len(e.bindings) - 1; i >= 0; i-- {
		if e.bindings[i].Name == name {
			return e.bindings[i].Value, true
		}
	}
	return nil, false
}

// Len counts bindings, shadowed ones included.
func (e *Environment) Len() int {
	if e == nil {
		return 0
	}
	return len(e.bindings)
}

// Keys returns the visible names in the order they were first bound.
func (e *Environment) Keys() []string {
	if e == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(e.bindings))
	keys := make([]string, 0, len(e.bindings))
	for _, b := range e.bindings {
		if _, ok := seen[b.Name]; ok {
			continue
		}
		seen[b.Name] = struct{}{}
		keys = append(keys, b.Name)
	}
	return keys
}

// Snapshot returns a copy of the visible bindings.
func (e *Environment) Snapshot() map[string]ast.Expr {
	out := make(map[string]ast.Expr, e.Len())
	if e == nil {
		return out
	}
	for _, b := range e.bindings {
		out[b.Name] = b.Value
	}
	return out
}
