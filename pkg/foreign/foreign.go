// Package foreign holds the table of host routines that expressions may call
// by name when no binding in scope matches.
package foreign

import (
	"fmt"
	"sort"
	"strings"
)

// Type is a marshalling slot type.
type Type int

const (
	Void Type = iota
	Int
	Str
)

func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case Int:
		return "int"
	case Str:
		return "str"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps the manifest spelling of a type to a Type.
func ParseType(s string) (Type, error) {
	switch strings.TrimSpace(s) {
	case "void":
		return Void, nil
	case "int":
		return Int, nil
	case "str":
		return Str, nil
	default:
		return Void, fmt.Errorf("foreign: unknown type %q", s)
	}
}

// Descriptor is the call signature of a host routine.
type Descriptor struct {
	Name   string
	Args   []Type
	Return Type
}

func (d Descriptor) String() string {
	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s) -> %s", d.Name, strings.Join(args, ", "), d.Return)
}

// SameSignature reports whether d and other marshal identically.
func (d Descriptor) SameSignature(other Descriptor) bool {
	if d.Return != other.Return || len(d.Args) != len(other.Args) {
		return false
	}
	for i := range d.Args {
		if d.Args[i] != other.Args[i] {
			return false
		}
	}
	return true
}

// Value is one marshalled argument or result.
type Value struct {
	Type Type
	Int  int64
	Str  string
}

func IntValue(v int64) Value { return Value{Type: Int, Int: v} }

func StrValue(s string) Value { return Value{Type: Str, Str: s} }

// Func is a host routine.
type Func func(args []Value) (Value, error)

// Entry is a registered routine.
type Entry struct {
	Descriptor
	Fn Func
}

// CallError reports a marshalling or host failure.
type CallError struct {
	Name    string
	Message string
	Err     error
}

func (e *CallError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("foreign call %s: %s: %v", e.Name, e.Message, e.Err)
	}
	return fmt.Sprintf("foreign call %s: %s", e.Name, e.Message)
}

func (e *CallError) Unwrap() error { return e.Err }

// Call checks args against the descriptor and invokes the routine. Void
// routines yield the zero int.
func (e Entry) Call(args []Value) (Value, error) {
	if len(args) != len(e.Args) {
		return Value{}, &CallError{Name: e.Name, Message: fmt.Sprintf("expected %d argument(s), got %d", len(e.Args), len(args))}
	}
	for i, arg := range args {
		if arg.Type != e.Args[i] {
			return Value{}, &CallError{Name: e.Name, Message: fmt.Sprintf("argument %d: expected %s, got %s", i+1, e.Args[i], arg.Type)}
		}
	}
	out, err := e.Fn(args)
	if err != nil {
		return Value{}, &CallError{Name: e.Name, Message: "host routine failed", Err: err}
	}
	if e.Return == Void {
		return IntValue(0), nil
	}
	if out.Type != e.Return {
		return Value{}, &CallError{Name: e.Name, Message: fmt.Sprintf("returned %s, declared %s", out.Type, e.Return)}
	}
	return out, nil
}

// Table maps names to host routines. It is owned by one interpreter.
type Table struct {
	entries map[string]Entry
}

func NewTable() *Table {
	return &Table{entries: make(map[string]Entry)}
}

// Register adds a routine under desc.Name.
func (t *Table) Register(desc Descriptor, fn Func) error {
	if desc.Name == "" {
		return fmt.Errorf("foreign: routine requires a name")
	}
	if fn == nil {
		return fmt.Errorf("foreign: routine %s has no implementation", desc.Name)
	}
	if _, exists := t.entries[desc.Name]; exists {
		return fmt.Errorf("foreign: routine %s already registered", desc.Name)
	}
	t.entries[desc.Name] = Entry{Descriptor: desc, Fn: fn}
	return nil
}

// Alias exposes the routine registered as host under desc.Name, provided the
// declared signature matches the host's.
func (t *Table) Alias(host string, desc Descriptor) error {
	entry, ok := t.entries[host]
	if !ok {
		return fmt.Errorf("foreign: unknown host routine %s", host)
	}
	if !entry.SameSignature(desc) {
		return fmt.Errorf("foreign: %s declared as %s but host routine is %s", desc.Name, desc, entry.Descriptor)
	}
	return t.Register(desc, entry.Fn)
}

// Lookup finds a routine. The nil table is empty.
func (t *Table) Lookup(name string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	entry, ok := t.entries[name]
	return entry, ok
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
