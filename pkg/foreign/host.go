package foreign

import (
	"fmt"
	"io"
	"strconv"
)

// Host returns a table preloaded with the built-in routines. Output routines
// write to w.
func Host(w io.Writer) *Table {
	t := NewTable()
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(t.Register(Descriptor{Name: "print", Args: []Type{Int}, Return: Void}, func(args []Value) (Value, error) {
		_, err := fmt.Fprintln(w, args[0].Int)
		return Value{}, err
	}))
	must(t.Register(Descriptor{Name: "prints", Args: []Type{Str}, Return: Void}, func(args []Value) (Value, error) {
		_, err := fmt.Fprintln(w, args[0].Str)
		return Value{}, err
	}))
	must(t.Register(Descriptor{Name: "abs", Args: []Type{Int}, Return: Int}, func(args []Value) (Value, error) {
		v := args[0].Int
		if v < 0 {
			v = -v
		}
		return IntValue(v), nil
	}))
	must(t.Register(Descriptor{Name: "min", Args: []Type{Int, Int}, Return: Int}, func(args []Value) (Value, error) {
		return IntValue(min(args[0].Int, args[1].Int)), nil
	}))
	must(t.Register(Descriptor{Name: "max", Args: []Type{Int, Int}, Return: Int}, func(args []Value) (Value, error) {
		return IntValue(max(args[0].Int, args[1].Int)), nil
	}))
	must(t.Register(Descriptor{Name: "itoa", Args: []Type{Int}, Return: Str}, func(args []Value) (Value, error) {
		return StrValue(strconv.FormatInt(args[0].Int, 10)), nil
	}))
	must(t.Register(Descriptor{Name: "len", Args: []Type{Str}, Return: Int}, func(args []Value) (Value, error) {
		return IntValue(int64(len(args[0].Str))), nil
	}))
	return t
}
