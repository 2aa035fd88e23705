// Package driver loads BC modules: it reads a source file, lexes it once,
// and evaluates each top-level definition in order into one global
// environment.
package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/delyan-kirov/BC/pkg/arena"
	"github.com/delyan-kirov/BC/pkg/ast"
	"github.com/delyan-kirov/BC/pkg/foreign"
	"github.com/delyan-kirov/BC/pkg/interpreter"
	"github.com/delyan-kirov/BC/pkg/lexer"
	"github.com/delyan-kirov/BC/pkg/parser"
	"github.com/delyan-kirov/BC/pkg/runtime"
	"github.com/delyan-kirov/BC/pkg/trace"
)

// Options gathers the tunables of each pipeline stage.
type Options struct {
	Arena       arena.Options
	Lexer       lexer.Options
	Interpreter interpreter.Options
}

// OptionsFromManifest maps manifest settings onto loader options.
func OptionsFromManifest(m *Manifest) Options {
	if m == nil {
		return Options{}
	}
	return Options{
		Arena:       arena.Options{BlockSize: m.Arena.BlockSize, MaxBytes: m.Arena.MaxBytes},
		Lexer:       lexer.Options{MaxDepth: m.Limits.MaxNesting},
		Interpreter: interpreter.Options{MaxDepth: m.Limits.MaxDepth},
	}
}

// Loader evaluates modules and expressions. The zero value reads from the
// file system with no host routines and no tracing.
type Loader struct {
	Source  Source
	Foreign *foreign.Table
	Trace   *trace.Log
	Options Options
}

// Definition is one evaluated top-level binding.
type Definition struct {
	Name       string
	Visibility lexer.Visibility
	Pos        lexer.Position
	Value      ast.Expr
	Err        error
}

// Module is the result of loading a source file.
type Module struct {
	Path        string
	Source      string
	Definitions []*Definition
	Env         *runtime.Environment
	Stats       arena.Stats
}

// Exports returns the successfully evaluated pub definitions.
func (m *Module) Exports() []*Definition {
	var out []*Definition
	for _, def := range m.Definitions {
		if def.Visibility == lexer.Public && def.Err == nil {
			out = append(out, def)
		}
	}
	return out
}

// Lookup returns the last definition named name.
func (m *Module) Lookup(name string) (*Definition, bool) {
	for i := len(m.Definitions) - 1; i >= 0; i-- {
		if m.Definitions[i].Name == name {
			return m.Definitions[i], true
		}
	}
	return nil, false
}

// LoadError is a failure that prevents any definition from running: an
// unreadable file or a lexing error.
type LoadError struct {
	Path   string
	Source string
	Err    error
}

func (e *LoadError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// DefinitionError is the first parse or evaluation failure of a single
// definition.
type DefinitionError struct {
	Path   string
	Source string
	Name   string
	Err    error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("%s: definition %s: %v", e.Path, e.Name, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

func (l *Loader) source() Source {
	if l.Source == nil {
		return FileSource{}
	}
	return l.Source
}

// Load reads path and evaluates its definitions. A read or lex failure is
// returned as a *LoadError. Failed definitions do not stop later ones; their
// errors are collected into a *multierror.Error returned with the module.
func (l *Loader) Load(ctx context.Context, path string) (*Module, error) {
	data, err := l.source().Read(ctx, path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: errors.Wrap(err, "loading module")}
	}
	return l.LoadSource(ctx, path, data, nil)
}

// LoadSource evaluates the definitions in src, starting from env.
func (l *Loader) LoadSource(ctx context.Context, name string, src []byte, env *runtime.Environment) (*Module, error) {
	defer l.Trace.Begin("load " + name)()

	a := arena.New(&l.Options.Arena)
	defer a.Release()

	input, err := a.String(string(src))
	if err != nil {
		return nil, &LoadError{Path: name, Source: string(src), Err: err}
	}
	l.Trace.Infof("lexing %s (%d bytes)", name, len(src))
	toks, _, err := lexer.NewModule(a, input, &l.Options.Lexer).Run()
	if err != nil {
		l.Trace.Errorf("lexing %s failed: %v", name, err)
		return nil, &LoadError{Path: name, Source: string(src), Err: err}
	}

	if env == nil {
		env = runtime.NewEnvironment()
	}
	mod := &Module{Path: name, Source: string(src)}
	interp := interpreter.New(l.Foreign, l.Trace, &l.Options.Interpreter)
	var errs *multierror.Error
	for _, tok := range toks {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		def, ok := tok.(*lexer.Def)
		if !ok {
			errs = multierror.Append(errs, &LoadError{Path: name, Source: mod.Source,
				Err: errors.Errorf("unexpected top-level %s", tok.Kind())})
			continue
		}
		d := &Definition{
			Name:       strings.Clone(def.Name),
			Visibility: def.Visibility,
			Pos:        def.Pos(),
		}
		mod.Definitions = append(mod.Definitions, d)

		value, err := evalDefinition(a, interp, def, env)
		if err != nil {
			d.Err = &DefinitionError{Path: name, Source: mod.Source, Name: d.Name, Err: err}
			errs = multierror.Append(errs, d.Err)
			l.Trace.Errorf("%s %s failed: %v", def.Visibility, d.Name, err)
			continue
		}
		d.Value = ast.Clone(value)
		env = env.Extend(d.Name, d.Value)
		l.Trace.Infof("%s %s = %s", def.Visibility, d.Name, d.Value)
	}
	mod.Env = env
	mod.Stats = a.Stats()
	return mod, errs.ErrorOrNil()
}

func evalDefinition(a *arena.Arena, interp *interpreter.Interpreter, def *lexer.Def, env *runtime.Environment) (ast.Expr, error) {
	expr, err := parser.Parse(a, def.Body)
	if err != nil {
		return nil, err
	}
	return interp.Eval(expr, env)
}

// Result is the outcome of Eval: either an expression value or a batch of
// definitions.
type Result struct {
	Value  ast.Expr
	Module *Module
	Env    *runtime.Environment
}

// Eval evaluates src against env. Input starting with a definition keyword
// is loaded as definitions and the extended environment is returned;
// anything else is evaluated as a single expression.
func (l *Loader) Eval(ctx context.Context, name, src string, env *runtime.Environment) (*Result, error) {
	if env == nil {
		env = runtime.NewEnvironment()
	}
	a := arena.New(&l.Options.Arena)
	defer a.Release()

	input, err := a.String(src)
	if err != nil {
		return nil, &LoadError{Path: name, Source: src, Err: err}
	}
	toks, term, err := lexer.New(a, input, 0, len(input), &l.Options.Lexer).Run()
	if err != nil {
		return nil, &LoadError{Path: name, Source: src, Err: err}
	}
	switch {
	case term == lexer.Definition && len(toks) == 0:
		mod, err := l.LoadSource(ctx, name, []byte(src), env)
		if mod == nil {
			return nil, err
		}
		return &Result{Module: mod, Env: mod.Env}, err
	case term != lexer.End:
		return nil, &LoadError{Path: name, Source: src, Err: errors.Errorf("unexpected %s", term)}
	}

	expr, err := parser.Parse(a, toks)
	if err != nil {
		return nil, &DefinitionError{Path: name, Source: src, Name: "<expr>", Err: err}
	}
	value, err := interpreter.New(l.Foreign, l.Trace, &l.Options.Interpreter).Eval(expr, env)
	if err != nil {
		return nil, &DefinitionError{Path: name, Source: src, Name: "<expr>", Err: err}
	}
	return &Result{Value: ast.Clone(value), Env: env}, nil
}
