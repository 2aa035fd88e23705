package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/delyan-kirov/BC/pkg/arena"
	"github.com/delyan-kirov/BC/pkg/driver"
	"github.com/delyan-kirov/BC/pkg/lexer"
	"github.com/delyan-kirov/BC/pkg/parser"
	"github.com/delyan-kirov/BC/pkg/runtime"
)

func runCommand(c *cli.Context) error {
	path, sess, err := target(c)
	if err != nil {
		return err
	}
	defer sess.dumpEvents()
	mod, err := sess.loader.Load(c.Context, path)
	if mod == nil {
		sess.report(err)
		return failed
	}
	defs := mod.Exports()
	if c.Bool(allFlagName) {
		defs = mod.Definitions
	}
	printDefinitions(sess.stdout, defs)
	if sess.stats {
		fmt.Fprintf(sess.stderr, "arena: %s\n", mod.Stats)
	}
	if err != nil {
		sess.report(err)
		return failed
	}
	return nil
}

func evalCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("eval expects an expression", 2)
	}
	sess, err := newSession(c, ".")
	if err != nil {
		return err
	}
	defer sess.dumpEvents()
	env, err := sess.preload(c.Context)
	if err != nil {
		sess.report(err)
		return failed
	}
	src := strings.Join(c.Args().Slice(), " ")
	res, err := sess.loader.Eval(c.Context, "<eval>", src, env)
	if res != nil {
		printResult(sess.stdout, res)
	}
	if err != nil {
		sess.report(err)
		return failed
	}
	return nil
}

func lexCommand(c *cli.Context) error {
	l, err := lexTarget(c)
	if l == nil {
		return err
	}
	defer l.arena.Release()
	for _, tok := range l.tokens {
		fmt.Fprintln(l.sess.stdout, tok)
	}
	l.printStats()
	return nil
}

func parseCommand(c *cli.Context) error {
	l, err := lexTarget(c)
	if l == nil {
		return err
	}
	defer l.arena.Release()
	var errs *multierror.Error
	for _, tok := range l.tokens {
		def, ok := tok.(*lexer.Def)
		if !ok {
			continue
		}
		expr, err := parser.Parse(l.arena, def.Body)
		if err != nil {
			errs = multierror.Append(errs, &driver.DefinitionError{Path: l.path, Source: l.src, Name: def.Name, Err: err})
			continue
		}
		fmt.Fprintf(l.sess.stdout, "%s %s = %s\n", def.Visibility, def.Name, expr)
	}
	l.printStats()
	if err := errs.ErrorOrNil(); err != nil {
		l.sess.report(err)
		return failed
	}
	return nil
}

// lexed holds a module's tokens together with the arena that owns them.
type lexed struct {
	sess   *session
	path   string
	src    string
	arena  *arena.Arena
	tokens lexer.Tokens
}

func (l *lexed) printStats() {
	if l.sess.stats {
		fmt.Fprintf(l.sess.stderr, "arena: %s\n", l.arena.Stats())
	}
}

// lexTarget reads and lexes the command's file. A nil result comes with the
// error the command should return.
func lexTarget(c *cli.Context) (*lexed, error) {
	path, sess, err := target(c)
	if err != nil {
		return nil, err
	}
	data, err := sess.loader.Source.Read(c.Context, path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	l := &lexed{sess: sess, path: path, src: string(data), arena: arena.New(&sess.loader.Options.Arena)}
	input, err := l.arena.String(l.src)
	if err == nil {
		l.tokens, _, err = lexer.NewModule(l.arena, input, &sess.loader.Options.Lexer).Run()
	}
	if err != nil {
		l.arena.Release()
		sess.report(&driver.LoadError{Path: path, Source: l.src, Err: err})
		return nil, failed
	}
	return l, nil
}

// preload evaluates the manifest entry, if any, so its definitions are in
// scope.
func (s *session) preload(ctx context.Context) (*runtime.Environment, error) {
	entry := s.manifest.EntryPath()
	if entry == "" {
		return runtime.NewEnvironment(), nil
	}
	mod, err := s.loader.Load(ctx, entry)
	if err != nil {
		return nil, err
	}
	return mod.Env, nil
}

func printDefinitions(w io.Writer, defs []*driver.Definition) {
	for _, def := range defs {
		if def.Err == nil {
			fmt.Fprintf(w, "%s = %s\n", def.Name, def.Value)
		}
	}
}

func printResult(w io.Writer, res *driver.Result) {
	switch {
	case res.Value != nil:
		fmt.Fprintln(w, res.Value)
	case res.Module != nil:
		printDefinitions(w, res.Module.Definitions)
	}
}
