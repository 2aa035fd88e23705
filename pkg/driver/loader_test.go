package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delyan-kirov/BC/pkg/ast"
	"github.com/delyan-kirov/BC/pkg/foreign"
	"github.com/delyan-kirov/BC/pkg/interpreter"
	"github.com/delyan-kirov/BC/pkg/lexer"
	"github.com/delyan-kirov/BC/pkg/parser"
	"github.com/delyan-kirov/BC/pkg/trace"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func intValue(t *testing.T, e ast.Expr) int64 {
	t.Helper()
	n, ok := e.(*ast.Int)
	require.True(t, ok, "expected Int, got %v", e)
	return n.Value
}

func definitionNames(defs []*Definition) []string {
	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}

func TestLoadAccumulatesGlobals(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", `# globals
int base = 10
pub inc = \x = x + 1
int add = \a = \b = a + b
pub answer = add (inc base) 31
pub twice = let f = \x = x * 2 in f (f 3)
`)
	loader := &Loader{}
	mod, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"base", "inc", "add", "answer", "twice"}, definitionNames(mod.Definitions))
	if diff := cmp.Diff([]string{"inc", "answer", "twice"}, definitionNames(mod.Exports())); diff != "" {
		t.Fatalf("exports (-want +got):\n%s", diff)
	}
	answer, ok := mod.Lookup("answer")
	require.True(t, ok)
	assert.Equal(t, int64(42), intValue(t, answer.Value))
	twice, _ := mod.Lookup("twice")
	assert.Equal(t, int64(12), intValue(t, twice.Value))

	inc, ok := mod.Env.Get("inc")
	require.True(t, ok)
	assert.Equal(t, `(\x = (x + 1))`, ast.Format(inc))
	assert.Equal(t, 1, mod.Definitions[3].Pos.Column)
	assert.Equal(t, 5, mod.Definitions[3].Pos.Line)
	assert.Greater(t, mod.Stats.Used, int64(0))
}

func TestFailedDefinitionDoesNotStopLaterOnes(t *testing.T) {
	src := `int a = 1
int b = 1 / (a - 1)
int c = missing + 1
int d = a + 2
int e = * 3
`
	mod, err := (&Loader{}).LoadSource(context.Background(), "defs.se", []byte(src), nil)
	require.Error(t, err)
	require.NotNil(t, mod)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 3)

	var evalErr *interpreter.Error
	require.ErrorAs(t, merr.Errors[0], &evalErr)
	assert.Equal(t, interpreter.DivisionByZero, evalErr.Kind)
	require.ErrorAs(t, merr.Errors[1], &evalErr)
	assert.Equal(t, interpreter.UnboundVariable, evalErr.Kind)
	var parseErr *parser.ParseError
	require.ErrorAs(t, merr.Errors[2], &parseErr)
	assert.Equal(t, parser.UnexpectedToken, parseErr.Kind)

	var defErr *DefinitionError
	require.ErrorAs(t, merr.Errors[0], &defErr)
	assert.Equal(t, "b", defErr.Name)
	assert.Equal(t, src, defErr.Source)

	d, _ := mod.Lookup("d")
	assert.Equal(t, int64(3), intValue(t, d.Value))
	_, bound := mod.Env.Get("b")
	assert.False(t, bound, "failed definitions are not bound")
}

func TestLexErrorFailsWholeModule(t *testing.T) {
	src := "int a = (1 + 2\nint b = 3\n"
	mod, err := (&Loader{}).LoadSource(context.Background(), "bad.se", []byte(src), nil)
	assert.Nil(t, mod)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, src, loadErr.Source)
	var lexErr *lexer.Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, lexer.ParenUnbalanced, lexErr.Kind)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := (&Loader{}).Load(context.Background(), filepath.Join(t.TempDir(), "nope.se"))
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestLoadHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Loader{}).LoadSource(ctx, "c.se", []byte("int a = 1\n"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManifestForeignAliases(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ManifestFileName, `name: demo
entry: main.se
foreign:
  - name: show
    host: print
    args: [int]
    returns: void
  - name: abs
    args: int
    returns: int
`)
	writeFile(t, dir, "main.se", "pub shown = show (abs (0 - 7)) + 1\n")

	manifest, err := LoadManifest(filepath.Join(dir, ManifestFileName))
	require.NoError(t, err)
	var out bytes.Buffer
	table := foreign.Host(&out)
	require.NoError(t, manifest.Bind(table))

	loader := &Loader{Foreign: table, Options: OptionsFromManifest(manifest)}
	mod, err := loader.Load(context.Background(), manifest.EntryPath())
	require.NoError(t, err)
	shown, _ := mod.Lookup("shown")
	assert.Equal(t, int64(1), intValue(t, shown.Value))
	assert.Equal(t, "7\n", out.String())
}

func TestEvalExpressionAndDefinitions(t *testing.T) {
	loader := &Loader{Trace: trace.Silent(false)}
	ctx := context.Background()

	res, err := loader.Eval(ctx, "repl", "int sq = \\x = x * x", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Module)
	env := res.Env

	res, err = loader.Eval(ctx, "repl", "sq 7 - 1", env)
	require.NoError(t, err)
	assert.Equal(t, int64(48), intValue(t, res.Value))

	_, err = loader.Eval(ctx, "repl", "1 in 2", env)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)

	res, err = loader.Eval(ctx, "repl", "sq", env)
	require.NoError(t, err)
	assert.IsType(t, &ast.FnDef{}, res.Value)

	_, err = loader.Eval(ctx, "repl", "nope 1", env)
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)

	events := loader.Trace.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, trace.Info, events[0].Level)
}

func TestLoaderLimitsFromOptions(t *testing.T) {
	loader := &Loader{Options: Options{Interpreter: interpreter.Options{MaxDepth: 50}}}
	mod, err := loader.LoadSource(context.Background(), "loop.se",
		[]byte("int loop = let foo = \\x = x x in foo foo\nint after = 1\n"), nil)
	require.Error(t, err)
	var evalErr *interpreter.Error
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, interpreter.RecursionLimit, evalErr.Kind)
	after, _ := mod.Lookup("after")
	assert.Equal(t, int64(1), intValue(t, after.Value))
}

func TestEvalProperties(t *testing.T) {
	cases := []struct {
		src  string
		want int64
	}{
		{"2 - 3 * 4 + 1", -9},
		{"((2 - (3 * 4)) + 1)", -9},
		{"(2 - 3) * (4 + 1)", -5},
		{"-2 * 3", -6},
		{"2 - -3", 5},
		{"1 - 1 - 1", -1},
		{"1 + 2 ?= 3", 1},
		{"-7 / 2", -3},
		{"7 % 3", 1},
		{"let x = 5 in x * x", 25},
		{"let x = 2 in let y = x + 1 in x * y", 6},
		{`(\x = \y = x - y) 10 3`, 7},
		{"if 0 => 1 else 2", 2},
		{"if 1 ?= 1 => 10 else 20", 10},
		{"# comment\n40 + 2", 42},
	}
	loader := &Loader{}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			res, err := loader.Eval(context.Background(), "<test>", tc.src, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, intValue(t, res.Value))
		})
	}
}
