package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delyan-kirov/BC/pkg/driver"
	"github.com/delyan-kirov/BC/pkg/foreign"
	"github.com/delyan-kirov/BC/pkg/runtime"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := runWith(context.Background(), args, bytes.NewReader(nil), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

const squares = `int sq = \x = x * x
pub a = sq 4
pub b = a + 1
`

func TestRunPrintsExports(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", squares)

	res := runCLI(t, "run", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "a = 16\nb = 17\n", res.stdout)

	res = runCLI(t, path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "a = 16\nb = 17\n", res.stdout)
}

func TestRunAllDefinitions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", squares)

	res := runCLI(t, "run", "--all", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "sq = (\\x = (x * x))\na = 16\nb = 17\n", res.stdout)
}

func TestRunReportsFailedDefinitions(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", "int a = 1\npub b = 4 / 0\npub c = a + 1\n")

	res := runCLI(t, "--no-color", "run", path)
	assert.Equal(t, 1, res.code)
	assert.Equal(t, "c = 2\n", res.stdout)
	assert.Contains(t, res.stderr, "definition b: DIVISION_BY_ZERO")
}

func TestRunRendersLexErrors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", "int a = (1 + 2\n")

	res := runCLI(t, "--no-color", "run", path)
	assert.Equal(t, 1, res.code)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "[ERROR] PARENTHESIS_UNBALANCED: unclosed '('")
	assert.Contains(t, res.stderr, "1 | int a = (1 + 2\n  |         ^\n")
}

func TestRunMissingFile(t *testing.T) {
	res := runCLI(t, "--no-color", "run", filepath.Join(t.TempDir(), "missing.se"))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "loading module")
}

func TestRunWithoutTarget(t *testing.T) {
	t.Chdir(t.TempDir())

	res := runCLI(t, "run")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "no file given")
}

func TestRunStats(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", squares)

	res := runCLI(t, "--stats", "run", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Regexp(t, `arena: \d+ blocks, \d+ slab chunks, .* used of .* reserved`, res.stderr)
	assert.Contains(t, res.stderr, "allocations")
}

func TestRunManifestEntry(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, driver.ManifestFileName, "name: demo\nentry: main.se\n")
	writeFile(t, root, "main.se", squares)
	t.Chdir(root)

	res := runCLI(t, "run")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "a = 16\nb = 17\n", res.stdout)
}

func TestRunInvalidManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, driver.ManifestFileName, "name: demo\nentry: main.txt\n")
	path := writeFile(t, root, "main.se", squares)

	res := runCLI(t, "run", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "failed to load manifest")
	assert.Contains(t, res.stderr, `entry "main.txt" must be a .se file`)
}

func TestEvalExpression(t *testing.T) {
	t.Chdir(t.TempDir())

	res := runCLI(t, "eval", "1 + 2 * 3")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "7\n", res.stdout)

	res = runCLI(t, "eval", "let", "x", "=", "4", "in", "x", "*", "x")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "16\n", res.stdout)

	res = runCLI(t, "eval")
	assert.Equal(t, 2, res.code)
}

func TestEvalUsesManifestEntryAndForeign(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, driver.ManifestFileName, `name: demo
entry: main.se
foreign:
  - name: show
    host: print
    args: [int]
    returns: void
`)
	writeFile(t, root, "main.se", "pub ten = 10\n")
	t.Chdir(root)

	res := runCLI(t, "eval", "show ten")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "10\n0\n", res.stdout)
}

func TestLexAndParse(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", "int a = 1 + 2\npub b = -a\n")

	res := runCLI(t, "lex", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Def(int a = [Int(1) Plus Int(2)])\nDef(pub b = [Minus Word(a)])\n", res.stdout)

	res = runCLI(t, "parse", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "int a = (1 + 2)\npub b = -a\n", res.stdout)
}

func TestParseReportsEachDefinition(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", "int a = 1 +\nint b = 2\nint c = * 3\n")

	res := runCLI(t, "--no-color", "parse", path)
	assert.Equal(t, 1, res.code)
	assert.Equal(t, "int b = 2\n", res.stdout)
	assert.Contains(t, res.stderr, "ARITY_MISMATCH in a")
	assert.Contains(t, res.stderr, "UNEXPECTED_TOKEN in c")
}

func TestVersion(t *testing.T) {
	res := runCLI(t, "version")
	require.Equal(t, 0, res.code)
	assert.Equal(t, cliToolVersion+"\n", res.stdout)
}

func TestReplHandle(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := &repl{
		sess: &session{
			stdout:   &stdout,
			stderr:   &stderr,
			manifest: &driver.Manifest{},
			loader:   &driver.Loader{Foreign: foreign.Host(&stdout)},
			noColor:  true,
		},
		env: runtime.NewEnvironment(),
	}
	ctx := context.Background()

	assert.False(t, r.handle(ctx, `int sq = \x = x * x`))
	assert.False(t, r.handle(ctx, "sq 7 - 1"))
	assert.False(t, r.handle(ctx, "pub n = sq 3"))
	assert.False(t, r.handle(ctx, "undefined"))
	assert.False(t, r.handle(ctx, ":env"))
	assert.Equal(t, "sq = (\\x = (x * x))\n48\nn = 9\nsq = (\\x = (x * x))\nn = 9\n", stdout.String())
	assert.Contains(t, stderr.String(), "UNBOUND_VARIABLE")

	stdout.Reset()
	assert.False(t, r.handle(ctx, ":nope"))
	assert.Contains(t, stdout.String(), "unknown command")
	assert.True(t, r.handle(ctx, ":quit"))
}

func initGitRepo(t *testing.T, dir string) *git.Repository {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return repo
}

func commitAll(t *testing.T, repo *git.Repository, message string) {
	t.Helper()
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, worktree.AddWithOptions(&git.AddOptions{All: true}))
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "bc", Email: "bc@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)
}

func TestRunAtRevision(t *testing.T) {
	root := t.TempDir()
	repo := initGitRepo(t, root)
	path := writeFile(t, root, "main.se", "pub v = 1\n")
	commitAll(t, repo, "first")
	writeFile(t, root, "main.se", "pub v = 2\n")

	res := runCLI(t, "--rev", "HEAD", "run", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "v = 1\n", res.stdout)

	res = runCLI(t, "run", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "v = 2\n", res.stdout)
}

func TestDumpEventsAfterEval(t *testing.T) {
	t.Chdir(t.TempDir())

	res := runCLI(t, "--dump-events", "eval", "1 + 2")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "3\n", res.stdout)
	assert.Contains(t, res.stderr, "[DEBUG]eval (1 + 2)\n")
	assert.Contains(t, res.stderr, "[DEBUG]eval 1\n")

	res = runCLI(t, "eval", "1 + 2")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Empty(t, res.stderr)
}

func TestDumpEventsAfterRun(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", "pub a = 2 * 3\n")

	res := runCLI(t, "--dump-events", "run", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "a = 6\n", res.stdout)
	assert.Contains(t, res.stderr, "[DEBUG]load "+path+" :> begin\n")
	assert.Contains(t, res.stderr, "[INFO]pub a = 6\n")
	assert.Contains(t, res.stderr, "[DEBUG]eval (2 * 3)\n")
	assert.Contains(t, res.stderr, "[DEBUG]load "+path+" :> end\n")
}

func TestTraceFlagKeepsOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "main.se", "pub a = 2 * 3\n")

	res := runCLI(t, "--trace", "run", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "a = 6\n", res.stdout)
}

func TestRunAtRevisionFromManifest(t *testing.T) {
	root := t.TempDir()
	repo := initGitRepo(t, root)
	writeFile(t, root, driver.ManifestFileName, "name: demo\nentry: main.se\n")
	writeFile(t, root, "main.se", "pub v = 1\n")
	commitAll(t, repo, "first")
	writeFile(t, root, "main.se", "pub v = 2\n")
	t.Chdir(root)

	res := runCLI(t, "--rev", "HEAD", "run")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "v = 1\n", res.stdout)
}
