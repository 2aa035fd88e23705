package driver

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delyan-kirov/BC/pkg/foreign"
)

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(strings.NewReader(`name: demo
entry: src/main.se
trace: true
arena:
  block_size: 4096
  max_bytes: 1048576
limits:
  max_depth: 500
  max_nesting: 32
foreign:
  - name: show
    host: print
    args: int
`), "/work/demo/bc.yml")
	require.NoError(t, err)
	assert.Equal(t, "demo", m.Name)
	assert.True(t, m.Trace)
	assert.Equal(t, filepath.Join("/work/demo", "src", "main.se"), m.EntryPath())
	assert.Equal(t, "/work/demo", m.Dir())

	opts := OptionsFromManifest(m)
	assert.Equal(t, 4096, opts.Arena.BlockSize)
	assert.Equal(t, int64(1048576), opts.Arena.MaxBytes)
	assert.Equal(t, 500, opts.Interpreter.MaxDepth)
	assert.Equal(t, 32, opts.Lexer.MaxDepth)

	desc, err := m.Foreign[0].Descriptor()
	require.NoError(t, err)
	assert.Equal(t, "show(int) -> void", desc.String())
}

func TestManifestValidation(t *testing.T) {
	_, err := ParseManifest(strings.NewReader(`entry: main.txt
arena:
  block_size: -1
foreign:
  - host: print
  - name: f
    args: [float]
  - name: g
    args: [void]
  - name: g
`), "bc.yml")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		`entry "main.txt" must be a .se file`,
		"arena.block_size must not be negative",
		"foreign[0]: name is required",
		`foreign "f": foreign: unknown type "float"`,
		`foreign "g": void is not an argument type`,
		`foreign "g": declared more than once`,
	}, verr.Issues)
	assert.Contains(t, verr.Error(), "manifest validation failed:\n- entry")
}

func TestManifestRejectsUnknownFields(t *testing.T) {
	_, err := ParseManifest(strings.NewReader("name: x\nmystery: 1\n"), "bc.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")

	_, err = ParseManifest(strings.NewReader(""), "bc.yml")
	assert.ErrorContains(t, err, "is empty")
}

func TestBindRejectsMismatchedHostSignature(t *testing.T) {
	m := &Manifest{Foreign: []ForeignSpec{{Name: "abs", Host: "abs", Args: stringList{"str"}, Returns: "int"}}}
	err := m.Bind(foreign.Host(nil))
	assert.ErrorContains(t, err, "abs(str) -> int")

	m = &Manifest{Foreign: []ForeignSpec{{Name: "x", Host: "nothing", Returns: "int"}}}
	assert.ErrorContains(t, m.Bind(foreign.Host(nil)), "unknown host routine nothing")
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ManifestFileName, "name: root\n")
	nested := filepath.Join(root, "a", "b")
	writeFile(t, nested, "x.se", "int x = 1\n")

	found, err := FindManifest(nested)
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(filepath.Join(root, ManifestFileName))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestApplyEnv(t *testing.T) {
	m := &Manifest{}
	m.ApplyEnv(func(key string) string {
		if key == "BC_TRACE" {
			return "yes"
		}
		return ""
	})
	assert.True(t, m.Trace)
	m.ApplyEnv(func(string) string { return "0" })
	assert.False(t, m.Trace)
	m.ApplyEnv(func(string) string { return "" })
	assert.False(t, m.Trace)
}
