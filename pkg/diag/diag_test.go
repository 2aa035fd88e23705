package diag

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/delyan-kirov/BC/pkg/driver"
)

func TestLineAt(t *testing.T) {
	src := "first\nsecond line\r\nthird"
	assert.Equal(t, "first", LineAt(src, 0))
	assert.Equal(t, "second line", LineAt(src, 8))
	assert.Equal(t, "third", LineAt(src, len(src)))
	assert.Equal(t, "first", LineAt(src, -4))
}

func TestRenderLexError(t *testing.T) {
	src := "int a = 1\nint b = (1 + 2\n"
	_, err := (&driver.Loader{}).LoadSource(context.Background(), "bad.se", []byte(src), nil)
	require.Error(t, err)

	var out bytes.Buffer
	Render(&out, err, Options{NoColor: true})
	want := "[ERROR] PARENTHESIS_UNBALANCED: unclosed '('\n" +
		"  --> bad.se:2:9\n" +
		"  |\n" +
		"2 | int b = (1 + 2\n" +
		"  |         ^\n"
	assert.Equal(t, want, out.String())
}

func TestRenderDefinitionErrors(t *testing.T) {
	src := "int a = 1 +\nint b = 4 / 0\nint c = 2\n"
	_, err := (&driver.Loader{}).LoadSource(context.Background(), "defs.se", []byte(src), nil)
	require.Error(t, err)

	var out bytes.Buffer
	Render(&out, err, Options{NoColor: true})
	want := "[ERROR] ARITY_MISMATCH in a: missing operand\n" +
		"  --> defs.se:1:11\n" +
		"  |\n" +
		"1 | int a = 1 +\n" +
		"  |           ^\n" +
		"[ERROR] defs.se: definition b: DIVISION_BY_ZERO: 4 / 0\n"
	assert.Equal(t, want, out.String())
}

func TestRenderKeepsTabs(t *testing.T) {
	assert.Equal(t, "\t  ", caretIndent("\t  x", 4))
	assert.Equal(t, "   ", caretIndent("ab", 4))
}

func TestRenderNil(t *testing.T) {
	var out bytes.Buffer
	Render(&out, nil, Options{})
	assert.Empty(t, out.String())
}
