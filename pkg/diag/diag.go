// Package diag renders load and evaluation errors for humans, quoting the
// offending source line with a caret under the failing column.
package diag

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"

	"github.com/delyan-kirov/BC/pkg/driver"
	"github.com/delyan-kirov/BC/pkg/lexer"
	"github.com/delyan-kirov/BC/pkg/parser"
)

type Options struct {
	NoColor bool
}

type palette struct {
	err    *color.Color
	gutter *color.Color
	caret  *color.Color
}

func newPalette(opts Options) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgYellow, color.Bold),
	}
	if opts.NoColor {
		p.err.DisableColor()
		p.gutter.DisableColor()
		p.caret.DisableColor()
	}
	return p
}

// Render writes every error contained in err. Multierrors are expanded one
// entry per failure.
func Render(w io.Writer, err error, opts Options) {
	if err == nil {
		return
	}
	p := newPalette(opts)
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			renderOne(w, e, p)
		}
		return
	}
	renderOne(w, err, p)
}

func renderOne(w io.Writer, err error, p palette) {
	path, src, name := origin(err)
	kind, message, pos, ok := positioned(err)
	if !ok {
		p.err.Fprint(w, "[ERROR]")
		fmt.Fprintf(w, " %s\n", err)
		return
	}
	p.err.Fprintf(w, "[ERROR] %s", kind)
	if name != "" {
		fmt.Fprintf(w, " in %s", name)
	}
	fmt.Fprintf(w, ": %s\n", message)
	if path != "" {
		fmt.Fprintf(w, "  --> %s:%s\n", path, pos)
	}
	if src != "" && pos.Line > 0 {
		writeSnippet(w, src, pos, p)
	}
}

// origin extracts the file, its contents and the failing definition.
func origin(err error) (path, src, name string) {
	var defErr *driver.DefinitionError
	if errors.As(err, &defErr) {
		return defErr.Path, defErr.Source, defErr.Name
	}
	var loadErr *driver.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Path, loadErr.Source, ""
	}
	return "", "", ""
}

func positioned(err error) (kind, message string, pos lexer.Position, ok bool) {
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		return lexErr.Kind.String(), lexErr.Message, lexErr.Pos, true
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return parseErr.Kind.String(), parseErr.Message, parseErr.Location, true
	}
	return "", "", lexer.Position{}, false
}

// LineAt returns the line of src containing offset, found by scanning
// backward and forward for newlines.
func LineAt(src string, offset int) string {
	offset = min(max(offset, 0), len(src))
	start := offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := offset
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return strings.TrimRight(src[start:end], "\r")
}

func writeSnippet(w io.Writer, src string, pos lexer.Position, p palette) {
	line := LineAt(src, pos.Offset)
	number := strconv.Itoa(pos.Line)
	pad := strings.Repeat(" ", len(number))

	p.gutter.Fprintf(w, "%s |\n", pad)
	p.gutter.Fprintf(w, "%s | ", number)
	fmt.Fprintln(w, line)
	p.gutter.Fprintf(w, "%s | ", pad)
	fmt.Fprint(w, caretIndent(line, pos.Column))
	p.caret.Fprintln(w, "^")
}

// caretIndent keeps tabs so the caret lines up under the failing column.
func caretIndent(line string, column int) string {
	var b strings.Builder
	for i := 0; i < column-1 && i < len(line); i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	for i := len(line); i < column-1; i++ {
		b.WriteByte(' ')
	}
	return b.String()
}
