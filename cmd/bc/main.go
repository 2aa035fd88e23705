package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/delyan-kirov/BC/pkg/diag"
	"github.com/delyan-kirov/BC/pkg/driver"
	"github.com/delyan-kirov/BC/pkg/foreign"
	"github.com/delyan-kirov/BC/pkg/trace"
)

const cliToolVersion = "bc 0.1.0-dev"

// flag names
const (
	traceFlagName   = "trace"
	dumpFlagName    = "dump-events"
	statsFlagName   = "stats"
	revFlagName     = "rev"
	noColorFlagName = "no-color"
	allFlagName     = "all"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return runWith(context.Background(), args, os.Stdin, os.Stdout, os.Stderr)
}

func runWith(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	app := newApp(stdin, stdout, stderr)
	err := app.RunContext(ctx, append([]string{"bc"}, args...))
	if err == nil {
		return 0
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(stderr, msg)
		}
		return coder.ExitCode()
	}
	fmt.Fprintf(stderr, "bc: %v\n", err)
	return 1
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "bc",
		Usage:     "evaluate .se modules and expressions",
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		// Exit codes are mapped by runWith; the default handler would call os.Exit.
		ExitErrHandler:  func(*cli.Context, error) {},
		HideVersion:     true,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: traceFlagName, Usage: "log every load and evaluation step to stderr"},
			&cli.BoolFlag{Name: dumpFlagName, Usage: "print the recorded event log to stderr when done"},
			&cli.BoolFlag{Name: statsFlagName, Usage: "print arena usage after loading"},
			&cli.StringFlag{Name: revFlagName, Usage: "read sources as of a git revision"},
			&cli.BoolFlag{Name: noColorFlagName, Usage: "disable colored diagnostics"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.ShowAppHelp(c)
			}
			return runCommand(c)
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "load a module and print its exported definitions",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: allFlagName, Usage: "print every definition, not only pub ones"},
				},
				Action: runCommand,
			},
			{
				Name:      "eval",
				Usage:     "evaluate an expression or a list of definitions",
				ArgsUsage: "<expr>",
				Action:    evalCommand,
			},
			{
				Name:      "lex",
				Usage:     "print the tokens of a module",
				ArgsUsage: "<file>",
				Action:    lexCommand,
			},
			{
				Name:      "parse",
				Usage:     "print the expression tree of every definition",
				ArgsUsage: "<file>",
				Action:    parseCommand,
			},
			{
				Name:   "repl",
				Usage:  "start an interactive session",
				Action: replCommand,
			},
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, cliToolVersion)
					return nil
				},
			},
		},
	}
}

// session is the per-invocation state shared by the commands.
type session struct {
	stdout   io.Writer
	stderr   io.Writer
	manifest *driver.Manifest
	loader   *driver.Loader
	noColor  bool
	stats    bool
	dump     bool
}

// newSession locates bc.yml starting at dir, applies overrides and builds
// the loader.
func newSession(c *cli.Context, dir string) (*session, error) {
	manifest, err := loadManifestFrom(dir)
	if err != nil {
		return nil, err
	}
	manifest.ApplyEnv(os.Getenv)

	table := foreign.Host(c.App.Writer)
	if err := manifest.Bind(table); err != nil {
		return nil, errors.Wrapf(err, "binding foreign routines of %s", manifest.Path)
	}

	var log *trace.Log
	switch {
	case c.Bool(traceFlagName) || manifest.Trace:
		log = trace.NewStderr(true)
	case c.Bool(dumpFlagName):
		log = trace.Silent(true)
	}

	var source driver.Source = driver.FileSource{}
	if rev := c.String(revFlagName); rev != "" {
		repo := dir
		if manifest.Path != "" {
			repo = manifest.Dir()
		}
		source = driver.GitSource{Repo: repo, Revision: rev}
	}

	return &session{
		stdout:   c.App.Writer,
		stderr:   c.App.ErrWriter,
		manifest: manifest,
		noColor:  c.Bool(noColorFlagName),
		stats:    c.Bool(statsFlagName),
		dump:     c.Bool(dumpFlagName),
		loader: &driver.Loader{
			Source:  source,
			Foreign: table,
			Trace:   log,
			Options: driver.OptionsFromManifest(manifest),
		},
	}, nil
}

// loadManifestFrom returns the nearest manifest, or an empty one when none
// exists.
func loadManifestFrom(dir string) (*driver.Manifest, error) {
	path, err := driver.FindManifest(dir)
	if err != nil {
		if errors.Is(err, driver.ErrManifestNotFound) {
			return &driver.Manifest{}, nil
		}
		return nil, errors.Wrap(err, "locating manifest")
	}
	manifest, err := driver.LoadManifest(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load manifest")
	}
	return manifest, nil
}

// target resolves the file a command works on: its argument, or the
// manifest entry found from the current directory.
func target(c *cli.Context) (string, *session, error) {
	if c.NArg() > 1 {
		name := "run"
		if c.Command != nil && c.Command.Name != "" {
			name = c.Command.Name
		}
		return "", nil, cli.Exit(fmt.Sprintf("%s expects at most one file", name), 2)
	}
	if path := c.Args().First(); path != "" {
		sess, err := newSession(c, filepath.Dir(path))
		return path, sess, err
	}
	sess, err := newSession(c, ".")
	if err != nil {
		return "", nil, err
	}
	entry := sess.manifest.EntryPath()
	if entry == "" {
		return "", nil, cli.Exit("no file given and no manifest entry found ("+driver.ManifestFileName+")", 2)
	}
	return entry, sess, nil
}

// dumpEvents prints the event log in "[LEVEL]message" form.
func (s *session) dumpEvents() {
	if s.dump {
		_ = s.loader.Trace.Dump(s.stderr)
	}
}

func (s *session) report(err error) {
	diag.Render(s.stderr, err, diag.Options{NoColor: s.noColor})
}

// failed signals a command failure whose diagnostics were already printed.
var failed = cli.Exit("", 1)
