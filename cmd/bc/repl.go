package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/delyan-kirov/BC/pkg/runtime"
)

const replPrompt = "bc> "

func replCommand(c *cli.Context) error {
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
	r := &repl{sess: sess, env: env}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	fmt.Fprintf(sess.stdout, "%s. Type :quit to exit.\n", cliToolVersion)
	for {
		line, err := ln.Prompt(replPrompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(sess.stdout)
				return nil
			}
			return errors.Wrap(err, "reading input")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)
		if r.handle(c.Context, line) {
			return nil
		}
	}
}

// repl carries the global environment between inputs.
type repl struct {
	sess *session
	env  *runtime.Environment
}

// handle evaluates one input line and reports whether the session should
// end.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, ":") {
		switch line {
		case ":quit", ":q":
			return true
		case ":env":
			visible := r.env.Snapshot()
			for _, name := range r.env.Keys() {
				fmt.Fprintf(r.sess.stdout, "%s = %s\n", name, visible[name])
			}
		default:
			fmt.Fprintln(r.sess.stdout, "unknown command. Type :env or :quit.")
		}
		return false
	}

	res, err := r.sess.loader.Eval(ctx, "<repl>", line, r.env)
	if res != nil {
		printResult(r.sess.stdout, res)
		if res.Env != nil {
			r.env = res.Env
		}
	}
	if err != nil {
		r.sess.report(err)
	}
	return false
}
