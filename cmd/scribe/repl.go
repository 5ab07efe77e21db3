// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/store"
	"nickandperla.net/scribescript/pkg/scribe"
)

const replHelp = `Lines are rendered as text fields. Commands:
  :check EXPR       evaluate a condition
  :challenge EXPR   resolve a challenge
  :apply EFFECT     apply an effect to the session state
  :roll N           fix the Resolution Roll (0 to draw at random)
  :state            list the character's qualities
  :save             commit applied effects to the store
  :help             show this help
  :quit             leave (Ctrl+D also works)
End a line with \ to continue it on the next one.`

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive session against one character",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.state()
			if err != nil {
				return err
			}
			s := &session{a: a, state: state}
			if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				return s.runRaw(f)
			}
			return s.runBasic(a.in, a.out)
		},
	}
}

// session is one REPL run. Effects change state immediately and are
// held in pending until :save.
type session struct {
	a       *app
	state   scribe.State
	roll    int
	pending store.Batch
}

// runBasic handles non-TTY input (piped input).
func (s *session) runBasic(in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	var multiline strings.Builder
	for {
		if multiline.Len() > 0 {
			fmt.Fprint(out, "... ")
		} else {
			fmt.Fprint(out, ">>> ")
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return nil
		}
		line = strings.TrimRight(line, "\r\n")

		input, more := joinContinued(&multiline, line)
		if more {
			continue
		}
		if s.exec(out, input) {
			return nil
		}
	}
}

// runRaw handles a terminal, with line editing and history.
func (s *session) runRaw(f *os.File) error {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(s.a.errOut, "Failed to set raw mode: %v\n", err)
		return s.runBasic(f, s.a.out)
	}
	defer term.Restore(fd, oldState)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, s.a.out}, ">>> ")
	fmt.Fprintf(t, "scribe REPL, character %q. :help for commands.\n", s.a.character)

	var multiline strings.Builder
	for {
		line, err := t.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		input, more := joinContinued(&multiline, line)
		if more {
			t.SetPrompt("... ")
			continue
		}
		t.SetPrompt(">>> ")
		if s.exec(t, input) {
			return nil
		}
	}
}

// joinContinued accumulates lines ending in a backslash. more reports
// whether the input is still incomplete.
func joinContinued(b *strings.Builder, line string) (input string, more bool) {
	if rest, ok := strings.CutSuffix(line, "\\"); ok {
		b.WriteString(rest)
		b.WriteString("\n")
		return "", true
	}
	b.WriteString(line)
	input = b.String()
	b.Reset()
	return input, false
}

// exec runs one input and reports whether the session should end.
func (s *session) exec(out io.Writer, input string) bool {
	if strings.TrimSpace(input) == "" {
		return false
	}
	if !strings.HasPrefix(input, ":") {
		res, err := s.a.engine.EvaluateText(input, s.state, s.opts()...)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return false
		}
		s.report(out, res.Warnings)
		fmt.Fprintln(out, res.Text)
		return false
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(input, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "quit", "q", "exit":
		if s.unsaved() {
			fmt.Fprintln(out, "discarding unsaved changes")
		}
		return true
	case "help", "h":
		fmt.Fprintln(out, replHelp)
	case "check":
		res, err := s.a.engine.EvaluateCondition(arg, s.state, s.opts()...)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			break
		}
		s.report(out, res.Warnings)
		fmt.Fprintln(out, res.Value)
	case "challenge":
		res, err := s.a.engine.EvaluateChallenge(arg, s.state, s.roll)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			break
		}
		s.report(out, res.Warnings)
		outcome := "failure"
		if res.Success {
			outcome = "success"
		}
		fmt.Fprintf(out, "%s chance=%g roll=%d\n", outcome, res.Chance, res.Roll)
	case "apply":
		res, err := s.a.engine.ApplyEffect(arg, s.state, s.opts()...)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			break
		}
		s.report(out, res.Warnings)
		printEffect(out, res.Mutations, res.Scheduled, res.Cancelled)
		s.pending.Mutations = append(s.pending.Mutations, res.Mutations...)
		for _, c := range res.Cancelled {
			s.pending.Scheduled = slices.DeleteFunc(s.pending.Scheduled, func(ev scribe.Event) bool {
				return ev.TargetQualityID == c.TargetQualityID
			})
		}
		s.pending.Scheduled = append(s.pending.Scheduled, res.Scheduled...)
		s.pending.Cancelled = append(s.pending.Cancelled, res.Cancelled...)
	case "roll":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 || n > 100 {
			fmt.Fprintln(out, "Error: roll must be 0-100")
			break
		}
		s.roll = n
	case "state":
		for _, id := range s.state.IDs() {
			q, _ := s.state.Get(id)
			if q.StringValue != "" {
				fmt.Fprintf(out, "$%s %s %q\n", id, q.Type, q.StringValue)
			} else {
				fmt.Fprintf(out, "$%s %s %d\n", id, q.Type, q.Level)
			}
		}
	case "save":
		if err := s.a.store.Commit(s.a.character, s.state, s.pending); err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			break
		}
		fmt.Fprintf(out, "saved %d mutations\n", len(s.pending.Mutations))
		s.pending = store.Batch{}
	default:
		fmt.Fprintf(out, "Error: unknown command :%s\n", name)
	}
	return false
}

func (s *session) opts() []scribe.CallOption {
	if s.roll == 0 {
		return nil
	}
	return []scribe.CallOption{scribe.Roll(s.roll)}
}

func (s *session) unsaved() bool {
	return len(s.pending.Mutations) > 0 || len(s.pending.Scheduled) > 0 || len(s.pending.Cancelled) > 0
}

func (s *session) report(out io.Writer, ws diag.Warnings) {
	for _, w := range ws {
		fmt.Fprintf(out, "warning: %v\n", w)
	}
}
