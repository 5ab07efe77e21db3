// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/store"
	"nickandperla.net/scribescript/pkg/scribe"
)

func newRenderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Render a text field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.state()
			if err != nil {
				return err
			}
			res, err := a.engine.EvaluateText(args[0], state)
			if err != nil {
				return err
			}
			a.warn(res.Warnings)
			fmt.Fprintln(a.out, res.Text)
			return nil
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check CONDITION",
		Short: "Evaluate a visibility or unlock condition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.state()
			if err != nil {
				return err
			}
			res, err := a.engine.EvaluateCondition(args[0], state)
			if err != nil {
				return err
			}
			a.warn(res.Warnings)
			fmt.Fprintln(a.out, res.Value)
			return nil
		},
	}
}

func newChallengeCmd(a *app) *cobra.Command {
	var roll int
	cmd := &cobra.Command{
		Use:   "challenge EXPR",
		Short: "Resolve a challenge and print success, chance and roll",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.state()
			if err != nil {
				return err
			}
			res, err := a.engine.EvaluateChallenge(args[0], state, roll)
			if err != nil {
				return err
			}
			a.warn(res.Warnings)
			outcome := "failure"
			if res.Success {
				outcome = "success"
			}
			fmt.Fprintf(a.out, "%s chance=%g roll=%d\n", outcome, res.Chance, res.Roll)
			return nil
		},
	}
	cmd.Flags().IntVar(&roll, "roll", 0, "Fixed Resolution Roll (1-100); drawn at random otherwise")
	return cmd
}

func newApplyCmd(a *app) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "apply EFFECT",
		Short: "Apply an effect field and print the mutations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := a.state()
			if err != nil {
				return err
			}
			res, err := a.engine.ApplyEffect(args[0], state)
			if err != nil {
				return err
			}
			a.warn(res.Warnings)
			printEffect(a.out, res.Mutations, res.Scheduled, res.Cancelled)
			if !save {
				return nil
			}
			batch := store.Batch{Mutations: res.Mutations, Scheduled: res.Scheduled, Cancelled: res.Cancelled}
			if err := a.store.Commit(a.character, state, batch); err != nil {
				return fmt.Errorf("commit %q: %w", a.character, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Commit the result to the store")
	return cmd
}

func newPlayCmd(a *app) *cobra.Command {
	var roll int
	cmd := &cobra.Command{
		Use:   "play ACTION_FILE",
		Short: "Resolve an action file for the character and commit the result",
		Long: `play reads a YAML action with condition, challenge, success and
failure fields, resolves it with one Resolution Roll and commits the
outcome. Use - to read the action from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := readAction(args[0], a.in)
			if err != nil {
				return err
			}
			var opts []scribe.CallOption
			if roll != 0 {
				opts = append(opts, scribe.Roll(roll))
			}
			res, err := a.engine.Play(a.character, act, opts...)
			if err != nil {
				return err
			}
			a.warn(res.Warnings)
			if res.Locked {
				fmt.Fprintln(a.out, "locked")
				return nil
			}
			if act.Challenge != "" {
				outcome := "failure"
				if res.Success {
					outcome = "success"
				}
				fmt.Fprintf(a.out, "%s chance=%g roll=%d\n", outcome, res.Chance, res.Roll)
			}
			if res.Text != "" {
				fmt.Fprintln(a.out, res.Text)
			}
			printEffect(a.out, res.Effect.Mutations, res.Effect.Scheduled, res.Effect.Cancelled)
			return nil
		},
	}
	cmd.Flags().IntVar(&roll, "roll", 0, "Fixed Resolution Roll (1-100); drawn at random otherwise")
	return cmd
}

func readAction(path string, stdin io.Reader) (scribe.Action, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return scribe.Action{}, fmt.Errorf("reading action: %w", err)
	}
	var act scribe.Action
	if err := yaml.Unmarshal(data, &act); err != nil {
		return scribe.Action{}, fmt.Errorf("parsing action: %w", err)
	}
	return act, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the character's most recent mutations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.store.History(a.character, limit)
			if err != nil {
				return err
			}
			for _, en := range entries {
				fmt.Fprintf(a.out, "%d %s %s\n", en.Seq, en.Ts.Format(time.RFC3339), formatMutation(en.Mutation))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries (0 for all)")
	return cmd
}

func printEffect(w io.Writer, muts []mutation.StateMutation, sched []mutation.PendingEvent, cancelled []mutation.Cancellation) {
	for _, m := range muts {
		fmt.Fprintln(w, formatMutation(m))
	}
	for _, ev := range sched {
		fmt.Fprintf(w, "scheduled %s\n", ev)
	}
	for _, c := range cancelled {
		fmt.Fprintf(w, "cancelled $%s\n", c.TargetQualityID)
	}
}

func formatMutation(m mutation.StateMutation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "$%s %s", m.QualityID, m.Op)
	if m.Value != "" {
		fmt.Fprintf(&b, " %s", m.Value)
	}
	if m.Tag != "" {
		fmt.Fprintf(&b, " [source:%s]", m.Tag)
	}
	fmt.Fprintf(&b, ": %s -> %s", formatSnapshot(m.Before), formatSnapshot(m.After))
	return b.String()
}

func formatSnapshot(s quality.Snapshot) string {
	if s.StringValue != "" {
		return fmt.Sprintf("%q", s.StringValue)
	}
	if s.ChangePoints != 0 {
		return fmt.Sprintf("%d (%d cp)", s.Level, s.ChangePoints)
	}
	return fmt.Sprint(s.Level)
}
