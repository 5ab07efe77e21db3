// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command scribe evaluates ScribeScript fields against stored characters
// and runs the scheduled-event worker.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nickandperla.net/scribescript/internal/config"
	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/schedule"
	"nickandperla.net/scribescript/internal/store"
	"nickandperla.net/scribescript/pkg/scribe"
)

// memoryDB selects the in-memory store instead of a SQLite file.
const memoryDB = ":memory:"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a := &app{cfg: cfg, in: in, out: out, errOut: errOut}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	err = root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

// app is the state shared by every subcommand for one invocation.
type app struct {
	cfg       config.Config
	character string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	logger *zap.Logger
	store  store.Store
	queue  *schedule.Queue
	engine *scribe.Engine
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "scribe",
		Short: "ScribeScript runtime",
		Long: `scribe evaluates ScribeScript text, conditions, challenges and effects
against a character's qualities, and fires scheduled events.

Settings come from SCRIBE_* environment variables; flags override them.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfg.DBPath, "db", a.cfg.DBPath, "SQLite database path ("+memoryDB+" for an in-memory store)")
	pf.StringVar(&a.cfg.WorldFile, "world", a.cfg.WorldFile, "World file imported into the store before the command runs")
	pf.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Log level: debug, info, warn or error")
	pf.BoolVar(&a.cfg.LogDev, "log-dev", a.cfg.LogDev, "Human-readable log output")
	pf.Int64Var(&a.cfg.Seed, "seed", a.cfg.Seed, "Random seed (0 for a random seed)")
	pf.IntVar(&a.cfg.RecursionLimit, "recursion-limit", a.cfg.RecursionLimit, "Maximum nesting depth for descriptions and nested effects")
	pf.StringVarP(&a.character, "character", "c", "player", "Character ID")

	root.AddCommand(
		newRenderCmd(a),
		newCheckCmd(a),
		newChallengeCmd(a),
		newApplyCmd(a),
		newPlayCmd(a),
		newHistoryCmd(a),
		newImportCmd(a),
		newLintCmd(a),
		newReplCmd(a),
		newWorkerCmd(a),
	)
	return root
}

// setup validates the merged configuration and opens the logger, store
// and engine.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	logger, err := a.cfg.Logger()
	if err != nil {
		return err
	}
	a.logger = logger

	if a.cfg.DBPath == memoryDB || a.cfg.DBPath == "" {
		a.store = store.NewMemory()
	} else {
		s, err := store.NewSQLite(a.cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store %s: %w", a.cfg.DBPath, err)
		}
		a.store = s
	}

	if a.cfg.WorldFile != "" {
		if err := a.importWorld(a.cfg.WorldFile); err != nil {
			return err
		}
	}

	a.queue = schedule.NewQueue()
	opts := []scribe.Option{
		scribe.WithStore(a.store),
		scribe.WithQueue(a.queue),
		scribe.WithLogger(a.logger),
		scribe.WithRecursionLimit(a.cfg.RecursionLimit),
	}
	if a.cfg.Seed != 0 {
		opts = append(opts, scribe.WithSeed(a.cfg.Seed))
	}
	engine, err := scribe.New(opts...)
	if err != nil {
		return err
	}
	a.engine = engine
	a.logger.Debug("engine ready",
		zap.String("db", a.cfg.DBPath),
		zap.String("character", a.character),
	)
	return nil
}

// close releases whatever setup opened.
func (a *app) close() error {
	var err error
	switch {
	case a.engine != nil:
		err = a.engine.Close()
	case a.store != nil:
		err = a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return err
}

func (a *app) importWorld(path string) error {
	w, err := config.LoadWorld(path)
	if err != nil {
		return err
	}
	if err := store.Import(a.store, w.Definitions, w.World, w.Characters); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	a.logger.Info("world imported",
		zap.String("path", path),
		zap.Int("definitions", len(w.Definitions)),
		zap.Int("characters", len(w.Characters)),
	)
	return nil
}

// state loads the selected character.
func (a *app) state() (scribe.State, error) {
	s, err := a.store.Character(a.character)
	if err != nil {
		return nil, fmt.Errorf("load character %q: %w", a.character, err)
	}
	return s, nil
}

func (a *app) warn(ws diag.Warnings) {
	for _, w := range ws {
		fmt.Fprintf(a.errOut, "warning: %v\n", w)
	}
}
