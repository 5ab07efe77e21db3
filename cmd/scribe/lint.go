// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nickandperla.net/scribescript/internal/config"
	"nickandperla.net/scribescript/internal/parser"
	"nickandperla.net/scribescript/pkg/scribe"
)

func newLintCmd(a *app) *cobra.Command {
	var dirs []string
	cmd := &cobra.Command{
		Use:   "lint [FILE...]",
		Short: "Check the ScribeScript in world and action files",
		Long: `lint parses every ScribeScript field in YAML world files (definition
descriptions and bonuses) and action files (condition, challenge, text
and effect) and reports syntax errors. Parser warnings are listed but
do not fail a file.`,
		// lint touches no store.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.cfg.Validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			files := append([]string(nil), args...)
			for _, dir := range dirs {
				found, err := findYAMLFiles(dir)
				if err != nil {
					return fmt.Errorf("scanning %s: %w", dir, err)
				}
				files = append(files, found...)
			}
			if len(files) == 0 {
				return fmt.Errorf("no files to check")
			}

			failed := 0
			for _, f := range files {
				if res := lintFile(f); !res.report(a.out) {
					failed++
				}
			}
			fmt.Fprintf(a.out, "\n--- Summary ---\n")
			fmt.Fprintf(a.out, "Passed: %d\n", len(files)-failed)
			fmt.Fprintf(a.out, "Failed: %d\n", failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(files))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&dirs, "dir", nil, "Check every .yaml/.yml file under DIR (repeatable)")
	return cmd
}

// lintResult is the outcome of checking one file.
type lintResult struct {
	path     string
	errors   []string
	warnings []string
}

// report prints the result and reports whether the file passed.
func (r lintResult) report(w io.Writer) bool {
	if len(r.errors) > 0 {
		fmt.Fprintf(w, "FAIL %s\n", r.path)
	} else {
		fmt.Fprintf(w, "OK   %s\n", r.path)
	}
	for _, e := range r.errors {
		fmt.Fprintf(w, "     %s\n", e)
	}
	for _, warn := range r.warnings {
		fmt.Fprintf(w, "     warning: %s\n", warn)
	}
	return len(r.errors) == 0
}

func (r *lintResult) fail(field string, err error) {
	r.errors = append(r.errors, fmt.Sprintf("%s: %v", field, err))
}

func (r *lintResult) collect(field string, p *parser.Parser) {
	for _, w := range p.Warnings {
		r.warnings = append(r.warnings, fmt.Sprintf("%s: %v", field, w))
	}
}

// lintFile checks a world file (one with definitions, world or
// characters) or a single action.
func lintFile(path string) lintResult {
	res := lintResult{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.fail("read", err)
		return res
	}

	var keys map[string]yaml.Node
	if err := yaml.Unmarshal(data, &keys); err != nil {
		res.fail("yaml", err)
		return res
	}
	_, hasDefs := keys["definitions"]
	_, hasWorld := keys["world"]
	_, hasChars := keys["characters"]
	if hasDefs || hasWorld || hasChars {
		lintWorld(&res, data)
	} else {
		lintAction(&res, data)
	}
	return res
}

func lintWorld(res *lintResult, data []byte) {
	w, err := config.ParseWorld(data)
	if err != nil {
		res.fail("world", err)
		return
	}
	for _, d := range w.Definitions {
		lintTemplate(res, fmt.Sprintf("definitions[%s].description", d.ID), d.Description)
		lintTemplate(res, fmt.Sprintf("definitions[%s].bonus", d.ID), d.Bonus)
	}
}

func lintAction(res *lintResult, data []byte) {
	var act scribe.Action
	if err := yaml.Unmarshal(data, &act); err != nil {
		res.fail("action", err)
		return
	}

	if src := strings.TrimSpace(act.Condition); src != "" {
		p := parser.New()
		if _, err := p.Condition(src); err != nil {
			res.fail("condition", err)
		}
		res.collect("condition", p)
	}
	if src := strings.TrimSpace(act.Challenge); src != "" {
		p := parser.New()
		if _, err := p.Challenge(src); err != nil {
			// A bare percentage or logic block is also a valid challenge.
			if _, lerr := parser.New().Logic(src); lerr != nil {
				res.fail("challenge", err)
			}
		}
		res.collect("challenge", p)
	}
	for name, b := range map[string]scribe.Branch{"success": act.Success, "failure": act.Failure} {
		lintTemplate(res, name+".text", b.Text)
		if strings.TrimSpace(b.Effect) == "" {
			continue
		}
		p := parser.New()
		if _, err := p.Effect(b.Effect); err != nil {
			res.fail(name+".effect", err)
		}
		res.collect(name+".effect", p)
	}
	sort.Strings(res.errors)
	sort.Strings(res.warnings)
}

func lintTemplate(res *lintResult, field, src string) {
	if src == "" {
		return
	}
	p := parser.New()
	if _, err := p.Template(src); err != nil {
		res.fail(field, err)
	}
	res.collect(field, p)
}

// findYAMLFiles recursively finds all YAML files under dir.
func findYAMLFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ext := filepath.Ext(d.Name()); !d.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
