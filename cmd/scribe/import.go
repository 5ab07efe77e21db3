// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import WORLD_FILE...",
		Short: "Load definitions, world qualities and characters into the store",
		Long: `import reads YAML world files and writes their definitions, world
qualities and characters to the store. Existing entries with the same
IDs are replaced.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := a.importWorld(path); err != nil {
					return err
				}
			}
			chars, err := a.store.Characters()
			if err != nil {
				return err
			}
			defs, err := a.store.Definitions()
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d definitions, %d characters\n", len(defs), len(chars))
			return nil
		},
	}
}
