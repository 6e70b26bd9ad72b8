// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/link-engine/internal/corpus"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List book file names held by more than one book",
	Long: `Duplicates walks the watched directories and prints, as YAML, every book
file name that occurs more than once. Link files address their targets by file
name, so these targets are ambiguous.`,
	RunE: runDuplicates,
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout, err := newLayout(cfg)
	if err != nil {
		return err
	}

	books, err := layout.Books()
	if err != nil {
		return err
	}
	dups := corpus.IndexNames(books).Duplicates()
	if len(dups) == 0 {
		fmt.Println("No duplicate book names.")
		return nil
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(dups); err != nil {
		return fmt.Errorf("encoding duplicates: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d duplicate name(s) across %d books\n", len(dups), len(books))
	return nil
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)
}
