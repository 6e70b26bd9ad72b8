// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pdiddy/link-engine/internal/pipeline"
	"github.com/pdiddy/link-engine/internal/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Re-resolve stored service output against the current catalog",
	Long: `Resolve reads every intermediate artifact under the linker directories,
resolves its citations against the catalog again, and re-merges the final link
files. The reference service is not contacted. Run it after the catalog changes.`,
	RunE: runResolve,
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout, err := newLayout(cfg)
	if err != nil {
		return err
	}
	resolver, err := loadResolver(cfg)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	slog.Info("starting resolve", "run_id", runID)

	rep := resolve.NewReport(runID)
	result := pipeline.Refresh(layout, resolver, rep, os.Stdout)
	rep.Collect(resolver)
	if err := writeReport(rep, cfg.Report.Dir); err != nil {
		return err
	}

	if result.HasFailures() {
		return fmt.Errorf("%d artifact(s) failed resolving", result.Failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
