// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/link-engine/internal/linkdb"
	"github.com/pdiddy/link-engine/pkg/types"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Load the final link files into a SQLite database",
	Long: `Export writes every book of the watched directories and every final link
file into a SQLite database. Each link's target file name is resolved to the
corpus path of the book that holds it. Link files unchanged since the last
export are skipped and rows of removed link files are pruned.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := openLinkDB()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	summary, err := store.Export(ctx, os.Stdout)
	if err != nil {
		return err
	}
	books, err := store.BookCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "books indexed: %d\n", books)
	if summary.Unresolved > 0 {
		fmt.Fprintf(os.Stderr, "%d link(s) point at a file name no book holds\n", summary.Unresolved)
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d link file(s) failed exporting", summary.Failed)
	}
	return nil
}

// --- links subcommand ---

var linksCmd = &cobra.Command{
	Use:   "links [filter]",
	Short: "List exported links whose source link file matches filter",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLinks,
}

func runLinks(cmd *cobra.Command, args []string) error {
	store, err := openLinkDB()
	if err != nil {
		return err
	}
	defer store.Close()

	var filter string
	if len(args) > 0 {
		filter = args[0]
	}
	links, err := store.Links(context.Background(), filter)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatLinksOutput(links, jsonOutput)
}

func formatLinksOutput(links []linkdb.Link, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(links)
	}

	if len(links) == 0 {
		fmt.Println("No links found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-40s  %-6s  %-6s  %-30s  %-8s  %s\n",
		"Artifact", "Line", "Target", "Reference", "Type", "Path")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))

	for _, l := range links {
		target := l.AbsolutePath
		if target == "" {
			target = l.Path2 + " (unresolved)"
		}
		fmt.Fprintf(os.Stdout, "%-40s  %-6d  %-6d  %-30s  %-8s  %s\n",
			truncate(l.Artifact, 40), l.LineIndex1, l.LineIndex2, truncate(l.HeRef2, 30), l.ConnectionType, target)
	}

	fmt.Fprintf(os.Stdout, "\n%d links\n", len(links))
	return nil
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func openLinkDB() (*linkdb.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	layout, err := newLayout(cfg)
	if err != nil {
		return nil, err
	}
	return linkdb.Open(cfg.DB.Path, layout)
}

func init() {
	exportCmd.PersistentFlags().String("db", types.Defaults().DB.Path, "SQLite database path")
	viper.BindPFlag("db.path", exportCmd.PersistentFlags().Lookup("db"))

	linksCmd.Flags().Bool("json", false, "output links as JSON")

	exportCmd.AddCommand(linksCmd)
	rootCmd.AddCommand(exportCmd)
}
