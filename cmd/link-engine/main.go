// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the link-engine CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/link-engine/internal/corpus"
	"github.com/pdiddy/link-engine/internal/secrets"
	"github.com/pdiddy/link-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the link-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "link-engine",
	Short: "Maintain cross-reference links between the books of a text corpus",
	Long: `link-engine finds citations in the books of a corpus with a remote
reference-finding service, resolves them against a canonical catalog, and keeps
one link file per book up to date as books are added, changed, moved, or deleted.

sync relinks changed books, resolve re-resolves stored service output after a
catalog update, export loads the link files into SQLite, and duplicates lists
book file names that make link targets ambiguous.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			slog.Debug("loaded secrets", "keys", s.Names())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := types.Defaults()
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./link-engine.yaml or ~/.config/link-engine/link-engine.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log at debug level")
	rootCmd.PersistentFlags().String("root", defaults.Corpus.Root, "repository root the watched directories are relative to")
	rootCmd.PersistentFlags().String("catalog", defaults.Catalog.Path, "canonical reference catalog CSV")

	viper.BindPFlag("corpus.root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("catalog.path", rootCmd.PersistentFlags().Lookup("catalog"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("link-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "link-engine"))
		}
	}

	viper.SetEnvPrefix("LINK_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged viper settings over the built-in defaults.
func loadConfig() (types.Config, error) {
	cfg := types.Defaults()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// newLayout builds the corpus layout, requiring at least one watched directory.
func newLayout(cfg types.Config) (*corpus.Layout, error) {
	if len(cfg.Corpus.WatchedDirs) == 0 {
		return nil, fmt.Errorf("no watched directories configured: set corpus.watched_dirs in link-engine.yaml")
	}
	return corpus.NewLayout(cfg.Corpus), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
