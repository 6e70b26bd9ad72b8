// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/link-engine/internal/catalog"
	"github.com/pdiddy/link-engine/internal/corpus"
	"github.com/pdiddy/link-engine/internal/httputil"
	"github.com/pdiddy/link-engine/internal/linker"
	"github.com/pdiddy/link-engine/internal/pipeline"
	"github.com/pdiddy/link-engine/internal/resolve"
	"github.com/pdiddy/link-engine/internal/secrets"
	"github.com/pdiddy/link-engine/internal/tracker"
	"github.com/pdiddy/link-engine/pkg/types"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Relink the books that changed since the last run",
	Long: `Sync detects books added, modified, renamed, or deleted in the watched
directories, either from a git revision range or by hashing every book
against the hash store. Each added or modified book is sent through the
reference-finding service, resolved against the catalog, and merged into its
link file. Renamed books have their link files moved and deleted books have
their linker rows removed.

The hash store is updated only for books that completed. Unresolved references
and failed books are written to a per-run report under the report directory.`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
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

	store, err := tracker.LoadStore(cfg.Tracker.HashStorePath)
	if err != nil {
		return err
	}
	detector, err := newDetector(cfg.Tracker, layout, store)
	if err != nil {
		return err
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	svc := &linker.HTTPService{
		Client:    &http.Client{Timeout: cfg.Service.Timeout},
		BaseURL:   cfg.Service.BaseURL,
		UserAgent: cfg.Service.UserAgent,
		APIKey:    loadedSecrets.Lookup(secrets.LinkerAPIKey, apiKey),
		Sleeper:   httputil.RealSleeper,
	}

	t := &tracker.Tracker{
		Layout:   layout,
		Store:    store,
		Detector: detector,
		Processor: &pipeline.Processor{
			Layout:   layout,
			Linker:   linker.New(svc, cfg.Service, httputil.RealSleeper),
			Resolver: resolver,
		},
		Workers: cfg.Tracker.Workers,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runID := uuid.NewString()
	slog.Info("starting sync", "run_id", runID, "strategy", cfg.Tracker.Strategy, "workers", cfg.Tracker.Workers)

	summary, runErr := t.Run(ctx, os.Stdout)

	rep := resolve.NewReport(runID)
	for _, f := range summary.Failures {
		rep.AddFailure(f.Path, f.Err)
	}
	rep.Collect(resolver)
	if err := writeReport(rep, cfg.Report.Dir); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d book(s) failed linking", len(summary.Failures))
	}
	return nil
}

// newDetector selects the change detector configured in cfg.
func newDetector(cfg types.TrackerConfig, l *corpus.Layout, store *tracker.HashStore) (tracker.Detector, error) {
	scan := tracker.NewScanDetector(l, store)
	switch cfg.Strategy {
	case types.StrategyScan:
		return scan, nil
	case types.StrategyGit, "":
		git := tracker.NewGitDetector(l, cfg.FromRevision, cfg.ToRevision)
		if cfg.Reconcile {
			return tracker.Reconcile(git, scan), nil
		}
		return git, nil
	default:
		return nil, fmt.Errorf("unsupported detection strategy %q: use scan or git", cfg.Strategy)
	}
}

// loadResolver loads the catalog and wraps it in a memoizing resolver.
func loadResolver(cfg types.Config) (*resolve.Resolver, error) {
	ix, stats, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded catalog", "path", cfg.Catalog.Path, "entries", stats.Loaded, "skipped", stats.Skipped)
	return resolve.NewResolver(ix), nil
}

// writeReport writes rep under dir unless it holds nothing to report.
func writeReport(rep *resolve.Report, dir string) error {
	if rep.Empty() {
		return nil
	}
	p, err := rep.Write(dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Unresolved report: %s\n", p)
	return nil
}

func init() {
	d := types.Defaults().Tracker
	syncCmd.Flags().String("strategy", string(d.Strategy), "change detection: git (revision diff) or scan (hash every book)")
	syncCmd.Flags().String("from", d.FromRevision, "git revision the diff starts from")
	syncCmd.Flags().String("to", d.ToRevision, "git revision the diff ends at")
	syncCmd.Flags().Bool("reconcile", d.Reconcile, "also scan the hash store to retry books that failed earlier (git strategy)")
	syncCmd.Flags().Int("workers", d.Workers, "maximum books linked concurrently")
	syncCmd.Flags().String("hash-store", d.HashStorePath, "JSON file mapping book path to content hash")
	syncCmd.Flags().String("api-key", "", "reference service API key (default: .secrets/linker-api-key)")

	viper.BindPFlag("tracker.strategy", syncCmd.Flags().Lookup("strategy"))
	viper.BindPFlag("tracker.from_revision", syncCmd.Flags().Lookup("from"))
	viper.BindPFlag("tracker.to_revision", syncCmd.Flags().Lookup("to"))
	viper.BindPFlag("tracker.reconcile", syncCmd.Flags().Lookup("reconcile"))
	viper.BindPFlag("tracker.workers", syncCmd.Flags().Lookup("workers"))
	viper.BindPFlag("tracker.hash_store_path", syncCmd.Flags().Lookup("hash-store"))

	rootCmd.AddCommand(syncCmd)
}
