// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "link-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// CorpusConfig describes the watched scope: which directories hold books
// and where their link artifacts live.
type CorpusConfig struct {
	// Root is the repository root all watched paths are relative to.
	Root string `json:"root" yaml:"root" mapstructure:"root"`

	// WatchedDirs lists the book directories, relative to Root, in forward-slash
	// form (e.g. "MoreBooks/ספרים/אוצריא").
	WatchedDirs []string `json:"watched_dirs" yaml:"watched_dirs" mapstructure:"watched_dirs"`

	// BooksSubdir is the trailing part of a watched directory below its
	// source root (e.g. "ספרים/אוצריא"); final link artifacts live beside it.
	BooksSubdir string `json:"books_subdir" yaml:"books_subdir" mapstructure:"books_subdir"`

	// IgnoredSuffixes excludes book files whose name ends with any entry.
	IgnoredSuffixes []string `json:"ignored_suffixes" yaml:"ignored_suffixes" mapstructure:"ignored_suffixes"`

	// LinkerDirName is the per-source directory of intermediate artifacts.
	LinkerDirName string `json:"linker_dir_name" yaml:"linker_dir_name" mapstructure:"linker_dir_name"`

	// LinksDirName is the per-source directory of final link artifacts.
	LinksDirName string `json:"links_dir_name" yaml:"links_dir_name" mapstructure:"links_dir_name"`
}

// CatalogConfig locates the canonical reference catalog.
type CatalogConfig struct {
	// Path is the CSV file with raw reference, label, line, and book columns.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// ServiceConfig holds settings for the remote reference-finding service.
type ServiceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the service root (e.g. "https://www.sefaria.org").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// ChunkSize is the number of lines submitted per request (default 100).
	ChunkSize int `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`

	// InitialDelay is the wait between submitting a chunk and the first poll.
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay" mapstructure:"initial_delay"`

	// PollInterval is the fixed wait between polls of a pending job.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval" mapstructure:"poll_interval"`

	// MaxPolls bounds the number of polls per chunk before the chunk fails.
	MaxPolls int `json:"max_polls" yaml:"max_polls" mapstructure:"max_polls"`
}

// DetectionStrategy selects how the tracker finds changed books.
type DetectionStrategy string

const (
	StrategyScan DetectionStrategy = "scan"
	StrategyGit  DetectionStrategy = "git"
)

// TrackerConfig holds settings for incremental change tracking.
type TrackerConfig struct {
	// HashStorePath is the JSON file mapping book path to content hash.
	HashStorePath string `json:"hash_store_path" yaml:"hash_store_path" mapstructure:"hash_store_path"`

	// Strategy is "scan" (walk and hash) or "git" (revision diff).
	Strategy DetectionStrategy `json:"strategy" yaml:"strategy" mapstructure:"strategy"`

	// FromRevision and ToRevision bound the git diff (default HEAD^..HEAD).
	FromRevision string `json:"from_revision" yaml:"from_revision" mapstructure:"from_revision"`
	ToRevision   string `json:"to_revision" yaml:"to_revision" mapstructure:"to_revision"`

	// Workers caps the number of books processed concurrently (default 5).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// Reconcile unions a git diff with a hash-store scan so that books which
	// failed in an earlier run are retried.
	Reconcile bool `json:"reconcile" yaml:"reconcile" mapstructure:"reconcile"`
}

// ReportConfig controls where per-run unresolved reports are written.
type ReportConfig struct {
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// DBConfig holds settings for the SQLite link export.
type DBConfig struct {
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// Config groups every section of link-engine.yaml.
type Config struct {
	Corpus  CorpusConfig  `json:"corpus" yaml:"corpus" mapstructure:"corpus"`
	Catalog CatalogConfig `json:"catalog" yaml:"catalog" mapstructure:"catalog"`
	Service ServiceConfig `json:"service" yaml:"service" mapstructure:"service"`
	Tracker TrackerConfig `json:"tracker" yaml:"tracker" mapstructure:"tracker"`
	Report  ReportConfig  `json:"report" yaml:"report" mapstructure:"report"`
	DB      DBConfig      `json:"db" yaml:"db" mapstructure:"db"`
}

// Defaults returns the configuration used when link-engine.yaml is absent.
func Defaults() Config {
	return Config{
		Corpus: CorpusConfig{
			Root:            ".",
			BooksSubdir:     "ספרים/אוצריא",
			IgnoredSuffixes: []string{"גירסת ספריה.txt"},
			LinkerDirName:   "linker_links",
			LinksDirName:    "links",
		},
		Catalog: CatalogConfig{Path: "refs_all.csv"},
		Service: ServiceConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: "link-engine/0.1",
			},
			BaseURL:      "https://www.sefaria.org",
			ChunkSize:    100,
			InitialDelay: 5 * time.Second,
			PollInterval: 50 * time.Second,
			MaxPolls:     5,
		},
		Tracker: TrackerConfig{
			HashStorePath: "hash_all_files.json",
			Strategy:      StrategyGit,
			FromRevision:  "HEAD^",
			ToRevision:    "HEAD",
			Workers:       5,
		},
		Report: ReportConfig{Dir: "logs"},
		DB:     DBConfig{Path: "links.db"},
	}
}
