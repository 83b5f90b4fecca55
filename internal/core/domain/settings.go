package domain

import "time"

// DedupScope selects the key used for exact-duplicate detection.
type DedupScope string

const (
	// DedupScopeFile treats identical content anywhere as a duplicate.
	DedupScopeFile DedupScope = "file"

	// DedupScopeRepo only treats identical content within one repository as a duplicate.
	DedupScopeRepo DedupScope = "repo"
)

// IsValid returns true if the scope is recognised.
func (s DedupScope) IsValid() bool {
	return s == DedupScopeFile || s == DedupScopeRepo
}

// Settings is the validated configuration for crawl and process runs.
type Settings struct {
	// Search criteria.
	Language         string        `toml:"language" validate:"required"`
	MinStars         int           `toml:"min_stars" validate:"gte=0"`
	RecencyWindow    time.Duration `toml:"-" validate:"gte=0"`
	RequiredLicenses []string      `toml:"licenses"`
	MaxRepos         int           `toml:"max_repos" validate:"gte=1"`

	// File rules.
	MaxFilesPerRepo int      `toml:"max_files_per_repo" validate:"gte=0"`
	Extensions      []string `toml:"extensions" validate:"required,min=1,dive,startswith=."`
	ExcludedPaths   []string `toml:"excluded_paths"`
	MaxFileSize     int64    `toml:"max_file_size" validate:"gt=0"`
	MinLines        int      `toml:"min_lines" validate:"gte=0"`

	// Processing.
	DedupScope     DedupScope `toml:"dedup_scope" validate:"oneof=file repo"`
	ProcessWorkers int        `toml:"process_workers" validate:"gte=1,lte=256"`
	MaxFindings    int        `toml:"max_findings" validate:"gte=1"`

	// Fetching.
	Concurrency       int           `toml:"concurrency" validate:"gte=1,lte=256"`
	RequestsPerSecond float64       `toml:"requests_per_second" validate:"gte=0"`
	MaxRetries        int           `toml:"max_retries" validate:"gte=0"`
	RateLimitRetries  int           `toml:"rate_limit_retries" validate:"gte=1"`
	ResetBuffer       time.Duration `toml:"-" validate:"gte=0"`
	APIBaseURL        string        `toml:"api_base_url" validate:"omitempty,url"`

	// Outputs.
	RawOutput    string `toml:"raw_output" validate:"required"`
	FinalOutput  string `toml:"final_output" validate:"required"`
	ScoredOutput string `toml:"scored_output"`
	LedgerPath   string `toml:"ledger_path"`
}

// DefaultSettings returns the settings used when no configuration is present.
func DefaultSettings() Settings {
	return Settings{
		Language:      "python",
		MinStars:      50,
		RecencyWindow: 730 * 24 * time.Hour,
		MaxRepos:      10,

		MaxFilesPerRepo: 10,
		Extensions:      []string{".py", ".md", ".txt"},
		ExcludedPaths: []string{
			"site-packages", "node_modules", "vendor", ".git",
			"dist", "build", "__pycache__",
		},
		MaxFileSize: 1 << 20,
		MinLines:    5,

		DedupScope:     DedupScopeFile,
		ProcessWorkers: 1,
		MaxFindings:    256,

		Concurrency:       16,
		RequestsPerSecond: 1.2,
		MaxRetries:        3,
		RateLimitRetries:  5,
		ResetBuffer:       5 * time.Second,

		RawOutput:   "data/raw_code.jsonl",
		FinalOutput: "data/dataset.parquet",
		LedgerPath:  "data/ledger.db",
	}
}

// Criteria returns the search criteria described by the settings.
func (s Settings) Criteria() SearchCriteria {
	return SearchCriteria{
		Language:         s.Language,
		MinStars:         s.MinStars,
		RecencyWindow:    s.RecencyWindow,
		RequiredLicenses: append([]string(nil), s.RequiredLicenses...),
		MaxRepos:         s.MaxRepos,
	}
}

// FileRules returns the file rules described by the settings.
func (s Settings) FileRules() FileRules {
	return FileRules{
		Extensions:    append([]string(nil), s.Extensions...),
		ExcludedPaths: append([]string(nil), s.ExcludedPaths...),
		MaxSize:       s.MaxFileSize,
		MinLines:      s.MinLines,
	}
}
