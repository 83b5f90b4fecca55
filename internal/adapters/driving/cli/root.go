// Package cli implements the codeharvest command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeharvest/internal/adapters/driven/auth"
	"github.com/custodia-labs/codeharvest/internal/adapters/driven/config/file"
	"github.com/custodia-labs/codeharvest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/codeharvest/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/codeharvest/internal/connectors/github"
	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driving"
	"github.com/custodia-labs/codeharvest/internal/core/services"
	"github.com/custodia-labs/codeharvest/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// skipSetup marks commands that need neither configuration nor logging setup.
const skipSetup = "skip-setup"

var (
	configPath string
	verbose    bool
	logFormat  string
	envFile    string
)

var cliLog = logger.Named("cli")

// configStore is opened in the persistent pre-run hook.
var configStore driven.ConfigStore

// newFetchClient builds the API client for a crawl. Tests replace it.
var newFetchClient = func(s domain.Settings) driven.FetchClient {
	return github.NewClient(tokenProvider(), github.NewRateLimiter(s.RequestsPerSecond), github.ConfigFromSettings(s))
}

var rootCmd = &cobra.Command{
	Use:   "codeharvest",
	Short: "Build code datasets from public GitHub repositories",
	Long: `codeharvest searches GitHub for repositories matching a language, star and
recency filter, downloads the source files that pass the file rules into a
line-delimited intermediate store, and processes that store into a Parquet
dataset with filtering, PII and secret annotation, exact deduplication and
quality scoring.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", file.DefaultFileName, "config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&logFormat, "log-format", string(logger.FormatAuto), "log format: auto, console or json")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file with credentials, ignored when missing")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln("Error:", err)
		return err
	}
	return nil
}

func setup(cmd *cobra.Command, _ []string) error {
	if _, ok := cmd.Annotations[skipSetup]; ok {
		return nil
	}

	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return err
	}
	logger.SetFormat(format)
	logger.SetVerbose(verbose)

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	configStore = store
	logger.Debug("config: %s", store.Path())
	return nil
}

func loadSettings() (domain.Settings, error) {
	if configStore == nil {
		return domain.Settings{}, errors.New("config not loaded")
	}
	return services.LoadSettings(configStore)
}

func tokenProvider() driven.TokenProvider {
	env := auth.NewEnvTokenProvider(auth.TokenEnvVar)
	if env.IsAuthenticated() {
		return env
	}
	logger.Warn("%s is not set; requests are anonymous and limited to 60 per hour", env.Variable())
	return auth.NewNullTokenProvider()
}

// openLedger returns the run history for s. Without a ledger path, runs are
// kept in memory for the life of the process.
func openLedger(s domain.Settings) (driving.RunHistory, func(), error) {
	if s.LedgerPath == "" {
		return services.NewRunRecorder(memory.NewRunStore()), func() {}, nil
	}
	store, err := sqlite.NewStore(s.LedgerPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("close ledger: %v", err)
		}
	}
	return services.NewRunRecorder(store.RunStore()), closeFn, nil
}

// signalContext is cancelled on SIGINT or SIGTERM, and after timeout when
// timeout is positive.
func signalContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
