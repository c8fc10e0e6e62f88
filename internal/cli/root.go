package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/sieve/internal/config"
	"github.com/dshills/sieve/internal/logging"
)

const version = "0.3.0"

// Exit codes
const (
	ExitSuccess      = 0
	ExitFindings     = 1
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

// Global logging flags
var (
	flagLogLevel  string
	flagLogFormat string
	flagVerbose   int
	flagQuiet     bool
)

var rootCmd = &cobra.Command{
	Use:   "sieve",
	Short: "Static triage before LLM code review",
	Long: "Sieve scores source files with static signals, decides how much LLM review each one needs, " +
		"renders tier-appropriate prompts and deduplicates code chunks across repositories.",
	SilenceUsage: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(dedupCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// fail reports err on stderr and records a runtime failure.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	exitCode = ExitRuntimeError
}

// loadConfig loads the effective config and installs the logger it
// describes as the slog default.
func loadConfig(overrides map[string]string) (config.Config, error) {
	if overrides == nil {
		overrides = make(map[string]string)
	}
	if flagLogLevel != "" {
		overrides["logLevel"] = flagLogLevel
	}
	if flagLogFormat != "" {
		overrides["logFormat"] = flagLogFormat
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(newLogger(cfg.Log))
	return cfg, nil
}

// newLogger applies -v and -q on top of the configured level.
func newLogger(lc logging.Config) *slog.Logger {
	switch {
	case flagQuiet:
		return logging.Discard()
	case flagVerbose > 0:
		lc.Level = logging.LevelName(logging.LevelFromVerbosity(flagVerbose, false))
	}
	return logging.New(os.Stderr, lc)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print sieve version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "sieve version %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")
	pf.CountVarP(&flagVerbose, "verbose", "v", "Increase log verbosity (repeatable)")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress all logging")
}
