package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/mirrorjump/mirrorjump/internal/config"
	"github.com/mirrorjump/mirrorjump/internal/speedtest"
	"github.com/mirrorjump/mirrorjump/internal/store"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath   string
	dbPath    string
	logLevel  string
	logFormat string
	quiet     bool
	allowRoot bool

	globalCfg   *config.Config
	logger      *slog.Logger
	globalStore *store.Store
)

// shouldSkipConfig checks if a command should skip config loading entirely.
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skipConfigCmds[cmdName]
}

// shouldSkipStore checks if a command should skip opening the run-history
// store, the same shape as the teacher's shouldSkipComponentInit.
func shouldSkipStore(cmdName string) bool {
	skipStoreCmds := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skipStoreCmds[cmdName]
}

// checkNotRoot refuses to continue running as root unless --allow-root was
// passed, mirroring spec §7's ErrRootRefused exit condition. Geteuid is
// -1 on platforms without the concept (Windows), which never matches 0.
func checkNotRoot() error {
	if allowRoot {
		return nil
	}
	if os.Geteuid() == 0 {
		return speedtest.ErrRootRefused
	}
	return nil
}

// closeStore closes the global store connection.
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirrorjump",
		Short: "Country-jumping mirror speed-test ranking engine",
		Long: `mirrorjump ranks a distribution's mirror list by measured download
speed. Instead of probing every mirror, it jumps between countries along
a static infrastructure graph, sampling a handful of mirrors per country
and following the most promising neighbors, then re-tests the strongest
candidates serially to remove contention noise.`,
		Example: `  mirrorjump rank --target archlinux --entry-country US
  mirrorjump rank --target debian --out-file /etc/apt/sources.list.d/mirrorjump.list
  mirrorjump history --target archlinux`,
		Version: "0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()

			if err := checkNotRoot(); err != nil {
				return err
			}

			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			if cfgPath == "" {
				found, err := config.FindConfigFile()
				if err != nil {
					logger.Debug("config file not found, using defaults", "error", err)
				} else {
					cfgPath = found
				}
			}

			if cfgPath != "" {
				var err error
				globalCfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			} else {
				globalCfg = config.DefaultConfig()
			}

			if !quiet {
				logger.Debug("config loaded", "path", cfgPath)
			}

			if !shouldSkipStore(cmd.Name()) {
				path := dbPath
				if path == "" {
					path = "mirrorjump.db"
				}
				st, err := store.New(path, logger)
				if err != nil {
					return fmt.Errorf("failed to initialize run-history store: %w", err)
				}
				globalStore = st
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "path to run-history database (default mirrorjump.db)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress engine and fetcher progress lines")
	cmd.PersistentFlags().BoolVar(&allowRoot, "allow-root", false, "allow running as root")

	cmd.AddCommand(
		newRankCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags, exactly as
// the teacher's root.go setupLogging.
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// newVersionCmd prints the build version, matching the teacher's use of
// cobra's Version field but exposed as its own subcommand too.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mirrorjump version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("mirrorjump %s (%s)\n", cmd.Root().Version, runtime.Version())
			return nil
		},
	}
}
