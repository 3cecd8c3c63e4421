package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/viewhubs/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg and resolvedPath hold the effective configuration loaded by
// PersistentPreRunE, available to every subcommand.
var (
	resolvedCfg  *config.Config
	resolvedPath string
	resolvedEnv  config.EnvOverrides
	resolvedCLI  config.CLIOverrides
)

// logLevel backs every logger built by buildLogger so a config reload can
// change verbosity without rebuilding handlers.
var logLevel = new(slog.LevelVar)

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "viewhubs",
		Short:   "Browse hubs, projects and model views over OAuth",
		Long:    "A small web service that signs users in with three-legged OAuth and serves the hub, project, folder, item, version and view tree to a browser viewer.",
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only log errors")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newAuthURLCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain (defaults -> file -> env -> CLI).
func loadConfig(cmd *cobra.Command) error {
	bootstrap := buildLogger(nil, os.Stderr)

	if err := config.LoadDotEnv(bootstrap); err != nil {
		return err
	}

	env, err := config.ReadEnvOverrides()
	if err != nil {
		return err
	}

	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		cli.ListenAddr = f.Value.String()
	}

	cfg, path, err := config.Resolve(env, cli, bootstrap)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg, resolvedPath = cfg, path
	resolvedEnv, resolvedCLI = env, cli

	return nil
}

// buildLogger creates an slog.Logger writing to w. The config's log level
// is the baseline; --verbose and --quiet override it because CLI flags
// always win. Format "auto" picks text on a terminal and JSON otherwise.
func buildLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	format := "auto"
	if cfg != nil {
		format = cfg.Logging.LogFormat
	}

	logLevel.Set(effectiveLevel(cfg))

	opts := &slog.HandlerOptions{Level: logLevel}

	if useJSON(format, w) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// effectiveLevel combines the configured level with the CLI flags.
func effectiveLevel(cfg *config.Config) slog.Level {
	level := slog.LevelInfo
	if cfg != nil {
		level = parseLevel(cfg.Logging.LogLevel)
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return level
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func useJSON(format string, w io.Writer) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
