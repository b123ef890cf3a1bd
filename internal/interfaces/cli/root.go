// Package cli implements the claimsift command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/caselens/claimsift/internal/config"
	"github.com/caselens/claimsift/internal/engine"
	"github.com/caselens/claimsift/internal/engine/rules"
	"github.com/caselens/claimsift/internal/infrastructure/monitoring/logging"
	"github.com/caselens/claimsift/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type cliContextKey struct{}

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath string
	RulesPath  string
	LogLevel   string
	Output     string
	Verbose    bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config *config.Config
	Logger logging.Logger
	Rules  *rules.Rules
	Output string
}

// Engine builds a local analysis pipeline from the loaded configuration.
func (c *CLIContext) Engine() engine.Engine {
	return engine.New(engine.Config{
		MinAmount:        c.Config.Engine.MinAmount,
		ContextWindow:    c.Config.Engine.ContextWindow,
		BasisWindow:      c.Config.Engine.BasisWindow,
		MaxDocumentBytes: c.Config.Engine.MaxDocumentBytes,
		BatchConcurrency: c.Config.Engine.BatchConcurrency,
	}, c.Rules, nil, c.Logger)
}

// NewRootCommand creates the root command with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "claimsift",
		Short:   "Damage-amount extraction and aggregation for civil claim documents",
		Long:    "ClaimSift extracts, classifies, deduplicates and aggregates damage amounts\nfrom Traditional Chinese civil claim documents, producing per-claimant\nbreakdowns with validation against the document's stated total.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./claimsift.yaml)")
	pf.StringVar(&opts.RulesPath, "rules", "", "keyword rules override file")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.Output, "output", "o", "text", "output format (text, json)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable verbose output")

	cmd.AddCommand(
		newAnalyzeCmd(),
		newBatchCmd(),
		newServeCmd(),
	)

	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := initConfig(opts)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	logger, err := initLogger(opts)
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	r := rules.Default()
	rulesPath := opts.RulesPath
	if rulesPath == "" {
		rulesPath = cfg.Engine.RulesPath
	}
	if rulesPath != "" {
		if r, err = rules.Load(rulesPath); err != nil {
			return err
		}
	}

	cliCtx := &CLIContext{
		Config: cfg,
		Logger: logger,
		Rules:  r,
		Output: opts.Output,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads configuration with priority: --config flag > default
// search paths > environment-only.
func initConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}

	searchPaths := []string{"./claimsift.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".claimsift", "config.yaml"))
	}
	searchPaths = append(searchPaths, "/etc/claimsift/config.yaml")

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

// initLogger builds a console logger on stderr so stdout stays parseable.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts the CLIContext from a command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLI context not initialized")
	}
	return cliCtx, nil
}

// Execute runs the CLI and reports errors on stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %s\n", err.Error())
		return err
	}
	return nil
}

// printResult renders data in the selected output format.
func printResult(cmd *cobra.Command, data any) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return printJSON(cmd, data)
	}
	if strings.EqualFold(cliCtx.Output, "json") {
		return printJSON(cmd, data)
	}
	return printText(cmd, data)
}

func printJSON(cmd *cobra.Command, data any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printText(cmd *cobra.Command, data any) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	case fmt.Stringer:
		fmt.Fprintln(cmd.OutOrStdout(), v.String())
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", v)
	}
	return nil
}
