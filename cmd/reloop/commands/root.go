// Package commands provides the CLI commands for the reloop tool.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-relooper/internal/config"
	"github.com/l3aro/go-relooper/internal/log"
	"github.com/l3aro/go-relooper/pkg/emit"
)

// Set by PersistentPreRunE before any subcommand runs.
var (
	cfg    *config.Config
	logger *log.DefaultLogger
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "reloop",
	Short: "reloop - Recover structured control flow from flat graphs",
	Long: `reloop turns control-flow graphs into nested if/loop/switch code.

Commands:
  graph       Reloop graph files (YAML or JSON)
  go          Reloop Go functions through their SSA form
  batch       Reloop every graph file under a directory in parallel
  init        Create a configuration file interactively

Use "reloop [command] --help" for more information about a command.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	f := RootCmd.PersistentFlags()
	f.String("config", "", "Config file path (default: ~/.reloop/config.yaml then ./.reloop/config.yaml)")
	f.BoolP("json", "j", false, "Output as JSON")
	f.Bool("debug", false, "Record and print the classification trace")
	f.String("dialect", "", "Output dialect: js or go (default from config)")
	f.BoolP("verbose", "V", false, "Verbose logging")
	f.Bool("no-cache", false, "Do not read or write the result cache")
}

// setup loads the configuration, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("verbose") {
		cfg.Verbose, _ = flags.GetBool("verbose")
	}
	if flags.Changed("dialect") {
		d, _ := flags.GetString("dialect")
		cfg.Dialect = config.Dialect(d)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	logger = log.New(log.LoggerConfig{
		Level:      level,
		JSONOutput: cfg.JSONLogs,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	})
	logger.Debug("config loaded", "dialect", cfg.Dialect, "backend", cfg.CacheBackend, "workers", cfg.Workers)
	return nil
}

func dialect() emit.Dialect {
	d, err := emit.ParseDialect(string(cfg.Dialect))
	if err != nil {
		return emit.JS
	}
	return d
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}
