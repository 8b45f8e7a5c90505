package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/go-relooper/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize reloop configuration interactively",
	Long: `Guides you through setting up reloop configuration step by step.
Creates a config file with output, cache and marker settings.`,
	// The config being written may not exist or validate yet.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd)
	},
}

// initAnswers holds what the form collects, as strings where huh inputs are
// text.
type initAnswers struct {
	Dialect  string
	Backend  string
	CacheDir string
	Workers  string
	Marker   string
	Scope    string
}

func defaultAnswers() initAnswers {
	d := config.DefaultConfig()
	return initAnswers{
		Dialect:  string(d.Dialect),
		Backend:  string(d.CacheBackend),
		CacheDir: d.CacheDir,
		Workers:  "0",
		Marker:   d.Marker,
		Scope:    "project",
	}
}

// buildConfig turns answers into a validated config and its save path.
func buildConfig(a initAnswers) (*config.Config, string, error) {
	c := config.DefaultConfig()
	c.Dialect = config.Dialect(a.Dialect)
	c.CacheBackend = config.CacheBackend(a.Backend)
	c.CacheDir = a.CacheDir
	c.Marker = a.Marker

	workers, err := strconv.Atoi(a.Workers)
	if err != nil {
		return nil, "", fmt.Errorf("workers must be a number: %w", err)
	}
	c.Workers = workers

	if err := c.Validate(); err != nil {
		return nil, "", fmt.Errorf("config validation failed: %w", err)
	}

	path := config.ProjectConfigFilePath()
	if a.Scope == "global" {
		path = config.GlobalConfigFilePath()
	}
	return c, path, nil
}

func validateWorkers(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return fmt.Errorf("enter 0 or a positive number")
	}
	return nil
}

func runInit(cmd *cobra.Command) error {
	a := defaultAnswers()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Output dialect").
				Description("Syntax used when printing relooped code").
				Options(
					huh.NewOption("JavaScript", string(config.DialectJS)),
					huh.NewOption("Go", string(config.DialectGo)),
				).
				Value(&a.Dialect),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Result cache").
				Description("Where relooped results are kept between runs").
				Options(
					huh.NewOption("File (msgpack snapshot)", string(config.CacheFile)),
					huh.NewOption("Pebble (embedded key-value store)", string(config.CachePebble)),
					huh.NewOption("Memory (no persistence)", string(config.CacheMemory)),
				).
				Value(&a.Backend),
			huh.NewInput().
				Title("Cache directory").
				Placeholder(a.CacheDir).
				Value(&a.CacheDir),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Batch workers").
				Description("0 uses one worker per CPU").
				Validate(validateWorkers).
				Value(&a.Workers),
			huh.NewInput().
				Title("Marker prefix").
				Description("Functions are opted in with //<prefix>:enable").
				Placeholder("reloop").
				Value(&a.Marker),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save location").
				Options(
					huh.NewOption("Project (./.reloop/config.yaml)", "project"),
					huh.NewOption("Global (~/.reloop/config.yaml)", "global"),
				).
				Value(&a.Scope),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	c, configPath, err := buildConfig(a)
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		confirm := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		if err := confirm.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "\n=== Configuration Preview ===")
	fmt.Fprintf(w, "Config path: %s\n", configPath)
	fmt.Fprintf(w, "Dialect: %s\n", c.Dialect)
	fmt.Fprintf(w, "Cache: %s", c.CacheBackend)
	if c.CacheBackend != config.CacheMemory {
		fmt.Fprintf(w, " in %s", c.CacheDir)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Workers: %d\n", c.Workers)
	fmt.Fprintf(w, "Marker: //%s:enable\n", c.Marker)
	fmt.Fprintln(w, "================================")

	if err := c.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	if _, err := config.LoadFromFile(configPath); err != nil {
		return fmt.Errorf("loading saved config: %w", err)
	}

	absPath, _ := filepath.Abs(configPath)
	fmt.Fprintf(w, "Configuration saved to: %s\n", absPath)
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
