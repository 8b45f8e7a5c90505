package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-relooper/internal/scanner"
	"github.com/l3aro/go-relooper/pkg/batch"
	"github.com/l3aro/go-relooper/pkg/marker"
	"github.com/l3aro/go-relooper/pkg/reloop"
	"github.com/l3aro/go-relooper/pkg/ssagraph"
)

// goCmd represents the go command
var goCmd = &cobra.Command{
	Use:   "go [dir] [func...]",
	Short: "Reloop Go functions through their SSA form",
	Long: `Loads the Go packages under dir, builds SSA for them and reloops the
selected functions. Functions are named as go/ssa prints them relative to
their package: F, (T).M or (*T).M.

With no function names only functions marked with a //reloop:enable comment
are relooped; //reloop:debug also records the classification trace. The
marker prefix is configurable. Use --all to reloop every function.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
			args = args[1:]
		}
		all, _ := cmd.Flags().GetBool("all")
		tests, _ := cmd.Flags().GetBool("tests")
		noSwitch, _ := cmd.Flags().GetBool("no-switch")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("getting absolute path: %w", err)
		}

		spinner := startSpinner(cmd, "loading packages")
		funcs, err := ssagraph.Load(cmd.Context(), ssagraph.LoadOptions{Dir: absDir, Tests: tests}, "./...")
		spinner.Stop()
		if err != nil {
			return fmt.Errorf("loading %s: %w", dir, err)
		}
		logger.Debug("packages loaded", "dir", absDir, "funcs", len(funcs))

		selected, debug, err := selectFuncs(funcs, absDir, args, all, tests)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			logger.Info("no marked functions found", "dir", dir, "marker", "//"+cfg.Marker+":enable")
			return nil
		}

		units := make([]batch.Unit, len(selected))
		for i, f := range selected {
			f := f
			units[i] = batch.Unit{
				Name:  f.Pos.String(),
				Debug: cfg.Debug || debug[f],
				Load: func(context.Context) (*reloop.Graph, error) {
					return ssagraph.Build(f.Fn, ssagraph.BuildOptions{Switches: !noSwitch})
				},
			}
		}

		store, err := openStore(noCache)
		if err != nil {
			return err
		}
		defer closeStore(store)

		outcomes, err := batch.Run(cmd.Context(), units, batch.Options{
			Workers: cfg.Workers,
			Store:   store,
			Logger:  logger,
		})
		if err != nil {
			return err
		}

		outs := make([]FuncOutput, len(outcomes))
		for i, o := range outcomes {
			outs[i] = outputFor(o, selected[i].Name, params(selected[i]))
		}
		if err := printOutputs(cmd.OutOrStdout(), cmd.ErrOrStderr(), outs, jsonOutput(cmd)); err != nil {
			return err
		}
		if n := failed(outs); n > 0 {
			return fmt.Errorf("%d of %d functions failed", n, len(outs))
		}
		return nil
	},
}

// selectFuncs picks the functions named in names, every function when all
// is set, or else the marked ones. The map reports which selected functions
// asked for a debug trace.
func selectFuncs(funcs []*ssagraph.Func, dir string, names []string, all, tests bool) ([]*ssagraph.Func, map[*ssagraph.Func]bool, error) {
	debug := make(map[*ssagraph.Func]bool)

	if all {
		return funcs, debug, nil
	}

	if len(names) > 0 {
		byName := make(map[string][]*ssagraph.Func)
		for _, f := range funcs {
			byName[f.Name] = append(byName[f.Name], f)
		}
		var out []*ssagraph.Func
		var missing []string
		for _, n := range names {
			fs, ok := byName[n]
			if !ok {
				missing = append(missing, n)
				continue
			}
			out = append(out, fs...)
		}
		if len(missing) > 0 {
			return nil, nil, fmt.Errorf("functions not found in %s: %s", dir, strings.Join(missing, ", "))
		}
		return out, debug, nil
	}

	marks, err := scanMarks(dir, tests)
	if err != nil {
		return nil, nil, err
	}
	var out []*ssagraph.Func
	for _, f := range funcs {
		m, ok := marks[markKey{file: f.Pos.Filename, fn: f.Name}]
		if !ok {
			continue
		}
		out = append(out, f)
		debug[f] = m.Debug
	}
	return out, debug, nil
}

type markKey struct {
	file string
	fn   string
}

// scanMarks finds every marked declaration in the Go files under dir.
func scanMarks(dir string, tests bool) (map[markKey]marker.Mark, error) {
	opts := scanner.DefaultOptions()
	opts.Kinds = []scanner.Kind{scanner.KindGo}
	opts.SkipTests = !tests
	files, err := scanner.New(opts).Scan(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	sc := marker.New(cfg.Marker)
	marks := make(map[markKey]marker.Mark)
	for _, file := range files {
		found, err := sc.ScanFile(file.FullPath)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			abs, err := filepath.Abs(m.File)
			if err != nil {
				abs = m.File
			}
			marks[markKey{file: abs, fn: m.Func}] = m
		}
	}
	logger.Debug("markers scanned", "files", len(files), "marked", len(marks))
	return marks, nil
}

func params(f *ssagraph.Func) []string {
	var out []string
	for _, p := range f.Fn.Params {
		out = append(out, p.Name())
	}
	return out
}

func init() {
	goCmd.Flags().Bool("all", false, "Reloop every function, marked or not")
	goCmd.Flags().Bool("tests", false, "Include test files")
	goCmd.Flags().Bool("no-switch", false, "Keep integer compare chains as if/else instead of folding them into switches")
	RootCmd.AddCommand(goCmd)
}
