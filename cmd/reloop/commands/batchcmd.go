package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-relooper/internal/scanner"
	"github.com/l3aro/go-relooper/pkg/batch"
)

// BatchOutput represents the output of the batch command
type BatchOutput struct {
	RootDir string        `json:"root_dir"`
	Summary batch.Summary `json:"summary"`
	Elapsed string        `json:"elapsed"`
	Units   []FuncOutput  `json:"units"`
}

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Reloop every graph file under a directory in parallel",
	Long: `Scans dir for graph files (.yaml, .yml, .json), honoring .reloopignore, and
reloops them concurrently. Results are cached by graph fingerprint, so
unchanged graphs are not relooped again on the next run.

Use --emit to print the code for every graph, not only the summary.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		emitCode, _ := cmd.Flags().GetBool("emit")
		failFast, _ := cmd.Flags().GetBool("fail-fast")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		absDir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("getting absolute path: %w", err)
		}
		paths, err := scanner.GraphFiles(absDir)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no graph files found in %s", dir)
		}

		store, err := openStore(noCache)
		if err != nil {
			return err
		}
		defer closeStore(store)

		start := time.Now()
		spinner := startSpinner(cmd, fmt.Sprintf("relooping %d graphs", len(paths)))
		outcomes, runErr := batch.Run(cmd.Context(), batch.GraphFiles(paths, cfg.Debug), batch.Options{
			Workers:  cfg.Workers,
			Store:    store,
			Logger:   logger,
			FailFast: failFast,
		})
		spinner.Stop()
		elapsed := time.Since(start)

		outs := make([]FuncOutput, len(outcomes))
		for i, o := range outcomes {
			outs[i] = outputFor(o, "", nil)
			if rel, err := filepath.Rel(absDir, o.Unit); err == nil {
				outs[i].Source = filepath.ToSlash(rel)
			}
		}
		summary := batch.Summarize(outcomes)

		w := cmd.OutOrStdout()
		if jsonOutput(cmd) {
			if !emitCode {
				for i := range outs {
					outs[i].Code = ""
				}
			}
			data, err := json.MarshalIndent(BatchOutput{
				RootDir: absDir,
				Summary: summary,
				Elapsed: elapsed.Round(time.Millisecond).String(),
				Units:   outs,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(w, string(data))
		} else {
			if emitCode {
				if err := printOutputs(w, cmd.ErrOrStderr(), outs, false); err != nil {
					return err
				}
				fmt.Fprintln(w)
			} else {
				for _, o := range outs {
					if o.Error != "" {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", o.Source, o.Error)
					}
				}
			}
			fmt.Fprintf(w, "Relooped %d/%d graphs (%d cached, %d failed) in %s\n",
				summary.OK, summary.Total, summary.Cached, summary.Failed, elapsed.Round(time.Millisecond))
		}

		if runErr != nil {
			return runErr
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d graphs failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().Bool("emit", false, "Print the relooped code for every graph")
	batchCmd.Flags().Bool("fail-fast", false, "Stop at the first graph that fails")
	RootCmd.AddCommand(batchCmd)
}
