package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-relooper/pkg/batch"
	"github.com/l3aro/go-relooper/pkg/graphfile"
	"github.com/l3aro/go-relooper/pkg/interp"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file.yaml|file.json>...",
	Short: "Reloop graph files",
	Long: `Reads control-flow graphs from YAML or JSON files, reloops them and prints
the structured code. With --json the shape tree is printed instead.

With --run, each graph and its relooped shape are interpreted with the given
arguments and both results are compared.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noCache, _ := cmd.Flags().GetBool("no-cache")
		runArgs, _ := cmd.Flags().GetStringToString("run")

		for _, path := range args {
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("path is a directory, expected a file: %s (use 'reloop batch')", path)
			}
			if !graphfile.IsGraphFile(path) {
				return fmt.Errorf("unsupported file type: %s (only .yaml, .yml and .json)", path)
			}
		}

		store, err := openStore(noCache)
		if err != nil {
			return err
		}
		defer closeStore(store)

		outcomes, err := batch.Run(cmd.Context(), batch.GraphFiles(args, cfg.Debug), batch.Options{
			Workers: cfg.Workers,
			Store:   store,
			Logger:  logger,
		})
		if err != nil {
			return err
		}

		outs := make([]FuncOutput, len(outcomes))
		for i, o := range outcomes {
			outs[i] = outputFor(o, "", nil)
		}
		if err := printOutputs(cmd.OutOrStdout(), cmd.ErrOrStderr(), outs, jsonOutput(cmd)); err != nil {
			return err
		}

		if len(runArgs) > 0 {
			for _, o := range outcomes {
				if o.Err != nil {
					continue
				}
				if err := compareRun(cmd, o, runArgs); err != nil {
					return err
				}
			}
		}

		if n := failed(outs); n > 0 {
			return fmt.Errorf("%d of %d graphs failed", n, len(outs))
		}
		return nil
	},
}

// compareRun interprets the graph and its shape with the same arguments and
// reports both outcomes.
func compareRun(cmd *cobra.Command, o batch.Outcome, args map[string]string) error {
	vars := make(map[string]interface{}, len(args))
	for k, v := range args {
		vars[k] = interp.ParseValue(v)
	}

	gm := interp.NewExprMachine(vars)
	gerr := interp.RunGraph(o.Graph, gm, 0)
	sm := interp.NewExprMachine(vars)
	serr := interp.RunShape(o.Result.Root, sm, 0)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "\n=== run: %s ===\n", o.Graph.Name)
	fmt.Fprintf(w, "graph: result=%v log=%v err=%v\n", gm.Result, gm.Output, gerr)
	fmt.Fprintf(w, "shape: result=%v log=%v err=%v\n", sm.Result, sm.Output, serr)

	if !interp.SameOutcome(gm, gerr, sm, serr) {
		return fmt.Errorf("%s: relooped shape diverges from the graph", o.Graph.Name)
	}
	return nil
}

func init() {
	graphCmd.Flags().StringToString("run", nil, "Interpret graph and shape with these arguments, e.g. --run a=1,b=0")
	RootCmd.AddCommand(graphCmd)
}
