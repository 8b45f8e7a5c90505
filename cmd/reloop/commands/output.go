package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/l3aro/go-relooper/internal/config"
	"github.com/l3aro/go-relooper/internal/log"
	"github.com/l3aro/go-relooper/pkg/batch"
	"github.com/l3aro/go-relooper/pkg/cache"
	"github.com/l3aro/go-relooper/pkg/emit"
	"github.com/l3aro/go-relooper/pkg/graphfile"
	"github.com/l3aro/go-relooper/pkg/reloop"
)

// FuncOutput is the JSON form of one relooped unit.
type FuncOutput struct {
	Name   string               `json:"name"`
	Source string               `json:"source,omitempty"`
	Cached bool                 `json:"cached,omitempty"`
	Error  string               `json:"error,omitempty"`
	Result *graphfile.ResultDoc `json:"result,omitempty"`
	Code   string               `json:"code,omitempty"`
	Trace  []reloop.TraceEvent  `json:"-"`
}

// openStore returns the configured result cache, or nil when caching is off
// or the run records traces.
func openStore(noCache bool) (cache.Store, error) {
	if noCache || cfg.Debug {
		return nil, nil
	}
	backend := cfg.CacheBackend
	if backend == "" {
		backend = config.CacheFile
	}
	s, err := cache.Open(cache.OpenOptions{
		Backend: string(backend),
		Dir:     cfg.CacheDir,
		MaxSize: cfg.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s cache in %s: %w", backend, cfg.CacheDir, err)
	}
	return s, nil
}

func closeStore(s cache.Store) {
	if s == nil {
		return
	}
	if err := s.Close(); err != nil {
		logger.Warn("closing cache", "err", err)
	}
}

// outputFor renders one outcome. params is the signature printed with the
// code; name overrides the graph name.
func outputFor(o batch.Outcome, name string, params []string) FuncOutput {
	out := FuncOutput{Name: name, Source: o.Unit, Cached: o.Cached}
	if o.Err != nil {
		out.Error = o.Err.Error()
		return out
	}
	if out.Name == "" && o.Graph != nil {
		out.Name = o.Graph.Name
	}
	out.Result = graphfile.NewResultDoc(out.Name, o.Result)
	out.Code = emit.String(o.Result, emit.Options{Dialect: dialect(), Name: out.Name, Params: params})
	out.Trace = o.Result.Trace
	return out
}

// printOutputs writes outputs as JSON or as code separated by blank lines.
// Traces go to errw so code on w stays clean.
func printOutputs(w, errw io.Writer, outs []FuncOutput, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(outs, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	for i, o := range outs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if o.Error != "" {
			fmt.Fprintf(errw, "%s: %s\n", o.Source, o.Error)
			continue
		}
		if len(o.Trace) > 0 {
			fmt.Fprintf(errw, "=== trace: %s ===\n", o.Name)
			for _, ev := range o.Trace {
				fmt.Fprintf(errw, "  %s\n", ev)
			}
		}
		fmt.Fprint(w, o.Code)
	}
	return nil
}

// failed counts outputs carrying an error.
func failed(outs []FuncOutput) int {
	n := 0
	for _, o := range outs {
		if o.Error != "" {
			n++
		}
	}
	return n
}

type stopper interface{ Stop() }

type noSpinner struct{}

func (noSpinner) Stop() {}

// startSpinner shows progress on an interactive stderr unless JSON output
// or verbose logging is on.
func startSpinner(cmd *cobra.Command, msg string) stopper {
	if jsonOutput(cmd) || cfg.Verbose || cfg.JSONLogs || !log.IsTTY() {
		return noSpinner{}
	}
	s := log.NewProgressSpinner(msg)
	s.Start()
	return s
}
