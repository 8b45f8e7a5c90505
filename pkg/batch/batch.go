// Package batch reloops many independent graphs concurrently.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/go-relooper/internal/log"
	"github.com/l3aro/go-relooper/pkg/cache"
	"github.com/l3aro/go-relooper/pkg/graphfile"
	"github.com/l3aro/go-relooper/pkg/reloop"
)

// Unit is one graph to reloop. Load runs on a worker.
type Unit struct {
	Name  string
	Load  func(ctx context.Context) (*reloop.Graph, error)
	Debug bool
}

// Outcome is the result for one unit. Err is set when loading or relooping
// failed; the other units are unaffected unless FailFast is set.
type Outcome struct {
	Unit    string
	Graph   *reloop.Graph
	Result  *reloop.Result
	Cached  bool
	Err     error
	Elapsed time.Duration
}

// Options configures a batch run.
type Options struct {
	// Workers bounds concurrency. Zero means GOMAXPROCS.
	Workers int
	// Store caches results across runs. Nil disables caching.
	Store cache.Store
	// Logger receives per-unit progress at debug level.
	Logger log.Logger
	// FailFast stops at the first failing unit.
	FailFast bool
}

// Run reloops every unit and returns outcomes in input order. The error is
// non-nil when ctx is cancelled or, with FailFast, when a unit fails.
func Run(ctx context.Context, units []Unit, opts Options) ([]Outcome, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]Outcome, len(units))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for i, u := range units {
		i, u := i, u
		out[i].Unit = u.Name
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return err
			}
			run(ctx, u, opts, &out[i])
			if out[i].Err != nil && opts.FailFast {
				return fmt.Errorf("%s: %w", u.Name, out[i].Err)
			}
			return nil
		})
	}

	err := eg.Wait()
	return out, err
}

func run(ctx context.Context, u Unit, opts Options, o *Outcome) {
	start := time.Now()
	defer func() { o.Elapsed = time.Since(start) }()

	g, err := u.Load(ctx)
	if err != nil {
		o.Err = err
		return
	}
	o.Graph = g

	o.Result, o.Cached, o.Err = cache.Reloop(opts.Store, g, reloop.Options{Debug: u.Debug, Logger: opts.Logger})
	if opts.Logger != nil {
		opts.Logger.Debug("relooped", "unit", u.Name, "cached", o.Cached, "err", o.Err, "elapsed", time.Since(start))
	}
}

// GraphFiles returns one unit per graph file path.
func GraphFiles(paths []string, debug bool) []Unit {
	units := make([]Unit, len(paths))
	for i, p := range paths {
		p := p
		units[i] = Unit{
			Name:  p,
			Debug: debug,
			Load: func(context.Context) (*reloop.Graph, error) {
				return graphfile.Load(p)
			},
		}
	}
	return units
}

// Summary counts outcomes.
type Summary struct {
	Total  int `json:"total"`
	OK     int `json:"ok"`
	Cached int `json:"cached"`
	Failed int `json:"failed"`
}

// Summarize counts successes, cache hits and failures.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			s.Failed++
		case o.Cached:
			s.OK++
			s.Cached++
		default:
			s.OK++
		}
	}
	return s
}
