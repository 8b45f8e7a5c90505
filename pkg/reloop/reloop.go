package reloop

import (
	"fmt"
	"sort"

	"github.com/l3aro/go-relooper/internal/log"
)

// Options configures a reloop run.
type Options struct {
	// Debug records every classification decision in Result.Trace and logs
	// it at debug level.
	Debug bool

	// Logger receives debug output. Nil disables logging.
	Logger log.Logger
}

// LabelVariable is the synthetic dispatch variable. It exists only when some
// transfer into a multi-entry region could not be expressed structurally.
type LabelVariable struct {
	Name   string    `json:"name"`
	Values []BlockID `json:"values"`
}

// Result is the outcome of relooping one graph.
type Result struct {
	Root   Shape
	Labels []LabelVariable
	Trace  []TraceEvent
}

// LabelName is the name of the dispatch variable in emitted code.
const LabelName = "label"

// relooper holds the working state of one run. out and in track edges not
// yet assigned a branch kind.
type relooper struct {
	g        *Graph
	byID     map[BlockID]*Block
	rank     map[BlockID]int
	out, in  map[BlockID]blockSet
	branches map[edgeKey]branch
	checked  blockSet
	lastID   ShapeID
	trace    *tracer
}

// Reloop validates g and reconstructs its structured form. Blocks not
// reachable from the entry are ignored. The returned tree references the
// graph's blocks, which are not modified.
func Reloop(g *Graph, opts Options) (*Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	r := newRelooper(g, opts)
	order := g.Reachable()
	blocks := make(blockSet, len(order))
	for _, id := range order {
		blocks[id] = true
	}
	if opts.Logger != nil {
		opts.Logger.Debug("relooping", "graph", g.Name, "blocks", len(g.Blocks), "reachable", len(order))
	}

	top := r.process(blocks, []BlockID{g.Entry}, nil)
	if len(blocks) != 0 {
		return nil, fmt.Errorf("reloop %s: %d blocks left unplaced", g.Name, len(blocks))
	}

	res := &Result{Root: r.render(top)}
	if r.trace.enabled {
		res.Trace = r.trace.events
	}
	if labels := labelValues(res.Root); len(labels) > 0 {
		res.Labels = []LabelVariable{{Name: LabelName, Values: labels}}
	}
	return res, nil
}

func newRelooper(g *Graph, opts Options) *relooper {
	r := &relooper{
		g:        g,
		byID:     make(map[BlockID]*Block, len(g.Blocks)),
		rank:     make(map[BlockID]int, len(g.Blocks)),
		out:      make(map[BlockID]blockSet, len(g.Blocks)),
		in:       make(map[BlockID]blockSet, len(g.Blocks)),
		branches: make(map[edgeKey]branch),
		checked:  blockSet{},
		trace:    &tracer{enabled: opts.Debug, graph: g.Name, logger: opts.Logger},
	}
	for _, b := range g.Blocks {
		r.byID[b.ID] = b
	}
	for i, id := range g.Reachable() {
		r.rank[id] = i
		r.out[id] = blockSet{}
	}
	for id := range r.rank {
		for _, t := range r.byID[id].Term.Targets() {
			r.out[id][t] = true
			if r.in[t] == nil {
				r.in[t] = blockSet{}
			}
			r.in[t][id] = true
		}
	}
	return r
}

func labelValues(root Shape) []BlockID {
	seen := blockSet{}
	Walk(root, func(s Shape) {
		switch x := s.(type) {
		case *SetLabel:
			seen[x.Label] = true
		case *Multiple:
			for _, h := range x.Handled {
				seen[h.Label] = true
			}
		}
	})
	out := make([]BlockID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
