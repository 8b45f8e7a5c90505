package reloop_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-relooper/internal/log"
	"github.com/l3aro/go-relooper/pkg/interp"
	"github.com/l3aro/go-relooper/pkg/reloop"
	"github.com/l3aro/go-relooper/pkg/reloop/fixtures"
)

var shapeOpts = cmp.Options{
	cmp.Comparer(func(a, b *reloop.Block) bool {
		if a == nil || b == nil {
			return a == nil && b == nil
		}
		return a.ID == b.ID
	}),
	cmpopts.EquateEmpty(),
}

func byID(g *reloop.Graph) map[reloop.BlockID]*reloop.Block {
	m := make(map[reloop.BlockID]*reloop.Block, len(g.Blocks))
	for _, b := range g.Blocks {
		m[b.ID] = b
	}
	return m
}

func mustReloop(t *testing.T, g *reloop.Graph) *reloop.Result {
	t.Helper()
	res, err := reloop.Reloop(g, reloop.Options{})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func assertShape(t *testing.T, want, got reloop.Shape) {
	t.Helper()
	if !reloop.Equal(want, got) {
		t.Fatalf("shape mismatch (-want +got):\n%s", cmp.Diff(want, got, shapeOpts))
	}
}

func TestReloop_SimpleIf(t *testing.T) {
	g := fixtures.SimpleIf()
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Next: &reloop.If{
		Cond: reloop.Leaf("a < b"),
		Then: &reloop.Simple{Block: b[1]},
		Else: &reloop.Simple{Block: b[2]},
	}}
	assertShape(t, want, mustReloop(t, g).Root)
}

func TestReloop_ComposedIfAnd(t *testing.T) {
	g := fixtures.ComposedIfAnd()
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Next: &reloop.If{
		Cond:   reloop.And(reloop.Leaf("a < b"), reloop.Leaf("a >= 0")),
		Then:   &reloop.Simple{Block: b[2]},
		Merged: []*reloop.Block{b[1]},
		Next:   &reloop.Simple{Block: b[3]},
	}}
	res := mustReloop(t, g)
	assertShape(t, want, res.Root)
	assert.Empty(t, res.Labels)
}

func TestReloop_ComposedIfOr(t *testing.T) {
	g := fixtures.ComposedIfOr()
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Next: &reloop.If{
		Cond:   reloop.Or(reloop.Leaf("a < b"), reloop.Leaf("a >= 0")),
		Else:   &reloop.Simple{Block: b[3]},
		Merged: []*reloop.Block{b[1]},
		Next:   &reloop.Simple{Block: b[2]},
	}}
	assertShape(t, want, mustReloop(t, g).Root)
}

func TestReloop_RangeCheck(t *testing.T) {
	g := &reloop.Graph{Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Term: reloop.Branch("c >= '0'", 1, 3)},
		{ID: 1, Term: reloop.Branch("c <= '9'", 2, 3)},
		{ID: 2, Term: reloop.Return("true")},
		{ID: 3, Term: reloop.Return("false")},
	}}
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Next: &reloop.If{
		Cond:   reloop.And(reloop.Leaf("c >= '0'"), reloop.Leaf("c <= '9'")),
		Then:   &reloop.Simple{Block: b[2]},
		Merged: []*reloop.Block{b[1]},
		Next:   &reloop.Simple{Block: b[3]},
	}}
	assertShape(t, want, mustReloop(t, g).Root)
}

func TestReloop_SingleBlockDoWhile(t *testing.T) {
	g := &reloop.Graph{Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Effects: []string{"i := 0"}, Term: reloop.Jump(1)},
		{ID: 1, Effects: []string{"i++"}, Term: reloop.Branch("i < n", 1, 2)},
		{ID: 2, Term: reloop.Return("i")},
	}}
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Effects: []string{"i := 0"}, Next: &reloop.Loop{
		ID:   1,
		Form: reloop.LoopDoWhile,
		Cond: reloop.Leaf("i < n"),
		Body: &reloop.Simple{Block: b[1], Effects: []string{"i++"}},
		Next: &reloop.Simple{Block: b[2]},
	}}
	assertShape(t, want, mustReloop(t, g).Root)
}

// The inner loop ends a branch of the outer body, so leaving it is the same
// as leaving the branch and both loops become do-while.
func TestReloop_SimpleDoWhile(t *testing.T) {
	g := fixtures.SimpleDoWhile()
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Effects: []string{"b++"}, Next: &reloop.Loop{
		ID:   1,
		Form: reloop.LoopDoWhile,
		Cond: reloop.Leaf("a < b"),
		Body: &reloop.Simple{Block: b[1], Next: &reloop.If{
			Cond: reloop.Leaf("a % 2 == 0"),
			Then: &reloop.Loop{
				ID:   3,
				Form: reloop.LoopDoWhile,
				Cond: reloop.Leaf("a < b"),
				Body: &reloop.Simple{Block: b[2], Effects: b[2].Effects},
			},
			Next: &reloop.Simple{Block: b[3], Effects: []string{"a++"}},
		}},
		Next: &reloop.Simple{Block: b[4]},
	}}
	res := mustReloop(t, g)
	assertShape(t, want, res.Root)
	assert.Empty(t, res.Labels)
}

func TestReloop_SimpleWhile(t *testing.T) {
	g := fixtures.SimpleWhile()
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Effects: []string{"b++"}, Next: &reloop.Loop{
		ID:     1,
		Form:   reloop.LoopWhile,
		Header: b[2],
		Cond:   reloop.Leaf("a < b"),
		Body: &reloop.Simple{
			Block:   b[1],
			Effects: []string{"log(a)", "a++"},
			Next:    &reloop.Continue{Target: 1},
		},
		Next: &reloop.Simple{Block: b[3], Effects: b[3].Effects},
	}}
	assertShape(t, want, mustReloop(t, g).Root)
}

func TestReloop_SimpleFor(t *testing.T) {
	g := fixtures.SimpleFor()
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Next: &reloop.Loop{
		ID:     1,
		Form:   reloop.LoopFor,
		Header: b[2],
		Cond:   reloop.Leaf("n < b"),
		Init:   "n := 1",
		Step:   "n++",
		Body: &reloop.Simple{
			Block:   b[1],
			Effects: []string{"log(a + n)"},
			Next:    &reloop.Continue{Target: 1},
		},
		Next: &reloop.Simple{Block: b[3]},
	}}
	assertShape(t, want, mustReloop(t, g).Root)

	// Effects on the graph itself are untouched.
	assert.Equal(t, []string{"n := 1"}, b[0].Effects)
	assert.Equal(t, []string{"log(a + n)", "n++"}, b[1].Effects)
}

func TestReloop_DemoComposesLoopCondition(t *testing.T) {
	g := fixtures.Demo()
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Effects: b[0].Effects, Next: &reloop.Loop{
		ID:         1,
		Form:       reloop.LoopWhile,
		Header:     b[1],
		Cond:       reloop.And(reloop.Leaf("a"), reloop.Leaf("b != c")),
		CondBlocks: []*reloop.Block{b[2]},
		Body: &reloop.Simple{
			Block:   b[3],
			Effects: b[3].Effects,
			Next:    &reloop.Continue{Target: 1},
		},
		Next: &reloop.Simple{Block: b[4]},
	}}
	assertShape(t, want, mustReloop(t, g).Root)
}

func TestReloop_Split(t *testing.T) {
	g := fixtures.Split()
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Effects: b[0].Effects, Next: &reloop.Loop{
		ID:     1,
		Form:   reloop.LoopWhile,
		Header: b[1],
		Cond:   reloop.Leaf("n < len(str)"),
		Body: &reloop.Simple{Block: b[2], Next: &reloop.If{
			Cond: reloop.Leaf("str[n] == ch"),
			Then: &reloop.Simple{Block: b[3], Effects: b[3].Effects, Next: &reloop.If{
				Cond: reloop.Leaf("len(out) >= limit-1"),
				Then: &reloop.Break{Target: 1},
			}},
			Next: &reloop.Simple{Block: b[4], Effects: b[4].Effects, Next: &reloop.Continue{Target: 1}},
		}},
		Next: &reloop.Simple{Block: b[5], Next: &reloop.If{
			Cond: reloop.Leaf("start < len(str)"),
			Then: &reloop.Simple{Block: b[6], Effects: b[6].Effects},
			Next: &reloop.Simple{Block: b[7]},
		}},
	}}
	res := mustReloop(t, g)
	assertShape(t, want, res.Root)
	assert.Empty(t, res.Labels)
}

func TestReloop_MySwitchFallthrough(t *testing.T) {
	g := fixtures.MySwitch()
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Next: &reloop.Switch{
		Selector: "a",
		Cases: []reloop.SwitchCase{
			{Values: []int64{0}, Body: &reloop.Simple{Block: b[1], Effects: b[1].Effects}},
			{Values: []int64{1}, Body: &reloop.Simple{Block: b[2], Effects: b[2].Effects}, FallsThrough: true},
			{Values: []int64{2}, Body: &reloop.Simple{Block: b[3], Effects: b[3].Effects}},
			{Values: []int64{3}, Body: &reloop.Simple{Block: b[4]}},
		},
		Next: &reloop.Simple{Block: b[5]},
	}}
	assertShape(t, want, mustReloop(t, g).Root)
}

// nestedLoops runs i from 0 to n; for each i an inner loop runs j from 0 to i.
// inner is the terminator of the inner loop's body block 4.
func nestedLoops(inner reloop.Terminator, extra ...*reloop.Block) *reloop.Graph {
	blocks := []*reloop.Block{
		{ID: 0, Effects: []string{"i := 0", "total := 0"}, Term: reloop.Jump(1)},
		{ID: 1, Term: reloop.Branch("i < n", 2, 9)},
		{ID: 2, Effects: []string{"i++", "j := 0"}, Term: reloop.Jump(3)},
		{ID: 4, Term: inner},
		{ID: 5, Effects: []string{"total += j", "j++"}, Term: reloop.Jump(3)},
		{ID: 9, Term: reloop.Return("total")},
	}
	return &reloop.Graph{Entry: 0, Blocks: append(blocks, extra...)}
}

func assertSameRuns(t *testing.T, g *reloop.Graph, root reloop.Shape, runs []map[string]interface{}, results []int64) {
	t.Helper()
	for i, args := range runs {
		gm := interp.NewExprMachine(args)
		require.NoError(t, interp.RunGraph(g, gm, 0))
		sm := interp.NewExprMachine(args)
		require.NoError(t, interp.RunShape(root, sm, 0))
		assert.Equal(t, results[i], gm.Result, "graph %v", args)
		assert.Equal(t, gm.Result, sm.Result, "shape %v", args)
	}
}

func TestReloop_NestedLoopBreaksOuter(t *testing.T) {
	g := nestedLoops(reloop.Branch("total > limit", 9, 5),
		&reloop.Block{ID: 3, Term: reloop.Branch("j < i", 4, 1)})
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Effects: b[0].Effects, Next: &reloop.Loop{
		ID:     1,
		Form:   reloop.LoopWhile,
		Header: b[1],
		Cond:   reloop.Leaf("i < n"),
		Body: &reloop.Simple{Block: b[2], Effects: []string{"i++"}, Next: &reloop.Loop{
			ID:     2,
			Form:   reloop.LoopFor,
			Header: b[3],
			Cond:   reloop.Leaf("j < i"),
			Init:   "j := 0",
			Step:   "j++",
			Body: &reloop.Simple{Block: b[4], Next: &reloop.If{
				Cond: reloop.Leaf("total > limit"),
				Then: &reloop.Break{Target: 1},
				Next: &reloop.Simple{Block: b[5], Effects: []string{"total += j"}, Next: &reloop.Continue{Target: 2}},
			}},
		}},
		Next: &reloop.Simple{Block: b[9]},
	}}
	res := mustReloop(t, g)
	assertShape(t, want, res.Root)

	assertSameRuns(t, g, res.Root, []map[string]interface{}{
		{"n": 3, "limit": 100},
		{"n": 3, "limit": 1},
		{"n": 0, "limit": 1},
	}, []int64{4, 2, 0})
}

func TestReloop_NestedLoopContinuesOuter(t *testing.T) {
	g := nestedLoops(reloop.Branch("j == k", 1, 5),
		&reloop.Block{ID: 3, Term: reloop.Branch("j < i", 4, 6)},
		&reloop.Block{ID: 6, Effects: []string{"total += 100"}, Term: reloop.Jump(1)})
	b := byID(g)

	want := &reloop.Simple{Block: b[0], Effects: b[0].Effects, Next: &reloop.Loop{
		ID:     1,
		Form:   reloop.LoopWhile,
		Header: b[1],
		Cond:   reloop.Leaf("i < n"),
		Body: &reloop.Simple{Block: b[2], Effects: []string{"i++"}, Next: &reloop.Loop{
			ID:     2,
			Form:   reloop.LoopFor,
			Header: b[3],
			Cond:   reloop.Leaf("j < i"),
			Init:   "j := 0",
			Step:   "j++",
			Body: &reloop.Simple{Block: b[4], Next: &reloop.If{
				Cond: reloop.Leaf("j == k"),
				Then: &reloop.Continue{Target: 1},
				Next: &reloop.Simple{Block: b[5], Effects: []string{"total += j"}, Next: &reloop.Continue{Target: 2}},
			}},
			Next: &reloop.Simple{Block: b[6], Effects: b[6].Effects, Next: &reloop.Continue{Target: 1}},
		}},
		Next: &reloop.Simple{Block: b[9]},
	}}
	res := mustReloop(t, g)
	assertShape(t, want, res.Root)

	assertSameRuns(t, g, res.Root, []map[string]interface{}{
		{"n": 3, "k": 1},
		{"n": 3, "k": 5},
	}, []int64{100, 304})
}

// A loop that ends the odd branch leaves through the outer loop's header
// without passing the latch, so the outer loop cannot take the latch's
// increment as a for step.
func TestReloop_ForNeedsEveryIterationThroughLatch(t *testing.T) {
	g := &reloop.Graph{Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Effects: []string{"t := 0", "i := 0"}, Term: reloop.Jump(1)},
		{ID: 1, Term: reloop.Branch("i < n", 2, 6)},
		{ID: 2, Term: reloop.Branch("i % 2 == 0", 3, 4)},
		{ID: 3, Effects: []string{"i++"}, Term: reloop.Jump(1)},
		{ID: 4, Effects: []string{"t += 1", "i += 3"}, Term: reloop.Jump(5)},
		{ID: 5, Term: reloop.Branch("t % 3 != 0", 7, 1)},
		{ID: 7, Effects: []string{"t++"}, Term: reloop.Jump(5)},
		{ID: 6, Term: reloop.Return("i*100 + t")},
	}}
	res := mustReloop(t, g)
	l, ok := res.Root.(*reloop.Simple).Next.(*reloop.Loop)
	require.True(t, ok)
	assert.Equal(t, reloop.LoopWhile, l.Form)

	assertSameRuns(t, g, res.Root, []map[string]interface{}{
		{"n": 3},
		{"n": 0},
	}, []int64{403, 0})
}

func TestReloop_SwitchCaseEndingInReturnNeverFallsThrough(t *testing.T) {
	// Case 1 returns; case 2 runs straight into the default.
	g := &reloop.Graph{Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Term: reloop.SwitchOn("n", []reloop.Case{{Value: 1, Target: 1}, {Value: 2, Target: 2}}, 3)},
		{ID: 1, Effects: []string{`log("1")`}, Term: reloop.Return("1")},
		{ID: 2, Effects: []string{`log("2")`}, Term: reloop.Jump(3)},
		{ID: 3, Term: reloop.Return("0")},
	}}
	sw := findSwitch(mustReloop(t, g).Root)
	require.NotNil(t, sw)
	require.Len(t, sw.Cases, 3)
	assert.False(t, sw.Cases[0].FallsThrough)
	assert.True(t, sw.Cases[1].FallsThrough)
	assert.True(t, sw.Cases[2].Default)
}

func TestReloop_SwitchSharedTargetsGroupLabels(t *testing.T) {
	g := &reloop.Graph{Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Term: reloop.SwitchOn("n", []reloop.Case{{Value: 1, Target: 1}, {Value: 2, Target: 1}, {Value: 3, Target: 2}}, 2)},
		{ID: 1, Term: reloop.Return("10")},
		{ID: 2, Term: reloop.Return("20")},
	}}
	sw := findSwitch(mustReloop(t, g).Root)
	require.NotNil(t, sw)
	require.Len(t, sw.Cases, 2)
	assert.Equal(t, []int64{1, 2}, sw.Cases[0].Values)
	assert.Equal(t, []int64{3}, sw.Cases[1].Values)
	assert.True(t, sw.Cases[1].Default)
}

func TestReloop_Irreducible(t *testing.T) {
	g := fixtures.Irreducible()
	b := byID(g)

	branch := func(blk *reloop.Block, other reloop.BlockID) reloop.Shape {
		return &reloop.Simple{Block: blk, Effects: blk.Effects, Next: &reloop.If{
			Cond: reloop.Leaf("n > 0"),
			Then: &reloop.SetLabel{Label: other, Next: &reloop.Continue{Target: 1}},
			Else: &reloop.Break{Target: 1},
		}}
	}
	want := &reloop.Simple{Block: b[0], Effects: b[0].Effects, Next: &reloop.If{
		Cond: reloop.Leaf("a > 5"),
		Then: &reloop.SetLabel{Label: 1},
		Else: &reloop.SetLabel{Label: 2},
		Next: &reloop.Loop{
			ID: 1,
			Body: &reloop.Multiple{
				ID:      2,
				Handled: []reloop.Handled{{Label: 2, Body: branch(b[2], 1)}},
				Else:    branch(b[1], 2),
			},
			Next: &reloop.Simple{Block: b[3]},
		},
	}}

	res := mustReloop(t, g)
	assertShape(t, want, res.Root)
	require.Len(t, res.Labels, 1)
	assert.Equal(t, reloop.LabelName, res.Labels[0].Name)
	assert.Equal(t, []reloop.BlockID{1, 2}, res.Labels[0].Values)
}

func TestReloop_SelfLoopTerminates(t *testing.T) {
	g := &reloop.Graph{Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Effects: []string{"x++"}, Term: reloop.Jump(0)},
	}}
	res := mustReloop(t, g)
	l, ok := res.Root.(*reloop.Loop)
	require.True(t, ok, "root is %T", res.Root)
	assert.Equal(t, reloop.LoopInfinite, l.Form)
	assertShape(t, &reloop.Simple{Block: g.Blocks[0], Effects: []string{"x++"}, Next: &reloop.Continue{Target: l.ID}}, l.Body)
}

func TestReloop_UnreachableBlocksIgnored(t *testing.T) {
	g := &reloop.Graph{Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Term: reloop.Return("")},
		{ID: 1, Term: reloop.Jump(0)},
	}}
	res := mustReloop(t, g)
	assert.Len(t, reloop.Blocks(res.Root), 1)
}

func TestReloop_Malformed(t *testing.T) {
	tests := []struct {
		name string
		g    *reloop.Graph
	}{
		{"empty", &reloop.Graph{}},
		{"missing entry", &reloop.Graph{Entry: 9, Blocks: []*reloop.Block{{ID: 0, Term: reloop.Return("")}}}},
		{"dangling edge", &reloop.Graph{Blocks: []*reloop.Block{{ID: 0, Term: reloop.Jump(4)}}}},
		{"duplicate id", &reloop.Graph{Blocks: []*reloop.Block{{ID: 0, Term: reloop.Return("")}, {ID: 0, Term: reloop.Return("")}}}},
		{"duplicate case", &reloop.Graph{Blocks: []*reloop.Block{
			{ID: 0, Term: reloop.SwitchOn("n", []reloop.Case{{Value: 1, Target: 1}, {Value: 1, Target: 1}}, 1)},
			{ID: 1, Term: reloop.Return("")},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reloop.Reloop(tt.g, reloop.Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, reloop.ErrGraphMalformed))
			var me *reloop.MalformedError
			assert.True(t, errors.As(err, &me))
		})
	}
}

// Every reachable block appears exactly once in the tree.
func TestReloop_Completeness(t *testing.T) {
	for _, f := range fixtures.All() {
		t.Run(f.Name, func(t *testing.T) {
			g := f.Graph()
			res := mustReloop(t, g)

			seen := make(map[reloop.BlockID]int)
			for _, blk := range reloop.Blocks(res.Root) {
				seen[blk.ID]++
			}
			for _, id := range g.Reachable() {
				assert.Equal(t, 1, seen[id], "block %d", id)
			}
			assert.Len(t, seen, len(g.Reachable()))
		})
	}
}

// Running the graph and running its shape give the same result and output.
func TestReloop_Equivalence(t *testing.T) {
	for _, f := range fixtures.All() {
		t.Run(f.Name, func(t *testing.T) {
			g := f.Graph()
			res := mustReloop(t, g)

			for _, run := range f.Runs {
				gm := interp.NewExprMachine(run.Args)
				require.NoError(t, interp.RunGraph(g, gm, 0))
				assert.Equal(t, run.Result, gm.Result, "graph result for %v", run.Args)
				assert.Equal(t, run.Output, gm.Output, "graph output for %v", run.Args)

				sm := interp.NewExprMachine(run.Args)
				require.NoError(t, interp.RunShape(res.Root, sm, 0))
				assert.Equal(t, gm.Result, sm.Result, "shape result for %v", run.Args)
				assert.Equal(t, gm.Output, sm.Output, "shape output for %v", run.Args)
			}
		})
	}
}

func TestReloop_SplitExample(t *testing.T) {
	f, ok := fixtures.Get("split")
	require.True(t, ok)
	res := mustReloop(t, f.Graph())

	m := interp.NewExprMachine(map[string]interface{}{"str": "hello world test", "ch": int64(' '), "limit": 2})
	require.NoError(t, interp.RunShape(res.Root, m, 0))
	assert.Equal(t, []interface{}{"hello", "world test"}, m.Result)
}

func TestReloop_Deterministic(t *testing.T) {
	for _, f := range fixtures.All() {
		a := mustReloop(t, f.Graph())
		b := mustReloop(t, f.Graph())
		assert.True(t, reloop.Equal(a.Root, b.Root), f.Name)
	}
}

func TestReloop_DebugTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.LoggerConfig{Level: log.DebugLevel, Stderr: &buf, Stdout: &buf})

	res, err := reloop.Reloop(fixtures.Irreducible(), reloop.Options{Debug: true, Logger: logger})
	require.NoError(t, err)
	require.NotEmpty(t, res.Trace)

	var loop *reloop.TraceEvent
	for i := range res.Trace {
		if res.Trace[i].Region == "loop" {
			loop = &res.Trace[i]
			break
		}
	}
	require.NotNil(t, loop)
	assert.ElementsMatch(t, []reloop.BlockID{1, 2}, loop.Entries)
	assert.Equal(t, []reloop.BlockID{3}, loop.Exits)
	assert.Contains(t, buf.String(), "graph=irreducible")

	quiet, err := reloop.Reloop(fixtures.Irreducible(), reloop.Options{})
	require.NoError(t, err)
	assert.Empty(t, quiet.Trace)
}

func findSwitch(s reloop.Shape) *reloop.Switch {
	var sw *reloop.Switch
	reloop.Walk(s, func(s reloop.Shape) {
		if x, ok := s.(*reloop.Switch); ok && sw == nil {
			sw = x
		}
	})
	return sw
}
