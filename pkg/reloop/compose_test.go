package reloop_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-relooper/pkg/interp"
	"github.com/l3aro/go-relooper/pkg/reloop"
)

// twoTests builds "if p { if q ... }" shaped graphs over boolean inputs c1
// and c2; block 2 returns 1 and block 3 returns 0.
func twoTests(t0, f0, t1, f1 reloop.BlockID) *reloop.Graph {
	return &reloop.Graph{Name: "two", Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Term: reloop.Branch("c1", t0, f0)},
		{ID: 1, Term: reloop.Branch("c2", t1, f1)},
		{ID: 2, Term: reloop.Return("1")},
		{ID: 3, Term: reloop.Return("0")},
	}}
}

func TestCompose_TruthTables(t *testing.T) {
	tests := []struct {
		name string
		g    *reloop.Graph
		cond string
	}{
		{"and", twoTests(1, 3, 2, 3), "c1 && c2"},
		{"and not", twoTests(1, 3, 3, 2), "c1 && !c2"},
		{"or", twoTests(2, 1, 2, 3), "c1 || c2"},
		{"or not", twoTests(2, 1, 3, 2), "c1 || !c2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := reloop.Reloop(tt.g, reloop.Options{})
			require.NoError(t, err)

			root, ok := res.Root.(*reloop.Simple)
			require.True(t, ok)
			ifs, ok := root.Next.(*reloop.If)
			require.True(t, ok, "got %T", root.Next)
			assert.Equal(t, tt.cond, ifs.Cond.String())
			require.Len(t, ifs.Merged, 1)
			assert.Equal(t, reloop.BlockID(1), ifs.Merged[0].ID)

			for _, c1 := range []bool{false, true} {
				for _, c2 := range []bool{false, true} {
					vars := map[string]interface{}{"c1": c1, "c2": c2}
					gm, sm := interp.NewExprMachine(vars), interp.NewExprMachine(vars)
					require.NoError(t, interp.RunGraph(tt.g, gm, 0))
					require.NoError(t, interp.RunShape(res.Root, sm, 0))
					assert.Equal(t, gm.Result, sm.Result, fmt.Sprintf("c1=%v c2=%v", c1, c2))
				}
			}
		})
	}
}

func TestCompose_SkipsTestWithEffects(t *testing.T) {
	g := twoTests(1, 3, 2, 3)
	g.Blocks[1].Effects = []string{`log("x")`}

	res, err := reloop.Reloop(g, reloop.Options{})
	require.NoError(t, err)
	ifs := res.Root.(*reloop.Simple).Next.(*reloop.If)
	assert.Equal(t, "c1", ifs.Cond.String())
	assert.Empty(t, ifs.Merged)
}

func TestCompose_ChainedWhileCondition(t *testing.T) {
	g := &reloop.Graph{Name: "chain", Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Term: reloop.Jump(1)},
		{ID: 1, Term: reloop.Branch("x < n", 2, 4)},
		{ID: 2, Term: reloop.Branch("y > 0", 3, 4)},
		{ID: 3, Effects: []string{"x++"}, Term: reloop.Jump(1)},
		{ID: 4, Term: reloop.Return("x")},
	}}
	res, err := reloop.Reloop(g, reloop.Options{})
	require.NoError(t, err)

	l, ok := res.Root.(*reloop.Simple).Next.(*reloop.Loop)
	require.True(t, ok)
	assert.Equal(t, reloop.LoopWhile, l.Form)
	assert.Equal(t, "x < n && y > 0", l.Cond.String())
	require.Len(t, l.CondBlocks, 1)
	assert.Equal(t, reloop.BlockID(2), l.CondBlocks[0].ID)

	for _, vars := range []map[string]interface{}{
		{"x": 0, "n": 5, "y": 1},
		{"x": 0, "n": 5, "y": 0},
		{"x": 7, "n": 5, "y": 1},
	} {
		gm, sm := interp.NewExprMachine(vars), interp.NewExprMachine(vars)
		require.NoError(t, interp.RunGraph(g, gm, 0))
		require.NoError(t, interp.RunShape(res.Root, sm, 0))
		assert.Equal(t, gm.Result, sm.Result)
	}
}

func TestCompose_ChainedDoWhileCondition(t *testing.T) {
	g := &reloop.Graph{Name: "dowhile", Entry: 0, Blocks: []*reloop.Block{
		{ID: 0, Effects: []string{"x := 0"}, Term: reloop.Jump(1)},
		{ID: 1, Effects: []string{"x++"}, Term: reloop.Branch("x < n", 2, 3)},
		{ID: 2, Term: reloop.Branch("x != 3", 1, 3)},
		{ID: 3, Term: reloop.Return("x")},
	}}
	res, err := reloop.Reloop(g, reloop.Options{})
	require.NoError(t, err)

	l, ok := res.Root.(*reloop.Simple).Next.(*reloop.Loop)
	require.True(t, ok)
	assert.Equal(t, reloop.LoopDoWhile, l.Form)
	assert.Equal(t, "x < n && x != 3", l.Cond.String())

	for _, n := range []int{0, 2, 10} {
		vars := map[string]interface{}{"n": n}
		gm, sm := interp.NewExprMachine(vars), interp.NewExprMachine(vars)
		require.NoError(t, interp.RunGraph(g, gm, 0))
		require.NoError(t, interp.RunShape(res.Root, sm, 0))
		assert.Equal(t, gm.Result, sm.Result, "n=%d", n)
	}
}
