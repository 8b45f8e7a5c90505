package ssagraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-relooper/pkg/reloop"
)

const sample = `package sample

func Sum(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}

func Classify(x int) string {
	switch x {
	case 1:
		return "one"
	case 2:
		return "two"
	case 3:
		return "three"
	}
	return "many"
}

type Counter struct{ n int }

func (c *Counter) Bump(by int) {
	if by > 0 {
		c.n += by
	}
}

func Apply(xs []int) func() int {
	return func() int {
		t := 0
		for _, x := range xs {
			t += x
		}
		return t
	}
}
`

func loadSample(t *testing.T) map[string]*Func {
	t.Helper()
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/sample\n\ngo 1.21\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.go"), []byte(sample), 0644))

	funcs, err := Load(context.Background(), LoadOptions{Dir: dir}, ".")
	require.NoError(t, err)

	byName := make(map[string]*Func, len(funcs))
	for _, f := range funcs {
		byName[f.Name] = f
	}
	return byName
}

func TestLoad_FindsFunctionsMethodsAndClosures(t *testing.T) {
	funcs := loadSample(t)
	for _, name := range []string{"Sum", "Classify", "(*Counter).Bump", "Apply", "Apply$1"} {
		assert.Contains(t, funcs, name)
	}
	assert.Equal(t, "sample.go", filepath.Base(funcs["Sum"].Pos.Filename))
}

func TestBuild_LoopRelooped(t *testing.T) {
	f := loadSample(t)["Sum"]
	require.NotNil(t, f)

	g, err := Build(f.Fn, BuildOptions{})
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.Equal(t, "Sum", g.Name)
	assert.Equal(t, reloop.BlockID(0), g.Entry)

	res, err := reloop.Reloop(g, reloop.Options{})
	require.NoError(t, err)

	loops := 0
	reloop.Walk(res.Root, func(s reloop.Shape) {
		if _, ok := s.(*reloop.Loop); ok {
			loops++
		}
	})
	assert.Equal(t, 1, loops)
	assert.Len(t, reloop.Blocks(res.Root), len(g.Reachable()))
}

func TestBuild_FoldsSwitches(t *testing.T) {
	f := loadSample(t)["Classify"]
	require.NotNil(t, f)

	plain, err := Build(f.Fn, BuildOptions{})
	require.NoError(t, err)
	for _, b := range plain.Blocks {
		assert.NotEqual(t, reloop.TermSwitch, b.Term.Kind)
	}

	g, err := Build(f.Fn, BuildOptions{Switches: true})
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	var sw *reloop.Block
	for _, b := range g.Blocks {
		if b.Term.Kind == reloop.TermSwitch {
			sw = b
		}
	}
	require.NotNil(t, sw)
	assert.Equal(t, "x", sw.Term.Selector)
	require.Len(t, sw.Term.Cases, 3)
	for i, c := range sw.Term.Cases {
		assert.Equal(t, int64(i+1), c.Value)
	}

	res, err := reloop.Reloop(g, reloop.Options{})
	require.NoError(t, err)
	found := false
	reloop.Walk(res.Root, func(s reloop.Shape) {
		if _, ok := s.(*reloop.Switch); ok {
			found = true
		}
	})
	assert.True(t, found)
}

func TestBuild_EveryFunctionReloops(t *testing.T) {
	for name, f := range loadSample(t) {
		g, err := Build(f.Fn, BuildOptions{Switches: true})
		require.NoError(t, err, name)
		_, err = reloop.Reloop(g, reloop.Options{})
		assert.NoError(t, err, name)
	}
}

func TestLoad_PackageErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/bad\n\ngo 1.21\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.go"), []byte("package bad\n\nfunc F() int { return undefined }\n"), 0644))

	_, err := Load(context.Background(), LoadOptions{Dir: dir}, ".")
	assert.ErrorContains(t, err, "packages contain errors")
}
