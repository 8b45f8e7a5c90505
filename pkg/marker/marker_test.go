package marker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const src = `package demo

// Plain is not marked.
func Plain() {}

//reloop:enable
func Enabled(n int) int { return n }

// Debugged has a doc comment too.
//
//reloop:debug
func Debugged() {}

//reloop:enable

func Detached() {}

type Counter struct{ n int }

//reloop:enable
func (c *Counter) Bump() { c.n++ }

//reloop:enable extra words are fine
func (c Counter) Get() int { return c.n }

//reloop:enabled
func Typo() {}

type Box[T any] struct{ v T }

//reloop:enable
func (b *Box[T]) Set(v T) { b.v = v }
`

func TestScan(t *testing.T) {
	marks, err := New("").Scan([]byte(src), "demo.go")
	require.NoError(t, err)

	got := map[string]Mark{}
	for _, m := range marks {
		got[m.Func] = m
	}

	assert.ElementsMatch(t,
		[]string{"Enabled", "Debugged", "(*Counter).Bump", "(Counter).Get", "(*Box).Set"},
		keys(got))

	assert.False(t, got["Enabled"].Debug)
	assert.True(t, got["Debugged"].Debug)
	assert.Equal(t, 7, got["Enabled"].Line)
	assert.Equal(t, "demo.go", got["Enabled"].File)
}

func TestScan_CustomPrefix(t *testing.T) {
	code := "package p\n\n//flow:enable\nfunc A() {}\n\n//reloop:enable\nfunc B() {}\n"
	marks, err := New("flow").Scan([]byte(code), "p.go")
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, "A", marks[0].Func)
}

func TestScanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.go")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	marks, err := New(DefaultPrefix).ScanFile(path)
	require.NoError(t, err)
	assert.Len(t, marks, 5)

	_, err = New("").ScanFile(filepath.Join(t.TempDir(), "missing.go"))
	assert.Error(t, err)
}

func keys(m map[string]Mark) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
