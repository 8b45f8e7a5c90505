package cache

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/go-relooper/pkg/graphfile"
	"github.com/l3aro/go-relooper/pkg/reloop"
	"github.com/l3aro/go-relooper/pkg/reloop/fixtures"
)

func doc(name string) *graphfile.ResultDoc {
	id := 0
	return &graphfile.ResultDoc{Graph: name, Root: &graphfile.ShapeDoc{Kind: graphfile.KindSimple, Block: &id}}
}

func TestLRUCache_Basic(t *testing.T) {
	c := New(Options{MaxSize: 3})

	require.NoError(t, c.Set("a", doc("a")))
	require.NoError(t, c.Set("b", doc("b")))
	require.NoError(t, c.Set("c", doc("c")))
	assert.Equal(t, 3, c.Len())

	got, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, "a", got.Graph)

	_, found = c.Get("zzz")
	assert.False(t, found)

	st := c.Stats()
	assert.Equal(t, int64(1), st.HitCount)
	assert.Equal(t, int64(1), st.MissCount)
}

func TestLRUCache_LRU_Eviction(t *testing.T) {
	var evicted []string
	c := New(Options{MaxSize: 3, OnEvict: func(key string, _ *graphfile.ResultDoc) {
		evicted = append(evicted, key)
	}})

	c.Set("a", doc("a"))
	c.Set("b", doc("b"))
	c.Set("c", doc("c"))

	// Touch 'a' so 'b' is least recently used.
	c.Get("a")
	c.Set("d", doc("d"))

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b"}, evicted)
	for _, k := range []string{"a", "c", "d"} {
		_, found := c.Get(k)
		assert.True(t, found, k)
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c := New(Options{MaxSize: 10})
	c.Set("a", doc("a"))
	c.Set("b", doc("b"))

	c.Delete("a")
	c.Delete("missing")
	assert.Equal(t, 1, c.Len())
	_, found := c.Get("a")
	assert.False(t, found)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.CurrentBytes())
}

func TestLRUCache_Update(t *testing.T) {
	c := New(Options{})
	c.Set("k", doc("first"))
	before := c.CurrentBytes()
	c.Set("k", doc("a much longer graph name"))

	got, _ := c.Get("k")
	assert.Equal(t, "a much longer graph name", got.Graph)
	assert.Equal(t, 1, c.Len())
	assert.Greater(t, c.CurrentBytes(), before)
}

func TestLRUCache_MaxBytes(t *testing.T) {
	one, err := estimateSize(doc("x"))
	require.NoError(t, err)

	c := New(Options{MaxBytes: int64(one*2 + 1)})
	c.Set("a", doc("x"))
	c.Set("b", doc("x"))
	c.Set("c", doc("x"))
	assert.Equal(t, 2, c.Len())
	_, found := c.Get("a")
	assert.False(t, found)
}

func TestLRUCache_SaveLoad(t *testing.T) {
	c := New(Options{MaxSize: 10})
	c.Set("a", doc("a"))
	c.Set("b", doc("b"))
	c.Get("a")

	var buf bytes.Buffer
	require.NoError(t, c.Save(&buf))

	restored := New(Options{MaxSize: 10})
	require.NoError(t, restored.Load(&buf))
	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, c.CurrentBytes(), restored.CurrentBytes())

	// Recency order survives: 'b' is still the eviction candidate.
	restored.maxSize = 1
	restored.evictIfNeeded()
	_, found := restored.Get("a")
	assert.True(t, found)

	assert.Error(t, restored.Load(bytes.NewReader([]byte{0xc1})))
}

func TestLRUCache_PersistToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.msgpack")

	c := New(Options{Path: path})
	c.Set("a", doc("a"))
	require.NoError(t, c.Close())

	loaded := New(Options{})
	require.NoError(t, LoadFromFile(loaded, path))
	assert.Equal(t, 1, loaded.Len())

	require.NoError(t, LoadFromFile(New(Options{}), filepath.Join(t.TempDir(), "none")))
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := New(Options{MaxSize: 50})
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := string(rune('a' + (w+i)%26))
				c.Set(key, doc(key))
				c.Get(key)
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 26)
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(fixtures.SimpleIf())
	require.NoError(t, err)

	renamed := fixtures.SimpleIf()
	renamed.Name = "other"
	b, err := Fingerprint(renamed)
	require.NoError(t, err)
	assert.Equal(t, a, b, "name does not matter")

	changed := fixtures.SimpleIf()
	changed.Blocks[1].Effects = []string{"x++"}
	c, err := Fingerprint(changed)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestReloop_HitAndMiss(t *testing.T) {
	store := New(Options{})
	g := fixtures.Irreducible()

	first, hit, err := Reloop(store, g, reloop.Options{})
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := Reloop(store, fixtures.Irreducible(), reloop.Options{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, reloop.Equal(first.Root, second.Root))
	assert.Equal(t, first.Labels, second.Labels)

	dbg, hit, err := Reloop(store, g, reloop.Options{Debug: true})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotEmpty(t, dbg.Trace)

	_, _, err = Reloop(store, &reloop.Graph{}, reloop.Options{})
	assert.ErrorIs(t, err, reloop.ErrGraphMalformed)
	assert.Equal(t, 1, store.Len())
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(OpenOptions{Backend: BackendFile, Dir: dir})
	require.NoError(t, err)
	_, _, err = Reloop(s, fixtures.SimpleFor(), reloop.Options{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(OpenOptions{Backend: BackendFile, Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	_, hit, err := Reloop(s, fixtures.SimpleFor(), reloop.Options{})
	require.NoError(t, err)
	assert.True(t, hit)

	_, err = Open(OpenOptions{Backend: "redis"})
	assert.Error(t, err)
}

func TestPebbleStore(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(OpenOptions{Backend: BackendPebble, Dir: dir})
	require.NoError(t, err)
	for _, f := range fixtures.All() {
		_, hit, err := Reloop(s, f.Graph(), reloop.Options{})
		require.NoError(t, err, f.Name)
		assert.False(t, hit)
	}
	n := s.Len()
	assert.Equal(t, len(fixtures.All()), n)
	require.NoError(t, s.Close())

	s, err = Open(OpenOptions{Backend: BackendPebble, Dir: dir})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, n, s.Len())

	res, hit, err := Reloop(s, fixtures.MySwitch(), reloop.Options{})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.NotNil(t, res.Root)

	ps := s.(*PebbleStore)
	key, err := Fingerprint(fixtures.MySwitch())
	require.NoError(t, err)
	require.NoError(t, ps.Delete(key))
	_, found := ps.Get(key)
	assert.False(t, found)
}
