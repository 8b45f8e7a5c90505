package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/l3aro/go-relooper/internal/log"
	"github.com/l3aro/go-relooper/pkg/cache"
	"github.com/l3aro/go-relooper/pkg/graphfile"
	"github.com/l3aro/go-relooper/pkg/reloop"
	"github.com/l3aro/go-relooper/pkg/reloop/fixtures"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixtureUnits() []Unit {
	var units []Unit
	for _, f := range fixtures.All() {
		f := f
		units = append(units, Unit{
			Name: f.Name,
			Load: func(context.Context) (*reloop.Graph, error) { return f.Graph(), nil },
		})
	}
	return units
}

func TestRun_AllFixtures(t *testing.T) {
	units := fixtureUnits()
	out, err := Run(context.Background(), units, Options{Workers: 3})
	require.NoError(t, err)
	require.Len(t, out, len(units))

	for i, o := range out {
		assert.Equal(t, units[i].Name, o.Unit, "outcomes keep input order")
		assert.NoError(t, o.Err, o.Unit)
		assert.NotNil(t, o.Result, o.Unit)
		assert.False(t, o.Cached)
	}
	assert.Equal(t, Summary{Total: len(units), OK: len(units)}, Summarize(out))
}

func TestRun_WorkerBound(t *testing.T) {
	var running, peak int32
	units := make([]Unit, 12)
	for i := range units {
		units[i] = Unit{
			Name: "split",
			Load: func(context.Context) (*reloop.Graph, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return fixtures.Split(), nil
			},
		}
	}

	_, err := Run(context.Background(), units, Options{Workers: 2})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRun_PerUnitErrors(t *testing.T) {
	loadErr := errors.New("unreadable")
	units := []Unit{
		{Name: "ok", Load: func(context.Context) (*reloop.Graph, error) { return fixtures.SimpleIf(), nil }},
		{Name: "load", Load: func(context.Context) (*reloop.Graph, error) { return nil, loadErr }},
		{Name: "malformed", Load: func(context.Context) (*reloop.Graph, error) { return &reloop.Graph{Name: "empty"}, nil }},
	}

	out, err := Run(context.Background(), units, Options{Workers: 1})
	require.NoError(t, err)
	assert.NoError(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, loadErr)
	assert.ErrorIs(t, out[2].Err, reloop.ErrGraphMalformed)
	assert.Equal(t, Summary{Total: 3, OK: 1, Failed: 2}, Summarize(out))
}

func TestRun_FailFast(t *testing.T) {
	units := []Unit{
		{Name: "bad", Load: func(context.Context) (*reloop.Graph, error) { return nil, errors.New("nope") }},
		{Name: "later", Load: func(ctx context.Context) (*reloop.Graph, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	}

	_, err := Run(context.Background(), units, Options{Workers: 2, FailFast: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: nope")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := Run(ctx, fixtureUnits(), Options{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)
	for _, o := range out {
		assert.ErrorIs(t, o.Err, context.Canceled, o.Unit)
	}
}

func TestRun_CacheHits(t *testing.T) {
	store := cache.New(cache.Options{})
	units := fixtureUnits()

	_, err := Run(context.Background(), units, Options{Store: store})
	require.NoError(t, err)

	out, err := Run(context.Background(), units, Options{Store: store})
	require.NoError(t, err)
	s := Summarize(out)
	assert.Equal(t, len(units), s.Cached)
	assert.Equal(t, 0, s.Failed)
}

func TestRun_DebugBypassesCacheAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.LoggerConfig{Level: log.DebugLevel, Stderr: &buf})
	store := cache.New(cache.Options{})

	units := fixtureUnits()[:1]
	units[0].Debug = true
	out, err := Run(context.Background(), units, Options{Store: store, Logger: logger})
	require.NoError(t, err)
	assert.NotEmpty(t, out[0].Result.Trace)
	assert.Equal(t, 0, store.Len())
	assert.Contains(t, buf.String(), "relooped unit="+units[0].Name)
}

func TestGraphFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "isdigit.yaml")
	var data bytes.Buffer
	require.NoError(t, graphfile.Encode(&data, fixtures.IsDigit(), graphfile.YAML))
	require.NoError(t, os.WriteFile(good, data.Bytes(), 0o644))
	missing := filepath.Join(dir, "missing.json")

	out, err := Run(context.Background(), GraphFiles([]string{good, missing}, false), Options{})
	require.NoError(t, err)
	assert.NoError(t, out[0].Err)
	assert.Equal(t, "isDigit", out[0].Graph.Name)
	assert.Error(t, out[1].Err)
}
