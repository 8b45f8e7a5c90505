package cache

import (
	"fmt"
	"path/filepath"

	"github.com/l3aro/go-relooper/pkg/graphfile"
	"github.com/l3aro/go-relooper/pkg/reloop"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// OpenOptions selects and configures a store.
type OpenOptions struct {
	Backend string
	// Dir holds results.msgpack for the file backend and the database for
	// the pebble backend.
	Dir     string
	MaxSize int
}

// Open returns the configured store.
func Open(opts OpenOptions) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return New(Options{MaxSize: opts.MaxSize}), nil
	case BackendFile:
		path := filepath.Join(opts.Dir, "results.msgpack")
		c := New(Options{MaxSize: opts.MaxSize, Path: path})
		if err := LoadFromFile(c, path); err != nil {
			return nil, err
		}
		return c, nil
	case BackendPebble:
		return OpenPebble(filepath.Join(opts.Dir, "pebble"), 0)
	}
	return nil, fmt.Errorf("unknown cache backend %q (want memory, file or pebble)", opts.Backend)
}

// Reloop returns the stored result for g, or reloops g and stores the
// result. The boolean reports a hit. Debug runs bypass the store since
// traces are not persisted.
func Reloop(s Store, g *reloop.Graph, opts reloop.Options) (*reloop.Result, bool, error) {
	if s == nil || opts.Debug {
		res, err := reloop.Reloop(g, opts)
		return res, false, err
	}

	key, err := Fingerprint(g)
	if err != nil {
		return nil, false, err
	}
	if doc, ok := s.Get(key); ok {
		if res, err := doc.Result(g); err == nil {
			return res, true, nil
		}
	}

	res, err := reloop.Reloop(g, opts)
	if err != nil {
		return nil, false, err
	}
	if err := s.Set(key, graphfile.NewResultDoc(g.Name, res)); err != nil {
		return nil, false, fmt.Errorf("failed to cache result for %s: %w", g.Name, err)
	}
	return res, false, nil
}
