package cache

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-relooper/pkg/graphfile"
)

var prefixResults = []byte("res:")

// PebbleStore keeps results in a pebble database on disk.
type PebbleStore struct {
	db *pebble.DB
}

// OpenPebble opens or creates the database at dir.
func OpenPebble(dir string, cacheBytes int64) (*PebbleStore, error) {
	if cacheBytes <= 0 {
		cacheBytes = 8 << 20
	}
	cache := pebble.NewCache(cacheBytes)
	defer cache.Unref()

	db, err := pebble.Open(dir, &pebble.Options{Cache: cache})
	if err != nil {
		return nil, fmt.Errorf("failed to open result db %q: %w", dir, err)
	}
	return &PebbleStore{db: db}, nil
}

func resultKey(key string) []byte {
	return append(append([]byte(nil), prefixResults...), key...)
}

// Get retrieves a result. Undecodable entries count as misses.
func (s *PebbleStore) Get(key string) (*graphfile.ResultDoc, bool) {
	data, closer, err := s.db.Get(resultKey(key))
	if err != nil {
		return nil, false
	}
	defer closer.Close()

	var doc graphfile.ResultDoc
	if err := msgpack.Unmarshal(data, &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

// Set stores a result durably.
func (s *PebbleStore) Set(key string, doc *graphfile.ResultDoc) error {
	data, err := msgpack.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return s.db.Set(resultKey(key), data, pebble.Sync)
}

// Delete removes a result.
func (s *PebbleStore) Delete(key string) error {
	err := s.db.Delete(resultKey(key), pebble.Sync)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil
	}
	return err
}

// Len counts stored results.
func (s *PebbleStore) Len() int {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefixResults,
		UpperBound: []byte("res;"),
	})
	if err != nil {
		return 0
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n
}

// Close flushes pending writes and closes the database.
func (s *PebbleStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

var _ Store = (*PebbleStore)(nil)
