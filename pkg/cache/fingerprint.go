package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-relooper/pkg/graphfile"
	"github.com/l3aro/go-relooper/pkg/reloop"
)

// formatVersion changes whenever the relooper's output for a given graph
// may change, so stale entries miss.
const formatVersion = "r1"

// Fingerprint identifies a graph by its blocks and entry. The graph name is
// not part of it: two graphs with the same structure share a result.
func Fingerprint(g *reloop.Graph) (string, error) {
	doc := graphfile.NewGraphDoc(g)
	doc.Name = ""
	b, err := msgpack.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode graph %s: %w", g.Name, err)
	}
	return fmt.Sprintf("%s:%016x", formatVersion, xxhash.Sum64(b)), nil
}
