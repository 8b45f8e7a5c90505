package cache

import (
	"fmt"
	"testing"

	"github.com/l3aro/go-relooper/pkg/reloop"
	"github.com/l3aro/go-relooper/pkg/reloop/fixtures"
)

func BenchmarkCacheGet(b *testing.B) {
	c := New(Options{MaxSize: 10000})
	for i := 0; i < 1000; i++ {
		c.Set(fmt.Sprintf("key%d", i), doc("bench"))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("key999")
	}
}

func BenchmarkFingerprint(b *testing.B) {
	g := fixtures.Split()
	for i := 0; i < b.N; i++ {
		if _, err := Fingerprint(g); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReloopCached(b *testing.B) {
	c := New(Options{})
	g := fixtures.Split()
	for i := 0; i < b.N; i++ {
		if _, _, err := Reloop(c, g, reloop.Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
