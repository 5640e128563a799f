//go:build test

package resolve

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/bastiangx/marketserve/pkg/catalog"
)

var memQueries = []string{
	"p", "po", "pot", "poti", "potio", "potion",
	"h", "hi", "hi-", "hi-p", "hi-potion",
	"e", "et", "eth", "ethe", "ether",
	"f", "fi", "fir", "fire", "fire shard",
}

func largeStore(n int) *catalog.Store {
	items := make([]catalog.Item, n)
	for i := range items {
		items[i] = catalog.NewItem(i+1, fmt.Sprintf("Item %d Potion", i), i, false)
	}
	return catalog.NewStore(items)
}

func heapAlloc() uint64 {
	runtime.GC()
	runtime.GC()
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// Without a cache every resolution is recomputed; the heap must not keep
// growing with the number of calls.
func TestMemoryRepeatedResolve(t *testing.T) {
	r := NewResolver(largeStore(2000), nil, DefaultOptions())
	for _, q := range memQueries {
		r.Resolve(q)
	}
	before := heapAlloc()

	for i := 0; i < 20; i++ {
		for _, q := range memQueries {
			r.Resolve(q)
		}
	}
	after := heapAlloc()

	growth := int64(after) - int64(before)
	t.Logf("heap before=%d after=%d growth=%d", before, after, growth)
	if growth > 1<<20 {
		t.Errorf("heap grew by %d bytes over repeated resolutions", growth)
	}
}

func TestMemoryConcurrentResolve(t *testing.T) {
	r := NewResolver(largeStore(2000), nil, DefaultOptions())
	before := heapAlloc()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				r.Resolve(memQueries[(w+i)%len(memQueries)])
			}
		}(w)
	}
	wg.Wait()

	after := heapAlloc()
	growth := int64(after) - int64(before)
	t.Logf("heap before=%d after=%d growth=%d", before, after, growth)
	if growth > 1<<20 {
		t.Errorf("heap grew by %d bytes under concurrent resolutions", growth)
	}
}

func BenchmarkResolve(b *testing.B) {
	r := NewResolver(largeStore(10000), nil, DefaultOptions())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Resolve(memQueries[i%len(memQueries)])
	}
}
