package resolve

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/bastiangx/marketserve/pkg/catalog"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.FatalLevel)
}

// memCache is a thread-safe ResultCache that counts writes.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]MatchResult
	puts    int
	putErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]MatchResult)}
}

func (c *memCache) Get(query string) ([]MatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	results, ok := c.entries[query]
	return results, ok
}

func (c *memCache) Put(query string, results []MatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.entries[query] = results
	return c.putErr
}

func testStore() *catalog.Store {
	return catalog.NewStore([]catalog.Item{
		catalog.NewItem(1, "Potion", 20601, false),
		catalog.NewItem(2, "Hi-Potion", 20602, false),
		catalog.NewItem(3, "Ether", 20701, false),
		catalog.NewItem(4, "Hi-Ether", 20702, false),
		catalog.NewItem(5, "Fire Shard", 20001, false),
		catalog.NewItem(6, "Fire Crystal", 20002, false),
		catalog.NewItem(7, "Elixir", 20801, false),
		catalog.NewItem(8, "Megalixir", 20802, false),
	})
}

func TestResolveExactOutranksSubstring(t *testing.T) {
	r := NewResolver(testStore(), nil, DefaultOptions())

	results := r.Resolve("Potion")
	if len(results) < 2 {
		t.Fatalf("expected at least 2 results, got %d", len(results))
	}
	if results[0].ID != 1 || !results[0].IsExactMatch || results[0].Similarity != 100 {
		t.Errorf("expected exact Potion first, got %+v", results[0])
	}
	if results[1].ID != 2 || results[1].IsExactMatch {
		t.Errorf("expected Hi-Potion second as non-exact, got %+v", results[1])
	}
	if results[1].Similarity != DefaultSubstringSimilarity {
		t.Errorf("expected substring similarity for Hi-Potion, got %d", results[1].Similarity)
	}
}

func TestResolveEveryItemFindsItself(t *testing.T) {
	store := testStore()
	r := NewResolver(store, nil, DefaultOptions())

	for _, item := range store.Items() {
		results := r.Resolve(item.Name)
		if len(results) == 0 {
			t.Fatalf("no results for %q", item.Name)
		}
		found := false
		for i, m := range results {
			if m.ID != item.ID {
				continue
			}
			found = true
			if !m.IsExactMatch || m.Similarity != 100 {
				t.Errorf("%q: expected exact 100, got %+v", item.Name, m)
			}
			for _, before := range results[:i] {
				if !before.IsExactMatch {
					t.Errorf("%q: non-exact %q ranked above exact match", item.Name, before.Name)
				}
			}
		}
		if !found {
			t.Errorf("%q not in its own results", item.Name)
		}
	}
}

func TestResolveCaseInsensitiveExact(t *testing.T) {
	r := NewResolver(testStore(), nil, DefaultOptions())

	results := r.Resolve("fire shard")
	if len(results) == 0 || results[0].ID != 5 || !results[0].IsExactMatch {
		t.Fatalf("expected exact Fire Shard first, got %+v", results)
	}
}

func TestResolveFuzzyTypo(t *testing.T) {
	r := NewResolver(testStore(), nil, DefaultOptions())

	results := r.Resolve("Megalixer")
	if len(results) == 0 {
		t.Fatal("expected fuzzy results")
	}
	if results[0].ID != 8 {
		t.Errorf("expected Megalixir as best fuzzy match, got %q", results[0].Name)
	}
	if results[0].IsExactMatch {
		t.Error("typo must not be an exact match")
	}
}

func TestResolveFuzzyLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.FuzzyLimit = 2
	r := NewResolver(testStore(), nil, opts)

	// no substring hits for this query, so only fuzzy candidates remain
	results := r.Resolve("zzz")
	if len(results) != 2 {
		t.Errorf("expected fuzzy limit of 2, got %d", len(results))
	}
}

func TestResolveMinSimilarity(t *testing.T) {
	opts := DefaultOptions()
	opts.MinSimilarity = 65
	r := NewResolver(testStore(), nil, opts)

	results := r.Resolve("zzz")
	if len(results) != 0 {
		t.Errorf("expected threshold to drop unrelated items, got %+v", results)
	}

	for _, m := range r.Resolve("Ether") {
		if m.Similarity < 65 {
			t.Errorf("unexpected low score %d for %q", m.Similarity, m.Name)
		}
	}
}

func TestResolveDedupesByID(t *testing.T) {
	r := NewResolver(testStore(), nil, DefaultOptions())

	results := r.Resolve("Ether")
	seen := map[int]bool{}
	for _, m := range results {
		if seen[m.ID] {
			t.Errorf("duplicate id %d", m.ID)
		}
		seen[m.ID] = true
	}
	// Hi-Ether appears in both passes; the substring value wins
	for _, m := range results {
		if m.ID == 4 && m.Similarity != DefaultSubstringSimilarity {
			t.Errorf("expected last-seen substring score, got %d", m.Similarity)
		}
	}
}

func TestResolveZeroOptionsUseDefaults(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"zero value", Options{}, DefaultSubstringSimilarity},
		{"only fuzzy limit", Options{FuzzyLimit: 50}, DefaultSubstringSimilarity},
		{"explicit", Options{SubstringSimilarity: 90}, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(testStore(), nil, tt.opts)
			var found bool
			for _, m := range r.Resolve("Ether") {
				if m.ID == 4 {
					found = true
					if m.Similarity != tt.want {
						t.Errorf("expected substring score %d, got %d", tt.want, m.Similarity)
					}
				}
			}
			if !found {
				t.Fatal("expected Hi-Ether among the results")
			}
		})
	}
}

func TestResolveCacheIdempotence(t *testing.T) {
	cache := newMemCache()
	first := NewResolver(testStore(), cache, DefaultOptions()).Resolve("Potion")

	// a different catalog behind the same cache still yields the cached list
	changed := catalog.NewStore([]catalog.Item{
		catalog.NewItem(99, "Potion", 1, false),
	})
	second := NewResolver(changed, cache, DefaultOptions()).Resolve("Potion")

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical cached results\nfirst:  %+v\nsecond: %+v", first, second)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("expected byte-identical results")
	}
	if cache.puts != 1 {
		t.Errorf("expected one cache write, got %d", cache.puts)
	}
}

func TestResolveCachedListIsNotShared(t *testing.T) {
	cache := newMemCache()
	r := NewResolver(testStore(), cache, DefaultOptions())

	results := r.Resolve("Potion")
	results[0].Similarity = -1

	again := r.Resolve("Potion")
	if again[0].Similarity != 100 {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestResolveCacheKeyIsRaw(t *testing.T) {
	cache := newMemCache()
	r := NewResolver(testStore(), cache, DefaultOptions())

	r.Resolve("Potion")
	r.Resolve("potion")
	if cache.puts != 2 {
		t.Errorf("expected raw queries to be cached separately, got %d writes", cache.puts)
	}
}

func TestResolvePersistErrorStillReturns(t *testing.T) {
	cache := newMemCache()
	cache.putErr = fmt.Errorf("disk full")
	r := NewResolver(testStore(), cache, DefaultOptions())

	if results := r.Resolve("Potion"); len(results) == 0 {
		t.Error("expected results despite persist failure")
	}
}

func TestResolveEmptyCatalog(t *testing.T) {
	cache := newMemCache()
	r := NewResolver(catalog.Empty(), cache, DefaultOptions())

	if results := r.Resolve("Potion"); len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
	if cache.puts != 0 {
		t.Error("empty catalog must not write the cache")
	}
}

func TestResolveBlankQuery(t *testing.T) {
	cache := newMemCache()
	r := NewResolver(testStore(), cache, DefaultOptions())

	for _, q := range []string{"", "   "} {
		if results := r.Resolve(q); len(results) != 0 {
			t.Errorf("expected no results for %q, got %d", q, len(results))
		}
	}
	if cache.puts != 0 {
		t.Error("blank queries must not be cached")
	}
}

func TestResolveMalformedItem(t *testing.T) {
	cache := newMemCache()
	store := catalog.NewStore([]catalog.Item{
		catalog.NewItem(1, "", 0, false),
		catalog.NewItem(2, "Potion", 1, false),
	})
	r := NewResolver(store, cache, DefaultOptions())

	if results := r.Resolve("Potion"); len(results) != 0 {
		t.Errorf("expected malformed row to abort resolution, got %+v", results)
	}
	if cache.puts != 0 {
		t.Error("aborted resolution must not be cached")
	}
}

func TestResolveConcurrentSameQuery(t *testing.T) {
	cache := newMemCache()
	r := NewResolver(testStore(), cache, DefaultOptions())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if results := r.Resolve("Hi-Potion"); len(results) == 0 {
				t.Error("expected results")
			}
		}()
	}
	wg.Wait()

	if cache.puts != 1 {
		t.Errorf("expected a single cache write, got %d", cache.puts)
	}
}
