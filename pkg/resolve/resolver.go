// Package resolve turns free-text item names into ranked catalog matches.
//
// Ranking runs three passes over the catalog: a fuzzy pass scoring every
// normalized name with Ratio, a substring pass on the raw names, and an
// exact-name override. The merged list is de-duplicated by item id and sorted
// so that exact matches always come first. Every computed list is written to
// a ResultCache keyed by the raw query and reused verbatim afterwards.
package resolve

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bastiangx/marketserve/internal/utils"
	"github.com/bastiangx/marketserve/pkg/catalog"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"
)

// Scoring defaults
const (
	DefaultFuzzyLimit          = 50
	DefaultSubstringSimilarity = 95
	ExactSimilarity            = 100
)

// ErrMalformedItem aborts a resolution when a candidate row has no name.
var ErrMalformedItem = errors.New("malformed catalog item")

// MatchResult is one ranked candidate. The embedded item keeps the JSON
// shape flat: {id, name, icon, isuntradable, similarity, is_exact_match}.
type MatchResult struct {
	catalog.Item
	Similarity   int  `json:"similarity"`
	IsExactMatch bool `json:"is_exact_match"`
}

// ResultCache stores ranked lists by raw query.
type ResultCache interface {
	Get(query string) ([]MatchResult, bool)
	Put(query string, results []MatchResult) error
}

// Options tunes the ranking passes.
type Options struct {
	// FuzzyLimit caps how many fuzzy candidates are kept.
	FuzzyLimit int
	// MinSimilarity drops fuzzy candidates scoring below it; 0 keeps all.
	MinSimilarity int
	// SubstringSimilarity is assigned to substring hits; 0 means
	// DefaultSubstringSimilarity.
	SubstringSimilarity int
}

// DefaultOptions returns the ranking used by the bot: top 50 fuzzy
// candidates with no threshold, substring hits at 95.
func DefaultOptions() Options {
	return Options{
		FuzzyLimit:          DefaultFuzzyLimit,
		MinSimilarity:       0,
		SubstringSimilarity: DefaultSubstringSimilarity,
	}
}

// Resolver ranks catalog items against queries.
type Resolver struct {
	store *catalog.Store
	cache ResultCache
	opts  Options
	group singleflight.Group
}

// NewResolver creates a resolver over store. A nil cache disables caching.
func NewResolver(store *catalog.Store, cache ResultCache, opts Options) *Resolver {
	if store == nil {
		store = catalog.Empty()
	}
	if cache == nil {
		cache = nopCache{}
	}
	if opts.FuzzyLimit <= 0 {
		opts.FuzzyLimit = DefaultFuzzyLimit
	}
	if opts.SubstringSimilarity <= 0 {
		opts.SubstringSimilarity = DefaultSubstringSimilarity
	}
	return &Resolver{
		store: store,
		cache: cache,
		opts:  opts,
	}
}

// Catalog returns the store the resolver searches.
func (r *Resolver) Catalog() *catalog.Store {
	return r.store
}

// Resolve returns the ranked matches for query, best first. It never fails;
// problems are logged and produce an empty result.
func (r *Resolver) Resolve(query string) (results []MatchResult) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Search for '%s' panicked: %v", query, rec)
			results = nil
		}
	}()

	if cached, ok := r.cache.Get(query); ok {
		if len(cached) > 0 {
			log.Debugf("Cached result for '%s': %s", query, cached[0].Name)
		}
		return cloneResults(cached)
	}

	if r.store.IsEmpty() {
		log.Warn("Catalog is empty, nothing to search")
		return nil
	}

	key := utils.Normalize(query)
	if key == "" {
		return nil
	}

	v, err, _ := r.group.Do(query, func() (any, error) {
		// a concurrent caller may have stored it while we waited
		if cached, ok := r.cache.Get(query); ok {
			return cached, nil
		}
		ranked, err := r.rank(query, key)
		if err != nil {
			return nil, err
		}
		if err := r.cache.Put(query, ranked); err != nil {
			log.Errorf("Failed to persist search cache for '%s': %v", query, err)
		}
		return ranked, nil
	})
	if err != nil {
		log.Errorf("Search for '%s' failed: %v", query, err)
		return nil
	}

	ranked := v.([]MatchResult)
	if len(ranked) > 0 {
		log.Debugf("Search result for '%s': %s", query, ranked[0].Name)
	} else {
		log.Debugf("No search result for '%s'", query)
	}
	return cloneResults(ranked)
}

type scoredPos struct {
	pos   int
	score int
}

// rank runs the fuzzy, substring and exact passes and merges them.
func (r *Resolver) rank(query, key string) ([]MatchResult, error) {
	items := r.store.Items()

	scores := make([]scoredPos, 0, len(items))
	for i, item := range items {
		score := Ratio(key, item.NormalizedName())
		if score < r.opts.MinSimilarity {
			continue
		}
		scores = append(scores, scoredPos{pos: i, score: score})
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	if len(scores) > r.opts.FuzzyLimit {
		scores = scores[:r.opts.FuzzyLimit]
	}

	candidates := make([]MatchResult, 0, len(scores))
	for _, sc := range scores {
		item := items[sc.pos]
		if utils.IsBlank(item.Name) {
			return nil, fmt.Errorf("%w: id %d has no name", ErrMalformedItem, item.ID)
		}
		candidates = append(candidates, MatchResult{
			Item:         item,
			Similarity:   sc.score,
			IsExactMatch: utils.EqualFoldLower(item.Name, query),
		})
	}

	for _, item := range items {
		if utils.ContainsFold(item.Name, query) {
			candidates = append(candidates, MatchResult{
				Item:         item,
				Similarity:   r.opts.SubstringSimilarity,
				IsExactMatch: false,
			})
		}
	}

	for i := range candidates {
		if utils.EqualFoldLower(candidates[i].Name, query) {
			candidates[i].Similarity = ExactSimilarity
			candidates[i].IsExactMatch = true
		}
	}

	merged := dedupeByID(candidates)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].IsExactMatch != merged[j].IsExactMatch {
			return merged[i].IsExactMatch
		}
		return merged[i].Similarity > merged[j].Similarity
	})
	return merged, nil
}

// dedupeByID keeps one entry per item id: the position of its first
// appearance with the value of its last.
func dedupeByID(candidates []MatchResult) []MatchResult {
	seen := make(map[int]int, len(candidates))
	merged := make([]MatchResult, 0, len(candidates))
	for _, c := range candidates {
		if pos, ok := seen[c.ID]; ok {
			merged[pos] = c
			continue
		}
		seen[c.ID] = len(merged)
		merged = append(merged, c)
	}
	return merged
}

func cloneResults(results []MatchResult) []MatchResult {
	if results == nil {
		return nil
	}
	out := make([]MatchResult, len(results))
	copy(out, results)
	return out
}

type nopCache struct{}

func (nopCache) Get(string) ([]MatchResult, bool) { return nil, false }
func (nopCache) Put(string, []MatchResult) error  { return nil }
