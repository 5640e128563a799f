// Package searchcache persists resolved search results to a JSON file.
//
// The file is a single object mapping each raw query to its ranked list.
// Every Put rewrites the whole file through a temp file and rename, so a
// reader never sees a half-written cache. Entries never expire.
package searchcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/bastiangx/marketserve/internal/utils"
	"github.com/bastiangx/marketserve/pkg/catalog"
	"github.com/bastiangx/marketserve/pkg/resolve"
	"github.com/charmbracelet/log"
)

// record is the on-disk form of a match. Similarity is decoded as a float
// so caches written with fractional scores still load.
type record struct {
	catalog.Item
	Similarity   float64 `json:"similarity"`
	IsExactMatch bool    `json:"is_exact_match"`
}

// Cache is a file-backed resolve.ResultCache.
type Cache struct {
	path    string
	mu      sync.RWMutex
	entries map[string][]resolve.MatchResult
}

var _ resolve.ResultCache = (*Cache)(nil)

// Open loads the cache at path. A missing, empty or corrupted file yields
// an empty cache; the problem is logged and the file is replaced on the
// next Put.
func Open(path string) *Cache {
	c := &Cache{
		path:    path,
		entries: make(map[string][]resolve.MatchResult),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Warnf("Search cache %s not found, starting empty", path)
		return c
	case err != nil:
		log.Errorf("Failed to read search cache %s: %v", path, err)
		return c
	case len(bytes.TrimSpace(data)) == 0:
		log.Warnf("Search cache %s is empty, starting empty", path)
		return c
	}

	entries, err := decode(data)
	if err != nil {
		logDecodeError(path, data, err)
		return c
	}
	c.entries = entries
	log.Debugf("Loaded %d cached searches from %s", len(entries), path)
	return c
}

// Path returns the backing file.
func (c *Cache) Path() string {
	return c.path
}

// Get returns the cached list for query.
func (c *Cache) Get(query string) ([]resolve.MatchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	results, ok := c.entries[query]
	return results, ok
}

// Put stores results under query and rewrites the file. The in-memory
// entry is kept even when the write fails.
func (c *Cache) Put(query string, results []resolve.MatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]resolve.MatchResult, len(results))
	copy(stored, results)
	c.entries[query] = stored

	data, err := encode(c.entries)
	if err != nil {
		return fmt.Errorf("failed to encode search cache: %w", err)
	}
	if err := utils.WriteFileAtomic(c.path, data); err != nil {
		return fmt.Errorf("failed to write search cache %s: %w", c.path, err)
	}
	return nil
}

// Len returns the number of cached queries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func decode(data []byte) (map[string][]resolve.MatchResult, error) {
	var raw map[string][]record
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	entries := make(map[string][]resolve.MatchResult, len(raw))
	for query, records := range raw {
		results := make([]resolve.MatchResult, len(records))
		for i, rec := range records {
			results[i] = resolve.MatchResult{
				Item:         catalog.NewItem(rec.ID, rec.Name, rec.Icon, rec.Untradable),
				Similarity:   int(math.Round(rec.Similarity)),
				IsExactMatch: rec.IsExactMatch,
			}
		}
		entries[query] = results
	}
	return entries, nil
}

func encode(entries map[string][]resolve.MatchResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// logDecodeError reports where a corrupted file went wrong.
func logDecodeError(path string, data []byte, err error) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var offset int64 = -1
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		log.Errorf("Search cache %s is corrupted, starting empty: %v", path, err)
		return
	}

	line, col, text := locate(data, offset)
	log.Errorf("Search cache %s is corrupted at byte %d (line %d, column %d), starting empty: %v",
		path, offset, line, col, err)
	log.Errorf("Offending line: %s", text)
}

// locate converts a byte offset into a 1-based line and column plus the
// content of that line.
func locate(data []byte, offset int64) (line, col int, text string) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line = bytes.Count(before, []byte{'\n'}) + 1
	start := bytes.LastIndexByte(before, '\n') + 1
	col = int(offset) - start + 1

	end := bytes.IndexByte(data[start:], '\n')
	if end < 0 {
		text = string(data[start:])
	} else {
		text = string(data[start : start+end])
	}
	return line, col, strings.TrimRight(text, "\r")
}
