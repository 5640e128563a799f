package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the public pricing API.
const DefaultBaseURL = "https://universalis.app/api/v2"

const maxBodySize = 10 * 1024 * 1024 // 10 MB

// ErrInvalidBody is returned when a successful response is not JSON.
var ErrInvalidBody = errors.New("pricing response is not valid JSON")

// StatusError is a non-success response other than 400 or 404.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Fetcher retrieves pricing data through a Cache.
type Fetcher struct {
	client  *http.Client
	baseURL string
	cache   *Cache
	group   singleflight.Group
}

// NewFetcher creates a fetcher. An empty baseURL uses DefaultBaseURL and a
// nil client uses http.DefaultClient.
func NewFetcher(client *http.Client, baseURL string, cache *Cache) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cache == nil {
		cache = NewCache(DefaultExpiry)
	}
	return &Fetcher{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache,
	}
}

// Cache returns the cache the fetcher fills.
func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// Fetch returns the pricing data for itemID on serverID. A nil result with
// a nil error means the server has no data for the item (400 or 404).
//
// Concurrent calls for the same key share one request. The request is not
// tied to ctx: if ctx ends first the caller gets ctx.Err() while the
// request finishes in the background and still fills the cache.
func (f *Fetcher) Fetch(ctx context.Context, serverID, itemID int) (*Data, error) {
	if data, ok := f.cache.Get(serverID, itemID); ok {
		log.Debugf("Market cache hit for server %d item %d", serverID, itemID)
		return data, nil
	}

	key := fmt.Sprintf("%d/%d", serverID, itemID)
	detached := context.WithoutCancel(ctx)
	ch := f.group.DoChan(key, func() (any, error) {
		return f.fetch(detached, serverID, itemID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Data), nil
	}
}

func (f *Fetcher) fetch(ctx context.Context, serverID, itemID int) (*Data, error) {
	// another flight may have filled it between the miss and now
	if data, ok := f.cache.Get(serverID, itemID); ok {
		return data, nil
	}

	url := fmt.Sprintf("%s/aggregated/%d/%d", f.baseURL, serverID, itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusNotFound:
		log.Debugf("No market data for server %d item %d (status %d)", serverID, itemID, resp.StatusCode)
		return (*Data)(nil), nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(raw) > maxBodySize {
		return nil, fmt.Errorf("response body too large (exceeds %d bytes)", maxBodySize)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBody, url)
	}

	data := &Data{Raw: raw}
	f.cache.Put(serverID, itemID, data)
	return data, nil
}
