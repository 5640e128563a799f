package market

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// Price paths inside an aggregated pricing response
const (
	hqPricePath = "results.0.hq.minListing.world.price"
	nqPricePath = "results.0.nq.minListing.world.price"
)

// Server is one entry of the server directory.
type Server struct {
	ID   int    `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
}

// Directory lists the servers to query, in display order.
type Directory []Server

// State describes what a server reported for an item.
type State string

const (
	StateListed      State = "listed"
	StateNoListings  State = "no_listings"
	StateUnavailable State = "unavailable"
)

// ServerSummary is the price outcome for one server. A zero price means
// the quality has no listing.
type ServerSummary struct {
	Server
	State   State `json:"state" msgpack:"state"`
	HQPrice int64 `json:"hq_price,omitempty" msgpack:"hq,omitempty"`
	NQPrice int64 `json:"nq_price,omitempty" msgpack:"nq,omitempty"`
	// Err is the fetch failure behind StateUnavailable
	Err error `json:"-" msgpack:"-"`
}

// HasPrice reports whether either quality has a listing.
func (s ServerSummary) HasPrice() bool {
	return s.HQPrice > 0 || s.NQPrice > 0
}

// Summary is the per-server outcome for one item.
type Summary struct {
	ItemID  int             `json:"item_id" msgpack:"item_id"`
	Servers []ServerSummary `json:"servers" msgpack:"servers"`
	// Found is true when at least one server has a price
	Found bool `json:"found" msgpack:"found"`
}

// Aggregator queries every server in a directory for one item.
type Aggregator struct {
	fetcher     *Fetcher
	concurrency int
}

// NewAggregator creates an aggregator that runs at most concurrency
// fetches at once. A concurrency of 1 queries servers one by one.
func NewAggregator(fetcher *Fetcher, concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{fetcher: fetcher, concurrency: concurrency}
}

// Aggregate fetches itemID from every server in dir. Results are in
// directory order regardless of completion order. A failing server is
// reported as unavailable and does not affect the others.
func (a *Aggregator) Aggregate(ctx context.Context, itemID int, dir Directory) Summary {
	summaries := make([]ServerSummary, len(dir))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, server := range dir {
		i, server := i, server
		g.Go(func() error {
			summaries[i] = a.summarize(ctx, server, itemID)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{ItemID: itemID, Servers: summaries}
	for _, s := range summaries {
		if s.HasPrice() {
			summary.Found = true
			break
		}
	}
	return summary
}

func (a *Aggregator) summarize(ctx context.Context, server Server, itemID int) ServerSummary {
	out := ServerSummary{Server: server, State: StateNoListings}

	data, err := a.fetcher.Fetch(ctx, server.ID, itemID)
	if err != nil {
		log.Errorf("Market data for %s (%d) item %d unavailable: %v", server.Name, server.ID, itemID, err)
		out.State = StateUnavailable
		out.Err = err
		return out
	}
	if data == nil {
		return out
	}

	out.HQPrice, out.NQPrice = data.Prices()
	if out.HasPrice() {
		out.State = StateListed
	}
	return out
}

// Prices returns the cheapest HQ and NQ listing prices in the payload.
// Missing or non-positive prices are returned as 0.
func (d *Data) Prices() (hq, nq int64) {
	if d == nil {
		return 0, 0
	}
	results := gjson.GetManyBytes(d.Raw, hqPricePath, nqPricePath)
	return positive(results[0]), positive(results[1])
}

func positive(r gjson.Result) int64 {
	if !r.Exists() || r.Type != gjson.Number {
		return 0
	}
	if v := r.Int(); v > 0 {
		return v
	}
	return 0
}
