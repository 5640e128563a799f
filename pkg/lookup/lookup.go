// Package lookup answers "what does this item cost right now" for a free-text
// item name: it resolves the name against the catalog, prices the best match
// on every configured server and lists the other candidates.
package lookup

import (
	"context"

	"github.com/bastiangx/marketserve/internal/utils"
	"github.com/bastiangx/marketserve/pkg/catalog"
	"github.com/bastiangx/marketserve/pkg/market"
	"github.com/bastiangx/marketserve/pkg/resolve"
	"github.com/charmbracelet/log"
)

// DefaultAlternativesMaxLen bounds the alternatives footer, in runes.
const DefaultAlternativesMaxLen = 100

// Result is the answer to one lookup.
type Result struct {
	Query string
	// Item is the best match; nil when nothing resolved
	Item    *catalog.Item
	Summary market.Summary
	// Alternatives are the other candidate names, best first
	Alternatives []string
	// NoData is set when nothing resolved or no server has a price
	NoData bool
}

// Service combines resolution and pricing.
type Service struct {
	resolver   *resolve.Resolver
	aggregator *market.Aggregator
	servers    market.Directory
	altMaxLen  int
}

// New creates a lookup service over the given servers.
func New(resolver *resolve.Resolver, aggregator *market.Aggregator, servers market.Directory, altMaxLen int) *Service {
	if altMaxLen <= 0 {
		altMaxLen = DefaultAlternativesMaxLen
	}
	return &Service{
		resolver:   resolver,
		aggregator: aggregator,
		servers:    servers,
		altMaxLen:  altMaxLen,
	}
}

// Servers returns the server directory in display order.
func (s *Service) Servers() market.Directory {
	return s.servers
}

// Lookup resolves itemName and prices the best match. The only error is
// ctx's, returned when the caller gave up before the answer was ready.
func (s *Service) Lookup(ctx context.Context, itemName string) (*Result, error) {
	result := &Result{Query: itemName}

	matches := s.resolver.Resolve(itemName)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		log.Debugf("No item matches '%s'", itemName)
		result.NoData = true
		return result, nil
	}

	best := matches[0].Item
	result.Item = &best
	result.Summary = s.aggregator.Aggregate(ctx, best.ID, s.servers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.NoData = !result.Summary.Found
	result.Alternatives = Alternatives(matches, best.ID, s.altMaxLen)
	return result, nil
}

// Complete returns up to limit catalog items whose normalized name starts
// with the normalized prefix.
func (s *Service) Complete(prefix string, limit int) []catalog.Item {
	key := utils.Normalize(prefix)
	if key == "" {
		return nil
	}
	return s.resolver.Catalog().Complete(key, limit)
}

// Alternatives collects candidate names other than bestID in rank order.
// Each kept name adds "\n"+name to a footer. Collection stops at the first
// name whose length plus the footer so far reaches maxLen runes.
func Alternatives(matches []resolve.MatchResult, bestID, maxLen int) []string {
	var names []string
	length := 0
	for _, m := range matches {
		if m.ID == bestID {
			continue
		}
		n := utils.RuneLen(m.Name)
		if length+n >= maxLen {
			break
		}
		names = append(names, m.Name)
		length += n + 1
	}
	return names
}

// Footer renders alternatives the way they are measured.
func Footer(names []string) string {
	footer := ""
	for _, name := range names {
		footer += "\n" + name
	}
	return footer
}
