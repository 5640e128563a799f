package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDataPrices(t *testing.T) {
	testCases := []struct {
		name   string
		body   string
		hq, nq int64
	}{
		{"both", listedBody, 1500, 900},
		{"nq only", `{"results":[{"hq":{},"nq":{"minListing":{"world":{"price":200}}}}]}`, 0, 200},
		{"zero price", `{"results":[{"hq":{"minListing":{"world":{"price":0}}},"nq":{"minListing":{"world":{"price":-5}}}}]}`, 0, 0},
		{"null price", `{"results":[{"hq":{"minListing":{"world":{"price":null}}}}]}`, 0, 0},
		{"empty results", `{"results":[]}`, 0, 0},
		{"no results", `{}`, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hq, nq := (&Data{Raw: []byte(tc.body)}).Prices()
			if hq != tc.hq || nq != tc.nq {
				t.Errorf("expected (%d, %d), got (%d, %d)", tc.hq, tc.nq, hq, nq)
			}
		})
	}
}

func TestAggregateKeepsDirectoryOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/aggregated/1/"):
			// slowest server comes first in the directory
			time.Sleep(40 * time.Millisecond)
			w.Write([]byte(listedBody))
		case strings.HasPrefix(r.URL.Path, "/aggregated/2/"):
			time.Sleep(20 * time.Millisecond)
			w.WriteHeader(http.StatusNotFound)
		case strings.HasPrefix(r.URL.Path, "/aggregated/3/"):
			w.WriteHeader(http.StatusBadGateway)
		case strings.HasPrefix(r.URL.Path, "/aggregated/4/"):
			w.Write([]byte(`{"results":[{"hq":{},"nq":{}}]}`))
		default:
			w.Write([]byte(`{"results":[{"nq":{"minListing":{"world":{"price":200}}}}]}`))
		}
	}))
	defer srv.Close()

	dir := Directory{{1, "A"}, {2, "B"}, {3, "C"}, {4, "D"}, {5, "E"}}
	agg := NewAggregator(NewFetcher(srv.Client(), srv.URL, NewCache(0)), 5)

	summary := agg.Aggregate(context.Background(), 5, dir)
	if len(summary.Servers) != len(dir) {
		t.Fatalf("expected %d summaries, got %d", len(dir), len(summary.Servers))
	}

	expected := []struct {
		name   string
		state  State
		hq, nq int64
	}{
		{"A", StateListed, 1500, 900},
		{"B", StateNoListings, 0, 0},
		{"C", StateUnavailable, 0, 0},
		{"D", StateNoListings, 0, 0},
		{"E", StateListed, 0, 200},
	}
	for i, want := range expected {
		got := summary.Servers[i]
		if got.Name != want.name || got.State != want.state || got.HQPrice != want.hq || got.NQPrice != want.nq {
			t.Errorf("server %d: expected %+v, got %+v", i, want, got)
		}
	}
	if !summary.Found {
		t.Error("expected Found")
	}
	if summary.ItemID != 5 {
		t.Errorf("expected item id 5, got %d", summary.ItemID)
	}
	if summary.Servers[2].Err == nil {
		t.Error("expected the failure to be kept on the unavailable server")
	}
}

func TestAggregateSequential(t *testing.T) {
	var mu sync.Mutex
	var order []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		order = append(order, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := Directory{{10, "A"}, {20, "B"}, {30, "C"}}
	agg := NewAggregator(NewFetcher(srv.Client(), srv.URL, nil), 1)

	summary := agg.Aggregate(context.Background(), 7, dir)
	if summary.Found {
		t.Error("expected nothing found")
	}
	want := []string{"/aggregated/10/7", "/aggregated/20/7", "/aggregated/30/7"}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("expected sequential requests %v, got %v", want, order)
	}
}

func TestAggregateEmptyDirectory(t *testing.T) {
	agg := NewAggregator(NewFetcher(nil, "", nil), 0)

	summary := agg.Aggregate(context.Background(), 5, nil)
	if len(summary.Servers) != 0 || summary.Found {
		t.Errorf("expected empty summary, got %+v", summary)
	}
}
