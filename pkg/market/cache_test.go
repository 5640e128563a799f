package market

import (
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.FatalLevel)
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestCacheExpiry(t *testing.T) {
	testCases := []struct {
		name    string
		elapsed time.Duration
		hit     bool
	}{
		{"fresh", 0, true},
		{"just before expiry", 59 * time.Second, true},
		{"at expiry", 60 * time.Second, false},
		{"after expiry", 61 * time.Second, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1700000000, 0)}
			c := NewCache(60 * time.Second)
			c.SetClock(clock.now)

			c.Put(2075, 5, &Data{Raw: []byte(`{}`)})
			clock.advance(tc.elapsed)

			_, ok := c.Get(2075, 5)
			if ok != tc.hit {
				t.Errorf("expected hit=%v, got %v", tc.hit, ok)
			}
			if !tc.hit && c.Len() != 0 {
				t.Errorf("expected stale entry to be evicted, %d left", c.Len())
			}
		})
	}
}

func TestCachePutRefreshesTimestamp(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	c := NewCache(60 * time.Second)
	c.SetClock(clock.now)

	c.Put(1, 1, &Data{Raw: []byte(`1`)})
	clock.advance(50 * time.Second)
	c.Put(1, 1, &Data{Raw: []byte(`2`)})
	clock.advance(50 * time.Second)

	data, ok := c.Get(1, 1)
	if !ok || string(data.Raw) != "2" {
		t.Errorf("expected refreshed entry, got %v (ok=%v)", data, ok)
	}
}

func TestCacheKeysAreIndependent(t *testing.T) {
	c := NewCache(0)
	c.Put(1, 10, &Data{Raw: []byte(`a`)})

	if _, ok := c.Get(10, 1); ok {
		t.Error("swapped key must miss")
	}
	if _, ok := c.Get(1, 11); ok {
		t.Error("different item must miss")
	}
	if c.expiry != DefaultExpiry {
		t.Errorf("expected default expiry, got %v", c.expiry)
	}
}
