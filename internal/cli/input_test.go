package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bastiangx/marketserve/pkg/catalog"
	"github.com/bastiangx/marketserve/pkg/lookup"
	"github.com/charmbracelet/log"
)

func init() {
	log.SetLevel(log.FatalLevel)
}

type fakeService struct {
	queries  []string
	prefixes []string
}

func (f *fakeService) Lookup(ctx context.Context, name string) (*lookup.Result, error) {
	f.queries = append(f.queries, name)
	if name == "slow" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	item := catalog.NewItem(1, name, 1, false)
	return &lookup.Result{Query: name, Item: &item}, nil
}

func (f *fakeService) Complete(prefix string, limit int) []catalog.Item {
	f.prefixes = append(f.prefixes, prefix)
	return []catalog.Item{catalog.NewItem(2, "Hi-Potion", 2, false)}
}

func TestInputLoop(t *testing.T) {
	svc := &fakeService{}
	in := strings.NewReader("Potion\n\n  Ether  \n? hi\nslow\n" + strings.Repeat("x", 20) + "\nlast")
	var out bytes.Buffer

	h := NewInputHandlerWithIO(svc, Options{Timeout: 10 * time.Millisecond, MaxQuery: 10}, in, &out)
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start returned %v", err)
	}

	expected := []string{"Potion", "Ether", "slow", "last"}
	if strings.Join(svc.queries, ",") != strings.Join(expected, ",") {
		t.Errorf("expected lookups %v, got %v", expected, svc.queries)
	}
	if len(svc.prefixes) != 1 || svc.prefixes[0] != "hi" {
		t.Errorf("expected one completion for 'hi', got %v", svc.prefixes)
	}
	if !strings.Contains(out.String(), "Hi-Potion") {
		t.Errorf("completion not printed:\n%s", out.String())
	}
}
