package catalog

import (
	"sort"

	"github.com/bastiangx/marketserve/internal/utils"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// Store is the immutable searchable catalog.
type Store struct {
	items []Item
	byID  map[int]int
	// index maps normalized names to the positions of items carrying them
	index *patricia.Trie
}

// NewStore builds a Store from items. Untradable items are dropped and
// the remaining ones keep their input order.
func NewStore(items []Item) *Store {
	s := &Store{
		items: make([]Item, 0, len(items)),
		byID:  make(map[int]int, len(items)),
		index: patricia.NewTrie(),
	}

	for _, item := range items {
		if item.Untradable {
			continue
		}
		if item.normalized == "" {
			item.normalized = item.NormalizedName()
		}
		if _, dup := s.byID[item.ID]; dup {
			log.Debugf("Duplicate catalog id %d (%s)", item.ID, item.Name)
		}

		pos := len(s.items)
		s.items = append(s.items, item)
		s.byID[item.ID] = pos

		if item.normalized == "" {
			continue
		}
		key := patricia.Prefix(item.normalized)
		if existing := s.index.Get(key); existing != nil {
			s.index.Set(key, append(existing.([]int), pos))
		} else {
			s.index.Insert(key, []int{pos})
		}
	}
	return s
}

// Empty returns a Store with no items.
func Empty() *Store {
	return NewStore(nil)
}

// Len returns the number of searchable items.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// IsEmpty reports whether the store has no items.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Items returns the items in load order. The slice is shared; callers
// must not modify it.
func (s *Store) Items() []Item {
	if s == nil {
		return nil
	}
	return s.items
}

// Get returns the item with the given id.
func (s *Store) Get(id int) (Item, bool) {
	if s == nil {
		return Item{}, false
	}
	pos, ok := s.byID[id]
	if !ok {
		return Item{}, false
	}
	return s.items[pos], true
}

// Complete returns up to limit items whose normalized name starts with the
// normalized prefix, shortest names first, then by load order.
func (s *Store) Complete(normalizedPrefix string, limit int) []Item {
	if s.IsEmpty() || normalizedPrefix == "" || limit <= 0 {
		return nil
	}

	var positions []int
	err := s.index.VisitSubtree(patricia.Prefix(normalizedPrefix), func(_ patricia.Prefix, item patricia.Item) error {
		positions = append(positions, item.([]int)...)
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting catalog index: %v", err)
		return nil
	}

	sort.SliceStable(positions, func(i, j int) bool {
		li := utils.RuneLen(s.items[positions[i]].normalized)
		lj := utils.RuneLen(s.items[positions[j]].normalized)
		if li != lj {
			return li < lj
		}
		return positions[i] < positions[j]
	})

	if len(positions) > limit {
		positions = positions[:limit]
	}
	results := make([]Item, len(positions))
	for i, pos := range positions {
		results[i] = s.items[pos]
	}
	return results
}
