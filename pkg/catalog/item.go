// Package catalog holds the static, searchable set of tradable items.
//
// The catalog is read once at startup from a tabular file and never changes
// afterwards; a Store is therefore safe for concurrent readers without locks.
package catalog

import (
	"fmt"
	"path/filepath"

	"github.com/bastiangx/marketserve/internal/utils"
)

// Item is one catalog row.
type Item struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Icon       int    `json:"icon"`
	Untradable bool   `json:"isuntradable"`

	normalized string
}

// NewItem builds an Item and its comparison key.
func NewItem(id int, name string, icon int, untradable bool) Item {
	return Item{
		ID:         id,
		Name:       name,
		Icon:       icon,
		Untradable: untradable,
		normalized: utils.Normalize(name),
	}
}

// NormalizedName returns the comparison key for the item name.
// Items decoded from elsewhere (e.g. JSON) compute it lazily.
func (i Item) NormalizedName() string {
	if i.normalized == "" && i.Name != "" {
		return utils.Normalize(i.Name)
	}
	return i.normalized
}

// IconPath returns the on-disk icon location used by the game data dumps:
// icons are bucketed into directories of 1000, both parts zero padded.
//
//	IconPath("icon", 20653) == "icon/020000/020653.png"
func IconPath(dir string, icon int) string {
	bucket := icon / 1000 * 1000
	return filepath.Join(dir, fmt.Sprintf("%06d", bucket), fmt.Sprintf("%06d.png", icon))
}
