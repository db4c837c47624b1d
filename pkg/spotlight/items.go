package spotlight

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/iota-uz/bookings-admin/pkg/types"
)

// Item is a ranked quick-search hit.
type Item struct {
	Label string `json:"label"`
	Link  string `json:"link"`
	Icon  string `json:"icon,omitempty"`
}

// QuickLinks ranks already-authorized, already-localized nav entries against a query.
type QuickLinks struct {
	items []types.NavEntry
}

func NewQuickLinks(entries ...types.NavEntry) *QuickLinks {
	return &QuickLinks{items: append([]types.NavEntry(nil), entries...)}
}

func (ql *QuickLinks) Add(entries ...types.NavEntry) {
	ql.items = append(ql.items, entries...)
}

// Find returns every entry for a blank query, otherwise fuzzy matches best first.
func (ql *QuickLinks) Find(q string) []Item {
	if len(ql.items) == 0 {
		return nil
	}
	if strings.TrimSpace(q) == "" {
		result := make([]Item, 0, len(ql.items))
		for _, e := range ql.items {
			result = append(result, toItem(e))
		}
		return result
	}
	words := make([]string, len(ql.items))
	for i, e := range ql.items {
		words[i] = e.Title
	}
	ranks := fuzzy.RankFindNormalizedFold(strings.TrimSpace(q), words)
	sort.Stable(ranks)

	result := make([]Item, 0, len(ranks))
	for _, rank := range ranks {
		result = append(result, toItem(ql.items[rank.OriginalIndex]))
	}
	return result
}

func toItem(e types.NavEntry) Item {
	return Item{Label: e.Title, Link: e.Href, Icon: e.Icon}
}
