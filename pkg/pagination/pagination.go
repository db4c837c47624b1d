// Package pagination carries server-declared page links. All page math is
// done by the backend; links are kept in the order and state received.
package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
)

var (
	ErrActiveLink  = errors.New("pagination: exactly one active link expected")
	ErrUnknownLink = errors.New("pagination: link target is not on the current page")
)

// Link is one server-declared page transition. A nil Target marks a disabled
// or placeholder link such as an ellipsis.
type Link struct {
	Target *string `json:"url"`
	Label  string  `json:"label"`
	Active bool    `json:"active"`
}

func (l Link) Disabled() bool {
	return l.Target == nil || strings.TrimSpace(*l.Target) == ""
}

// Page is one decoded paginator payload.
type Page[T any] struct {
	Rows        []T
	CurrentPage int
	LastPage    int
	Total       int
	Links       []Link
}

type wirePage[T any] struct {
	Data        []T    `json:"data"`
	CurrentPage int    `json:"current_page"`
	LastPage    int    `json:"last_page"`
	Total       int    `json:"total"`
	Links       []Link `json:"links"`
	Meta        *struct {
		CurrentPage int    `json:"current_page"`
		LastPage    int    `json:"last_page"`
		Total       int    `json:"total"`
		Links       []Link `json:"links"`
	} `json:"meta"`
}

// Decode reads a length-aware paginator document. Both the flat shape and the
// resource-collection shape (data + meta) are accepted.
func Decode[T any](raw []byte) (Page[T], error) {
	var w wirePage[T]
	if err := json.Unmarshal(raw, &w); err != nil {
		return Page[T]{}, fmt.Errorf("pagination: decode paginator: %w", err)
	}
	p := Page[T]{
		Rows:        w.Data,
		CurrentPage: w.CurrentPage,
		LastPage:    w.LastPage,
		Total:       w.Total,
		Links:       w.Links,
	}
	if w.Meta != nil {
		p.CurrentPage = w.Meta.CurrentPage
		p.LastPage = w.Meta.LastPage
		p.Total = w.Meta.Total
		p.Links = w.Meta.Links
	}
	if p.Rows == nil {
		p.Rows = []T{}
	}
	for i := range p.Links {
		p.Links[i].Label = html.UnescapeString(p.Links[i].Label)
	}
	return p, nil
}

// Validate reports whether a non-empty link list has exactly one active link.
func Validate(links []Link) error {
	if len(links) == 0 {
		return nil
	}
	active := 0
	for _, l := range links {
		if l.Active {
			active++
		}
	}
	if active != 1 {
		return fmt.Errorf("%w: got %d", ErrActiveLink, active)
	}
	return nil
}

// Follower performs a navigation to a link target through the reconciliation path.
type Follower interface {
	Visit(ctx context.Context, target string) error
}

// Cursor renders the links of the current snapshot and follows them.
type Cursor struct {
	links    []Link
	follower Follower
}

func NewCursor(follower Follower, links []Link) *Cursor {
	return &Cursor{links: links, follower: follower}
}

// Links returns the links verbatim, in server order.
func (c *Cursor) Links() []Link {
	out := make([]Link, len(c.links))
	copy(out, c.links)
	return out
}

// Follow navigates to link's target. Disabled links are a no-op; targets
// the server did not declare for this page are refused with ErrUnknownLink.
func (c *Cursor) Follow(ctx context.Context, link Link) error {
	if link.Disabled() {
		return nil
	}
	if !c.declares(*link.Target) {
		return fmt.Errorf("%w: %q", ErrUnknownLink, *link.Target)
	}
	return c.follower.Visit(ctx, *link.Target)
}

func (c *Cursor) declares(target string) bool {
	for _, l := range c.links {
		if !l.Disabled() && *l.Target == target {
			return true
		}
	}
	return false
}
