// Package navigation computes the visible menu from a session's role set.
package navigation

import (
	"github.com/iota-uz/go-i18n/v2/i18n"

	"github.com/iota-uz/bookings-admin/pkg/intl"
	"github.com/iota-uz/bookings-admin/pkg/session"
	"github.com/iota-uz/bookings-admin/pkg/types"
)

// Predicate decides whether a rule applies to a role set.
type Predicate func(roles session.Roles) bool

func Always() Predicate {
	return func(session.Roles) bool { return true }
}

// AnyOf holds when at least one of names is present.
func AnyOf(names ...string) Predicate {
	return func(roles session.Roles) bool {
		for _, n := range names {
			if roles.Has(n) {
				return true
			}
		}
		return false
	}
}

// AllOf holds when every one of names is present. AllOf() always holds.
func AllOf(names ...string) Predicate {
	return func(roles session.Roles) bool {
		for _, n := range names {
			if !roles.Has(n) {
				return false
			}
		}
		return true
	}
}

type Rule struct {
	When    Predicate
	Entries []types.NavEntry
}

type Navigator struct {
	rules []Rule
}

func New(rules ...Rule) *Navigator {
	return &Navigator{rules: append([]Rule(nil), rules...)}
}

func Default() *Navigator {
	return New(DefaultMenu()...)
}

// For evaluates every rule against the full role set in declaration order.
// A destination contributed by more than one rule is listed once, at the
// position of its first occurrence.
func (n *Navigator) For(roles session.Roles) []types.NavEntry {
	out := make([]types.NavEntry, 0, 8)
	seen := make(map[string]struct{}, 8)
	for _, rule := range n.rules {
		if rule.When == nil || !rule.When(roles) {
			continue
		}
		for _, e := range rule.Entries {
			if _, dup := seen[e.Href]; dup {
				continue
			}
			seen[e.Href] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

// Localize returns a copy of entries with titles translated.
func Localize(entries []types.NavEntry, localizer *i18n.Localizer) []types.NavEntry {
	translated := make([]types.NavEntry, 0, len(entries))
	for _, e := range entries {
		e.Title = intl.T(localizer, e.Title)
		translated = append(translated, e)
	}
	return translated
}
