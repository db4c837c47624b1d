// Package routing sorts request paths into route classes so middleware can
// pick error rendering and throttling per class.
package routing

import (
	"sort"
	"strings"
)

type Classifier struct {
	rules []AllowlistRule
}

// NewClassifier orders rules longest prefix first.
func NewClassifier(rules []AllowlistRule) *Classifier {
	c := &Classifier{rules: make([]AllowlistRule, 0, len(rules))}
	for _, rule := range rules {
		if rule.Prefix = strings.TrimSpace(rule.Prefix); rule.Prefix != "" {
			c.rules = append(c.rules, rule)
		}
	}
	sort.SliceStable(c.rules, func(i, j int) bool {
		return len(c.rules[i].Prefix) > len(c.rules[j].Prefix)
	})
	return c
}

func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultRules("server"))
}

func (c *Classifier) MatchAllowlist(path string) (RouteClass, bool) {
	if c == nil {
		return "", false
	}
	for _, rule := range c.rules {
		if HasPathPrefixOnBoundary(path, rule.Prefix) {
			return rule.Class, true
		}
	}
	return "", false
}

// ClassifyPath falls back to ui for paths no rule claims.
func (c *Classifier) ClassifyPath(path string) RouteClass {
	if class, ok := c.MatchAllowlist(path); ok {
		return class
	}
	return RouteClassUI
}

// HasPathPrefixOnBoundary matches whole segments: /api covers /api and
// /api/x but not /apis.
func HasPathPrefixOnBoundary(path, prefix string) bool {
	switch {
	case prefix == "":
		return false
	case !strings.HasPrefix(path, prefix):
		return false
	case len(path) == len(prefix), strings.HasSuffix(prefix, "/"):
		return true
	default:
		return path[len(prefix)] == '/'
	}
}
