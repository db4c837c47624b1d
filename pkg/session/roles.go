// Package session reduces the authenticated session payload to a role set.
package session

import (
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Roles is an immutable set of role names. The zero value is the empty set.
type Roles struct {
	names map[string]struct{}
}

func NewRoles(names ...string) Roles {
	r := Roles{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n == "" {
			continue
		}
		r.names[n] = struct{}{}
	}
	return r
}

// Has is an exact, case-sensitive membership test.
func (r Roles) Has(name string) bool {
	_, ok := r.names[name]
	return ok
}

func (r Roles) Len() int {
	return len(r.names)
}

// Names returns the role names sorted, for logging and stable output.
func (r Roles) Names() []string {
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (r Roles) String() string {
	return strings.Join(r.Names(), ",")
}

// RolesFromProps extracts auth.user.roles from a page props document.
// Roles may be objects carrying a name or plain strings. Anything missing or
// malformed degrades to the empty set.
func RolesFromProps(props []byte) Roles {
	if !gjson.ValidBytes(props) {
		return Roles{}
	}
	return RolesFromResult(gjson.GetBytes(props, "auth.user.roles"))
}

func RolesFromResult(roles gjson.Result) Roles {
	if !roles.IsArray() {
		return Roles{}
	}
	names := make([]string, 0, 4)
	roles.ForEach(func(_, v gjson.Result) bool {
		switch {
		case v.Type == gjson.String:
			names = append(names, v.String())
		case v.IsObject():
			if name := v.Get("name"); name.Type == gjson.String {
				names = append(names, name.String())
			}
		}
		return true
	})
	return NewRoles(names...)
}
