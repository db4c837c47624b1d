package querysync

import (
	"net/url"
	"sort"
	"strings"

	"github.com/iota-uz/bookings-admin/pkg/shared"
)

// Filters is the view-local filter state: search text, date bounds, month
// selector and the like, keyed by query parameter name.
type Filters map[string]string

func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Query encodes the filters for a reconciliation. Blank and whitespace-only
// values are dropped so an empty search means no filter at all.
func (f Filters) Query() url.Values {
	q := url.Values{}
	for k, v := range f {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	return q
}

func (f Filters) Equal(other Filters) bool {
	if len(f) != len(other) {
		return false
	}
	for k, v := range f {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Keys returns the filter names in sorted order.
func (f Filters) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FiltersFrom flattens a tagged filter struct (form:"name") into Filters.
func FiltersFrom(v interface{}) (Filters, error) {
	values, err := shared.Encoder.Encode(v)
	if err != nil {
		return nil, err
	}
	out := make(Filters, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			out[k] = vs[len(vs)-1]
		}
	}
	return out, nil
}
