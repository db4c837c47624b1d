// Package resources describes the backend index pages the console can bind a
// view to: where they live, which prop carries the paginator and what the
// rows look like.
package resources

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/pagination"
	"github.com/iota-uz/bookings-admin/pkg/querysync"
)

var (
	ErrUnexpectedComponent = errors.New("resources: backend rendered an unexpected component")
	ErrMissingProp         = errors.New("resources: paginator prop missing")
)

// Resource is one paginated index page of the backend.
type Resource[T any] struct {
	Name      string
	Path      string
	Component string
	// PropsKey names the prop holding the paginator.
	PropsKey string
	Defaults querysync.Filters
	// UploadPath accepts multipart imports; empty when the page has none.
	UploadPath string
}

// Decode turns a page object for this resource into a snapshot.
func (r Resource[T]) Decode(page *inertia.Page) (querysync.Snapshot[T], error) {
	if page == nil {
		return querysync.Snapshot[T]{}, fmt.Errorf("%w: %s", ErrMissingProp, r.PropsKey)
	}
	if r.Component != "" && page.Component != r.Component {
		return querysync.Snapshot[T]{}, fmt.Errorf("%w: want %s, got %s", ErrUnexpectedComponent, r.Component, page.Component)
	}
	raw := page.Prop(r.PropsKey)
	if !raw.Exists() || !raw.IsObject() {
		return querysync.Snapshot[T]{}, fmt.Errorf("%w: %s", ErrMissingProp, r.PropsKey)
	}
	p, err := pagination.Decode[T]([]byte(raw.Raw))
	if err != nil {
		return querysync.Snapshot[T]{}, fmt.Errorf("resources: %s: %w", r.Name, err)
	}
	return querysync.Snapshot[T]{
		Rows:        p.Rows,
		CurrentPage: p.CurrentPage,
		LastPage:    p.LastPage,
		Total:       p.Total,
		Links:       p.Links,
		Filters:     r.filters(page.Prop("filters")),
		URL:         page.URL,
		Flash:       page.Flash(),
	}, nil
}

// filters reads the server echo. Keys the echo omits fall back to the
// resource defaults; nulls become blank.
func (r Resource[T]) filters(echo gjson.Result) querysync.Filters {
	out := r.Defaults.Clone()
	echo.ForEach(func(k, v gjson.Result) bool {
		switch v.Type {
		case gjson.Null:
			out[k.String()] = ""
		case gjson.JSON:
		default:
			out[k.String()] = v.String()
		}
		return true
	})
	return out
}
