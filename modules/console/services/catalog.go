package services

import (
	"context"
	"net/url"
	"sort"

	"github.com/iota-uz/bookings-admin/pkg/resources"
	"github.com/iota-uz/bookings-admin/pkg/view"
)

type opener func(ctx context.Context, query url.Values, deps view.Deps) (view.Live, error)

func openerFor[T any](res resources.Resource[T]) opener {
	return func(ctx context.Context, query url.Values, deps view.Deps) (view.Live, error) {
		v, err := view.Open(ctx, res, query, deps)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

var catalog = map[string]opener{
	resources.Bookings.Name:    openerFor(resources.Bookings),
	resources.Tasks.Name:       openerFor(resources.Tasks),
	resources.Influencers.Name: openerFor(resources.Influencers),
	resources.Companies.Name:   openerFor(resources.Companies),
	resources.Weeks.Name:       openerFor(resources.Weeks),
}

// Resources lists the names a view can be opened for.
func Resources() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
