package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookings-admin/pkg/eventbus"
	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/navigation"
	"github.com/iota-uz/bookings-admin/pkg/preview"
	"github.com/iota-uz/bookings-admin/pkg/session"
	"github.com/iota-uz/bookings-admin/pkg/types"
	"github.com/iota-uz/bookings-admin/pkg/view"
)

var ErrUnknownResource = errors.New("console: unknown resource")

// ViewOpened and ViewClosed are published on the application bus.
type ViewOpened struct {
	ID       string
	Resource string
}

type ViewClosed struct {
	ID       string
	Resource string
}

type ConsoleServiceOptions struct {
	Client           *inertia.Client
	Previews         *preview.Registry
	Views            *view.Registry
	Navigator        *navigation.Navigator
	Publisher        eventbus.EventBus
	Clock            clockwork.Clock
	Debounce         time.Duration
	SessionCookie    string
	XSRFCookie       string
	SessionPath      string
	SessionComponent string
	Logger           *logrus.Logger
}

// ConsoleService opens views on behalf of browser connections and answers
// session level questions (roles, navigation) against the backend.
type ConsoleService struct {
	opts ConsoleServiceOptions
}

func NewConsoleService(opts ConsoleServiceOptions) *ConsoleService {
	if opts.Navigator == nil {
		opts.Navigator = navigation.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Views == nil {
		opts.Views = view.NewRegistry(opts.Logger)
	}
	return &ConsoleService{opts: opts}
}

// ForwardedHeader carries the browser's backend session onto backend
// requests: the session cookie, and the XSRF cookie both as cookie and as
// X-XSRF-TOKEN header.
func (s *ConsoleService) ForwardedHeader(r *http.Request) http.Header {
	h := http.Header{}
	for _, name := range []string{s.opts.SessionCookie, s.opts.XSRFCookie} {
		if name == "" {
			continue
		}
		c, err := r.Cookie(name)
		if err != nil {
			continue
		}
		h.Add("Cookie", c.Name+"="+c.Value)
		if name == s.opts.XSRFCookie {
			if v, err := url.QueryUnescape(c.Value); err == nil {
				h.Set("X-XSRF-TOKEN", v)
			}
		}
	}
	if lang := r.Header.Get("Accept-Language"); lang != "" {
		h.Set("Accept-Language", lang)
	}
	return h
}

// Roles reloads only the auth prop of the session page to learn the roles of
// the browser session. A failed or anonymous session yields the empty set.
func (s *ConsoleService) Roles(ctx context.Context, header http.Header) (session.Roles, error) {
	page, err := s.opts.Client.WithHeader(header).Visit(ctx, inertia.Visit{
		URL:       s.opts.SessionPath,
		Only:      []string{"auth"},
		Component: s.opts.SessionComponent,
	})
	if err != nil {
		return session.NewRoles(), err
	}
	return session.RolesFromProps(page.Props), nil
}

// Navigation returns the localized entries for roles.
func (s *ConsoleService) Navigation(roles session.Roles, localizer *i18n.Localizer) []types.NavEntry {
	return navigation.Localize(s.opts.Navigator.For(roles), localizer)
}

// OpenView performs the first visit of resource for the browser and
// registers the resulting view.
func (s *ConsoleService) OpenView(
	ctx context.Context,
	resource string,
	query url.Values,
	header http.Header,
	localizer *i18n.Localizer,
	log *logrus.Entry,
) (view.Live, error) {
	open, ok := catalog[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	v, err := open(ctx, query, view.Deps{
		Client:    s.opts.Client.WithHeader(header),
		Previews:  s.opts.Previews,
		Navigator: s.opts.Navigator,
		Localizer: localizer,
		Clock:     s.opts.Clock,
		Debounce:  s.opts.Debounce,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	s.opts.Views.Add(v)
	s.publish(&ViewOpened{ID: v.ID(), Resource: v.Resource()})
	return v, nil
}

func (s *ConsoleService) View(id string) (view.Live, bool) {
	return s.opts.Views.Get(id)
}

// CloseView tears the view down and releases its previews.
func (s *ConsoleService) CloseView(id string) {
	v, ok := s.opts.Views.Get(id)
	if !ok {
		return
	}
	s.opts.Views.Remove(id)
	s.publish(&ViewClosed{ID: id, Resource: v.Resource()})
}

func (s *ConsoleService) Previews() *preview.Registry {
	return s.opts.Previews
}

// Shutdown closes every live view.
func (s *ConsoleService) Shutdown() {
	s.opts.Views.CloseAll()
}

func (s *ConsoleService) publish(event interface{}) {
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(event)
	}
}
