// Package view binds one backend index page to the state a connected browser
// renders: filters, the current page snapshot, error and flash messages,
// preview handles and the navigation entries of the session.
package view

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookings-admin/pkg/eventbus"
	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/intl"
	"github.com/iota-uz/bookings-admin/pkg/metrics"
	"github.com/iota-uz/bookings-admin/pkg/navigation"
	"github.com/iota-uz/bookings-admin/pkg/pagination"
	"github.com/iota-uz/bookings-admin/pkg/preview"
	"github.com/iota-uz/bookings-admin/pkg/querysync"
	"github.com/iota-uz/bookings-admin/pkg/resources"
	"github.com/iota-uz/bookings-admin/pkg/session"
	"github.com/iota-uz/bookings-admin/pkg/types"
)

var (
	ErrNoUpload = errors.New("view: resource does not accept uploads")
	ErrClosed   = errors.New("view: closed")
)

// Client is the backend side a view talks to.
type Client interface {
	inertia.Visitor
	inertia.Uploader
}

// Changed is published on the view's bus whenever its State may differ.
type Changed struct {
	ViewID string
}

// Live is a view of any row type.
type Live interface {
	ID() string
	Resource() string
	State() State
	Filter(f querysync.Filters)
	Follow(ctx context.Context, link pagination.Link) error
	Reload(ctx context.Context) error
	Select(files []inertia.File) ([]preview.Handle, error)
	Upload(ctx context.Context) error
	DismissError()
	OnChange(fn func()) (unsubscribe func())
	Close()
}

var _ Live = (*View[resources.Booking])(nil)

type Deps struct {
	Client    Client
	Previews  preview.Minter
	Navigator *navigation.Navigator
	Localizer *i18n.Localizer
	Clock     clockwork.Clock
	Debounce  time.Duration
	Logger    *logrus.Entry
}

// State is what the rendering layer receives.
type State struct {
	ID          string            `json:"id"`
	Resource    string            `json:"resource"`
	Filters     querysync.Filters `json:"filters"`
	Page        interface{}       `json:"page"`
	Pending     bool              `json:"pending"`
	Error       string            `json:"error,omitempty"`
	Location    string            `json:"location,omitempty"`
	Flash       string            `json:"flash,omitempty"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	Previews    []preview.Handle  `json:"previews"`
	Nav         []types.NavEntry  `json:"nav"`
	Roles       []string          `json:"roles"`
}

type View[T any] struct {
	id        string
	res       resources.Resource[T]
	sync      *querysync.Synchronizer[T]
	previews  *preview.Manager
	uploader  *preview.Uploader
	bus       eventbus.EventBus
	localizer *i18n.Localizer
	log       *logrus.Entry

	roles session.Roles
	nav   []types.NavEntry

	mu          sync.Mutex
	flash       string
	fieldErrors map[string]string
	closeOnce   sync.Once
}

// Open performs the first visit of res with query and binds a view to the
// answer. The session roles and navigation come from that first page.
func Open[T any](ctx context.Context, res resources.Resource[T], query url.Values, deps Deps) (*View[T], error) {
	log := deps.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	localizer := deps.Localizer
	if localizer == nil {
		localizer = intl.DefaultLocalizer()
	}
	navigator := deps.Navigator
	if navigator == nil {
		navigator = navigation.Default()
	}

	page, err := deps.Client.Visit(ctx, inertia.Visit{URL: res.Path, Query: query})
	if err != nil {
		return nil, err
	}
	snap, err := res.Decode(page)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log = log.WithFields(logrus.Fields{"view": id, "resource": res.Name})
	bus := eventbus.NewEventPublisher(log)
	roles := session.RolesFromProps(page.Props)

	v := &View[T]{
		id:        id,
		res:       res,
		previews:  preview.NewManager(deps.Previews, log),
		uploader:  preview.NewUploader(deps.Client, log),
		bus:       bus,
		localizer: localizer,
		log:       log,
		roles:     roles,
		nav:       navigation.Localize(navigator.For(roles), localizer),
		flash:     snap.Flash,
	}
	v.sync = querysync.New(querysync.Options[T]{
		Resource: res.Name,
		Path:     res.Path,
		Visitor:  deps.Client,
		Decode:   res.Decode,
		Debounce: deps.Debounce,
		Clock:    deps.Clock,
		Logger:   log,
		Bus:      bus,
		Initial:  res.Defaults,
	})
	bus.Subscribe(func(e *querysync.SnapshotReplaced) {
		if st := v.sync.State(); st.Snapshot != nil {
			v.mu.Lock()
			v.flash = st.Snapshot.Flash
			v.mu.Unlock()
		}
		v.changed()
	})
	bus.Subscribe(func(e *querysync.ReconcileFailed) {
		v.changed()
	})
	v.sync.Install(snap)

	metrics.ViewOpened()
	log.WithField("roles", roles.String()).Info("view opened")
	return v, nil
}

func (v *View[T]) changed() {
	v.bus.Publish(&Changed{ViewID: v.id})
}

func (v *View[T]) ID() string {
	return v.id
}

func (v *View[T]) Resource() string {
	return v.res.Name
}

func (v *View[T]) Roles() session.Roles {
	return v.roles
}

// OnChange calls fn after every state change.
func (v *View[T]) OnChange(fn func()) func() {
	return v.bus.Subscribe(func(*Changed) { fn() })
}

func (v *View[T]) Filter(f querysync.Filters) {
	v.sync.OnFilterChange(f)
	v.changed()
}

// Follow navigates to a pagination link of the current snapshot. Targets the
// snapshot does not declare are refused.
func (v *View[T]) Follow(ctx context.Context, link pagination.Link) error {
	var links []pagination.Link
	if st := v.sync.State(); st.Snapshot != nil {
		links = st.Snapshot.Links
	}
	return pagination.NewCursor(v.sync, links).Follow(ctx, link)
}

func (v *View[T]) Reload(ctx context.Context) error {
	return v.sync.Reconcile(ctx)
}

func (v *View[T]) Select(files []inertia.File) ([]preview.Handle, error) {
	handles, err := v.previews.SetSelection(files)
	v.mu.Lock()
	delete(v.fieldErrors, preview.UploadField)
	v.mu.Unlock()
	v.changed()
	return handles, err
}

// Upload submits the current selection. A field message is kept for display;
// the selection and the filters stay as they are.
func (v *View[T]) Upload(ctx context.Context) error {
	if v.res.UploadPath == "" {
		return ErrNoUpload
	}
	page, err := v.uploader.Upload(ctx, v.res.UploadPath, v.previews.Files(), v.localizer)
	defer v.changed()

	v.mu.Lock()
	if err != nil {
		var uerr *preview.UploadError
		if errors.As(err, &uerr) {
			if v.fieldErrors == nil {
				v.fieldErrors = map[string]string{}
			}
			v.fieldErrors[uerr.Field] = uerr.Message
		}
		v.mu.Unlock()
		return err
	}
	delete(v.fieldErrors, preview.UploadField)
	if flash := page.Flash(); flash != "" {
		v.flash = flash
	}
	v.mu.Unlock()

	// The backend usually redirects an import back to the index page.
	if snap, derr := v.res.Decode(page); derr == nil {
		v.sync.Install(snap)
	}
	return nil
}

// DismissError clears the reconciliation error banner.
func (v *View[T]) DismissError() {
	v.sync.DismissError()
	v.changed()
}

func (v *View[T]) State() State {
	st := v.sync.State()
	out := State{
		ID:       v.id,
		Resource: v.res.Name,
		Filters:  st.Filters,
		Pending:  st.Pending,
		Previews: v.previews.Handles(),
		Nav:      v.nav,
		Roles:    v.roles.Names(),
	}
	if st.Snapshot != nil {
		out.Page = st.Snapshot
	}
	if st.Err != nil {
		out.Error, out.Location = v.describe(st.Err)
	}
	v.mu.Lock()
	out.Flash = v.flash
	if len(v.fieldErrors) > 0 {
		out.FieldErrors = make(map[string]string, len(v.fieldErrors))
		for k, msg := range v.fieldErrors {
			out.FieldErrors[k] = msg
		}
	}
	v.mu.Unlock()
	return out
}

// describe turns a reconciliation error into the banner text. A version
// conflict carries the location the browser has to load in full instead.
func (v *View[T]) describe(err error) (string, string) {
	var conflict *inertia.VersionConflictError
	if errors.As(err, &conflict) {
		return "", conflict.Location
	}
	var verr *inertia.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		keys := make([]string, 0, len(verr.Fields))
		for k := range verr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return verr.Fields[keys[0]], ""
	}
	var serr *inertia.StatusError
	if errors.As(err, &serr) {
		return intl.T(v.localizer, "Errors.Server"), ""
	}
	return intl.T(v.localizer, "Errors.Network"), ""
}

// Close cancels pending reconciliation and releases every preview handle.
func (v *View[T]) Close() {
	v.closeOnce.Do(func() {
		v.sync.Close()
		v.previews.Close()
		v.bus.Clear()
		metrics.ViewClosed()
		created, released := v.previews.Counts()
		v.log.WithFields(logrus.Fields{
			"previews_created":  created,
			"previews_released": released,
		}).Info("view closed")
	})
}
