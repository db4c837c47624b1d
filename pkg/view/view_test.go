package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/pagination"
	"github.com/iota-uz/bookings-admin/pkg/preview"
	"github.com/iota-uz/bookings-admin/pkg/querysync"
	"github.com/iota-uz/bookings-admin/pkg/resources"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeBackend struct {
	mu        sync.Mutex
	visits    []inertia.Visit
	roles     []string
	visitErr  error
	uploadErr error
	uploads   int
}

func (f *fakeBackend) page(component, propsKey string, query url.Values, flash string) *inertia.Page {
	search := query.Get("search")
	page := query.Get("page")
	if page == "" {
		page = "1"
	}
	next := "/influencers?page=2"
	props := map[string]interface{}{
		propsKey: map[string]interface{}{
			"data":         []map[string]interface{}{{"id": 1, "name": "row " + search + " p" + page}},
			"current_page": 1,
			"last_page":    2,
			"links": []map[string]interface{}{
				{"url": nil, "label": "&laquo; Previous", "active": false},
				{"url": "/influencers?page=1", "label": "1", "active": page == "1"},
				{"url": next, "label": "2", "active": page == "2"},
			},
		},
		"filters": map[string]interface{}{"search": search},
		"auth":    map[string]interface{}{"user": map[string]interface{}{"roles": f.roles}},
		"flash":   map[string]interface{}{"success": flash},
	}
	raw, _ := json.Marshal(props)
	return &inertia.Page{Component: component, Props: raw, URL: "/influencers"}
}

func (f *fakeBackend) Visit(_ context.Context, v inertia.Visit) (*inertia.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visits = append(f.visits, v)
	if f.visitErr != nil {
		return nil, f.visitErr
	}
	query := v.Query
	if u, err := url.Parse(v.URL); err == nil && u.RawQuery != "" {
		query = u.Query()
	}
	return f.page("Influencers/Index", "influencers", query, ""), nil
}

func (f *fakeBackend) Upload(_ context.Context, _, _ string, files []inertia.File) (*inertia.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.page("Influencers/Index", "influencers", url.Values{}, fmt.Sprintf("%d influencers imported.", len(files))), nil
}

func (f *fakeBackend) visitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visits)
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func open(t *testing.T, backend *fakeBackend, clock clockwork.Clock) (*View[resources.Influencer], *preview.Registry) {
	t.Helper()
	reg := preview.NewRegistry("/previews", 0)
	v, err := Open(context.Background(), resources.Influencers, url.Values{}, Deps{
		Client:   backend,
		Previews: reg,
		Clock:    clock,
		Debounce: 300 * time.Millisecond,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v, reg
}

func TestOpen_BuildsNavigationFromSessionRoles(t *testing.T) {
	t.Parallel()

	v, _ := open(t, &fakeBackend{roles: []string{"influencer"}}, clockwork.NewFakeClock())
	st := v.State()

	hrefs := make([]string, 0, len(st.Nav))
	for _, e := range st.Nav {
		hrefs = append(hrefs, e.Href)
	}
	assert.Equal(t, []string{"/dashboard", "/calendar", "/my-calendar"}, hrefs)
	assert.Equal(t, "Dashboard", st.Nav[0].Title)
	assert.Equal(t, []string{"influencer"}, st.Roles)
	assert.Equal(t, "influencers", st.Resource)

	snap, ok := st.Page.(*querysync.Snapshot[resources.Influencer])
	require.True(t, ok)
	assert.Equal(t, "row  p1", snap.Rows[0].Name)
}

func TestOpen_FailsWhenFirstVisitFails(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), resources.Influencers, nil, Deps{
		Client:   &fakeBackend{visitErr: errors.New("dial tcp: refused")},
		Previews: preview.NewRegistry("/previews", 0),
		Logger:   quietLogger(),
	})
	require.Error(t, err)
}

func TestView_FilterDebouncesAndNotifies(t *testing.T) {
	t.Parallel()

	fc := clockwork.NewFakeClock()
	backend := &fakeBackend{}
	v, _ := open(t, backend, fc)

	var changes atomic.Int32
	v.OnChange(func() { changes.Add(1) })

	v.Filter(querysync.Filters{"search": "an"})
	v.Filter(querysync.Filters{"search": "anna"})
	assert.Equal(t, "anna", v.State().Filters["search"])
	assert.Equal(t, 1, backend.visitCount())

	fc.Advance(300 * time.Millisecond)
	require.Eventually(t, func() bool {
		snap, ok := v.State().Page.(*querysync.Snapshot[resources.Influencer])
		return ok && snap.Rows[0].Name == "row anna p1"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, backend.visitCount())
	assert.GreaterOrEqual(t, changes.Load(), int32(3))
}

func TestView_FollowUsesServerLinks(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	v, _ := open(t, backend, clockwork.NewFakeClock())

	snap := v.State().Page.(*querysync.Snapshot[resources.Influencer])
	require.NoError(t, v.Follow(context.Background(), snap.Links[0]), "disabled link is a no-op")
	assert.Equal(t, 1, backend.visitCount())

	require.NoError(t, v.Follow(context.Background(), snap.Links[2]))
	assert.Equal(t, 2, backend.visitCount())
	snap = v.State().Page.(*querysync.Snapshot[resources.Influencer])
	assert.Equal(t, "row  p2", snap.Rows[0].Name)
	assert.True(t, snap.Links[2].Active)
}

func TestView_ReloadFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	v, _ := open(t, backend, clockwork.NewFakeClock())
	before := v.State().Page

	backend.mu.Lock()
	backend.visitErr = &inertia.StatusError{Code: 502}
	backend.mu.Unlock()
	require.Error(t, v.Reload(context.Background()))

	st := v.State()
	assert.Same(t, before, st.Page)
	assert.Equal(t, "The server could not process the request. Showing the last loaded results.", st.Error)

	v.DismissError()
	assert.Empty(t, v.State().Error)
}

func TestView_VersionConflictCarriesLocation(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	v, _ := open(t, backend, clockwork.NewFakeClock())
	backend.mu.Lock()
	backend.visitErr = &inertia.VersionConflictError{Location: "http://backend/influencers"}
	backend.mu.Unlock()

	require.Error(t, v.Reload(context.Background()))
	st := v.State()
	assert.Empty(t, st.Error)
	assert.Equal(t, "http://backend/influencers", st.Location)
}

func TestView_SelectUploadAndClose(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	v, reg := open(t, backend, clockwork.NewFakeClock())

	require.ErrorAs(t, v.Upload(context.Background()), new(*preview.UploadError))
	assert.Equal(t, "Select at least one file to upload.", v.State().FieldErrors["files"])

	handles, err := v.Select([]inertia.File{{Name: "a.png", Data: pngHeader}, {Name: "b.png", Data: pngHeader}})
	require.NoError(t, err)
	require.Len(t, handles, 2)
	assert.Equal(t, 2, reg.Len())
	assert.Empty(t, v.State().FieldErrors)

	require.NoError(t, v.Upload(context.Background()))
	st := v.State()
	assert.Equal(t, "2 influencers imported.", st.Flash)
	assert.Len(t, st.Previews, 2, "upload keeps the selection")

	v.Close()
	v.Close()
	assert.Zero(t, reg.Len())
}

func TestView_UploadFailureIsFieldScoped(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{uploadErr: &inertia.ValidationError{Fields: map[string]string{"files": "The files must be images."}}}
	v, _ := open(t, backend, clockwork.NewFakeClock())
	v.Filter(querysync.Filters{"search": "keep"})
	_, err := v.Select([]inertia.File{{Name: "a.txt", Data: []byte("hello")}})
	require.NoError(t, err)

	require.Error(t, v.Upload(context.Background()))
	st := v.State()
	assert.Equal(t, "The files must be images.", st.FieldErrors["files"])
	assert.Equal(t, "keep", st.Filters["search"])
	assert.Len(t, st.Previews, 1)
}

func TestView_UploadUnsupported(t *testing.T) {
	t.Parallel()

	v, err := Open(context.Background(), resources.Resource[resources.Influencer]{
		Name: "people", Path: "/influencers", Component: "Influencers/Index", PropsKey: "influencers",
	}, nil, Deps{Client: &fakeBackend{}, Previews: preview.NewRegistry("/previews", 0), Logger: quietLogger()})
	require.NoError(t, err)
	defer v.Close()
	require.ErrorIs(t, v.Upload(context.Background()), ErrNoUpload)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	v, reg := open(t, &fakeBackend{}, clockwork.NewFakeClock())
	_, err := v.Select([]inertia.File{{Name: "a.png", Data: pngHeader}})
	require.NoError(t, err)

	views := NewRegistry(quietLogger().Logger)
	views.Add(v)
	got, ok := views.Get(v.ID())
	require.True(t, ok)
	assert.Equal(t, v.ID(), got.ID())

	views.Remove(v.ID())
	views.Remove(v.ID())
	_, ok = views.Get(v.ID())
	assert.False(t, ok)
	assert.Zero(t, reg.Len())
	assert.Zero(t, views.Len())
}

func TestView_FollowIgnoresUnknownLinks(t *testing.T) {
	t.Parallel()

	v, _ := open(t, &fakeBackend{}, clockwork.NewFakeClock())
	require.NoError(t, v.Follow(context.Background(), pagination.Link{Label: "…"}))
}

func TestView_FollowRefusesForeignTarget(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{}
	v, _ := open(t, backend, clockwork.NewFakeClock())

	foreign := "http://attacker.example/steal?page=2"
	err := v.Follow(context.Background(), pagination.Link{Target: &foreign, Label: "2"})
	require.ErrorIs(t, err, pagination.ErrUnknownLink)
	assert.Equal(t, 1, backend.visitCount())
}
