package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bookings-admin/modules/console"
	"github.com/iota-uz/bookings-admin/modules/console/presentation/controllers"
	"github.com/iota-uz/bookings-admin/pkg/application"
	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/pagination"
	"github.com/iota-uz/bookings-admin/pkg/preview"
	"github.com/iota-uz/bookings-admin/pkg/server"
	"github.com/iota-uz/bookings-admin/pkg/types"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeBackend struct {
	uploads atomic.Int32
}

func rolesFor(r *http.Request) []string {
	c, err := r.Cookie("laravel_session")
	if err != nil {
		return []string{}
	}
	return strings.Split(c.Value, "+")
}

func writePage(w http.ResponseWriter, component, url string, props map[string]interface{}) {
	raw, _ := json.Marshal(map[string]interface{}{
		"component": component,
		"props":     props,
		"url":       url,
		"version":   "v1",
	})
	w.Header().Set("X-Inertia", "true")
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (b *fakeBackend) influencers(w http.ResponseWriter, r *http.Request, flash string) {
	search := r.URL.Query().Get("search")
	page := r.URL.Query().Get("page")
	if page == "" {
		page = "1"
	}
	writePage(w, "Influencers/Index", r.URL.RequestURI(), map[string]interface{}{
		"influencers": map[string]interface{}{
			"data":         []map[string]interface{}{{"id": 1, "name": fmt.Sprintf("%s/%s", search, page)}},
			"current_page": 1,
			"last_page":    2,
			"links": []map[string]interface{}{
				{"url": "/influencers?page=1", "label": "1", "active": page == "1"},
				{"url": "/influencers?page=2", "label": "2", "active": page == "2"},
			},
		},
		"filters": map[string]interface{}{"search": search},
		"auth":    map[string]interface{}{"user": map[string]interface{}{"roles": rolesFor(r)}},
		"flash":   map[string]interface{}{"success": flash},
	})
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(inertia.HeaderInertia) != "true" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	switch {
	case r.URL.Path == "/dashboard":
		if len(rolesFor(r)) == 0 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writePage(w, "Dashboard", "/dashboard", map[string]interface{}{
			"auth": map[string]interface{}{"user": map[string]interface{}{"roles": rolesFor(r)}},
		})
	case r.URL.Path == "/influencers" && r.Method == http.MethodGet:
		b.influencers(w, r, "")
	case r.URL.Path == "/influencers/import" && r.Method == http.MethodPost:
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		files := r.MultipartForm.File["files[]"]
		b.uploads.Add(1)
		r.URL.RawQuery = ""
		b.influencers(w, r, fmt.Sprintf("%d influencers imported.", len(files)))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type harness struct {
	backend *fakeBackend
	console *httptest.Server
	clock   *clockwork.FakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	backend := &fakeBackend{}
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	client, err := inertia.NewClient(inertia.Options{BaseURL: backendSrv.URL, Logger: logger})
	require.NoError(t, err)

	clock := clockwork.NewFakeClock()
	app := application.New(&application.ApplicationOptions{Logger: logger})
	module := console.NewModule(&console.ModuleOptions{Client: client, Clock: clock})
	require.NoError(t, module.Register(app))
	t.Cleanup(module.Shutdown)

	srv := server.NewHTTPServer(app, controllers.NotFound(), controllers.MethodNotAllowed())
	consoleSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(consoleSrv.Close)
	return &harness{backend: backend, console: consoleSrv, clock: clock}
}

func (h *harness) get(t *testing.T, path, session string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.console.URL+path, nil)
	require.NoError(t, err)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: "laravel_session", Value: session})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

type pushed struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	State   struct {
		ID      string            `json:"id"`
		Filters map[string]string `json:"filters"`
		Pending bool              `json:"pending"`
		Error   string            `json:"error"`
		Flash   string            `json:"flash"`
		Page    struct {
			Rows []struct {
				Name string `json:"name"`
			} `json:"rows"`
			Links   []pagination.Link `json:"links"`
			History struct {
				Replace        bool `json:"replace"`
				PreserveScroll bool `json:"preserveScroll"`
				PreserveState  bool `json:"preserveState"`
			} `json:"history"`
		} `json:"page"`
		Previews    []preview.Handle  `json:"previews"`
		Nav         []types.NavEntry  `json:"nav"`
		Roles       []string          `json:"roles"`
		FieldErrors map[string]string `json:"fieldErrors"`
	} `json:"state"`
}

func (p pushed) firstRow() string {
	if len(p.State.Page.Rows) == 0 {
		return ""
	}
	return p.State.Page.Rows[0].Name
}

func dial(t *testing.T, h *harness, path, session string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if session != "" {
		header.Set("Cookie", "laravel_session="+session)
	}
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(h.console.URL, "http")+path, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, pred func(pushed) bool) pushed {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg pushed
		require.NoError(t, conn.ReadJSON(&msg))
		if pred(msg) {
			return msg
		}
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestNotFoundIsJSON(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get(t, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"code":"NOT_FOUND"`)
}

func TestNavigation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		session string
		want    []string
	}{
		{"", []string{"/dashboard"}},
		{"admin", []string{"/dashboard", "/influencers", "/roles", "/companies", "/categories", "/weeks", "/calendars", "/tasks", "/reports", "/calendar"}},
		{"influencer", []string{"/dashboard", "/calendar", "/my-calendar"}},
		{"admin+influencer", []string{"/dashboard", "/influencers", "/roles", "/companies", "/categories", "/weeks", "/calendars", "/tasks", "/reports", "/calendar", "/my-calendar"}},
	}
	for _, tt := range tests {
		resp, body := h.get(t, "/api/navigation", tt.session)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var payload struct {
			Entries []types.NavEntry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		hrefs := make([]string, 0, len(payload.Entries))
		for _, e := range payload.Entries {
			hrefs = append(hrefs, e.Href)
		}
		assert.Equal(t, tt.want, hrefs, "session %q", tt.session)
	}
}

func TestNavigation_Localized(t *testing.T) {
	h := newHarness(t)
	_, body := h.get(t, "/api/navigation?lang=zh", "admin")
	assert.NotContains(t, string(body), `"Dashboard"`)
	_, body = h.get(t, "/api/navigation", "admin")
	assert.Contains(t, string(body), `"Dashboard"`)
}

func TestSpotlight(t *testing.T) {
	h := newHarness(t)
	_, body := h.get(t, "/api/spotlight?q=rep", "admin")
	var payload struct {
		Items []struct {
			Label string `json:"label"`
			Link  string `json:"link"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NotEmpty(t, payload.Items)
	assert.Equal(t, "/reports", payload.Items[0].Link)

	_, body = h.get(t, "/api/spotlight?q=rep", "influencer")
	assert.NotContains(t, string(body), "/reports")
}

func TestViewSocket_UnknownResource(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get(t, "/ws/views/invoices", "admin")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "UNKNOWN_RESOURCE")
}

func TestViewSocket_FilterAndFollow(t *testing.T) {
	h := newHarness(t)
	conn := dial(t, h, "/ws/views/influencers?search=an", "admin")

	first := readUntil(t, conn, func(p pushed) bool { return p.Type == "state" })
	assert.Equal(t, "an/1", first.firstRow())
	assert.Equal(t, "an", first.State.Filters["search"])
	assert.Equal(t, []string{"admin"}, first.State.Roles)
	assert.NotEmpty(t, first.State.Nav)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "filter", "filters": map[string]string{"search": "anna"}}))
	readUntil(t, conn, func(p pushed) bool { return p.State.Filters["search"] == "anna" && p.State.Pending })
	h.clock.Advance(300 * time.Millisecond)
	got := readUntil(t, conn, func(p pushed) bool { return p.firstRow() == "anna/1" })
	assert.True(t, got.State.Page.History.Replace, "filtering replaces the history entry")
	assert.True(t, got.State.Page.History.PreserveScroll)
	assert.True(t, got.State.Page.History.PreserveState)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "follow", "link": got.State.Page.Links[1]}))
	got = readUntil(t, conn, func(p pushed) bool { return p.firstRow() == "/2" })
	assert.True(t, got.State.Page.Links[1].Active)
	assert.True(t, got.State.Page.History.Replace)
	assert.True(t, got.State.Page.History.PreserveScroll)
	assert.True(t, got.State.Page.History.PreserveState)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "explode"}))
	errMsg := readUntil(t, conn, func(p pushed) bool { return p.Type == "error" })
	assert.NotEmpty(t, errMsg.Message)
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for name, data := range files {
		part, err := mw.CreateFormFile("files[]", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestViewSelectionPreviewUpload(t *testing.T) {
	h := newHarness(t)
	conn := dial(t, h, "/ws/views/influencers", "admin")
	state := readUntil(t, conn, func(p pushed) bool { return p.Type == "state" })
	id := state.State.ID
	require.NotEmpty(t, id)

	body, contentType := multipartBody(t, map[string][]byte{"a.png": pngHeader, "b.png": pngHeader})
	resp, err := http.Post(h.console.URL+"/api/views/"+id+"/selection", contentType, body)
	require.NoError(t, err)
	var selection struct {
		Previews []preview.Handle `json:"previews"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&selection))
	_ = resp.Body.Close()
	require.Len(t, selection.Previews, 2)

	previewResp, previewBody := h.get(t, selection.Previews[0].URL, "")
	assert.Equal(t, http.StatusOK, previewResp.StatusCode)
	assert.Equal(t, "image/png", previewResp.Header.Get("Content-Type"))
	assert.Equal(t, pngHeader, previewBody)

	resp, err = http.Post(h.console.URL+"/api/views/"+id+"/upload", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), h.backend.uploads.Load())
	readUntil(t, conn, func(p pushed) bool { return p.State.Flash == "2 influencers imported." })

	// Clearing the selection revokes the earlier previews.
	resp, err = http.Post(h.console.URL+"/api/views/"+id+"/selection", "application/x-www-form-urlencoded", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	for _, p := range selection.Previews {
		gone, _ := h.get(t, p.URL, "")
		assert.Equal(t, http.StatusNotFound, gone.StatusCode)
	}

	resp, err = http.Post(h.console.URL+"/api/views/"+id+"/upload", "application/json", nil)
	require.NoError(t, err)
	var invalid struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&invalid))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Select at least one file to upload.", invalid.Errors["files"])
	assert.Equal(t, int32(1), h.backend.uploads.Load())
}

func TestViewClosedWithSocket(t *testing.T) {
	h := newHarness(t)
	conn := dial(t, h, "/ws/views/influencers", "admin")
	state := readUntil(t, conn, func(p pushed) bool { return p.Type == "state" })
	id := state.State.ID

	body, contentType := multipartBody(t, map[string][]byte{"a.png": pngHeader})
	resp, err := http.Post(h.console.URL+"/api/views/"+id+"/selection", contentType, body)
	require.NoError(t, err)
	var selection struct {
		Previews []preview.Handle `json:"previews"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&selection))
	_ = resp.Body.Close()
	require.Len(t, selection.Previews, 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	require.Eventually(t, func() bool {
		r, _ := h.get(t, "/api/views/"+id, "")
		return r.StatusCode == http.StatusNotFound
	}, 5*time.Second, 20*time.Millisecond)
	gone, _ := h.get(t, selection.Previews[0].URL, "")
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}
