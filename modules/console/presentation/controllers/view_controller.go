package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookings-admin/modules/console/presentation/controllers/dtos"
	"github.com/iota-uz/bookings-admin/modules/console/services"
	"github.com/iota-uz/bookings-admin/pkg/application"
	"github.com/iota-uz/bookings-admin/pkg/composables"
	"github.com/iota-uz/bookings-admin/pkg/configuration"
	"github.com/iota-uz/bookings-admin/pkg/httpapi"
	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/intl"
	"github.com/iota-uz/bookings-admin/pkg/middleware"
	"github.com/iota-uz/bookings-admin/pkg/preview"
	"github.com/iota-uz/bookings-admin/pkg/querysync"
	"github.com/iota-uz/bookings-admin/pkg/view"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 64 << 10
)

type ViewController struct {
	app       application.Application
	console   *services.ConsoleService
	upgrader  *websocket.Upgrader
	maxMemory int64
}

func NewViewController(app application.Application) application.Controller {
	conf := configuration.Use()
	return &ViewController{
		app:     app,
		console: app.Service(services.ConsoleService{}).(*services.ConsoleService),
		upgrader: application.NewUpgrader(&application.UpgraderOptions{
			AllowedOrigins: conf.Origins(),
			Logger:         app.Logger(),
		}),
		maxMemory: conf.MaxUploadMemory,
	}
}

func (c *ViewController) Key() string {
	return "/ws/views"
}

func (c *ViewController) Register(r *mux.Router) {
	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(middleware.ProvideLocalizer(c.app))
	ws.HandleFunc("/views/{resource}", c.Connect).Methods(http.MethodGet)

	api := r.PathPrefix("/api/views").Subrouter()
	api.Use(middleware.ProvideLocalizer(c.app))
	api.HandleFunc("/{id}", c.Get).Methods(http.MethodGet)
	api.HandleFunc("/{id}/selection", c.Select).Methods(http.MethodPost)
	api.HandleFunc("/{id}/upload", c.Upload).Methods(http.MethodPost)
}

func (c *ViewController) lookup(w http.ResponseWriter, r *http.Request) (view.Live, bool) {
	v, ok := c.console.View(mux.Vars(r)["id"])
	if !ok {
		_ = httpapi.Fail(w, r, http.StatusNotFound, httpapi.CodeViewNotFound, "view not found")
	}
	return v, ok
}

func (c *ViewController) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := c.lookup(w, r)
	if !ok {
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, v.State())
}

// Select replaces the file selection of a view. Files arrive as multipart
// parts named files[] (or files); an empty form clears the selection.
func (c *ViewController) Select(w http.ResponseWriter, r *http.Request) {
	v, ok := c.lookup(w, r)
	if !ok {
		return
	}
	files, err := readFiles(r, c.maxMemory)
	if err != nil {
		_ = httpapi.Fail(w, r, http.StatusBadRequest, httpapi.CodeInvalidSelection, err.Error())
		return
	}
	handles, err := v.Select(files)
	if err != nil {
		_ = httpapi.Fail(w, r, http.StatusUnprocessableEntity, httpapi.CodePreviewFailed, err.Error())
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{"previews": handles})
}

func readFiles(r *http.Request, maxMemory int64) ([]inertia.File, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File[preview.FormField]...)
	headers = append(headers, r.MultipartForm.File[preview.UploadField]...)
	files := make([]inertia.File, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, inertia.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}

// Upload submits the current selection of a view to the backend.
func (c *ViewController) Upload(w http.ResponseWriter, r *http.Request) {
	v, ok := c.lookup(w, r)
	if !ok {
		return
	}
	err := v.Upload(r.Context())
	var uerr *preview.UploadError
	switch {
	case err == nil:
		_ = httpapi.WriteJSON(w, http.StatusOK, v.State())
	case errors.Is(err, view.ErrNoUpload):
		_ = httpapi.Fail(w, r, http.StatusNotFound, httpapi.CodeUploadUnsupported, err.Error())
	case errors.As(err, &uerr):
		_ = httpapi.WriteFieldErrors(w, map[string]string{uerr.Field: uerr.Message})
	default:
		_ = httpapi.Fail(w, r, http.StatusBadGateway, httpapi.CodeUploadFailed, err.Error())
	}
}

// Connect opens a view for the resource and keeps it alive for the lifetime
// of the socket. The query string of the handshake is the initial filter set.
func (c *ViewController) Connect(w http.ResponseWriter, r *http.Request) {
	log := composables.UseLogger(r.Context())
	localizer, _ := intl.UseLocalizer(r.Context())
	resource := mux.Vars(r)["resource"]

	v, err := c.console.OpenView(r.Context(), resource, r.URL.Query(), c.console.ForwardedHeader(r), localizer, log)
	if err != nil {
		var conflict *inertia.VersionConflictError
		switch {
		case errors.Is(err, services.ErrUnknownResource):
			_ = httpapi.Fail(w, r, http.StatusNotFound, httpapi.CodeUnknownResource, err.Error())
		case errors.As(err, &conflict):
			w.Header().Set(inertia.HeaderLocation, conflict.Location)
			_ = httpapi.Fail(w, r, http.StatusConflict, httpapi.CodeVersionConflict, err.Error())
		default:
			log.WithError(err).Warn("view could not be opened")
			_ = httpapi.Fail(w, r, http.StatusBadGateway, httpapi.CodeBackendUnavailable, err.Error())
		}
		return
	}

	ip, _ := composables.UseIP(r.Context())
	ua, _ := composables.UseUserAgent(r.Context())
	log.WithFields(logrus.Fields{"view": v.ID(), "ip": ip, "user-agent": ua}).Info("view socket opening")

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		c.console.CloseView(v.ID())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &socket{
		conn:   conn,
		view:   v,
		log:    log.WithField("view", v.ID()),
		notify: make(chan struct{}, 1),
		out:    make(chan *dtos.ServerMessage, 8),
	}
	defer func() {
		cancel()
		c.console.CloseView(v.ID())
		_ = conn.Close()
	}()
	unsubscribe := v.OnChange(s.changed)
	defer unsubscribe()

	s.changed()
	go s.writeLoop(ctx)
	s.readLoop(ctx)
}

type socket struct {
	conn   *websocket.Conn
	view   view.Live
	log    *logrus.Entry
	notify chan struct{}
	out    chan *dtos.ServerMessage
}

// changed schedules a state push; pushes coalesce while the writer is busy.
func (s *socket) changed() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *socket) send(msg *dtos.ServerMessage) {
	select {
	case s.out <- msg:
	default:
		s.log.Warn("dropping message for slow view socket")
	}
}

func (s *socket) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithError(err).Warn("view socket closed unexpectedly")
			}
			return
		}
		msg := &dtos.ClientMessage{}
		if err := json.Unmarshal(raw, msg); err != nil {
			s.send(dtos.ErrorMessage("malformed message"))
			continue
		}
		if reason, ok := msg.Ok(); !ok {
			s.send(dtos.ErrorMessage(reason))
			continue
		}
		s.dispatch(ctx, msg)
	}
}

// dispatch applies one message. Navigations run concurrently so that a
// newer request can supersede one still in flight.
func (s *socket) dispatch(ctx context.Context, msg *dtos.ClientMessage) {
	switch msg.Type {
	case dtos.MessageFilter:
		s.view.Filter(querysync.Filters(msg.Filters))
	case dtos.MessageDismiss:
		s.view.DismissError()
	case dtos.MessageFollow:
		link := *msg.Link
		go s.run(func() error { return s.view.Follow(ctx, link) })
	case dtos.MessageReload:
		go s.run(func() error { return s.view.Reload(ctx) })
	}
}

func (s *socket) run(fn func() error) {
	if err := fn(); err != nil && !errors.Is(err, querysync.ErrStale) && !errors.Is(err, querysync.ErrClosed) {
		s.log.WithError(err).Debug("navigation failed, error is shown in view state")
	}
}

func (s *socket) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		var msg *dtos.ServerMessage
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
			msg = dtos.StateMessage(s.view.State())
		case msg = <-s.out:
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteJSON(msg); err != nil {
			s.log.WithError(err).Debug("view socket write failed")
			_ = s.conn.Close()
			return
		}
	}
}
