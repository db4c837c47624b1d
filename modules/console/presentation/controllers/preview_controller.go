package controllers

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/bookings-admin/modules/console/services"
	"github.com/iota-uz/bookings-admin/pkg/application"
	"github.com/iota-uz/bookings-admin/pkg/httpapi"
)

type PreviewController struct {
	console  *services.ConsoleService
	basePath string
}

func NewPreviewController(app application.Application) application.Controller {
	return &PreviewController{
		console:  app.Service(services.ConsoleService{}).(*services.ConsoleService),
		basePath: "/previews",
	}
}

func (c *PreviewController) Key() string {
	return c.basePath
}

func (c *PreviewController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath+"/{token}", c.Get).Methods(http.MethodGet, http.MethodHead)
}

// Get serves staged bytes while the preview is alive; revoked previews are gone.
func (c *PreviewController) Get(w http.ResponseWriter, r *http.Request) {
	entry, ok := c.console.Previews().Lookup(mux.Vars(r)["token"])
	if !ok {
		_ = httpapi.Fail(w, r, http.StatusNotFound, httpapi.CodePreviewNotFound, "preview not found")
		return
	}
	w.Header().Set("Content-Type", entry.ContentType)
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": entry.Name}))
	http.ServeContent(w, r, entry.Name, entry.CreatedAt, bytes.NewReader(entry.Data))
}
