package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iota-uz/bookings-admin/modules/console/services"
	"github.com/iota-uz/bookings-admin/pkg/application"
	"github.com/iota-uz/bookings-admin/pkg/composables"
	"github.com/iota-uz/bookings-admin/pkg/httpapi"
	"github.com/iota-uz/bookings-admin/pkg/intl"
	"github.com/iota-uz/bookings-admin/pkg/middleware"
	"github.com/iota-uz/bookings-admin/pkg/session"
	"github.com/iota-uz/bookings-admin/pkg/spotlight"
)

type NavigationController struct {
	app     application.Application
	console *services.ConsoleService
}

func NewNavigationController(app application.Application) application.Controller {
	return &NavigationController{
		app:     app,
		console: app.Service(services.ConsoleService{}).(*services.ConsoleService),
	}
}

func (c *NavigationController) Key() string {
	return "/api/navigation"
}

func (c *NavigationController) Register(r *mux.Router) {
	router := r.PathPrefix("/api").Subrouter()
	router.Use(middleware.ProvideLocalizer(c.app))
	router.HandleFunc("/navigation", c.Navigation).Methods(http.MethodGet)
	router.HandleFunc("/spotlight", c.Spotlight).Methods(http.MethodGet)
}

type navigationQuery struct {
	// View is the id of an open view whose roles are reused.
	View string `form:"view"`
	Q    string `form:"q"`
}

// roles prefers the roles of an open view and otherwise asks the backend
// about the browser's session.
func (c *NavigationController) roles(r *http.Request, id string) session.Roles {
	if id != "" {
		if v, ok := c.console.View(id); ok {
			return session.NewRoles(v.State().Roles...)
		}
	}
	roles, err := c.console.Roles(r.Context(), c.console.ForwardedHeader(r))
	if err != nil {
		composables.UseLogger(r.Context()).WithError(err).Warn("session roles unavailable, showing base navigation")
	}
	return roles
}

func (c *NavigationController) Navigation(w http.ResponseWriter, r *http.Request) {
	localizer, _ := intl.UseLocalizer(r.Context())
	q, err := composables.UseQuery(&navigationQuery{}, r)
	if err != nil {
		_ = httpapi.Fail(w, r, http.StatusBadRequest, httpapi.CodeInvalidQuery, err.Error())
		return
	}
	roles := c.roles(r, q.View)
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"roles":   roles.Names(),
		"entries": c.console.Navigation(roles, localizer),
	})
}

func (c *NavigationController) Spotlight(w http.ResponseWriter, r *http.Request) {
	localizer, _ := intl.UseLocalizer(r.Context())
	q, err := composables.UseQuery(&navigationQuery{}, r)
	if err != nil {
		_ = httpapi.Fail(w, r, http.StatusBadRequest, httpapi.CodeInvalidQuery, err.Error())
		return
	}
	links := spotlight.NewQuickLinks(c.console.Navigation(c.roles(r, q.View), localizer)...)
	_ = httpapi.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query": q.Q,
		"items": links.Find(q.Q),
	})
}
