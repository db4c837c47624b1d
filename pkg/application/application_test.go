package application

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubController struct {
	key string
}

func (c *stubController) Key() string              { return c.key }
func (c *stubController) Register(r *mux.Router) {}

type greeter struct{ name string }

func TestApplication_Defaults(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	assert.Equal(t, []string{"en", "zh"}, app.GetSupportedLanguages())
	assert.NotNil(t, app.Bundle())
	assert.NotNil(t, app.Navigator())
	assert.NotNil(t, app.EventPublisher())
}

func TestApplication_ControllersAreOrderedAndUnique(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	app.RegisterControllers(&stubController{key: "/b"}, &stubController{key: "/a"}, &stubController{key: "/b"})
	controllers := app.Controllers()
	require.Len(t, controllers, 2)
	assert.Equal(t, "/a", controllers[0].Key())
	assert.Equal(t, "/b", controllers[1].Key())
}

func TestApplication_Services(t *testing.T) {
	t.Parallel()

	app := New(&ApplicationOptions{})
	app.RegisterServices(&greeter{name: "console"})
	svc := app.Service(greeter{}).(*greeter)
	assert.Equal(t, "console", svc.name)
	assert.Panics(t, func() { app.Service(stubController{}) })
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	t.Parallel()

	up := NewUpgrader(&UpgraderOptions{AllowedOrigins: []string{"http://localhost:3000/"}})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://console.local", true},
		{"http://localhost:3000", true},
		{"https://evil.example", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://console.local/ws/views/bookings", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, up.CheckOrigin(r), tt.origin)
	}
}
