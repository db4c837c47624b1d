package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/bookings-admin/modules/console/presentation/controllers"
	"github.com/iota-uz/bookings-admin/pkg/application"
	"github.com/iota-uz/bookings-admin/pkg/configuration"
)

func TestDefault_ServesHealthAndJSONNotFound(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app := application.New(&application.ApplicationOptions{Logger: logger})
	app.RegisterControllers(controllers.NewHealthController())

	srv, err := Default(&DefaultOptions{
		Logger:        logger,
		Configuration: configuration.Use(),
		Application:   app,
	})
	require.NoError(t, err)
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}
