package metrics

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookings-admin/pkg/application"
)

// PrometheusController exposes the console collectors on the default
// registry. Scrape errors are logged and the partial result is served.
type PrometheusController struct {
	path     string
	gatherer prometheus.Gatherer
	logger   *logrus.Logger
}

func NewPrometheusController(path string, logger *logrus.Logger) application.Controller {
	if path == "" {
		path = "/debug/prometheus"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PrometheusController{path: path, gatherer: prometheus.DefaultGatherer, logger: logger}
}

func (c *PrometheusController) Key() string {
	return c.path
}

func (c *PrometheusController) Register(r *mux.Router) {
	// Collectors register lazily; force them so the first scrape lists every series.
	get()
	handler := promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{
		ErrorLog:      c.logger.WithField("controller", "prometheus"),
		ErrorHandling: promhttp.ContinueOnError,
	})
	r.Handle(c.path, handler).Methods(http.MethodGet)
}
