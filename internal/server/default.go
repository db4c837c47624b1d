package server

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookings-admin/modules/console/presentation/controllers"
	"github.com/iota-uz/bookings-admin/pkg/application"
	"github.com/iota-uz/bookings-admin/pkg/configuration"
	"github.com/iota-uz/bookings-admin/pkg/constants"
	"github.com/iota-uz/bookings-admin/pkg/middleware"
	"github.com/iota-uz/bookings-admin/pkg/routing"
	"github.com/iota-uz/bookings-admin/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
}

func Default(options *DefaultOptions) (*server.HTTPServer, error) {
	app := options.Application
	classifier := routing.DefaultClassifier()

	// Core middleware stack with tracing capabilities
	middlewares := []mux.MiddlewareFunc{
		middleware.WithLogger(options.Logger, middleware.LoggerOptions{Classifier: classifier}),

		middleware.TracedMiddleware("app"),
		middleware.Provide(constants.AppKey, app),

		middleware.TracedMiddleware("cors"),
		middleware.Cors(options.Configuration.Origins()...),
	}

	if options.Configuration.RateLimit.Enabled {
		middlewares = append(middlewares,
			middleware.TracedMiddleware("rateLimit"),
			middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerPeriod: options.Configuration.RateLimit.GlobalRPS,
				Store:             middleware.NewMemoryStore(),
				Skip:              middleware.SkipClasses(classifier, routing.RouteClassOps),
			}),
		)
	}

	middlewares = append(middlewares,
		middleware.TracedMiddleware("requestParams"),
		middleware.RequestParams(),
	)

	app.RegisterMiddleware(middlewares...)

	return server.NewHTTPServer(
		app,
		controllers.NotFound(),
		controllers.MethodNotAllowed(),
	), nil
}
