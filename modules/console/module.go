package console

import (
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookings-admin/modules/console/presentation/controllers"
	"github.com/iota-uz/bookings-admin/modules/console/services"
	"github.com/iota-uz/bookings-admin/pkg/application"
	"github.com/iota-uz/bookings-admin/pkg/configuration"
	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/preview"
	"github.com/iota-uz/bookings-admin/pkg/view"
)

type ModuleOptions struct {
	// Client talks to the backend; built from configuration when nil.
	Client *inertia.Client
	Clock  clockwork.Clock
}

func NewModule(opts *ModuleOptions) *Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
	service *services.ConsoleService
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()
	client := m.options.Client
	if client == nil {
		var err error
		client, err = inertia.NewClient(inertia.Options{
			BaseURL: conf.Backend.URL,
			Version: conf.Backend.AssetVersion,
			Timeout: conf.Backend.Timeout,
			Logger:  app.Logger(),
		})
		if err != nil {
			return err
		}
	}

	m.service = services.NewConsoleService(services.ConsoleServiceOptions{
		Client:           client,
		Previews:         preview.NewRegistry("/previews", conf.MaxPreviewBytes),
		Views:            view.NewRegistry(app.Logger()),
		Navigator:        app.Navigator(),
		Publisher:        app.EventPublisher(),
		Clock:            m.options.Clock,
		Debounce:         conf.Query.Debounce,
		SessionCookie:    conf.Backend.SessionCookie,
		XSRFCookie:       conf.Backend.XSRFCookie,
		SessionPath:      conf.Backend.SessionPath,
		SessionComponent: conf.Backend.SessionComponent,
		Logger:           app.Logger(),
	})
	app.RegisterServices(m.service)
	app.RegisterControllers(
		controllers.NewHealthController(),
		controllers.NewNavigationController(app),
		controllers.NewViewController(app),
		controllers.NewPreviewController(app),
	)
	registerLifecycleLogging(app)
	return nil
}

// Shutdown closes every live view and releases its previews.
func (m *Module) Shutdown() {
	if m.service != nil {
		m.service.Shutdown()
	}
}

func (m *Module) Name() string {
	return "console"
}

func registerLifecycleLogging(app application.Application) {
	log := app.Logger()
	app.EventPublisher().Subscribe(func(e *services.ViewOpened) {
		log.WithFields(logrus.Fields{"view": e.ID, "resource": e.Resource}).Info("browser bound to view")
	})
	app.EventPublisher().Subscribe(func(e *services.ViewClosed) {
		log.WithFields(logrus.Fields{"view": e.ID, "resource": e.Resource}).Info("browser left view")
	})
}
