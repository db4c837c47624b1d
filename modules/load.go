// Package modules lists the modules the console binary ships with.
package modules

import (
	"github.com/pkg/errors"

	"github.com/iota-uz/bookings-admin/modules/console"
	"github.com/iota-uz/bookings-admin/pkg/application"
)

// Console is kept addressable so main can hook its Shutdown to the server.
var Console = console.NewModule(nil)

var BuiltInModules = []application.Module{
	Console,
}

// Load registers modules in order and stops at the first failure.
func Load(app application.Application, modules ...application.Module) error {
	for _, m := range modules {
		if err := m.Register(app); err != nil {
			return errors.Wrapf(err, "register module %s", m.Name())
		}
		app.Logger().WithField("module", m.Name()).Debug("module registered")
	}
	return nil
}
