package middleware

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/iota-uz/bookings-admin/pkg/intl"
)

// Application is the slice of the app the localizer middleware reads.
type Application interface {
	Bundle() *i18n.Bundle
	GetSupportedLanguages() []string
}

// ProvideLocalizer negotiates the request locale, ?lang= first and then
// Accept-Language, and stores both the tag and a localizer in the context.
func ProvideLocalizer(app Application) mux.MiddlewareFunc {
	bundle := app.Bundle()
	supported := intl.Tags(intl.GetSupportedLanguages(app.GetSupportedLanguages()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := intl.Negotiate(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"), supported, language.English)
			ctx := intl.WithLocalizer(r.Context(), i18n.NewLocalizer(bundle, locale.String()))
			ctx = intl.WithLocale(ctx, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
