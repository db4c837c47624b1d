package intl

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"path"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/iota-uz/bookings-admin/pkg/constants"
)

//go:embed locales/*.toml
var localeFiles embed.FS

var ErrNoLocalizer = errors.New("localizer not found in context")

// LoadBundle builds the message bundle from the embedded locale files.
func LoadBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	entries, err := fs.ReadDir(localeFiles, "locales")
	if err != nil {
		panic(err)
	}
	for _, entry := range entries {
		data, err := localeFiles.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			panic(err)
		}
		bundle.MustParseMessageFileBytes(data, entry.Name())
	}
	return bundle
}

var defaultBundle = sync.OnceValue(LoadBundle)

// DefaultLocalizer localizes with the embedded bundle in English, for code
// paths that run without a request.
func DefaultLocalizer() *i18n.Localizer {
	return i18n.NewLocalizer(defaultBundle(), language.English.String())
}

func WithLocalizer(ctx context.Context, l *i18n.Localizer) context.Context {
	return context.WithValue(ctx, constants.LocalizerKey, l)
}

func UseLocalizer(ctx context.Context) (*i18n.Localizer, bool) {
	l, ok := ctx.Value(constants.LocalizerKey).(*i18n.Localizer)
	return l, ok
}

func WithLocale(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, constants.LocaleKey, tag)
}

func UseLocale(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(constants.LocaleKey).(language.Tag)
	return tag, ok
}

// T translates messageID, returning the id itself when no translation exists.
func T(l *i18n.Localizer, messageID string) string {
	if l == nil {
		return messageID
	}
	msg, err := l.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	return msg
}

func MustT(ctx context.Context, messageID string) string {
	l, ok := UseLocalizer(ctx)
	if !ok {
		panic(ErrNoLocalizer)
	}
	return l.MustLocalize(&i18n.LocalizeConfig{MessageID: messageID})
}
