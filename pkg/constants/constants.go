package constants

import (
	"github.com/go-playground/validator/v10"
)

type ContextKey string

const (
	AppKey       ContextKey = "app"
	LoggerKey    ContextKey = "logger"
	RequestStart ContextKey = "requestStart"
	ParamsKey    ContextKey = "params"
	LocalizerKey ContextKey = "localizer"
	LocaleKey    ContextKey = "locale"
)

var Validate = validator.New(validator.WithRequiredStructEnabled())
