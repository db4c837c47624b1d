package shared

import (
	"github.com/go-playground/form"
)

var (
	Decoder = form.NewDecoder()
	Encoder = form.NewEncoder()
)

func init() {
	Decoder.SetTagName("form")
	Encoder.SetTagName("form")
	Encoder.SetMode(form.ModeExplicit)
}
