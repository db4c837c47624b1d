package inertia

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Page is the page object returned by the backend for every visit.
type Page struct {
	Component string          `json:"component"`
	Props     json.RawMessage `json:"props"`
	URL       string          `json:"url"`
	Version   string          `json:"version"`
}

// Prop reads a dotted gjson path from the props document.
func (p *Page) Prop(path string) gjson.Result {
	if p == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(p.Props, path)
}

// Errors flattens props.errors into field -> first message.
func (p *Page) Errors() map[string]string {
	out := map[string]string{}
	p.Prop("errors").ForEach(func(k, v gjson.Result) bool {
		switch {
		case v.IsArray():
			if first := v.Get("0"); first.Exists() {
				out[k.String()] = first.String()
			}
		case v.Type == gjson.String:
			out[k.String()] = v.String()
		}
		return true
	})
	return out
}

// Flash returns the first non-empty flash message (message, success, error).
func (p *Page) Flash() string {
	for _, key := range []string{"flash.message", "flash.success", "flash.error"} {
		if v := strings.TrimSpace(p.Prop(key).String()); v != "" {
			return v
		}
	}
	return ""
}
