package intl

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

type SupportedLanguage struct {
	Code        string
	VerboseName string
	Tag         language.Tag
}

// SupportedLanguages lists the locales shipped under locales/, default first.
var SupportedLanguages = []SupportedLanguage{
	{Code: "en", VerboseName: "English", Tag: language.English},
	{Code: "zh", VerboseName: "中文", Tag: language.Chinese},
}

// GetSupportedLanguages keeps the shipped languages named in codes, in
// shipping order. Empty codes means all of them.
func GetSupportedLanguages(codes []string) []SupportedLanguage {
	if len(codes) == 0 {
		return SupportedLanguages
	}
	out := make([]SupportedLanguage, 0, len(codes))
	for _, lang := range SupportedLanguages {
		if slices.Contains(codes, lang.Code) {
			out = append(out, lang)
		}
	}
	return out
}

func Tags(languages []SupportedLanguage) []language.Tag {
	tags := make([]language.Tag, 0, len(languages))
	for _, lang := range languages {
		tags = append(tags, lang.Tag)
	}
	return tags
}

// Negotiate picks the locale of a request. An explicit language (the ?lang=
// parameter or a CLI flag) wins over the Accept-Language header; anything
// unparseable or unsupported falls back.
func Negotiate(explicit, acceptLanguage string, supported []language.Tag, fallback language.Tag) language.Tag {
	if len(supported) == 0 {
		return fallback
	}
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			if match, ok := match(supported, tag); ok {
				return match
			}
		}
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	if m, ok := match(supported, tags...); ok {
		return m
	}
	return fallback
}

func match(supported []language.Tag, candidates ...language.Tag) (language.Tag, bool) {
	_, idx, confidence := language.NewMatcher(supported).Match(candidates...)
	if confidence == language.No {
		return language.Und, false
	}
	return supported[idx], true
}

// MatchLanguage picks the best shipped tag for an Accept-Language value.
func MatchLanguage(acceptLanguage string, fallback language.Tag) language.Tag {
	return Negotiate("", acceptLanguage, Tags(SupportedLanguages), fallback)
}
