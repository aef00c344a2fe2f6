package utils

import (
	"strings"

	"golang.org/x/text/language"
)

// Supported locales, first one is the default.
var supportedTags = []language.Tag{
	language.English,
	language.Indonesian,
}

var tagMatcher = language.NewMatcher(supportedTags)

// SupportedLocales returns the base language codes the server can answer in.
func SupportedLocales() []string {
	out := make([]string, 0, len(supportedTags))
	for _, t := range supportedTags {
		out = append(out, t.String())
	}
	return out
}

// DetermineLocale resolves the locale from an explicit query value first,
// then the Accept-Language header, then the default (English).
func DetermineLocale(queryLang, acceptLang string) string {
	if q := strings.TrimSpace(queryLang); q != "" {
		if tag, err := language.Parse(q); err == nil {
			if matched, conf := match(tag); conf != language.No {
				return matched.String()
			}
		}
	}
	if a := strings.TrimSpace(acceptLang); a != "" {
		if tags, _, err := language.ParseAcceptLanguage(a); err == nil && len(tags) > 0 {
			if matched, conf := match(tags...); conf != language.No {
				return matched.String()
			}
		}
	}
	return supportedTags[0].String()
}

func match(tags ...language.Tag) (language.Tag, language.Confidence) {
	_, idx, conf := tagMatcher.Match(tags...)
	return supportedTags[idx], conf
}

func tagFor(locale string) language.Tag {
	tag, err := language.Parse(locale)
	if err != nil {
		return supportedTags[0]
	}
	matched, conf := match(tag)
	if conf == language.No {
		return supportedTags[0]
	}
	return matched
}
