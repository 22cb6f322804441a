// Package i18n holds the Bulgarian and English UI strings of the site and
// the admin panel, and picks a language from an Accept-Language header.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

// Default is the site's primary language.
const Default = "bg"

// Supported lists the site languages, primary first.
var Supported = []string{"bg", "en"}

var (
	loadOnce     sync.Once
	translations map[string]map[string]string
	loadErr      error
	matcher      = language.NewMatcher([]language.Tag{language.Bulgarian, language.English})
)

func load() {
	translations = make(map[string]map[string]string, len(Supported))
	for _, lang := range Supported {
		data, err := localesFS.ReadFile("locales/" + lang + ".json")
		if err != nil {
			loadErr = fmt.Errorf("read %s locale: %w", lang, err)
			return
		}
		m := make(map[string]string)
		if err := json.Unmarshal(data, &m); err != nil {
			loadErr = fmt.Errorf("parse %s locale: %w", lang, err)
			return
		}
		translations[lang] = m
	}
}

// Load parses the embedded catalogs. T calls it lazily; servers call it at
// startup to fail fast on a broken catalog.
func Load() error {
	loadOnce.Do(load)
	return loadErr
}

// T translates key into lang, formatting with args when given. Unknown
// languages use Default; missing keys fall back to Default and then to the
// key itself.
func T(lang, key string, args ...any) string {
	if Load() != nil {
		return key
	}
	msg, ok := translations[lang][key]
	if !ok {
		msg, ok = translations[Default][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Keys returns every key defined for lang.
func Keys(lang string) []string {
	if Load() != nil {
		return nil
	}
	out := make([]string, 0, len(translations[lang]))
	for k := range translations[lang] {
		out = append(out, k)
	}
	return out
}

// IsSupported reports whether lang is one of the site languages.
func IsSupported(lang string) bool {
	for _, l := range Supported {
		if l == lang {
			return true
		}
	}
	return false
}

// Other returns the alternate site language, used by the language switch.
func Other(lang string) string {
	if lang == "en" {
		return "bg"
	}
	return "en"
}

// Match picks the best supported language for an Accept-Language header.
// An empty or unparsable header yields Default.
func Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return Supported[idx]
}
