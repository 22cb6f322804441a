package i18n

import (
	"sort"
	"testing"
)

func TestLoad(t *testing.T) {
	if err := Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestT(t *testing.T) {
	tests := []struct {
		lang     string
		key      string
		args     []any
		expected string
	}{
		{"bg", "nav.home", nil, "Начало"},
		{"en", "nav.home", nil, "Home"},
		{"en", "blog.tagged", []any{"steel"}, `Posts tagged "steel"`},
		{"de", "nav.blog", nil, "Блог"},
		{"en", "nonexistent.key", nil, "nonexistent.key"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"_"+tt.key, func(t *testing.T) {
			if got := T(tt.lang, tt.key, tt.args...); got != tt.expected {
				t.Errorf("T(%q, %q) = %q, want %q", tt.lang, tt.key, got, tt.expected)
			}
		})
	}
}

func TestCatalogsHaveSameKeys(t *testing.T) {
	bg, en := Keys("bg"), Keys("en")
	sort.Strings(bg)
	sort.Strings(en)
	if len(bg) != len(en) {
		t.Fatalf("bg has %d keys, en has %d", len(bg), len(en))
	}
	for i := range bg {
		if bg[i] != en[i] {
			t.Fatalf("key mismatch: bg %q vs en %q", bg[i], en[i])
		}
	}
}

func TestMatch(t *testing.T) {
	tests := map[string]string{
		"":                       "bg",
		"en-US,en;q=0.9":         "en",
		"bg-BG,bg;q=0.9,en;q=.8": "bg",
		"de-DE":                  "bg",
		"fr-FR,en;q=0.5":         "en",
		"%%%":                    "bg",
	}
	for header, want := range tests {
		if got := Match(header); got != want {
			t.Errorf("Match(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestOther(t *testing.T) {
	if Other("bg") != "en" || Other("en") != "bg" {
		t.Error("Other should swap bg and en")
	}
	if !IsSupported("bg") || IsSupported("de") {
		t.Error("IsSupported mismatch")
	}
}
