// Package content holds the site's content model and its SQLite-backed store:
// listings, blog posts, portfolio items, users, pages, invoices, contact
// messages, media metadata and the homepage document.
//
// Admin screens and the JSON API do not talk to the typed repositories
// directly. They go through a Dispatcher, which maps one of the five content
// kinds to a Collection offering list/get/create/update/delete/search, and
// every successful mutation is announced on a Bus.
package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("content: not found")
	// ErrConflict is returned when a write violates a uniqueness constraint
	// (slug, email, invoice number).
	ErrConflict = errors.New("content: conflict")
	// ErrInvalidCredentials is returned by Users.Authenticate.
	ErrInvalidCredentials = errors.New("content: invalid credentials")
	// ErrUnknownKind is returned by ParseKind.
	ErrUnknownKind = errors.New("content: unknown kind")
)

// ValidationError reports a rejected field value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "content: " + e.Message
	}
	return fmt.Sprintf("content: %s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// Kind names a content category. It is the dispatch key used throughout the
// admin panel and the API.
type Kind string

const (
	KindListings  Kind = "listings"
	KindBlogPosts Kind = "blog-posts"
	KindPortfolio Kind = "portfolio"
	KindUsers     Kind = "users"
	KindPages     Kind = "pages"

	// Kinds outside the dispatch table. They only appear on events.
	KindInvoices Kind = "invoices"
	KindMessages Kind = "messages"
	KindImages   Kind = "images"
	KindHomepage Kind = "homepage"
	KindAll      Kind = "*"
)

// Kinds returns the five dispatchable content kinds in menu order.
func Kinds() []Kind {
	return []Kind{KindListings, KindBlogPosts, KindPortfolio, KindPages, KindUsers}
}

// ParseKind accepts exactly one of the five dispatchable kinds.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Supported content languages. Bulgarian is the primary language of the site.
const (
	LangBG = "bg"
	LangEN = "en"
)

// pick returns the text for lang, falling back to the other language when
// the requested translation is empty.
func pick(lang, bg, en string) string {
	if lang == LangEN {
		if en != "" {
			return en
		}
		return bg
	}
	if bg != "" {
		return bg
	}
	return en
}

// Logger is the subset of echo.Logger used by background parts of the
// package.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
