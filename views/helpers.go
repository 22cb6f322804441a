package views

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/i18n"
	"github.com/eringen/metalworks/markdown"
)

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// Link builds a site-relative path under a language prefix, with a trailing
// slash: Link("bg", "blog", "x") is "/bg/blog/x/".
func Link(lang string, parts ...string) string {
	escaped := make([]string, 0, len(parts)+1)
	escaped = append(escaped, lang)
	for _, p := range parts {
		if p != "" {
			escaped = append(escaped, url.PathEscape(p))
		}
	}
	return "/" + strings.Join(escaped, "/") + "/"
}

// Money formats a price with thousands separators for lang. Zero prices
// are "price on request" and render as "".
func Money(lang string, amount float64, currency string) string {
	if amount == 0 {
		return ""
	}
	format := "#,###.##"
	if lang == content.LangBG {
		format = "#.###,##"
	}
	return humanize.FormatFloat(format, amount) + " " + currency
}

// Day formats a calendar day the way each language writes it.
func Day(lang string, d content.Date) string {
	if d.IsZero() {
		return ""
	}
	if lang == content.LangEN {
		return d.Format("January 2, 2006")
	}
	return d.Format("02.01.2006")
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"t":       i18n.T,
		"other":   i18n.Other,
		"link":    Link,
		"money":   Money,
		"day":     Day,
		"excerpt": markdown.Excerpt,
		"md": func(s string) template.HTML {
			return template.HTML(markdown.HTML(s))
		},
		"safeURL": func(s string) template.URL {
			return template.URL(markdown.SafeURL(s))
		},
		"jsonld": func(s string) template.JS {
			return template.JS(s)
		},
		"status": func(lang, s string) string {
			return i18n.T(lang, "status."+s)
		},
		"kindLabel": func(lang, kind string) string {
			return i18n.T(lang, "kind."+kind)
		},
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return humanize.Time(t)
		},
		"stamp": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"bytes": func(n int) string {
			return humanize.Bytes(uint64(n))
		},
		"comma": func(n int) string {
			return humanize.Comma(int64(n))
		},
		"join": strings.Join,
		"dict": dict,
		"year": func() int { return time.Now().Year() },
	}
}

// dict builds the argument map for partial templates from key/value pairs.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("views: dict needs key/value pairs, got %d args", len(kv))
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("views: dict key %v is not a string", kv[i])
		}
		m[key] = kv[i+1]
	}
	return m, nil
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig, lang string) string {
	data := map[string]interface{}{
		"@context":   "https://schema.org",
		"@type":      "WebSite",
		"name":       cfg.Name,
		"url":        buildURL(cfg.URL, lang),
		"inLanguage": lang,
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	return marshalJsonLD(data)
}

// LocalBusinessJsonLD describes the company with its contact details.
func LocalBusinessJsonLD(cfg SiteConfig, lang string, c content.ContactInfo) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "LocalBusiness",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL, lang),
	}
	if c.Phone != "" {
		data["telephone"] = c.Phone
	}
	if c.Email != "" {
		data["email"] = c.Email
	}
	if addr := c.Address.In(lang); addr != "" {
		data["address"] = addr
	}
	if hours := c.Hours.In(lang); hours != "" {
		data["openingHours"] = hours
	}
	return marshalJsonLD(data)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, lang string, post content.BlogPost) string {
	postURL := buildURL(cfg.URL, lang, "blog", post.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title(lang),
		"description":   post.Summary(lang),
		"datePublished": post.PublishOn.String(),
		"dateModified":  post.UpdatedAt.Format(time.RFC3339),
		"inLanguage":    lang,
		"url":           postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	author := post.Author
	if author == "" {
		author = cfg.Author
	}
	if author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  author,
		}
	}
	if post.CoverImage != "" {
		data["image"] = absURL(cfg.URL, post.CoverImage)
	}
	if len(post.Tags) > 0 {
		data["keywords"] = post.Tags.String()
	}
	return marshalJsonLD(data)
}

// OfferJsonLD describes a listing as a Schema.org Service with an offer.
func OfferJsonLD(cfg SiteConfig, lang string, l content.Listing) string {
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "Service",
		"name":        l.Title(lang),
		"description": markdown.Excerpt(l.Description(lang), 300),
		"url":         buildURL(cfg.URL, lang, "services", l.Slug),
		"provider": map[string]string{
			"@type": "LocalBusiness",
			"name":  cfg.Name,
		},
	}
	if l.Category != "" {
		data["category"] = l.Category
	}
	if l.Price > 0 {
		data["offers"] = map[string]interface{}{
			"@type":         "Offer",
			"price":         l.Price,
			"priceCurrency": l.Currency,
		}
	}
	if l.ImageURL != "" {
		data["image"] = absURL(cfg.URL, l.ImageURL)
	}
	return marshalJsonLD(data)
}

func marshalJsonLD(data map[string]interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// absURL resolves a site-relative path against the site URL.
func absURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
