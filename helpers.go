package metalworks

import (
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/i18n"
	"github.com/eringen/metalworks/markdown"
	"github.com/eringen/metalworks/views"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
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

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// siteConfig is the subset of SiteConfig the templates see.
func (a *App) siteConfig() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
	}
}

// meta builds page metadata for the page at segments under lang, with
// hreflang alternates for every supported language.
func (a *App) meta(lang, title, description string, segments ...string) views.PageMeta {
	m := views.PageMeta{
		Title:       title,
		Description: description,
		URL:         BuildURL(a.Config.URL, append([]string{lang}, segments...)...),
		OGType:      "website",
	}
	for _, l := range i18n.Supported {
		m.Alternates = append(m.Alternates, views.Alternate{
			Lang: l,
			URL:  BuildURL(a.Config.URL, append([]string{l}, segments...)...),
		})
	}
	return m
}

// relPath is the request path below the language prefix, e.g. "/blog/".
func relPath(segments ...string) string {
	if len(FilterEmpty(segments)) == 0 {
		return "/"
	}
	return "/" + strings.Join(FilterEmpty(segments), "/") + "/"
}

// base assembles the data shared by every public page.
func (a *App) base(c echo.Context, m views.PageMeta, segments ...string) (views.Base, error) {
	ctx := c.Request().Context()
	nav, err := a.Cache.NavPages(ctx)
	if err != nil {
		return views.Base{}, err
	}
	home, err := a.Cache.Home(ctx)
	if err != nil {
		return views.Base{}, err
	}
	if m.Description == "" {
		m.Description = a.Config.Description
	}
	return views.Base{
		Site:    a.siteConfig(),
		Lang:    Lang(c),
		Path:    relPath(segments...),
		Meta:    m,
		Nav:     nav,
		Contact: home.Contact,
		Year:    a.now().Year(),
	}, nil
}

// absURL resolves a site-relative media path against the site URL.
func (a *App) absURL(ref string) string {
	if ref = markdown.SafeURL(ref); ref == "" {
		return ""
	}
	b, err := url.Parse(a.Config.URL)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// isNotFound reports whether err means the record does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, content.ErrNotFound)
}

// validationField returns the rejected field of a content validation error.
func validationField(err error) (string, bool) {
	var ve *content.ValidationError
	if errors.As(err, &ve) {
		return ve.Field, true
	}
	return "", false
}
