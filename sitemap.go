package metalworks

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/i18n"
)

type sitemapURLSet struct {
	XMLName    xml.Name     `xml:"urlset"`
	XMLNS      string       `xml:"xmlns,attr"`
	XMLNSXHTML string       `xml:"xmlns:xhtml,attr"`
	URLs       []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string             `xml:"loc"`
	LastMod    string             `xml:"lastmod,omitempty"`
	Alternates []sitemapXHTMLLink `xml:"xhtml:link"`
}

type sitemapXHTMLLink struct {
	Rel      string `xml:"rel,attr"`
	Hreflang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

type sitemapSources struct {
	posts     []content.BlogPost
	listings  []content.Listing
	portfolio []content.PortfolioItem
	pages     []content.Page
}

// sitemapEntries returns one URL per language for the page at segments,
// each listing all language versions as alternates.
func (a *App) sitemapEntries(lastMod time.Time, segments ...string) []sitemapURL {
	var alternates []sitemapXHTMLLink
	for _, lang := range i18n.Supported {
		alternates = append(alternates, sitemapXHTMLLink{
			Rel:      "alternate",
			Hreflang: lang,
			Href:     BuildURL(a.Config.URL, append([]string{lang}, segments...)...),
		})
	}
	mod := ""
	if !lastMod.IsZero() {
		mod = lastMod.UTC().Format("2006-01-02")
	}
	urls := make([]sitemapURL, 0, len(i18n.Supported))
	for _, alt := range alternates {
		urls = append(urls, sitemapURL{Loc: alt.Href, LastMod: mod, Alternates: alternates})
	}
	return urls
}

func (a *App) renderSitemap(c echo.Context, src sitemapSources) error {
	var urls []sitemapURL
	for _, section := range [][]string{{}, {"services"}, {"portfolio"}, {"blog"}, {"contact"}} {
		urls = append(urls, a.sitemapEntries(time.Time{}, section...)...)
	}
	for _, l := range src.listings {
		urls = append(urls, a.sitemapEntries(l.UpdatedAt, "services", l.Slug)...)
	}
	for _, p := range src.portfolio {
		urls = append(urls, a.sitemapEntries(p.UpdatedAt, "portfolio", p.Slug)...)
	}
	for _, p := range src.posts {
		urls = append(urls, a.sitemapEntries(p.UpdatedAt, "blog", p.Slug)...)
	}
	for _, p := range src.pages {
		urls = append(urls, a.sitemapEntries(p.UpdatedAt, p.Slug)...)
	}
	sitemap := sitemapURLSet{
		XMLNS:      "http://www.sitemaps.org/schemas/sitemap/0.9",
		XMLNSXHTML: "http://www.w3.org/1999/xhtml",
		URLs:       urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
