package metalworks

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/i18n"
	"github.com/eringen/metalworks/markdown"
)

// feedLimit caps the number of items in the RSS feed.
const feedLimit = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category"`
}

func (a *App) renderRSS(c echo.Context, lang string, posts []content.BlogPost) error {
	base := a.Config.URL
	if len(posts) > feedLimit {
		posts = posts[:feedLimit]
	}
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		postURL := BuildURL(base, lang, "blog", p.Slug)
		description := p.Summary(lang)
		if description == "" {
			description = markdown.Excerpt(p.Content(lang), 300)
		}
		items = append(items, rssItem{
			Title:       p.Title(lang),
			Link:        postURL,
			Description: description,
			PubDate:     p.PublishOn.Format("Mon, 02 Jan 2006 15:04:05 -0700"),
			GUID:        postURL,
			Categories:  p.Tags,
		})
	}
	description := a.Config.Description
	if description == "" {
		description = i18n.T(lang, "site.tagline")
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(base, lang),
			Description: description,
			Language:    lang,
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
