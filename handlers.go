package metalworks

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/i18n"
	"github.com/eringen/metalworks/markdown"
	"github.com/eringen/metalworks/views"
)

const (
	homePortfolioLimit = 6
	homePostsLimit     = 3
	relatedPostsLimit  = 3
)

func (a *App) handleRoot(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/"+preferredLang(c)+"/")
}

func (a *App) handleHealth(c echo.Context) error {
	if err := a.Store.Ping(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
	}
	return c.String(http.StatusOK, "ok")
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	lang := Lang(c)
	home, err := a.Cache.Home(ctx)
	if err != nil {
		return err
	}
	featured, err := a.Cache.Featured(ctx, homePortfolioLimit)
	if err != nil {
		return err
	}
	posts, err := a.Cache.Posts(ctx, "")
	if err != nil {
		return err
	}
	if len(posts) > homePostsLimit {
		posts = posts[:homePostsLimit]
	}
	m := a.meta(lang, "", home.Hero.Subtitle.In(lang))
	m.Image = a.absURL(home.Hero.Image)
	m.JSONLD = views.LocalBusinessJsonLD(a.siteConfig(), lang, home.Contact)
	b, err := a.base(c, m)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(views.HomeData{Base: b, Home: home, Portfolio: featured, Posts: posts}))
}

func (a *App) handleServices(c echo.Context) error {
	ctx := c.Request().Context()
	lang := Lang(c)
	category := strings.TrimSpace(c.QueryParam("category"))
	listings, err := a.Cache.Listings(ctx, category)
	if err != nil {
		return err
	}
	categories, err := a.Cache.Categories(ctx)
	if err != nil {
		return err
	}
	b, err := a.base(c, a.meta(lang, i18n.T(lang, "services.title"), ""), "services")
	if err != nil {
		return err
	}
	return Render(c, a.Views.Services(views.ServicesData{
		Base:           b,
		Listings:       listings,
		Categories:     categories,
		ActiveCategory: category,
	}))
}

func (a *App) handleListing(c echo.Context) error {
	lang := Lang(c)
	slug := c.Param("slug")
	l, err := a.Cache.Listing(c.Request().Context(), slug)
	if err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		return err
	}
	m := a.meta(lang, l.Title(lang), markdown.Excerpt(l.Description(lang), 160), "services", l.Slug)
	m.Image = a.absURL(l.ImageURL)
	m.JSONLD = views.OfferJsonLD(a.siteConfig(), lang, l)
	b, err := a.base(c, m, "services", l.Slug)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Listing(views.ListingData{Base: b, Listing: l}))
}

func (a *App) handlePortfolio(c echo.Context) error {
	lang := Lang(c)
	items, err := a.Cache.Portfolio(c.Request().Context())
	if err != nil {
		return err
	}
	b, err := a.base(c, a.meta(lang, i18n.T(lang, "portfolio.title"), ""), "portfolio")
	if err != nil {
		return err
	}
	return Render(c, a.Views.Portfolio(views.PortfolioData{Base: b, Items: items}))
}

func (a *App) handlePortfolioItem(c echo.Context) error {
	lang := Lang(c)
	item, err := a.Cache.PortfolioItem(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		return err
	}
	m := a.meta(lang, item.Title(lang), markdown.Excerpt(item.Description(lang), 160), "portfolio", item.Slug)
	m.Image = a.absURL(item.ImageURL)
	b, err := a.base(c, m, "portfolio", item.Slug)
	if err != nil {
		return err
	}
	return Render(c, a.Views.PortfolioItem(views.PortfolioItemData{Base: b, Item: item}))
}

func (a *App) handleBlog(c echo.Context) error {
	ctx := c.Request().Context()
	lang := Lang(c)
	tag := strings.ToLower(strings.TrimSpace(c.QueryParam("tag")))
	posts, err := a.Cache.Posts(ctx, tag)
	if err != nil {
		return err
	}
	tags, err := a.Cache.Tags(ctx)
	if err != nil {
		return err
	}
	m := a.meta(lang, i18n.T(lang, "blog.title"), "", "blog")
	m.JSONLD = views.WebsiteJsonLD(a.siteConfig(), lang)
	if tag != "" {
		m.Title = i18n.T(lang, "blog.tagged", tag)
		m.NoIndex = true
	}
	b, err := a.base(c, m, "blog")
	if err != nil {
		return err
	}
	return Render(c, a.Views.Blog(views.BlogData{Base: b, Posts: posts, Tags: tags, ActiveTag: tag}))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	lang := Lang(c)
	post, err := a.Cache.Post(ctx, c.Param("slug"))
	if err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		return err
	}
	posts, err := a.Cache.Posts(ctx, "")
	if err != nil {
		return err
	}
	description := post.Summary(lang)
	if description == "" {
		description = markdown.Excerpt(post.Content(lang), 160)
	}
	m := a.meta(lang, post.Title(lang), description, "blog", post.Slug)
	m.OGType = "article"
	m.Image = a.absURL(post.CoverImage)
	m.JSONLD = views.BlogPostingJsonLD(a.siteConfig(), lang, post)
	b, err := a.base(c, m, "blog", post.Slug)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Post(views.PostData{
		Base:    b,
		Post:    post,
		Related: content.Related(post, posts, relatedPostsLimit),
	}))
}

func (a *App) handlePage(c echo.Context) error {
	lang := Lang(c)
	page, err := a.Cache.Page(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		return err
	}
	description := page.MetaDescription(lang)
	if description == "" {
		description = markdown.Excerpt(page.Body(lang), 160)
	}
	b, err := a.base(c, a.meta(lang, page.Title(lang), description, page.Slug), page.Slug)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Page(views.PageData{Base: b, Page: page}))
}

func (a *App) contactData(c echo.Context) (views.ContactData, error) {
	lang := Lang(c)
	b, err := a.base(c, a.meta(lang, i18n.T(lang, "contact.title"), i18n.T(lang, "contact.intro"), "contact"), "contact")
	if err != nil {
		return views.ContactData{}, err
	}
	return views.ContactData{Base: b, CSRF: CsrfToken(c)}, nil
}

func (a *App) handleContact(c echo.Context) error {
	d, err := a.contactData(c)
	if err != nil {
		return err
	}
	if slug := c.QueryParam("subject"); slug != "" {
		if l, err := a.Cache.Listing(c.Request().Context(), slug); err == nil {
			d.Form.Message = l.Title(d.Lang) + ": "
		}
	}
	d.Sent = c.QueryParam("sent") == "1"
	return Render(c, a.Views.Contact(d))
}

func (a *App) handleContactSubmit(c echo.Context) error {
	d, err := a.contactData(c)
	if err != nil {
		return err
	}
	lang := d.Lang
	var msg content.ContactMessage
	if err := c.Bind(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	d.Form = msg

	// Bots fill the hidden field; pretend success without storing anything.
	if c.FormValue("website") != "" {
		return c.Redirect(http.StatusSeeOther, BuildURL("/", lang, "contact")+"?sent=1")
	}
	if !a.contactLimiter.Allow(c.RealIP()) {
		d.Error = i18n.T(lang, "contact.rate_limited")
		return RenderStatus(c, http.StatusTooManyRequests, a.Views.Contact(d))
	}
	msg.Lang = lang
	if _, err := a.Store.Messages.Create(c.Request().Context(), msg); err != nil {
		if field, ok := validationField(err); ok {
			d.Error = i18n.T(lang, "contact.invalid", i18n.T(lang, "contact."+field))
			return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.Contact(d))
		}
		return err
	}
	c.Logger().Infof("contact message from %s", c.RealIP())
	return c.Redirect(http.StatusSeeOther, BuildURL("/", lang, "contact")+"?sent=1")
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nDisallow: /admin/\nDisallow: /api/\n\nSitemap: " +
		strings.TrimSuffix(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Cache.Posts(ctx, "")
	if err != nil {
		return err
	}
	listings, err := a.Cache.Listings(ctx, "")
	if err != nil {
		return err
	}
	portfolio, err := a.Cache.Portfolio(ctx)
	if err != nil {
		return err
	}
	pages, err := a.Cache.Pages(ctx)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, sitemapSources{posts: posts, listings: listings, portfolio: portfolio, pages: pages})
}

func (a *App) handleFeed(c echo.Context) error {
	lang := c.QueryParam("lang")
	if !i18n.IsSupported(lang) {
		lang = i18n.Default
	}
	posts, err := a.Cache.Posts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, lang, posts)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		a.apiErrorHandler(err, c)
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.errorBase(c, "error.not_found_title")))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError(a.errorBase(c, "error.server_title")))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

// errorBase is the page data for error pages. It avoids the cache so a
// failing store cannot break the error page itself.
func (a *App) errorBase(c echo.Context, titleKey string) views.Base {
	lang := c.Param("lang")
	if !i18n.IsSupported(lang) {
		lang = preferredLang(c)
	}
	return views.Base{
		Site: a.siteConfig(),
		Lang: lang,
		Path: "/",
		Meta: views.PageMeta{Title: i18n.T(lang, titleKey), NoIndex: true},
		Year: a.now().Year(),
	}
}
