// Package metalworks is the web application of a bilingual (Bulgarian and
// English) metalworking company site: public marketing pages, an admin panel
// with CRUD screens over the site content, and a small JSON API.
//
// Page rendering is delegated to the ViewFuncs struct so a deployment can
// swap any page for its own templ component; DefaultViews wires the built-in
// page set from the views package.
package metalworks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/views"
)

// ViewFuncs holds the components the handlers call when rendering pages.
// This is the inversion-of-control mechanism that lets users own and
// customize all templates.
type ViewFuncs struct {
	Home          func(views.HomeData) templ.Component
	Services      func(views.ServicesData) templ.Component
	Listing       func(views.ListingData) templ.Component
	Portfolio     func(views.PortfolioData) templ.Component
	PortfolioItem func(views.PortfolioItemData) templ.Component
	Blog          func(views.BlogData) templ.Component
	Post          func(views.PostData) templ.Component
	Page          func(views.PageData) templ.Component
	Contact       func(views.ContactData) templ.Component
	NotFound      func(views.Base) templ.Component
	ServerError   func(views.Base) templ.Component

	AdminLogin     func(views.LoginData) templ.Component
	AdminDashboard func(views.DashboardData) templ.Component
	AdminList      func(views.ListData) templ.Component
	AdminForm      func(views.FormData) templ.Component
	AdminHomepage  func(views.HomepageData) templ.Component
	AdminMessages  func(views.MessagesData) templ.Component
	AdminMedia     func(views.MediaData) templ.Component
}

// DefaultViews returns the built-in page set.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:           views.Home,
		Services:       views.Services,
		Listing:        views.Listing,
		Portfolio:      views.Portfolio,
		PortfolioItem:  views.PortfolioItem,
		Blog:           views.Blog,
		Post:           views.Post,
		Page:           views.Page,
		Contact:        views.Contact,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
		AdminLogin:     views.AdminLogin,
		AdminDashboard: views.AdminDashboard,
		AdminList:      views.AdminList,
		AdminForm:      views.AdminForm,
		AdminHomepage:  views.AdminHomepage,
		AdminMessages:  views.AdminMessages,
		AdminMedia:     views.AdminMedia,
	}
}

// App is the central metalworks application. It wires together the store,
// dispatcher, cache, handlers, middleware, jobs, and templates.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *content.Store
	Content *content.Dispatcher
	Cache   *SiteCache
	Views   ViewFuncs

	loginLimiter   *WindowLimiter
	contactLimiter *WindowLimiter
	apiLimiter     *APILimiter
	tokens         *TokenIssuer
	jobs           *Jobs
	relay          *content.RedisRelay
	customRoutes   []func(*App)
	now            func() time.Time
	ownsStore      bool
	initialized    bool
}

// New creates a new App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
		now:    time.Now,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store and wires caches, limiters, jobs, middleware and
// routes without starting the listener.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}
	a.Echo.Logger.SetLevel(logLevel(a.Config.LogLevel))
	logger := a.Echo.Logger

	if a.Store == nil {
		store, err := content.Open(a.Config.DatabasePath, content.WithBus(content.NewBus(logger)))
		if err != nil {
			return fmt.Errorf("metalworks: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	} else {
		a.Store.Bus().SetLogger(logger)
	}
	a.Content = content.NewDispatcher(a.Store)

	if a.Config.AdminPassword != "" {
		created, err := a.Store.Users.EnsureAdmin(ctx, "Administrator", a.Config.AdminEmail, a.Config.AdminPassword)
		if err != nil {
			return fmt.Errorf("metalworks: bootstrap admin: %w", err)
		}
		if created {
			logger.Infof("created administrator account %s", a.Config.AdminEmail)
		}
	}

	a.Cache = NewSiteCache(a.Store, a.Config.CacheTTL)
	a.loginLimiter = NewWindowLimiter(5, time.Minute)
	a.loginLimiter.now = a.now
	a.contactLimiter = NewWindowLimiter(3, time.Minute)
	a.contactLimiter.now = a.now
	a.apiLimiter = NewAPILimiter(a.Config.APIRate, a.Config.APIBurst)
	a.apiLimiter.now = a.now
	a.tokens = NewTokenIssuer([]byte(a.Config.JWTSecret), a.Config.TokenTTL)
	a.tokens.now = a.now

	if a.Config.RedisURL != "" {
		relay, err := content.NewRedisRelay(a.Config.RedisURL, a.Config.RedisChannel, a.Store.Bus(), logger)
		if err != nil {
			return fmt.Errorf("metalworks: init redis relay: %w", err)
		}
		if err := relay.Start(ctx); err != nil {
			relay.Close()
			return fmt.Errorf("metalworks: start redis relay: %w", err)
		}
		a.relay = relay
		logger.Infof("relaying content events over redis channel %s", a.Config.RedisChannel)
	}

	jobs, err := NewJobs(a.Store, a.Config, logger)
	if err != nil {
		return fmt.Errorf("metalworks: init jobs: %w", err)
	}
	a.jobs = jobs

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.initialized = true
	return nil
}

// Start initializes the app, starts the background jobs and serves HTTP
// until the server is shut down.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	a.jobs.Start()
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	assets, _ := fs.Sub(EmbeddedAssets, "assets")
	e.GET("/assets/*", echo.WrapHandler(http.StripPrefix("/assets/", http.FileServer(http.FS(assets)))))
	e.Static("/uploads", a.Config.UploadsDir)

	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/healthz", a.handleHealth)
	e.GET("/", a.handleRoot)

	// JSON API
	api := e.Group("/api", a.apiLimiter.Middleware)
	api.GET("/listings", a.handleAPIListings)
	api.POST("/token", a.handleAPIToken)
	secured := api.Group("", a.requireToken)
	secured.GET("/:kind", a.handleAPIList)
	secured.POST("/:kind", a.handleAPICreate)
	secured.GET("/:kind/:id", a.handleAPIGet)
	secured.PUT("/:kind/:id", a.handleAPIUpdate)
	secured.DELETE("/:kind/:id", a.handleAPIDelete)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)
	admin := e.Group("/admin", a.requireAdmin)
	admin.GET("/homepage/", a.handleAdminHomepage)
	admin.POST("/homepage/", a.handleAdminHomepageSave)
	admin.GET("/messages/", a.handleAdminMessages)
	admin.POST("/messages/:id/read/", a.handleAdminMessageRead)
	admin.POST("/messages/:id/delete/", a.handleAdminMessageDelete)
	admin.GET("/media/", a.handleImageList)
	admin.POST("/media/", a.handleImageUpload)
	admin.POST("/media/:filename/delete/", a.handleImageDelete)
	admin.DELETE("/media/:filename/", a.handleImageDelete)
	admin.GET("/export/", a.handleAdminExport)
	admin.POST("/import/", a.handleAdminImport)
	admin.GET("/:kind/", a.handleAdminList)
	admin.GET("/:kind/new/", a.handleAdminNew)
	admin.POST("/:kind/", a.handleAdminCreate)
	admin.GET("/:kind/:id/", a.handleAdminEdit)
	admin.POST("/:kind/:id/", a.handleAdminUpdate)
	admin.POST("/:kind/:id/delete/", a.handleAdminDelete)
	admin.DELETE("/:kind/:id/", a.handleAdminDelete)

	// Public routes under a language prefix
	site := e.Group("/:lang", a.withLang)
	site.GET("/", a.handleHome)
	site.GET("/services/", a.handleServices)
	site.GET("/services/:slug/", a.handleListing)
	site.GET("/portfolio/", a.handlePortfolio)
	site.GET("/portfolio/:slug/", a.handlePortfolioItem)
	site.GET("/blog/", a.handleBlog)
	site.GET("/blog/:slug/", a.handlePost)
	site.GET("/contact/", a.handleContact)
	site.POST("/contact/", a.handleContactSubmit)
	site.GET("/:slug/", a.handlePage)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.jobs != nil {
		a.jobs.Stop()
	}
	if a.relay != nil {
		a.relay.Close()
	}
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.contactLimiter != nil {
		a.contactLimiter.Stop()
	}
	if a.Store != nil && a.ownsStore {
		return a.Store.Close()
	}
	return nil
}
