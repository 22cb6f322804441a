package metalworks

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/i18n"
	"github.com/eringen/metalworks/views"
)

const (
	sessionName = "admin_session"
	langCookie  = "lang"

	ctxLang = "lang"
	ctxUser = "admin_user"
)

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Errorf("%s %s -> %d (%s): %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/uploads/")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' https: data:; font-src 'self'; frame-src https:; connect-src 'self'; form-action 'self'; base-uri 'self'",
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
	}))

	e.Use(middleware.BodyLimit("12M"))

	e.Use(session.Middleware(a.newSessionStore()))

	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:  middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup: "header:X-CSRF-Token,form:_csrf",
		CookieName:  "_csrf",
		CookiePath:  "/",
		CookieSameSite: func() http.SameSite {
			return http.SameSiteLaxMode
		}(),
		CookieSecure: a.Config.CookieSecure,
		Skipper: func(c echo.Context) bool {
			// The API authenticates with bearer tokens, not cookies.
			return strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return echo.NewHTTPError(http.StatusForbidden, "invalid csrf token")
		},
	}))

	e.Use(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/assets/") ||
				strings.HasPrefix(path, "/uploads/") ||
				strings.HasPrefix(path, "/api/") ||
				path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt" || path == "/healthz"
		},
	}))

	e.Use(cacheControlMiddleware)
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		switch {
		case strings.HasPrefix(path, "/assets/"), strings.HasPrefix(path, "/uploads/"):
			c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		case path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt":
			c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		case strings.HasPrefix(path, "/admin"), strings.HasPrefix(path, "/api/"), strings.HasSuffix(path, "/contact/"):
			c.Response().Header().Set("Cache-Control", "no-store")
		default:
			c.Response().Header().Set("Cache-Control", "public, max-age=300")
		}
		return next(c)
	}
}

// logLevel maps LOG_LEVEL to the echo logger levels.
func logLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// withLang validates the :lang path parameter, remembers it in a cookie and
// stores it on the context for handlers and templates.
func (a *App) withLang(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		lang := c.Param("lang")
		if !i18n.IsSupported(lang) {
			return echo.ErrNotFound
		}
		if ck, err := c.Cookie(langCookie); err != nil || ck.Value != lang {
			c.SetCookie(&http.Cookie{
				Name:     langCookie,
				Value:    lang,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				SameSite: http.SameSiteLaxMode,
				Secure:   a.Config.CookieSecure,
			})
		}
		c.Set(ctxLang, lang)
		return next(c)
	}
}

// preferredLang picks the language for an unprefixed request: the lang
// cookie, then Accept-Language, then the default.
func preferredLang(c echo.Context) string {
	if ck, err := c.Cookie(langCookie); err == nil && i18n.IsSupported(ck.Value) {
		return ck.Value
	}
	return i18n.Match(c.Request().Header.Get("Accept-Language"))
}

// Lang returns the language of the current request.
func Lang(c echo.Context) string {
	if lang, ok := c.Get(ctxLang).(string); ok && lang != "" {
		return lang
	}
	return preferredLang(c)
}

// sessionUser is what the admin session remembers about the signed-in user.
type sessionUser = views.AdminUser

// CurrentUser returns the signed-in admin user, if any.
func CurrentUser(c echo.Context) (sessionUser, bool) {
	if u, ok := c.Get(ctxUser).(sessionUser); ok {
		return u, true
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return sessionUser{}, false
	}
	id, _ := sess.Values["user_id"].(string)
	if id == "" {
		return sessionUser{}, false
	}
	u := sessionUser{ID: id}
	u.Name, _ = sess.Values["name"].(string)
	u.Email, _ = sess.Values["email"].(string)
	u.Role, _ = sess.Values["role"].(string)
	c.Set(ctxUser, u)
	return u, true
}

func setAdminSession(c echo.Context, u sessionUser) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["user_id"] = u.ID
	sess.Values["name"] = u.Name
	sess.Values["email"] = u.Email
	sess.Values["role"] = u.Role
	c.Set(ctxUser, u)
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// activeUser reloads the account behind id, so deleted, deactivated and
// demoted users lose their access on the next request.
func (a *App) activeUser(c echo.Context, id string) (sessionUser, error) {
	u, err := a.Store.Users.Get(c.Request().Context(), id)
	if err != nil {
		return sessionUser{}, err
	}
	if !u.Active {
		return sessionUser{}, content.ErrNotFound
	}
	su := sessionUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	c.Set(ctxUser, su)
	return su, nil
}

// signedIn reports whether the session belongs to an active account and
// drops the session when it does not.
func (a *App) signedIn(c echo.Context) (bool, error) {
	u, ok := CurrentUser(c)
	if !ok {
		return false, nil
	}
	if _, err := a.activeUser(c, u.ID); err != nil {
		if !errors.Is(err, content.ErrNotFound) {
			return false, err
		}
		c.Set(ctxUser, nil)
		return false, clearAdminSession(c)
	}
	return true, nil
}

// requireAdmin sends anonymous visitors to the login form.
func (a *App) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ok, err := a.signedIn(c)
		if err != nil {
			return err
		}
		if !ok {
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		return next(c)
	}
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
