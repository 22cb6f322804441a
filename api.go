package metalworks

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/views"
)

const tokenIssuer = "metalworks"

// ErrInvalidToken is returned for missing, malformed or expired bearer tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

type tokenClaims struct {
	jwt.RegisteredClaims
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenIssuer signs and verifies the HS256 bearer tokens of the JSON API.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer whose tokens expire after ttl.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for u and its expiry.
func (t *TokenIssuer) Issue(u content.User) (string, time.Time, error) {
	now := t.now().UTC()
	exp := now.Add(t.ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses token and returns the user it was issued for.
func (t *TokenIssuer) Verify(token string) (views.AdminUser, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || claims.Subject == "" {
		return views.AdminUser{}, ErrInvalidToken
	}
	return views.AdminUser{ID: claims.Subject, Name: claims.Name, Email: claims.Email, Role: claims.Role}, nil
}

// Middleware rejects requests without a valid bearer token and makes the
// token's user the current user.
func (t *TokenIssuer) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="metalworks"`)
			return ErrInvalidToken
		}
		u, err := t.Verify(strings.TrimSpace(raw))
		if err != nil {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
			return err
		}
		c.Set(ctxUser, u)
		return next(c)
	}
}

// requireToken accepts a valid bearer token whose account is still active.
// The role comes from the store, not from the token.
func (a *App) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return a.tokens.Middleware(func(c echo.Context) error {
		u, _ := CurrentUser(c)
		if _, err := a.activeUser(c, u.ID); err != nil {
			if !errors.Is(err, content.ErrNotFound) {
				return err
			}
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
			return ErrInvalidToken
		}
		return next(c)
	})
}

type tokenRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type listResponse struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
	Items any    `json:"items"`
}

// handleAPIListings serves active listings to anonymous clients. Requests
// carrying a bearer token get the full collection like any other kind.
func (a *App) handleAPIListings(c echo.Context) error {
	if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
		c.SetParamNames("kind")
		c.SetParamValues(string(content.KindListings))
		return a.requireToken(a.handleAPIList)(c)
	}
	listings, err := a.Cache.Listings(c.Request().Context(), strings.TrimSpace(c.QueryParam("category")))
	if err != nil {
		return err
	}
	listings = content.Filter(listings, c.QueryParam("q"))
	if listings == nil {
		listings = []content.Listing{}
	}
	return c.JSON(http.StatusOK, listResponse{Kind: string(content.KindListings), Count: len(listings), Items: listings})
}

func (a *App) handleAPIToken(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
	}
	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return &content.ValidationError{Message: bindMessage(err)}
	}
	u, err := a.Store.Users.Authenticate(c.Request().Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, content.ErrInvalidCredentials) {
			a.loginLimiter.Record(ip)
			c.Logger().Warnf("failed api login for %q from %s", req.Email, ip)
		}
		return err
	}
	a.loginLimiter.Reset(ip)
	token, exp, err := a.tokens.Issue(u)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{Token: token, TokenType: "Bearer", ExpiresAt: exp})
}

// jsonBinder decodes the request body into a record.
func jsonBinder(c echo.Context) content.Binder {
	return func(v any) error {
		if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
			return &content.ValidationError{Message: bindMessage(err)}
		}
		return nil
	}
}

func (a *App) handleAPIList(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	items, err := coll.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	if items == nil {
		items = []content.Item{}
	}
	return c.JSON(http.StatusOK, listResponse{Kind: string(coll.Kind()), Count: len(items), Items: items})
}

func (a *App) handleAPIGet(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	item, err := coll.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (a *App) handleAPICreate(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	item, err := coll.Create(c.Request().Context(), jsonBinder(c))
	if err != nil {
		return err
	}
	user, _ := CurrentUser(c)
	c.Logger().Infof("api: %s created %s %s", user.Email, coll.Kind(), item.ItemID())
	return c.JSON(http.StatusCreated, item)
}

func (a *App) handleAPIUpdate(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	item, err := coll.Update(c.Request().Context(), c.Param("id"), jsonBinder(c))
	if err != nil {
		return err
	}
	user, _ := CurrentUser(c)
	c.Logger().Infof("api: %s updated %s %s", user.Email, coll.Kind(), item.ItemID())
	return c.JSON(http.StatusOK, item)
}

func (a *App) handleAPIDelete(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if err := coll.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	user, _ := CurrentUser(c)
	c.Logger().Infof("api: %s deleted %s %s", user.Email, coll.Kind(), id)
	return c.NoContent(http.StatusNoContent)
}

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// apiErrorHandler writes err as a JSON error body with a status derived
// from the content error kinds.
func (a *App) apiErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	body := apiError{Error: http.StatusText(code)}

	var (
		he *echo.HTTPError
		ve *content.ValidationError
	)
	switch {
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		body = apiError{Error: ve.Message, Field: ve.Field}
	case errors.Is(err, ErrInvalidToken), errors.Is(err, content.ErrInvalidCredentials):
		code = http.StatusUnauthorized
		body.Error = err.Error()
	case errors.Is(err, content.ErrNotFound), errors.Is(err, content.ErrUnknownKind):
		code = http.StatusNotFound
		body.Error = "not found"
	case errors.Is(err, content.ErrConflict):
		code = http.StatusConflict
		body.Error = err.Error()
	case errors.As(err, &he):
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			body.Error = msg
		} else {
			body.Error = http.StatusText(code)
		}
	}
	if code >= 500 {
		c.Logger().Errorf("api error: %v", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		c.Logger().Errorf("write api error: %v", err)
	}
}
