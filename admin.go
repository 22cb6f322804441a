package metalworks

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/metalworks/content"
	"github.com/eringen/metalworks/i18n"
	"github.com/eringen/metalworks/views"
)

const recentPostsLimit = 5

// flashKeys are the ?msg= values the admin pages turn into a notice.
var flashKeys = map[string]string{
	"saved":    "admin.saved",
	"deleted":  "admin.deleted",
	"imported": "admin.imported",
	"uploaded": "admin.uploaded",
}

func (a *App) adminBase(c echo.Context, section string) views.AdminBase {
	lang := Lang(c)
	user, _ := CurrentUser(c)
	b := views.AdminBase{
		Site:    a.siteConfig(),
		Lang:    lang,
		CSRF:    CsrfToken(c),
		User:    user,
		Section: section,
	}
	if key, ok := flashKeys[c.QueryParam("msg")]; ok {
		b.Flash = i18n.T(lang, key)
	}
	for _, k := range a.adminKinds(user) {
		b.Kinds = append(b.Kinds, string(k))
	}
	return b
}

// adminKinds lists the record kinds user may manage, in menu order.
func (a *App) adminKinds(user views.AdminUser) []content.Kind {
	var kinds []content.Kind
	for _, k := range content.Kinds() {
		if k == content.KindUsers && !user.IsAdmin() {
			continue
		}
		kinds = append(kinds, k)
	}
	return append(kinds, content.KindInvoices)
}

// collection resolves the :kind parameter for the signed-in user.
func (a *App) collection(c echo.Context) (content.Collection, error) {
	coll, err := a.Content.Lookup(c.Param("kind"))
	if err != nil {
		return nil, echo.ErrNotFound
	}
	user, _ := CurrentUser(c)
	if coll.Kind() == content.KindUsers && !user.IsAdmin() {
		return nil, echo.NewHTTPError(http.StatusForbidden, i18n.T(Lang(c), "admin.forbidden"))
	}
	return coll, nil
}

func (a *App) handleAdmin(c echo.Context) error {
	ok, err := a.signedIn(c)
	if err != nil {
		return err
	}
	if !ok {
		return Render(c, a.Views.AdminLogin(views.LoginData{AdminBase: a.adminBase(c, "login")}))
	}
	return a.renderAdminDashboard(c)
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	lang := Lang(c)
	email := strings.TrimSpace(c.FormValue("email"))
	data := views.LoginData{AdminBase: a.adminBase(c, "login"), Email: email}
	if !a.loginLimiter.Check(ip) {
		data.Error = i18n.T(lang, "admin.too_many_attempts")
		return RenderStatus(c, http.StatusTooManyRequests, a.Views.AdminLogin(data))
	}
	u, err := a.Store.Users.Authenticate(c.Request().Context(), email, c.FormValue("password"))
	if err != nil {
		if !errors.Is(err, content.ErrInvalidCredentials) {
			return err
		}
		a.loginLimiter.Record(ip)
		c.Logger().Warnf("failed admin login for %q from %s", email, ip)
		data.Error = i18n.T(lang, "admin.invalid_login")
		return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(data))
	}
	a.loginLimiter.Reset(ip)
	if err := setAdminSession(c, views.AdminUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) renderAdminDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	base := a.adminBase(c, "dashboard")
	counts, err := a.Store.Counts(ctx)
	if err != nil {
		return err
	}
	posts, err := a.Store.Posts.List(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].UpdatedAt.After(posts[j].UpdatedAt) })
	if len(posts) > recentPostsLimit {
		posts = posts[:recentPostsLimit]
	}
	data := views.DashboardData{AdminBase: base, Unread: counts[content.KindMessages], Recent: posts}
	for _, k := range base.Kinds {
		data.Counts = append(data.Counts, views.KindCount{Kind: k, Count: counts[content.Kind(k)]})
	}
	return Render(c, a.Views.AdminDashboard(data))
}

func (a *App) handleAdminList(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	lang := Lang(c)
	query := strings.TrimSpace(c.QueryParam("q"))
	items, err := coll.Search(c.Request().Context(), query)
	if err != nil {
		return err
	}
	rows := make([]views.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, views.Row{
			ID:      item.ItemID(),
			Label:   item.Label(lang),
			Status:  itemStatus(item),
			Updated: item.Updated(),
		})
	}
	kind := string(coll.Kind())
	return Render(c, a.Views.AdminList(views.ListData{
		AdminBase: a.adminBase(c, kind),
		Kind:      kind,
		Query:     query,
		Rows:      rows,
	}))
}

// itemStatus is the badge shown in admin lists: the status, or the role
// for users.
func itemStatus(item content.Item) string {
	values := content.Values(item)
	if s := values["status"]; s != "" {
		return s
	}
	return values["role"]
}

func formFields(fields []content.Field, values func(name string) string) []views.FormField {
	out := make([]views.FormField, 0, len(fields))
	for _, f := range fields {
		out = append(out, views.FormField{Field: f, Value: values(f.Name)})
	}
	return out
}

func (a *App) renderForm(c echo.Context, status int, coll content.Collection, id string, values func(string) string, formErr string) error {
	kind := string(coll.Kind())
	return RenderStatus(c, status, a.Views.AdminForm(views.FormData{
		AdminBase: a.adminBase(c, kind),
		Kind:      kind,
		ID:        id,
		Fields:    formFields(coll.Fields(), values),
		Error:     formErr,
	}))
}

func (a *App) handleAdminNew(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	return a.renderForm(c, http.StatusOK, coll, "", func(string) string { return "" }, "")
}

func (a *App) handleAdminEdit(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	item, err := coll.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		return err
	}
	values := content.Values(item)
	return a.renderForm(c, http.StatusOK, coll, item.ItemID(), func(name string) string { return values[name] }, "")
}

// formBinder decodes the submitted admin form into a record.
func formBinder(c echo.Context) content.Binder {
	return func(v any) error {
		if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
			return &content.ValidationError{Message: bindMessage(err)}
		}
		return nil
	}
}

func bindMessage(err error) string {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			return he.Internal.Error()
		}
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}

// writeError turns a content error into a message for the admin form, or
// reports false when err is not a user error.
func writeError(lang string, err error) (string, bool) {
	var ve *content.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Field == "" {
			return ve.Message, true
		}
		return i18n.T(lang, "admin.invalid_field", i18n.T(lang, "field."+ve.Field), ve.Message), true
	case errors.Is(err, content.ErrConflict):
		return i18n.T(lang, "admin.conflict"), true
	}
	return "", false
}

func (a *App) handleAdminCreate(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	item, err := coll.Create(c.Request().Context(), formBinder(c))
	if err != nil {
		if msg, ok := writeError(Lang(c), err); ok {
			return a.renderForm(c, http.StatusUnprocessableEntity, coll, "", c.FormValue, msg)
		}
		return err
	}
	c.Logger().Infof("created %s %s", coll.Kind(), item.ItemID())
	return c.Redirect(http.StatusSeeOther, "/admin/"+string(coll.Kind())+"/?msg=saved")
}

func (a *App) handleAdminUpdate(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if _, err := coll.Update(c.Request().Context(), id, formBinder(c)); err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		if msg, ok := writeError(Lang(c), err); ok {
			return a.renderForm(c, http.StatusUnprocessableEntity, coll, id, c.FormValue, msg)
		}
		return err
	}
	c.Logger().Infof("updated %s %s", coll.Kind(), id)
	return c.Redirect(http.StatusSeeOther, "/admin/"+string(coll.Kind())+"/?msg=saved")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	coll, err := a.collection(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	if err := coll.Delete(c.Request().Context(), id); err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		if msg, ok := writeError(Lang(c), err); ok {
			return echo.NewHTTPError(http.StatusConflict, msg)
		}
		return err
	}
	c.Logger().Infof("deleted %s %s", coll.Kind(), id)
	return c.Redirect(http.StatusSeeOther, "/admin/"+string(coll.Kind())+"/?msg=deleted")
}

func (a *App) handleAdminHomepage(c echo.Context) error {
	home, err := a.Store.Homepage.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminHomepage(views.HomepageData{
		AdminBase: a.adminBase(c, "homepage"),
		Home:      home,
		Services:  content.FormatServices(home.Services),
	}))
}

func formText(c echo.Context, name string) content.Text {
	return content.Text{
		BG: strings.TrimSpace(c.FormValue(name + "_bg")),
		EN: strings.TrimSpace(c.FormValue(name + "_en")),
	}
}

// homeFromForm reads the homepage editor form.
func homeFromForm(c echo.Context) (content.HomeContent, error) {
	services, err := content.ParseServices(c.FormValue("services"))
	home := content.HomeContent{
		Hero: content.Hero{
			Title:    formText(c, "hero_title"),
			Subtitle: formText(c, "hero_subtitle"),
			CTALabel: formText(c, "hero_cta_label"),
			CTALink:  strings.TrimSpace(c.FormValue("hero_cta_link")),
			Image:    strings.TrimSpace(c.FormValue("hero_image")),
		},
		Services: services,
		About:    formText(c, "about"),
		Contact: content.ContactInfo{
			Phone:       strings.TrimSpace(c.FormValue("contact_phone")),
			Email:       strings.TrimSpace(c.FormValue("contact_email")),
			Address:     formText(c, "contact_address"),
			Hours:       formText(c, "contact_hours"),
			MapEmbedURL: strings.TrimSpace(c.FormValue("map_embed_url")),
		},
	}
	return home, err
}

func (a *App) handleAdminHomepageSave(c echo.Context) error {
	home, err := homeFromForm(c)
	var msg string
	if err != nil {
		msg = err.Error()
	} else if _, err := a.Store.Homepage.Save(c.Request().Context(), home); err != nil {
		m, ok := writeError(Lang(c), err)
		if !ok {
			return err
		}
		msg = m
	}
	if msg != "" {
		return RenderStatus(c, http.StatusUnprocessableEntity, a.Views.AdminHomepage(views.HomepageData{
			AdminBase: a.adminBase(c, "homepage"),
			Home:      home,
			Services:  c.FormValue("services"),
			Error:     msg,
		}))
	}
	c.Logger().Infof("homepage content updated")
	return c.Redirect(http.StatusSeeOther, "/admin/homepage/?msg=saved")
}

func (a *App) handleAdminMessages(c echo.Context) error {
	msgs, err := a.Store.Messages.List(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminMessages(views.MessagesData{
		AdminBase: a.adminBase(c, "messages"),
		Messages:  msgs,
	}))
}

func (a *App) handleAdminMessageRead(c echo.Context) error {
	read := c.FormValue("read") != "false"
	if err := a.Store.Messages.MarkRead(c.Request().Context(), c.Param("id"), read); err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/messages/")
}

func (a *App) handleAdminMessageDelete(c echo.Context) error {
	if err := a.Store.Messages.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if isNotFound(err) {
			return echo.ErrNotFound
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/messages/?msg=deleted")
}

func (a *App) handleAdminExport(c echo.Context) error {
	// The snapshot carries every password hash.
	if user, _ := CurrentUser(c); !user.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, i18n.T(Lang(c), "admin.forbidden"))
	}
	name := fmt.Sprintf("metalworks-%s.json", a.now().UTC().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	c.Response().WriteHeader(http.StatusOK)
	return a.Store.Export(c.Request().Context(), c.Response())
}

func (a *App) handleAdminImport(c echo.Context) error {
	user, _ := CurrentUser(c)
	if !user.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, i18n.T(Lang(c), "admin.forbidden"))
	}
	fh, err := c.FormFile("snapshot")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing snapshot file")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	if err := a.Store.Import(c.Request().Context(), f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, i18n.T(Lang(c), "admin.import_failed", err.Error()))
	}
	c.Logger().Infof("snapshot %s imported by %s", fh.Filename, user.Email)
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=imported")
}
