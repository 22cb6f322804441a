// Package views holds the site's page set. Pages are html/template files
// embedded in the binary; every page constructor returns a templ.Component so
// handlers render them the same way they render any other component.
package views

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/a-h/templ"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	publicLayout = "layout"
	adminLayout  = "admin"
)

var (
	loadOnce sync.Once
	pages    map[string]*template.Template
	loadErr  error
)

// Load parses every page template. It is safe to call more than once; pages
// are parsed on first use otherwise.
func Load() error {
	loadOnce.Do(func() {
		pages, loadErr = parsePages()
	})
	return loadErr
}

func parsePages() (map[string]*template.Template, error) {
	public, err := template.New("").Funcs(funcs()).ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("views: parse layout: %w", err)
	}
	admin, err := template.New("").Funcs(funcs()).ParseFS(templateFS, "templates/admin_layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("views: parse admin layout: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		switch name {
		case "layout", "partials", "admin_layout":
			continue
		}
		base := public
		if isAdmin(name) {
			base = admin
		}
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("views: parse %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

func isAdmin(name string) bool { return strings.HasPrefix(name, "admin_") }

// page renders the named template through its layout. Output is buffered so
// a failing template never leaves half a page on the wire.
func page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := Load(); err != nil {
			return err
		}
		t, ok := pages[name]
		if !ok {
			return fmt.Errorf("views: unknown page %q", name)
		}
		entry := publicLayout
		if isAdmin(name) {
			entry = adminLayout
		}
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, entry, data); err != nil {
			return fmt.Errorf("views: render %s: %w", name, err)
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func Home(d HomeData) templ.Component                   { return page("home", d) }
func Services(d ServicesData) templ.Component           { return page("services", d) }
func Listing(d ListingData) templ.Component             { return page("listing", d) }
func Portfolio(d PortfolioData) templ.Component         { return page("portfolio", d) }
func PortfolioItem(d PortfolioItemData) templ.Component { return page("portfolio_item", d) }
func Blog(d BlogData) templ.Component                   { return page("blog", d) }
func Post(d PostData) templ.Component                   { return page("post", d) }
func Page(d PageData) templ.Component                   { return page("page", d) }
func Contact(d ContactData) templ.Component             { return page("contact", d) }
func NotFound(b Base) templ.Component                   { return page("not_found", b) }
func ServerError(b Base) templ.Component                { return page("server_error", b) }

func AdminLogin(d LoginData) templ.Component         { return page("admin_login", d) }
func AdminDashboard(d DashboardData) templ.Component { return page("admin_dashboard", d) }
func AdminList(d ListData) templ.Component           { return page("admin_list", d) }
func AdminForm(d FormData) templ.Component           { return page("admin_form", d) }
func AdminHomepage(d HomepageData) templ.Component   { return page("admin_homepage", d) }
func AdminMessages(d MessagesData) templ.Component   { return page("admin_messages", d) }
func AdminMedia(d MediaData) templ.Component         { return page("admin_media", d) }
