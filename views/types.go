package views

import (
	"time"

	"github.com/eringen/metalworks/content"
)

// SiteConfig holds the site-wide settings templates need.
type SiteConfig struct {
	Name        string // SITE_NAME
	URL         string // SITE_URL
	Description string // SITE_DESCRIPTION
	Author      string // SITE_AUTHOR
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
	Alternates  []Alternate
	JSONLD      string
	NoIndex     bool
}

// Alternate is an hreflang link to the same page in another language.
type Alternate struct {
	Lang string
	URL  string
}

// Base is embedded in every public page.
type Base struct {
	Site    SiteConfig
	Lang    string
	Path    string // request path after the language prefix, e.g. "/blog/"
	Meta    PageMeta
	Nav     []content.Page
	Contact content.ContactInfo
	Year    int
}

type HomeData struct {
	Base
	Home      content.HomeContent
	Portfolio []content.PortfolioItem
	Posts     []content.BlogPost
}

type ServicesData struct {
	Base
	Listings       []content.Listing
	Categories     []string
	ActiveCategory string
}

type ListingData struct {
	Base
	Listing content.Listing
}

type PortfolioData struct {
	Base
	Items []content.PortfolioItem
}

type PortfolioItemData struct {
	Base
	Item content.PortfolioItem
}

type BlogData struct {
	Base
	Posts     []content.BlogPost
	Tags      []string
	ActiveTag string
}

type PostData struct {
	Base
	Post    content.BlogPost
	Related []content.BlogPost
}

type PageData struct {
	Base
	Page content.Page
}

type ContactData struct {
	Base
	CSRF  string
	Form  content.ContactMessage
	Error string
	Sent  bool
}

// AdminUser is the signed-in account shown in the admin header.
type AdminUser struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// IsAdmin reports whether the account may manage users.
func (u AdminUser) IsAdmin() bool { return u.Role == content.RoleAdmin }

// AdminBase is embedded in every admin page.
type AdminBase struct {
	Site    SiteConfig
	Lang    string
	CSRF    string
	User    AdminUser
	Section string
	Flash   string
	Kinds   []string
}

type LoginData struct {
	AdminBase
	Email string
	Error string
}

// KindCount is one dashboard tile.
type KindCount struct {
	Kind  string
	Count int
}

type DashboardData struct {
	AdminBase
	Counts []KindCount
	Unread int
	Recent []content.BlogPost
}

// Row is one line of an admin list.
type Row struct {
	ID      string
	Label   string
	Status  string
	Updated time.Time
}

type ListData struct {
	AdminBase
	Kind  string
	Query string
	Rows  []Row
}

// FormField pairs a field definition with its current value.
type FormField struct {
	content.Field
	Value string
}

type FormData struct {
	AdminBase
	Kind   string
	ID     string
	Fields []FormField
	Error  string
}

type HomepageData struct {
	AdminBase
	Home     content.HomeContent
	Services string
	Error    string
}

type MessagesData struct {
	AdminBase
	Messages []content.ContactMessage
}

type MediaData struct {
	AdminBase
	Images []content.Image
	Error  string
}
