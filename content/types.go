package content

import (
	"math"
	"net/mail"
	"strings"
	"time"
)

// Item is the untyped view of a record handed out by a Collection.
type Item interface {
	ItemID() string
	Label(lang string) string
	Updated() time.Time
}

// Statuses shared by several kinds.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusArchived  = "archived"
	StatusPublished = "published"
	StatusScheduled = "scheduled"
)

// Listing is a product or service offered by the company.
type Listing struct {
	ID            string    `json:"id" form:"-"`
	Slug          string    `json:"slug" form:"slug"`
	TitleBG       string    `json:"title_bg" form:"title_bg"`
	TitleEN       string    `json:"title_en" form:"title_en"`
	DescriptionBG string    `json:"description_bg" form:"description_bg"`
	DescriptionEN string    `json:"description_en" form:"description_en"`
	Category      string    `json:"category" form:"category"`
	Price         float64   `json:"price" form:"price"`
	Currency      string    `json:"currency" form:"currency"`
	ImageURL      string    `json:"image_url" form:"image_url"`
	Status        string    `json:"status" form:"status"`
	Featured      bool      `json:"featured" form:"featured"`
	CreatedAt     time.Time `json:"created_at" form:"-"`
	UpdatedAt     time.Time `json:"updated_at" form:"-"`
}

func (l Listing) ItemID() string                 { return l.ID }
func (l Listing) Label(lang string) string       { return l.Title(lang) }
func (l Listing) Updated() time.Time             { return l.UpdatedAt }
func (l Listing) Title(lang string) string       { return pick(lang, l.TitleBG, l.TitleEN) }
func (l Listing) Description(lang string) string { return pick(lang, l.DescriptionBG, l.DescriptionEN) }
func (l Listing) IsActive() bool                 { return l.Status == StatusActive }

func (l *Listing) normalize() error {
	trimAll(&l.Slug, &l.TitleBG, &l.TitleEN, &l.Category, &l.Currency, &l.ImageURL, &l.Status)
	if l.TitleBG == "" && l.TitleEN == "" {
		return invalid("title", "a title in at least one language is required")
	}
	if l.Price < 0 || math.IsNaN(l.Price) || math.IsInf(l.Price, 0) {
		return invalid("price", "must be a non-negative number")
	}
	if l.Currency == "" {
		l.Currency = "BGN"
	}
	l.Currency = strings.ToUpper(l.Currency)
	if l.Status == "" {
		l.Status = StatusDraft
	}
	if !oneOf(l.Status, StatusDraft, StatusActive, StatusArchived) {
		return invalid("status", "must be draft, active or archived")
	}
	return ensureSlug(&l.Slug, l.TitleEN, l.TitleBG)
}

// BlogPost is a bilingual article rendered from markdown.
type BlogPost struct {
	ID         string    `json:"id" form:"-"`
	Slug       string    `json:"slug" form:"slug"`
	TitleBG    string    `json:"title_bg" form:"title_bg"`
	TitleEN    string    `json:"title_en" form:"title_en"`
	SummaryBG  string    `json:"summary_bg" form:"summary_bg"`
	SummaryEN  string    `json:"summary_en" form:"summary_en"`
	ContentBG  string    `json:"content_bg" form:"content_bg"`
	ContentEN  string    `json:"content_en" form:"content_en"`
	Tags       List      `json:"tags" form:"tags"`
	Author     string    `json:"author" form:"author"`
	CoverImage string    `json:"cover_image" form:"cover_image"`
	Status     string    `json:"status" form:"status"`
	PublishOn  Date      `json:"publish_on" form:"publish_on"`
	CreatedAt  time.Time `json:"created_at" form:"-"`
	UpdatedAt  time.Time `json:"updated_at" form:"-"`
}

func (p BlogPost) ItemID() string             { return p.ID }
func (p BlogPost) Label(lang string) string   { return p.Title(lang) }
func (p BlogPost) Updated() time.Time         { return p.UpdatedAt }
func (p BlogPost) Title(lang string) string   { return pick(lang, p.TitleBG, p.TitleEN) }
func (p BlogPost) Summary(lang string) string { return pick(lang, p.SummaryBG, p.SummaryEN) }
func (p BlogPost) Content(lang string) string { return pick(lang, p.ContentBG, p.ContentEN) }

// VisibleOn reports whether the post is public on the given day.
func (p BlogPost) VisibleOn(day Date) bool {
	return p.Status == StatusPublished && !p.PublishOn.After(day.Time)
}

func (p *BlogPost) normalize(today Date) error {
	trimAll(&p.Slug, &p.TitleBG, &p.TitleEN, &p.Author, &p.CoverImage, &p.Status)
	if p.TitleBG == "" && p.TitleEN == "" {
		return invalid("title", "a title in at least one language is required")
	}
	p.Tags = lowerList(p.Tags)
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if !oneOf(p.Status, StatusDraft, StatusPublished, StatusScheduled) {
		return invalid("status", "must be draft, published or scheduled")
	}
	if p.PublishOn.IsZero() {
		p.PublishOn = today
	}
	if p.Status == StatusScheduled && !p.PublishOn.After(today.Time) {
		p.Status = StatusPublished
	}
	return ensureSlug(&p.Slug, p.TitleEN, p.TitleBG)
}

// PortfolioItem is a finished project shown in the portfolio section.
type PortfolioItem struct {
	ID            string    `json:"id" form:"-"`
	Slug          string    `json:"slug" form:"slug"`
	TitleBG       string    `json:"title_bg" form:"title_bg"`
	TitleEN       string    `json:"title_en" form:"title_en"`
	DescriptionBG string    `json:"description_bg" form:"description_bg"`
	DescriptionEN string    `json:"description_en" form:"description_en"`
	Category      string    `json:"category" form:"category"`
	Client        string    `json:"client" form:"client"`
	Year          int       `json:"year" form:"year"`
	ImageURL      string    `json:"image_url" form:"image_url"`
	Gallery       List      `json:"gallery" form:"gallery"`
	Featured      bool      `json:"featured" form:"featured"`
	SortOrder     int       `json:"sort_order" form:"sort_order"`
	CreatedAt     time.Time `json:"created_at" form:"-"`
	UpdatedAt     time.Time `json:"updated_at" form:"-"`
}

func (p PortfolioItem) ItemID() string                 { return p.ID }
func (p PortfolioItem) Label(lang string) string       { return p.Title(lang) }
func (p PortfolioItem) Updated() time.Time             { return p.UpdatedAt }
func (p PortfolioItem) Title(lang string) string       { return pick(lang, p.TitleBG, p.TitleEN) }
func (p PortfolioItem) Description(lang string) string { return pick(lang, p.DescriptionBG, p.DescriptionEN) }

func (p *PortfolioItem) normalize() error {
	trimAll(&p.Slug, &p.TitleBG, &p.TitleEN, &p.Category, &p.Client, &p.ImageURL)
	if p.TitleBG == "" && p.TitleEN == "" {
		return invalid("title", "a title in at least one language is required")
	}
	if p.Year != 0 && (p.Year < 1900 || p.Year > 2200) {
		return invalid("year", "must be a four digit year")
	}
	return ensureSlug(&p.Slug, p.TitleEN, p.TitleBG)
}

// User roles.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// MinPasswordLength is enforced when a password is set.
const MinPasswordLength = 8

// User is an admin panel account.
type User struct {
	ID           string    `json:"id" form:"-"`
	Name         string    `json:"name" form:"name"`
	Email        string    `json:"email" form:"email"`
	Role         string    `json:"role" form:"role"`
	Active       bool      `json:"active" form:"active"`
	Password     string    `json:"password,omitempty" form:"password"`
	PasswordHash string    `json:"-" form:"-"`
	LastLoginAt  time.Time `json:"last_login_at" form:"-"`
	CreatedAt    time.Time `json:"created_at" form:"-"`
	UpdatedAt    time.Time `json:"updated_at" form:"-"`
}

func (u User) ItemID() string      { return u.ID }
func (u User) Label(string) string { return u.Name + " <" + u.Email + ">" }
func (u User) Updated() time.Time  { return u.UpdatedAt }
func (u User) IsAdmin() bool       { return u.Role == RoleAdmin }

func (u *User) normalize(passwordRequired bool) error {
	trimAll(&u.Name, &u.Email, &u.Role)
	u.Email = strings.ToLower(u.Email)
	if u.Name == "" {
		return invalid("name", "is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil || !strings.Contains(u.Email, "@") {
		return invalid("email", "must be a valid address")
	}
	if u.Role == "" {
		u.Role = RoleEditor
	}
	if !oneOf(u.Role, RoleAdmin, RoleEditor) {
		return invalid("role", "must be admin or editor")
	}
	if u.Password == "" && passwordRequired {
		return invalid("password", "is required")
	}
	if u.Password != "" && len(u.Password) < MinPasswordLength {
		return invalid("password", "must be at least 8 characters")
	}
	return nil
}

// Page is a free-form CMS page served under /{lang}/{slug}/.
type Page struct {
	ID                string    `json:"id" form:"-"`
	Slug              string    `json:"slug" form:"slug"`
	TitleBG           string    `json:"title_bg" form:"title_bg"`
	TitleEN           string    `json:"title_en" form:"title_en"`
	BodyBG            string    `json:"body_bg" form:"body_bg"`
	BodyEN            string    `json:"body_en" form:"body_en"`
	MetaDescriptionBG string    `json:"meta_description_bg" form:"meta_description_bg"`
	MetaDescriptionEN string    `json:"meta_description_en" form:"meta_description_en"`
	Status            string    `json:"status" form:"status"`
	ShowInNav         bool      `json:"show_in_nav" form:"show_in_nav"`
	NavOrder          int       `json:"nav_order" form:"nav_order"`
	CreatedAt         time.Time `json:"created_at" form:"-"`
	UpdatedAt         time.Time `json:"updated_at" form:"-"`
}

func (p Page) ItemID() string                     { return p.ID }
func (p Page) Label(lang string) string           { return p.Title(lang) }
func (p Page) Updated() time.Time                 { return p.UpdatedAt }
func (p Page) Title(lang string) string           { return pick(lang, p.TitleBG, p.TitleEN) }
func (p Page) Body(lang string) string            { return pick(lang, p.BodyBG, p.BodyEN) }
func (p Page) MetaDescription(lang string) string { return pick(lang, p.MetaDescriptionBG, p.MetaDescriptionEN) }
func (p Page) IsPublished() bool                  { return p.Status == StatusPublished }

// reservedSlugs collide with the fixed public routes.
var reservedSlugs = []string{"services", "portfolio", "blog", "contact", "admin", "api", "assets", "uploads"}

func (p *Page) normalize() error {
	trimAll(&p.Slug, &p.TitleBG, &p.TitleEN, &p.MetaDescriptionBG, &p.MetaDescriptionEN, &p.Status)
	if p.TitleBG == "" && p.TitleEN == "" {
		return invalid("title", "a title in at least one language is required")
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if !oneOf(p.Status, StatusDraft, StatusPublished) {
		return invalid("status", "must be draft or published")
	}
	if err := ensureSlug(&p.Slug, p.TitleEN, p.TitleBG); err != nil {
		return err
	}
	if oneOf(p.Slug, reservedSlugs...) {
		return invalid("slug", "is reserved")
	}
	return nil
}

// Invoice statuses.
const (
	InvoiceDraft = "draft"
	InvoiceSent  = "sent"
	InvoicePaid  = "paid"
)

// InvoiceLine is a single billed position.
type InvoiceLine struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Amount is Quantity * UnitPrice.
func (l InvoiceLine) Amount() float64 { return l.Quantity * l.UnitPrice }

// Invoice is a back-office record managed from the admin panel.
type Invoice struct {
	ID            string        `json:"id" form:"-"`
	Number        string        `json:"number" form:"number"`
	CustomerName  string        `json:"customer_name" form:"customer_name"`
	CustomerEmail string        `json:"customer_email" form:"customer_email"`
	Lines         InvoiceLines  `json:"lines" form:"lines"`
	Currency      string        `json:"currency" form:"currency"`
	VATRate       float64       `json:"vat_rate" form:"vat_rate"`
	Status        string        `json:"status" form:"status"`
	IssuedOn      Date          `json:"issued_on" form:"issued_on"`
	DueOn         Date          `json:"due_on" form:"due_on"`
	CreatedAt     time.Time     `json:"created_at" form:"-"`
	UpdatedAt     time.Time     `json:"updated_at" form:"-"`
}

func (i Invoice) ItemID() string      { return i.ID }
func (i Invoice) Label(string) string { return i.Number + " " + i.CustomerName }
func (i Invoice) Updated() time.Time  { return i.UpdatedAt }

// Subtotal is the sum of all line amounts before VAT.
func (i Invoice) Subtotal() float64 {
	var sum float64
	for _, l := range i.Lines {
		sum += l.Amount()
	}
	return sum
}

// Total includes VAT, rounded to cents.
func (i Invoice) Total() float64 {
	return math.Round(i.Subtotal()*(1+i.VATRate/100)*100) / 100
}

func (i *Invoice) normalize(today Date) error {
	trimAll(&i.Number, &i.CustomerName, &i.CustomerEmail, &i.Currency, &i.Status)
	if i.Number == "" {
		return invalid("number", "is required")
	}
	if i.CustomerName == "" {
		return invalid("customer_name", "is required")
	}
	if i.CustomerEmail != "" {
		if _, err := mail.ParseAddress(i.CustomerEmail); err != nil {
			return invalid("customer_email", "must be a valid address")
		}
	}
	if i.VATRate < 0 || i.VATRate > 100 {
		return invalid("vat_rate", "must be between 0 and 100")
	}
	for _, l := range i.Lines {
		if l.Quantity <= 0 || l.UnitPrice < 0 {
			return invalid("lines", "quantities must be positive and prices non-negative")
		}
	}
	if i.Currency == "" {
		i.Currency = "BGN"
	}
	i.Currency = strings.ToUpper(i.Currency)
	if i.Status == "" {
		i.Status = InvoiceDraft
	}
	if !oneOf(i.Status, InvoiceDraft, InvoiceSent, InvoicePaid) {
		return invalid("status", "must be draft, sent or paid")
	}
	if i.IssuedOn.IsZero() {
		i.IssuedOn = today
	}
	if !i.DueOn.IsZero() && i.DueOn.Before(i.IssuedOn.Time) {
		return invalid("due_on", "must not be before the issue date")
	}
	return nil
}

// ContactMessage is an inquiry submitted through the public contact form.
type ContactMessage struct {
	ID        string    `json:"id" form:"-"`
	Name      string    `json:"name" form:"name"`
	Email     string    `json:"email" form:"email"`
	Phone     string    `json:"phone" form:"phone"`
	Message   string    `json:"message" form:"message"`
	Lang      string    `json:"lang" form:"-"`
	Read      bool      `json:"read" form:"-"`
	CreatedAt time.Time `json:"created_at" form:"-"`
}

// MaxMessageLength bounds the contact form message body.
const MaxMessageLength = 5000

func (m *ContactMessage) normalize() error {
	trimAll(&m.Name, &m.Email, &m.Phone, &m.Message)
	if m.Name == "" {
		return invalid("name", "is required")
	}
	if m.Email == "" && m.Phone == "" {
		return invalid("email", "an email or a phone number is required")
	}
	if m.Email != "" {
		if _, err := mail.ParseAddress(m.Email); err != nil {
			return invalid("email", "must be a valid address")
		}
	}
	if m.Message == "" {
		return invalid("message", "is required")
	}
	if len(m.Message) > MaxMessageLength {
		return invalid("message", "is too long")
	}
	if m.Lang != LangEN {
		m.Lang = LangBG
	}
	return nil
}

// Image is the metadata of an uploaded media file.
type Image struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Size         int       `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func ensureSlug(slug *string, candidates ...string) error {
	if *slug == "" {
		for _, c := range candidates {
			if s := Slugify(c); s != "" {
				*slug = s
				break
			}
		}
	} else {
		*slug = Slugify(*slug)
	}
	if *slug == "" {
		return invalid("slug", "could not derive a slug, set one explicitly")
	}
	return nil
}
