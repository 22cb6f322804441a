package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// HomepageKey is the settings key the homepage document is stored under.
const HomepageKey = "homepage_content"

// Text is a string in both site languages.
type Text struct {
	BG string `json:"bg" yaml:"bg"`
	EN string `json:"en" yaml:"en"`
}

// In returns the text for lang with fallback to the other language.
func (t Text) In(lang string) string { return pick(lang, t.BG, t.EN) }

// IsZero reports whether both translations are empty.
func (t Text) IsZero() bool { return t.BG == "" && t.EN == "" }

// Hero is the top banner of the home page.
type Hero struct {
	Title    Text   `json:"title" yaml:"title"`
	Subtitle Text   `json:"subtitle" yaml:"subtitle"`
	CTALabel Text   `json:"cta_label" yaml:"cta_label"`
	CTALink  string `json:"cta_link" yaml:"cta_link"`
	Image    string `json:"image" yaml:"image"`
}

// Service is one tile of the services section.
type Service struct {
	Icon  string `json:"icon" yaml:"icon"`
	Title Text   `json:"title" yaml:"title"`
	Text  Text   `json:"text" yaml:"text"`
}

// ContactInfo is shown in the contact section and the footer.
type ContactInfo struct {
	Phone       string `json:"phone" yaml:"phone"`
	Email       string `json:"email" yaml:"email"`
	Address     Text   `json:"address" yaml:"address"`
	Hours       Text   `json:"hours" yaml:"hours"`
	MapEmbedURL string `json:"map_embed_url" yaml:"map_embed_url"`
}

// HomeContent is the CMS-editable document behind the home page.
type HomeContent struct {
	Hero     Hero        `json:"hero" yaml:"hero"`
	Services []Service   `json:"services" yaml:"services"`
	About    Text        `json:"about" yaml:"about"`
	Contact  ContactInfo `json:"contact" yaml:"contact"`
}

// DefaultHomeContent is served until an administrator saves the homepage.
func DefaultHomeContent() HomeContent {
	return HomeContent{
		Hero: Hero{
			Title:    Text{BG: "Метални конструкции по поръчка", EN: "Custom metal structures"},
			Subtitle: Text{BG: "Проектиране, изработка и монтаж", EN: "Design, fabrication and installation"},
			CTALabel: Text{BG: "Свържете се с нас", EN: "Get in touch"},
			CTALink:  "contact/",
		},
		Services: []Service{
			{Icon: "weld", Title: Text{BG: "Заваряване", EN: "Welding"},
				Text: Text{BG: "MIG, MAG и TIG заваряване на стомана и алуминий.", EN: "MIG, MAG and TIG welding of steel and aluminium."}},
			{Icon: "cut", Title: Text{BG: "Рязане", EN: "Cutting"},
				Text: Text{BG: "Плазмено и лазерно рязане по чертеж.", EN: "Plasma and laser cutting to drawing."}},
			{Icon: "build", Title: Text{BG: "Монтаж", EN: "Installation"},
				Text: Text{BG: "Монтаж на обекта от нашия екип.", EN: "On-site installation by our own crew."}},
		},
		About: Text{
			BG: "Семейна работилница с над 20 години опит в металообработката.",
			EN: "A family workshop with more than 20 years of metalworking experience.",
		},
	}
}

func (h *HomeContent) normalize() error {
	trimAll(&h.Hero.Title.BG, &h.Hero.Title.EN, &h.Hero.CTALink, &h.Hero.Image,
		&h.Contact.Phone, &h.Contact.Email, &h.Contact.MapEmbedURL)
	if h.Hero.Title.IsZero() {
		return invalid("hero_title", "a hero title in at least one language is required")
	}
	if u := h.Contact.MapEmbedURL; u != "" && !strings.HasPrefix(u, "https://") {
		return invalid("map_embed_url", "must be an https URL")
	}
	services := h.Services[:0]
	for _, s := range h.Services {
		if !s.Title.IsZero() {
			services = append(services, s)
		}
	}
	h.Services = services
	return nil
}

// Homepage reads and writes the homepage document.
type Homepage struct{ s *Store }

// Get returns the stored document, or DefaultHomeContent when none was saved.
func (r *Homepage) Get(ctx context.Context) (HomeContent, error) {
	raw, err := r.s.GetSetting(ctx, HomepageKey)
	if err != nil {
		return HomeContent{}, err
	}
	if raw == "" {
		return DefaultHomeContent(), nil
	}
	var h HomeContent
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return HomeContent{}, fmt.Errorf("decode %s: %w", HomepageKey, err)
	}
	return h, nil
}

// Save validates h and replaces the stored document.
func (r *Homepage) Save(ctx context.Context, h HomeContent) (HomeContent, error) {
	if err := h.normalize(); err != nil {
		return HomeContent{}, err
	}
	if err := saveHomepage(ctx, r.s.db, h); err != nil {
		return HomeContent{}, err
	}
	r.s.publish(KindHomepage, OpReplace, HomepageKey)
	return h, nil
}

func saveHomepage(ctx context.Context, db execer, h HomeContent) error {
	b, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return setSetting(ctx, db, HomepageKey, string(b))
}

// FormatServices renders services one per line as
// "icon | title bg | title en | text bg | text en", the admin textarea format.
func FormatServices(services []Service) string {
	rows := make([]string, 0, len(services))
	for _, s := range services {
		rows = append(rows, strings.Join([]string{s.Icon, s.Title.BG, s.Title.EN, s.Text.BG, s.Text.EN}, " | "))
	}
	return strings.Join(rows, "\n")
}

// ParseServices is the inverse of FormatServices. Missing trailing columns
// are left empty.
func ParseServices(text string) ([]Service, error) {
	var out []Service
	for n, row := range strings.Split(text, "\n") {
		if strings.TrimSpace(row) == "" {
			continue
		}
		cols := strings.Split(row, "|")
		if len(cols) > 5 {
			return nil, invalid("services", fmt.Sprintf("line %d has more than 5 columns", n+1))
		}
		for len(cols) < 5 {
			cols = append(cols, "")
		}
		for i := range cols {
			cols[i] = strings.TrimSpace(cols[i])
		}
		out = append(out, Service{
			Icon:  cols[0],
			Title: Text{BG: cols[1], EN: cols[2]},
			Text:  Text{BG: cols[3], EN: cols[4]},
		})
	}
	return out, nil
}
