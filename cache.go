package metalworks

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/metalworks/content"
)

// siteData is everything the public pages read, loaded in one go.
type siteData struct {
	posts      []content.BlogPost
	tags       []string
	listings   []content.Listing
	categories []string
	portfolio  []content.PortfolioItem
	pages      []content.Page
	home       content.HomeContent
}

// SiteCache is an in-memory cache of the published site content with TTL.
// It subscribes to the store's event bus and drops its contents whenever
// public content changes.
type SiteCache struct {
	mu          sync.RWMutex
	data        *siteData
	fetched     time.Time
	ttl         time.Duration
	store       *content.Store
	now         func() time.Time
	unsubscribe func()
}

// NewSiteCache creates a SiteCache backed by the given Store.
func NewSiteCache(s *content.Store, ttl time.Duration) *SiteCache {
	c := &SiteCache{store: s, ttl: ttl, now: time.Now}
	c.unsubscribe = s.Bus().Subscribe(c.handleEvent)
	return c
}

func (c *SiteCache) handleEvent(e content.Event) {
	switch e.Kind {
	case content.KindUsers, content.KindInvoices, content.KindMessages, content.KindImages:
		return
	}
	c.Invalidate()
}

func (c *SiteCache) valid() bool {
	return c.data != nil && c.now().Sub(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *SiteCache) Invalidate() {
	c.mu.Lock()
	c.data = nil
	c.mu.Unlock()
}

// Close detaches the cache from the event bus.
func (c *SiteCache) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *SiteCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	var (
		d   siteData
		err error
	)
	if d.posts, err = c.store.Posts.ListPublished(ctx, ""); err != nil {
		return err
	}
	if d.tags, err = c.store.Posts.Tags(ctx); err != nil {
		return err
	}
	if d.listings, err = c.store.Listings.ListActive(ctx, ""); err != nil {
		return err
	}
	if d.categories, err = c.store.Listings.Categories(ctx); err != nil {
		return err
	}
	if d.portfolio, err = c.store.Portfolio.List(ctx); err != nil {
		return err
	}
	if d.pages, err = c.store.Pages.ListPublished(ctx); err != nil {
		return err
	}
	if d.home, err = c.store.Homepage.Get(ctx); err != nil {
		return err
	}
	c.data = &d
	c.fetched = c.now()
	return nil
}

// ensureLoaded returns the cached data after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *SiteCache) ensureLoaded(ctx context.Context) (*siteData, error) {
	c.mu.RLock()
	if c.valid() {
		d := c.data
		c.mu.RUnlock()
		return d, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c.data, nil
}

// Posts returns visible posts, optionally filtered by tag.
func (c *SiteCache) Posts(ctx context.Context, tag string) ([]content.BlogPost, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return d.posts, nil
	}
	var filtered []content.BlogPost
	for _, p := range d.posts {
		if p.Tags.Contains(tag) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Tags returns all unique tags from visible posts.
func (c *SiteCache) Tags(ctx context.Context) ([]string, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return d.tags, nil
}

// Post returns a single visible post by slug.
func (c *SiteCache) Post(ctx context.Context, slug string) (content.BlogPost, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return content.BlogPost{}, err
	}
	for _, p := range d.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return content.BlogPost{}, content.ErrNotFound
}

// Listings returns active listings, optionally filtered by category.
func (c *SiteCache) Listings(ctx context.Context, category string) ([]content.Listing, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return d.listings, nil
	}
	var filtered []content.Listing
	for _, l := range d.listings {
		if l.Category == category {
			filtered = append(filtered, l)
		}
	}
	return filtered, nil
}

// Categories returns the distinct categories of active listings.
func (c *SiteCache) Categories(ctx context.Context) ([]string, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return d.categories, nil
}

// Listing returns a single active listing by slug.
func (c *SiteCache) Listing(ctx context.Context, slug string) (content.Listing, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return content.Listing{}, err
	}
	for _, l := range d.listings {
		if l.Slug == slug {
			return l, nil
		}
	}
	return content.Listing{}, content.ErrNotFound
}

// Portfolio returns every portfolio item in display order.
func (c *SiteCache) Portfolio(ctx context.Context) ([]content.PortfolioItem, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return d.portfolio, nil
}

// Featured returns up to limit featured portfolio items.
func (c *SiteCache) Featured(ctx context.Context, limit int) ([]content.PortfolioItem, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	var out []content.PortfolioItem
	for _, p := range d.portfolio {
		if !p.Featured {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// PortfolioItem returns a single portfolio item by slug.
func (c *SiteCache) PortfolioItem(ctx context.Context, slug string) (content.PortfolioItem, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return content.PortfolioItem{}, err
	}
	for _, p := range d.portfolio {
		if p.Slug == slug {
			return p, nil
		}
	}
	return content.PortfolioItem{}, content.ErrNotFound
}

// Pages returns the published CMS pages.
func (c *SiteCache) Pages(ctx context.Context) ([]content.Page, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return d.pages, nil
}

// NavPages returns the published pages flagged for the main navigation.
func (c *SiteCache) NavPages(ctx context.Context) ([]content.Page, error) {
	pages, err := c.Pages(ctx)
	if err != nil {
		return nil, err
	}
	var out []content.Page
	for _, p := range pages {
		if p.ShowInNav {
			out = append(out, p)
		}
	}
	return out, nil
}

// Page returns a published page by slug.
func (c *SiteCache) Page(ctx context.Context, slug string) (content.Page, error) {
	pages, err := c.Pages(ctx)
	if err != nil {
		return content.Page{}, err
	}
	for _, p := range pages {
		if p.Slug == slug {
			return p, nil
		}
	}
	return content.Page{}, content.ErrNotFound
}

// Home returns the homepage document.
func (c *SiteCache) Home(ctx context.Context) (content.HomeContent, error) {
	d, err := c.ensureLoaded(ctx)
	if err != nil {
		return content.HomeContent{}, err
	}
	return d.home, nil
}
