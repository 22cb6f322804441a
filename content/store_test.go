package content

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func setupTestStore(t *testing.T) (*Store, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)}
	s, err := Open(filepath.Join(t.TempDir(), "data", "site.db"), WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestOpenCreatesSchema(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))
	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	for _, k := range Kinds() {
		assert.Equal(t, 0, counts[k], k)
	}
	assert.Equal(t, 0, counts[KindInvoices])
	assert.Equal(t, 0, counts[KindMessages])
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Listings.Create(context.Background(), Listing{TitleEN: "Gates"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	all, err := s.Listings.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSettings(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	v, err := s.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetSetting(ctx, "k", "one"))
	require.NoError(t, s.SetSetting(ctx, "k", "two"))
	v, err = s.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)
}

func TestListingCreateAndUpdateTimestamps(t *testing.T) {
	s, clock := setupTestStore(t)
	ctx := context.Background()

	l, err := s.Listings.Create(ctx, Listing{TitleBG: "Метални врати", Price: 120})
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "metalni-vrati", l.Slug)
	assert.Equal(t, "BGN", l.Currency)
	assert.Equal(t, StatusDraft, l.Status)
	assert.Equal(t, clock.now, l.CreatedAt)
	assert.Equal(t, l.CreatedAt, l.UpdatedAt)

	clock.Advance(time.Hour)
	updated, err := s.Listings.Update(ctx, l.ID, Listing{TitleBG: "Метални врати", TitleEN: "Metal doors",
		Slug: l.Slug, Price: 150, Status: StatusActive})
	require.NoError(t, err)
	assert.Equal(t, l.ID, updated.ID)
	assert.Equal(t, l.CreatedAt, updated.CreatedAt)
	assert.Equal(t, clock.now, updated.UpdatedAt)

	got, err := s.Listings.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, got.Price)
	assert.Equal(t, "Metal doors", got.Title(LangEN))
	assert.Equal(t, l.CreatedAt, got.CreatedAt)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestListingValidation(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Listings.Create(ctx, Listing{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)

	_, err = s.Listings.Create(ctx, Listing{TitleEN: "x", Price: -1})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	_, err = s.Listings.Create(ctx, Listing{TitleEN: "x", Status: "sold"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestDuplicateSlugConflicts(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Listings.Create(ctx, Listing{TitleEN: "Railings"})
	require.NoError(t, err)
	_, err = s.Listings.Create(ctx, Listing{TitleEN: "Railings"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListActiveFiltersByCategory(t *testing.T) {
	s, clock := setupTestStore(t)
	ctx := context.Background()

	for _, l := range []Listing{
		{TitleEN: "Gate", Category: "Gates", Status: StatusActive},
		{TitleEN: "Fence", Category: "Fences", Status: StatusActive, Featured: true},
		{TitleEN: "Old fence", Category: "Fences", Status: StatusArchived},
	} {
		_, err := s.Listings.Create(ctx, l)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	active, err := s.Listings.ListActive(ctx, "")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Fence", active[0].TitleEN, "featured first")

	fences, err := s.Listings.ListActive(ctx, "fences")
	require.NoError(t, err)
	require.Len(t, fences, 1)
	assert.Equal(t, "Fence", fences[0].TitleEN)

	cats, err := s.Listings.Categories(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Gates", "Fences"}, cats)
}

func TestGetMissing(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Listings.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Pages.GetBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Portfolio.Delete(ctx, "nope"), ErrNotFound)
	_, err = s.Posts.Update(ctx, "nope", BlogPost{TitleEN: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostVisibilityAndScheduling(t *testing.T) {
	s, clock := setupTestStore(t)
	ctx := context.Background()
	today := s.Today()
	tomorrow := Date{today.AddDate(0, 0, 1)}

	_, err := s.Posts.Create(ctx, BlogPost{TitleEN: "Now", Status: StatusPublished, Tags: List{"Welding", "steel"}})
	require.NoError(t, err)
	_, err = s.Posts.Create(ctx, BlogPost{TitleEN: "Later", Status: StatusScheduled, PublishOn: tomorrow})
	require.NoError(t, err)
	_, err = s.Posts.Create(ctx, BlogPost{TitleEN: "Draft"})
	require.NoError(t, err)
	past, err := s.Posts.Create(ctx, BlogPost{TitleEN: "Past schedule", Status: StatusScheduled,
		PublishOn: Date{today.AddDate(0, 0, -1)}})
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, past.Status, "past schedule publishes immediately")

	visible, err := s.Posts.ListPublished(ctx, "")
	require.NoError(t, err)
	assert.Len(t, visible, 2)

	tagged, err := s.Posts.ListPublished(ctx, "WELDING")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, List{"welding", "steel"}, tagged[0].Tags)

	_, err = s.Posts.GetBySlug(ctx, "later")
	assert.ErrorIs(t, err, ErrNotFound)

	var events []Event
	s.Bus().Subscribe(func(e Event) { events = append(events, e) })

	n, err := s.Posts.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clock.Advance(24 * time.Hour)
	n, err = s.Posts.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, events, 1)
	assert.Equal(t, KindBlogPosts, events[0].Kind)

	later, err := s.Posts.GetBySlug(ctx, "later")
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, later.Status)

	tags, err := s.Posts.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"steel", "welding"}, tags)
}

func TestListingsNewestFirstWithinOneSecond(t *testing.T) {
	s, clock := setupTestStore(t)
	ctx := context.Background()

	var want []string
	for _, title := range []string{"First", "Second", "Third"} {
		l, err := s.Listings.Create(ctx, Listing{TitleEN: title})
		require.NoError(t, err)
		want = append([]string{l.ID}, want...)
		clock.Advance(500 * time.Millisecond)
	}
	got, err := s.Listings.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, l := range got {
		assert.Equal(t, want[i], l.ID, "position %d", i)
	}
}

func TestRelatedPosts(t *testing.T) {
	p := BlogPost{ID: "1", Tags: List{"gates"}}
	posts := []BlogPost{
		p,
		{ID: "2", Tags: List{"gates", "paint"}},
		{ID: "3", Tags: List{"stairs"}},
		{ID: "4", Tags: List{"Gates"}},
	}
	related := Related(p, posts, 1)
	require.Len(t, related, 1)
	assert.Equal(t, "2", related[0].ID)
	assert.Len(t, Related(p, posts, 0), 2)
}

func TestPortfolioOrdering(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	for _, p := range []PortfolioItem{
		{TitleEN: "A", SortOrder: 2, Year: 2020},
		{TitleEN: "B", SortOrder: 1, Year: 2019, Featured: true},
		{TitleEN: "C", SortOrder: 1, Year: 2023},
	} {
		_, err := s.Portfolio.Create(ctx, p)
		require.NoError(t, err)
	}

	all, err := s.Portfolio.List(ctx)
	require.NoError(t, err)
	var titles []string
	for _, p := range all {
		titles = append(titles, p.TitleEN)
	}
	assert.Equal(t, []string{"C", "B", "A"}, titles)

	featured, err := s.Portfolio.ListFeatured(ctx, 5)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, "B", featured[0].TitleEN)

	_, err = s.Portfolio.Create(ctx, PortfolioItem{TitleEN: "D", Year: 85})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestPages(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Pages.Create(ctx, Page{TitleEN: "Blog"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slug", verr.Field)

	about, err := s.Pages.Create(ctx, Page{TitleEN: "About us", Status: StatusPublished, ShowInNav: true, NavOrder: 2})
	require.NoError(t, err)
	_, err = s.Pages.Create(ctx, Page{TitleEN: "Terms", Status: StatusPublished, ShowInNav: true, NavOrder: 1})
	require.NoError(t, err)
	_, err = s.Pages.Create(ctx, Page{TitleEN: "Hidden"})
	require.NoError(t, err)

	published, err := s.Pages.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, published, 2)
	assert.Equal(t, "terms", published[0].Slug)

	got, err := s.Pages.GetBySlug(ctx, "about-us")
	require.NoError(t, err)
	assert.Equal(t, about.ID, got.ID)
	assert.True(t, got.ShowInNav)
}

func TestInvoices(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	var lines InvoiceLines
	require.NoError(t, lines.UnmarshalParam("Gate | 1 | 1000\nInstallation | 2 | 125,50\n"))
	inv, err := s.Invoices.Create(ctx, Invoice{Number: "2024-001", CustomerName: "ACME", Lines: lines, VATRate: 20})
	require.NoError(t, err)
	assert.Equal(t, s.Today(), inv.IssuedOn)
	assert.Equal(t, InvoiceDraft, inv.Status)
	assert.InDelta(t, 1251.0, inv.Subtotal(), 0.001)
	assert.InDelta(t, 1501.2, inv.Total(), 0.001)

	got, err := s.Invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, lines, got.Lines)
	assert.Equal(t, "Gate | 1 | 1000.00\nInstallation | 2 | 125.50", got.Lines.String())

	_, err = s.Invoices.Create(ctx, Invoice{Number: "2024-001", CustomerName: "Other"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.Invoices.Update(ctx, inv.ID, Invoice{Number: "2024-001", CustomerName: "ACME",
		IssuedOn: inv.IssuedOn, DueOn: Date{inv.IssuedOn.AddDate(0, 0, -1)}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "due_on", verr.Field)

	assert.Error(t, lines.UnmarshalParam("only two | columns"))
}

func TestMessages(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Messages.Create(ctx, ContactMessage{Name: "Ivan", Message: "Hi"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	m, err := s.Messages.Create(ctx, ContactMessage{Name: "Ivan", Phone: "+359 888 000 000", Message: "Need a gate", Lang: "xx"})
	require.NoError(t, err)
	assert.Equal(t, LangBG, m.Lang)
	assert.False(t, m.Read)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[KindMessages])

	require.NoError(t, s.Messages.MarkRead(ctx, m.ID, true))
	counts, err = s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[KindMessages])

	require.NoError(t, s.Messages.Delete(ctx, m.ID))
	assert.ErrorIs(t, s.Messages.Delete(ctx, m.ID), ErrNotFound)
}

func TestImages(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Images.Save(ctx, Image{Filename: "a.jpg", OriginalName: "A.JPG", Width: 800, Height: 600, Size: 1234}))
	ok, err := s.Images.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.ErrorIs(t, s.Images.Save(ctx, Image{Filename: "a.jpg"}), ErrConflict)

	all, err := s.Images.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].UploadedAt.IsZero())

	require.NoError(t, s.Images.Delete(ctx, "a.jpg"))
	ok, err = s.Images.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}
