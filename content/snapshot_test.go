package content

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	src, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := src.Listings.Create(ctx, Listing{TitleEN: "Gate", Status: StatusActive})
	require.NoError(t, err)
	_, err = src.Posts.Create(ctx, BlogPost{TitleEN: "Post", Tags: List{"steel"}, Status: StatusPublished})
	require.NoError(t, err)
	_, err = src.Portfolio.Create(ctx, PortfolioItem{TitleEN: "Bridge", Year: 2021})
	require.NoError(t, err)
	_, err = src.Users.Create(ctx, User{Name: "Root", Email: "root@example.com", Role: RoleAdmin, Active: true, Password: "s3cret-pass"})
	require.NoError(t, err)
	_, err = src.Pages.Create(ctx, Page{TitleEN: "About", Status: StatusPublished})
	require.NoError(t, err)
	_, err = src.Invoices.Create(ctx, Invoice{Number: "1", CustomerName: "ACME", Lines: InvoiceLines{{Description: "Gate", Quantity: 1, UnitPrice: 10}}})
	require.NoError(t, err)
	_, err = src.Messages.Create(ctx, ContactMessage{Name: "Ivan", Email: "ivan@example.com", Message: "Hello"})
	require.NoError(t, err)
	require.NoError(t, src.Images.Save(ctx, Image{Filename: "a.jpg"}))
	home := DefaultHomeContent()
	home.About = Text{BG: "За нас", EN: "About"}
	_, err = src.Homepage.Save(ctx, home)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, &buf))
	assert.Contains(t, buf.String(), `"password_hash": "$argon2id$`)

	dst, _ := setupTestStore(t)
	_, err = dst.Listings.Create(ctx, Listing{TitleEN: "Will be replaced"})
	require.NoError(t, err)

	var events []Event
	dst.Bus().Subscribe(func(e Event) { events = append(events, e) })
	require.NoError(t, dst.Import(ctx, bytes.NewReader(buf.Bytes())))
	require.Len(t, events, 1)
	assert.Equal(t, KindAll, events[0].Kind)

	want, err := src.Snapshot(ctx)
	require.NoError(t, err)
	got, err := dst.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.Listings, got.Listings)
	assert.Equal(t, want.BlogPosts, got.BlogPosts)
	assert.Equal(t, want.Portfolio, got.Portfolio)
	assert.Equal(t, want.Users, got.Users)
	assert.Equal(t, want.Pages, got.Pages)
	assert.Equal(t, want.Invoices, got.Invoices)
	assert.Equal(t, want.Messages, got.Messages)
	assert.Equal(t, want.Images, got.Images)
	assert.Equal(t, want.Homepage, got.Homepage)

	_, err = dst.Users.Authenticate(ctx, "root@example.com", "s3cret-pass")
	assert.NoError(t, err)
}

func TestImportIsAtomic(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	_, err := s.Listings.Create(ctx, Listing{TitleEN: "Keep me"})
	require.NoError(t, err)

	doc := `{"version":1,"listings":[
		{"id":"a","slug":"dup","title_en":"A","status":"active","currency":"BGN"},
		{"id":"b","slug":"dup","title_en":"B","status":"active","currency":"BGN"}]}`
	err = s.Import(ctx, strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrConflict)

	all, err := s.Listings.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Keep me", all[0].TitleEN)
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	s, _ := setupTestStore(t)
	err := s.Import(context.Background(), strings.NewReader(`{"version":99}`))
	assert.Error(t, err)
	assert.Error(t, s.Import(context.Background(), strings.NewReader(`not json`)))
}
