package content

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonBinder decodes a JSON document, the way the API binds request bodies.
func jsonBinder(doc string) Binder {
	return func(v any) error { return json.Unmarshal([]byte(doc), v) }
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseKind(" Blog-Posts ")
	require.NoError(t, err)
	assert.Equal(t, KindBlogPosts, got)

	for _, bad := range []string{"", "invoices", "messages", "posts", "*"} {
		_, err := ParseKind(bad)
		assert.ErrorIs(t, err, ErrUnknownKind, bad)
	}
}

func TestDispatcherRoutesEveryKind(t *testing.T) {
	s, _ := setupTestStore(t)
	d := NewDispatcher(s)

	for _, k := range Kinds() {
		c, err := d.Collection(k)
		require.NoError(t, err)
		assert.Equal(t, k, c.Kind())
		assert.NotEmpty(t, c.Fields())
	}
	_, err := d.Collection(KindInvoices)
	assert.ErrorIs(t, err, ErrUnknownKind)

	inv, err := d.Lookup("invoices")
	require.NoError(t, err)
	assert.Equal(t, KindInvoices, inv.Kind())
	_, err = d.Lookup("messages")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCollectionCRUDPublishesEvents(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	d := NewDispatcher(s)
	c, err := d.Collection(KindListings)
	require.NoError(t, err)

	var events []Event
	unsubscribe := s.Bus().Subscribe(func(e Event) { events = append(events, e) })
	defer unsubscribe()

	item, err := c.Create(ctx, jsonBinder(`{"title_en":"Spiral stairs","price":2500,"status":"active"}`))
	require.NoError(t, err)
	l := item.(Listing)
	assert.Equal(t, "spiral-stairs", l.Slug)

	_, err = c.Update(ctx, l.ID, jsonBinder(`{"title_en":"Spiral staircase","slug":"spiral-stairs","price":2700}`))
	require.NoError(t, err)
	got, err := c.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, "Spiral staircase", got.Label(LangBG), "falls back to English")
	assert.Equal(t, StatusDraft, got.(Listing).Status, "update replaces all mutable fields")

	require.NoError(t, c.Delete(ctx, l.ID))
	assert.ErrorIs(t, c.Delete(ctx, l.ID), ErrNotFound)

	require.Len(t, events, 3)
	assert.Equal(t, []Op{OpCreate, OpUpdate, OpDelete}, []Op{events[0].Op, events[1].Op, events[2].Op})
	for _, e := range events {
		assert.Equal(t, KindListings, e.Kind)
		assert.Equal(t, l.ID, e.ID)
		assert.True(t, e.Local())
	}
}

func TestCollectionCreateAssignsID(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	c, err := NewDispatcher(s).Collection(KindListings)
	require.NoError(t, err)

	item, err := c.Create(ctx, jsonBinder(`{"id":"my-own-id","title_en":"Gate"}`))
	require.NoError(t, err)
	assert.NotEqual(t, "my-own-id", item.ItemID())
	assert.NotEmpty(t, item.ItemID())

	_, err = c.Get(ctx, "my-own-id")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := c.Get(ctx, item.ItemID())
	require.NoError(t, err)
	assert.Equal(t, "Gate", got.Label(LangEN))
}

func TestCollectionFailedWritesDoNotPublish(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	c, err := NewDispatcher(s).Collection(KindPages)
	require.NoError(t, err)

	published := 0
	s.Bus().Subscribe(func(Event) { published++ })

	_, err = c.Create(ctx, jsonBinder(`{}`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	bindErr := errors.New("bad input")
	_, err = c.Create(ctx, func(any) error { return bindErr })
	assert.ErrorIs(t, err, bindErr)

	_, err = c.Update(ctx, "missing", jsonBinder(`{"title_en":"x"}`))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, published)
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	c, err := NewDispatcher(s).Collection(KindBlogPosts)
	require.NoError(t, err)

	for _, doc := range []string{
		`{"title_bg":"Заваряване на алуминий","title_en":"Welding aluminium","tags":["tig"]}`,
		`{"title_en":"Painting & coating","summary_en":"Powder <b>coat</b>"}`,
		`{"title_en":"Gate automation","author":"Petar"}`,
	} {
		_, err := c.Create(ctx, jsonBinder(doc))
		require.NoError(t, err)
	}

	cases := map[string]int{
		"":            3,
		"WELDING":     1,
		"АЛУМИНИЙ":    1,
		"petar":       1,
		"& coating":   1,
		"<b>coat</b>": 1,
		"draft":       3,
		"nothing":     0,
	}
	for q, want := range cases {
		got, err := c.Search(ctx, q)
		require.NoError(t, err)
		assert.Len(t, got, want, "query %q", q)
	}
}

func TestSearchSkipsPasswordHashes(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	c, err := NewDispatcher(s).Collection(KindUsers)
	require.NoError(t, err)

	_, err = c.Create(ctx, jsonBinder(`{"name":"Maria","email":"maria@example.com","password":"s3cret-pass"}`))
	require.NoError(t, err)

	hits, err := c.Search(ctx, "argon2id")
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = c.Search(ctx, "s3cret")
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = c.Search(ctx, "MARIA@")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestValuesRoundTripsFormFields(t *testing.T) {
	p := BlogPost{
		TitleEN:   "Post",
		Tags:      List{"a", "b"},
		PublishOn: Date{mustDate(t, "2024-03-01").Time},
		Status:    StatusPublished,
	}
	v := Values(p)
	assert.Equal(t, "Post", v["title_en"])
	assert.Equal(t, "a, b", v["tags"])
	assert.Equal(t, "2024-03-01", v["publish_on"])
	assert.NotContains(t, v, "id")

	u := Values(&User{Name: "x", Password: "secret", Active: true})
	assert.NotContains(t, u, "password")
	assert.Equal(t, "true", u["active"])
}

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}
