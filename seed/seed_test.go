package seed

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/metalworks/content"
)

func openStore(t *testing.T) *content.Store {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	s, err := content.Open(filepath.Join(t.TempDir(), "site.db"), content.WithClock(now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadBundledFixtures(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	res, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 3, res.Created[content.KindListings])
	assert.Equal(t, 2, res.Created[content.KindBlogPosts])
	assert.Equal(t, 2, res.Created[content.KindPortfolio])
	assert.Equal(t, 1, res.Created[content.KindPages])
	assert.Equal(t, 1, res.Created[content.KindHomepage])

	active, err := s.Listings.ListActive(ctx, "")
	require.NoError(t, err)
	assert.Len(t, active, 3)

	posts, err := s.Posts.ListPublished(ctx, "guides")
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	home, err := s.Homepage.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Custom metal structures", home.Hero.Title.EN)
	assert.Len(t, home.Services, 3)
}

func TestLoadIsIdempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := Load(ctx, s)
	require.NoError(t, err)
	res, err := Load(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Skipped, 5)

	all, err := s.Listings.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLoadFSRejectsInvalidRecords(t *testing.T) {
	s := openStore(t)
	fsys := fstest.MapFS{
		"data/listings.yaml": {Data: []byte("- title_en: Gate\n  price: -5\n")},
	}
	_, err := LoadFS(context.Background(), s, fsys, "data")
	require.Error(t, err)
	var ve *content.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "price", ve.Field)
}

func TestLoadFSUnknownKind(t *testing.T) {
	s := openStore(t)
	fsys := fstest.MapFS{
		"data/widgets.yaml": {Data: []byte("- name: x\n")},
	}
	_, err := LoadFS(context.Background(), s, fsys, "data")
	assert.ErrorIs(t, err, content.ErrUnknownKind)
}
