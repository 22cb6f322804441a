package content

import (
	"context"
	"strings"
)

// Listings is the repository for Listing records.
type Listings struct{ s *Store }

const listingColumns = `id, slug, title_bg, title_en, description_bg, description_en, category,
	price, currency, image_url, status, featured, created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }) (Listing, error) {
	var l Listing
	var featured int
	var created, updated string
	err := row.Scan(&l.ID, &l.Slug, &l.TitleBG, &l.TitleEN, &l.DescriptionBG, &l.DescriptionEN,
		&l.Category, &l.Price, &l.Currency, &l.ImageURL, &l.Status, &featured, &created, &updated)
	if err != nil {
		return Listing{}, err
	}
	l.Featured = featured == 1
	l.CreatedAt = parseTime(created)
	l.UpdatedAt = parseTime(updated)
	return l, nil
}

func (r *Listings) query(ctx context.Context, where string, args ...any) ([]Listing, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+listingColumns+` FROM listings `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// List returns every listing, newest first.
func (r *Listings) List(ctx context.Context) ([]Listing, error) {
	return r.query(ctx, `ORDER BY created_at DESC`)
}

// ListActive returns active listings for the public site, featured first.
// A non-empty category narrows the result, ignoring case.
func (r *Listings) ListActive(ctx context.Context, category string) ([]Listing, error) {
	if category = strings.TrimSpace(category); category != "" {
		return r.query(ctx, `WHERE status = ? AND lower(category) = lower(?) ORDER BY featured DESC, created_at DESC`, StatusActive, category)
	}
	return r.query(ctx, `WHERE status = ? ORDER BY featured DESC, created_at DESC`, StatusActive)
}

// Get returns a listing by id.
func (r *Listings) Get(ctx context.Context, id string) (Listing, error) {
	l, err := scanListing(r.s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id))
	return l, mapReadErr(err)
}

// GetBySlug returns an active listing by slug.
func (r *Listings) GetBySlug(ctx context.Context, slug string) (Listing, error) {
	l, err := scanListing(r.s.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE slug = ? AND status = ?`, slug, StatusActive))
	return l, mapReadErr(err)
}

// Create validates and inserts l, assigning its id and timestamps.
func (r *Listings) Create(ctx context.Context, l Listing) (Listing, error) {
	if err := l.normalize(); err != nil {
		return Listing{}, err
	}
	stamp(&l.ID, &l.CreatedAt, &l.UpdatedAt, r.s.now(), true)
	if err := insertListing(ctx, r.s.db, l); err != nil {
		return Listing{}, err
	}
	return l, nil
}

func insertListing(ctx context.Context, db execer, l Listing) error {
	_, err := db.ExecContext(ctx, `INSERT INTO listings (`+listingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Slug, l.TitleBG, l.TitleEN, l.DescriptionBG, l.DescriptionEN, l.Category,
		l.Price, l.Currency, l.ImageURL, l.Status, boolInt(l.Featured),
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	return mapWriteErr(err)
}

// Update replaces the mutable fields of listing id with l.
func (r *Listings) Update(ctx context.Context, id string, l Listing) (Listing, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}
	if err := l.normalize(); err != nil {
		return Listing{}, err
	}
	l.ID, l.CreatedAt = existing.ID, existing.CreatedAt
	stamp(&l.ID, &l.CreatedAt, &l.UpdatedAt, r.s.now(), false)
	err = requireAffected(r.s.db.ExecContext(ctx, `UPDATE listings SET slug = ?, title_bg = ?, title_en = ?,
		description_bg = ?, description_en = ?, category = ?, price = ?, currency = ?, image_url = ?,
		status = ?, featured = ?, updated_at = ? WHERE id = ?`,
		l.Slug, l.TitleBG, l.TitleEN, l.DescriptionBG, l.DescriptionEN, l.Category, l.Price,
		l.Currency, l.ImageURL, l.Status, boolInt(l.Featured), formatTime(l.UpdatedAt), id))
	if err != nil {
		return Listing{}, err
	}
	return l, nil
}

// Delete removes listing id.
func (r *Listings) Delete(ctx context.Context, id string) error {
	return requireAffected(r.s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id))
}

// Categories returns the distinct categories of active listings.
func (r *Listings) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.s.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM listings WHERE status = ? AND category != '' ORDER BY category`, StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
