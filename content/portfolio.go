package content

import "context"

// Portfolio is the repository for PortfolioItem records.
type Portfolio struct{ s *Store }

const portfolioColumns = `id, slug, title_bg, title_en, description_bg, description_en, category,
	client, year, image_url, gallery, featured, sort_order, created_at, updated_at`

func scanPortfolioItem(row interface{ Scan(...any) error }) (PortfolioItem, error) {
	var p PortfolioItem
	var featured int
	var created, updated string
	err := row.Scan(&p.ID, &p.Slug, &p.TitleBG, &p.TitleEN, &p.DescriptionBG, &p.DescriptionEN,
		&p.Category, &p.Client, &p.Year, &p.ImageURL, &p.Gallery, &featured, &p.SortOrder,
		&created, &updated)
	if err != nil {
		return PortfolioItem{}, err
	}
	p.Featured = featured == 1
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func (r *Portfolio) query(ctx context.Context, where string, args ...any) ([]PortfolioItem, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+portfolioColumns+` FROM portfolio_items `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PortfolioItem
	for rows.Next() {
		p, err := scanPortfolioItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// List returns every item in public display order: sort order ascending,
// then newest year first.
func (r *Portfolio) List(ctx context.Context) ([]PortfolioItem, error) {
	return r.query(ctx, `ORDER BY sort_order ASC, year DESC, created_at DESC`)
}

// ListFeatured returns up to limit featured items in display order.
func (r *Portfolio) ListFeatured(ctx context.Context, limit int) ([]PortfolioItem, error) {
	return r.query(ctx, `WHERE featured = 1 ORDER BY sort_order ASC, year DESC, created_at DESC LIMIT ?`, limit)
}

// Get returns an item by id.
func (r *Portfolio) Get(ctx context.Context, id string) (PortfolioItem, error) {
	p, err := scanPortfolioItem(r.s.db.QueryRowContext(ctx,
		`SELECT `+portfolioColumns+` FROM portfolio_items WHERE id = ?`, id))
	return p, mapReadErr(err)
}

// GetBySlug returns an item by slug.
func (r *Portfolio) GetBySlug(ctx context.Context, slug string) (PortfolioItem, error) {
	p, err := scanPortfolioItem(r.s.db.QueryRowContext(ctx,
		`SELECT `+portfolioColumns+` FROM portfolio_items WHERE slug = ?`, slug))
	return p, mapReadErr(err)
}

// Create validates and inserts p.
func (r *Portfolio) Create(ctx context.Context, p PortfolioItem) (PortfolioItem, error) {
	if err := p.normalize(); err != nil {
		return PortfolioItem{}, err
	}
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt, r.s.now(), true)
	if err := insertPortfolioItem(ctx, r.s.db, p); err != nil {
		return PortfolioItem{}, err
	}
	return p, nil
}

func insertPortfolioItem(ctx context.Context, db execer, p PortfolioItem) error {
	_, err := db.ExecContext(ctx, `INSERT INTO portfolio_items (`+portfolioColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.TitleBG, p.TitleEN, p.DescriptionBG, p.DescriptionEN, p.Category,
		p.Client, p.Year, p.ImageURL, p.Gallery, boolInt(p.Featured), p.SortOrder,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return mapWriteErr(err)
}

// Update replaces the mutable fields of item id with p.
func (r *Portfolio) Update(ctx context.Context, id string, p PortfolioItem) (PortfolioItem, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return PortfolioItem{}, err
	}
	if err := p.normalize(); err != nil {
		return PortfolioItem{}, err
	}
	p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt, r.s.now(), false)
	err = requireAffected(r.s.db.ExecContext(ctx, `UPDATE portfolio_items SET slug = ?, title_bg = ?,
		title_en = ?, description_bg = ?, description_en = ?, category = ?, client = ?, year = ?,
		image_url = ?, gallery = ?, featured = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		p.Slug, p.TitleBG, p.TitleEN, p.DescriptionBG, p.DescriptionEN, p.Category, p.Client, p.Year,
		p.ImageURL, p.Gallery, boolInt(p.Featured), p.SortOrder, formatTime(p.UpdatedAt), id))
	if err != nil {
		return PortfolioItem{}, err
	}
	return p, nil
}

// Delete removes item id.
func (r *Portfolio) Delete(ctx context.Context, id string) error {
	return requireAffected(r.s.db.ExecContext(ctx, `DELETE FROM portfolio_items WHERE id = ?`, id))
}
