package content

import "context"

// Pages is the repository for CMS pages.
type Pages struct{ s *Store }

const pageColumns = `id, slug, title_bg, title_en, body_bg, body_en, meta_description_bg,
	meta_description_en, status, show_in_nav, nav_order, created_at, updated_at`

func scanPage(row interface{ Scan(...any) error }) (Page, error) {
	var p Page
	var nav int
	var created, updated string
	err := row.Scan(&p.ID, &p.Slug, &p.TitleBG, &p.TitleEN, &p.BodyBG, &p.BodyEN,
		&p.MetaDescriptionBG, &p.MetaDescriptionEN, &p.Status, &nav, &p.NavOrder, &created, &updated)
	if err != nil {
		return Page{}, err
	}
	p.ShowInNav = nav == 1
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func (r *Pages) query(ctx context.Context, where string, args ...any) ([]Page, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+pageColumns+` FROM pages `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// List returns every page ordered by slug.
func (r *Pages) List(ctx context.Context) ([]Page, error) {
	return r.query(ctx, `ORDER BY slug`)
}

// ListPublished returns published pages ordered for navigation.
func (r *Pages) ListPublished(ctx context.Context) ([]Page, error) {
	return r.query(ctx, `WHERE status = ? ORDER BY nav_order, slug`, StatusPublished)
}

// Get returns a page by id.
func (r *Pages) Get(ctx context.Context, id string) (Page, error) {
	p, err := scanPage(r.s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = ?`, id))
	return p, mapReadErr(err)
}

// GetBySlug returns a published page by slug.
func (r *Pages) GetBySlug(ctx context.Context, slug string) (Page, error) {
	p, err := scanPage(r.s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM pages WHERE slug = ? AND status = ?`, slug, StatusPublished))
	return p, mapReadErr(err)
}

// Create validates and inserts p.
func (r *Pages) Create(ctx context.Context, p Page) (Page, error) {
	if err := p.normalize(); err != nil {
		return Page{}, err
	}
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt, r.s.now(), true)
	if err := insertPage(ctx, r.s.db, p); err != nil {
		return Page{}, err
	}
	return p, nil
}

func insertPage(ctx context.Context, db execer, p Page) error {
	_, err := db.ExecContext(ctx, `INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.TitleBG, p.TitleEN, p.BodyBG, p.BodyEN, p.MetaDescriptionBG, p.MetaDescriptionEN,
		p.Status, boolInt(p.ShowInNav), p.NavOrder, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return mapWriteErr(err)
}

// Update replaces the mutable fields of page id with p.
func (r *Pages) Update(ctx context.Context, id string, p Page) (Page, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return Page{}, err
	}
	if err := p.normalize(); err != nil {
		return Page{}, err
	}
	p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt, r.s.now(), false)
	err = requireAffected(r.s.db.ExecContext(ctx, `UPDATE pages SET slug = ?, title_bg = ?, title_en = ?,
		body_bg = ?, body_en = ?, meta_description_bg = ?, meta_description_en = ?, status = ?,
		show_in_nav = ?, nav_order = ?, updated_at = ? WHERE id = ?`,
		p.Slug, p.TitleBG, p.TitleEN, p.BodyBG, p.BodyEN, p.MetaDescriptionBG, p.MetaDescriptionEN,
		p.Status, boolInt(p.ShowInNav), p.NavOrder, formatTime(p.UpdatedAt), id))
	if err != nil {
		return Page{}, err
	}
	return p, nil
}

// Delete removes page id.
func (r *Pages) Delete(ctx context.Context, id string) error {
	return requireAffected(r.s.db.ExecContext(ctx, `DELETE FROM pages WHERE id = ?`, id))
}
