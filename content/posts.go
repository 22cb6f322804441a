package content

import (
	"context"
	"sort"
	"strings"
)

// Posts is the repository for BlogPost records.
type Posts struct{ s *Store }

const postColumns = `id, slug, title_bg, title_en, summary_bg, summary_en, content_bg, content_en,
	tags, author, cover_image, status, publish_on, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (BlogPost, error) {
	var p BlogPost
	var created, updated string
	err := row.Scan(&p.ID, &p.Slug, &p.TitleBG, &p.TitleEN, &p.SummaryBG, &p.SummaryEN,
		&p.ContentBG, &p.ContentEN, &p.Tags, &p.Author, &p.CoverImage, &p.Status, &p.PublishOn,
		&created, &updated)
	if err != nil {
		return BlogPost{}, err
	}
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return p, nil
}

func (r *Posts) query(ctx context.Context, where string, args ...any) ([]BlogPost, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM blog_posts `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// List returns every post, drafts included, newest publish date first.
func (r *Posts) List(ctx context.Context) ([]BlogPost, error) {
	return r.query(ctx, `ORDER BY publish_on DESC, created_at DESC`)
}

// ListPublished returns the posts visible today, newest first. If tag is
// non-empty, results are filtered to posts carrying that tag.
func (r *Posts) ListPublished(ctx context.Context, tag string) ([]BlogPost, error) {
	today := r.s.Today().String()
	if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
		return r.query(ctx, `WHERE status = ? AND publish_on <= ? AND instr(tags, ',' || ? || ',') > 0
			ORDER BY publish_on DESC, created_at DESC`, StatusPublished, today, tag)
	}
	return r.query(ctx, `WHERE status = ? AND publish_on <= ? ORDER BY publish_on DESC, created_at DESC`,
		StatusPublished, today)
}

// Tags returns a sorted, deduplicated slice of all tags on visible posts.
func (r *Posts) Tags(ctx context.Context) ([]string, error) {
	posts, err := r.ListPublished(ctx, "")
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, p := range posts {
		for _, t := range p.Tags {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Get returns a post by id regardless of status.
func (r *Posts) Get(ctx context.Context, id string) (BlogPost, error) {
	p, err := scanPost(r.s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE id = ?`, id))
	return p, mapReadErr(err)
}

// GetBySlug returns a post by slug only when it is visible today.
func (r *Posts) GetBySlug(ctx context.Context, slug string) (BlogPost, error) {
	p, err := scanPost(r.s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM blog_posts WHERE slug = ? AND status = ? AND publish_on <= ?`,
		slug, StatusPublished, r.s.Today().String()))
	return p, mapReadErr(err)
}

// Create validates and inserts p.
func (r *Posts) Create(ctx context.Context, p BlogPost) (BlogPost, error) {
	if err := p.normalize(r.s.Today()); err != nil {
		return BlogPost{}, err
	}
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt, r.s.now(), true)
	if err := insertPost(ctx, r.s.db, p); err != nil {
		return BlogPost{}, err
	}
	return p, nil
}

func insertPost(ctx context.Context, db execer, p BlogPost) error {
	_, err := db.ExecContext(ctx, `INSERT INTO blog_posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, p.TitleBG, p.TitleEN, p.SummaryBG, p.SummaryEN, p.ContentBG, p.ContentEN,
		p.Tags, p.Author, p.CoverImage, p.Status, p.PublishOn,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return mapWriteErr(err)
}

// Update replaces the mutable fields of post id with p.
func (r *Posts) Update(ctx context.Context, id string, p BlogPost) (BlogPost, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return BlogPost{}, err
	}
	if err := p.normalize(r.s.Today()); err != nil {
		return BlogPost{}, err
	}
	p.ID, p.CreatedAt = existing.ID, existing.CreatedAt
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt, r.s.now(), false)
	err = requireAffected(r.s.db.ExecContext(ctx, `UPDATE blog_posts SET slug = ?, title_bg = ?, title_en = ?,
		summary_bg = ?, summary_en = ?, content_bg = ?, content_en = ?, tags = ?, author = ?,
		cover_image = ?, status = ?, publish_on = ?, updated_at = ? WHERE id = ?`,
		p.Slug, p.TitleBG, p.TitleEN, p.SummaryBG, p.SummaryEN, p.ContentBG, p.ContentEN, p.Tags,
		p.Author, p.CoverImage, p.Status, p.PublishOn, formatTime(p.UpdatedAt), id))
	if err != nil {
		return BlogPost{}, err
	}
	return p, nil
}

// Delete removes post id.
func (r *Posts) Delete(ctx context.Context, id string) error {
	return requireAffected(r.s.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = ?`, id))
}

// PublishDue promotes scheduled posts whose publish date has arrived and
// returns how many were published.
func (r *Posts) PublishDue(ctx context.Context) (int, error) {
	res, err := r.s.db.ExecContext(ctx,
		`UPDATE blog_posts SET status = ?, updated_at = ? WHERE status = ? AND publish_on <= ?`,
		StatusPublished, formatTime(r.s.now()), StatusScheduled, r.s.Today().String())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.s.publish(KindBlogPosts, OpUpdate, "")
	}
	return int(n), nil
}

// Related returns up to limit visible posts sharing at least one tag with p.
func Related(p BlogPost, posts []BlogPost, limit int) []BlogPost {
	var out []BlogPost
	for _, other := range posts {
		if other.ID == p.ID {
			continue
		}
		for _, t := range other.Tags {
			if p.Tags.Contains(t) {
				out = append(out, other)
				break
			}
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
