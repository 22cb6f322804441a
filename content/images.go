package content

import "context"

// Images stores metadata for files in the uploads directory.
type Images struct{ s *Store }

// List returns all images, newest first.
func (r *Images) List(ctx context.Context) ([]Image, error) {
	rows, err := r.s.db.QueryContext(ctx,
		`SELECT filename, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Image
	for rows.Next() {
		var img Image
		var uploaded string
		if err := rows.Scan(&img.Filename, &img.OriginalName, &img.Width, &img.Height, &img.Size, &uploaded); err != nil {
			return nil, err
		}
		img.UploadedAt = parseTime(uploaded)
		out = append(out, img)
	}
	return out, rows.Err()
}

// Exists reports whether filename is already recorded.
func (r *Images) Exists(ctx context.Context, filename string) (bool, error) {
	var n int
	err := r.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE filename = ?`, filename).Scan(&n)
	return n > 0, err
}

// Save records img. The upload time defaults to now.
func (r *Images) Save(ctx context.Context, img Image) error {
	if img.UploadedAt.IsZero() {
		img.UploadedAt = r.s.now().UTC()
	}
	return insertImage(ctx, r.s.db, img)
}

func insertImage(ctx context.Context, db execer, img Image) error {
	_, err := db.ExecContext(ctx, `INSERT INTO images (filename, original_name, width, height, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		img.Filename, img.OriginalName, img.Width, img.Height, img.Size, formatTime(img.UploadedAt))
	return mapWriteErr(err)
}

// Delete removes the metadata of filename.
func (r *Images) Delete(ctx context.Context, filename string) error {
	return requireAffected(r.s.db.ExecContext(ctx, `DELETE FROM images WHERE filename = ?`, filename))
}
