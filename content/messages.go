package content

import (
	"context"
	"time"
)

// Messages stores contact form submissions.
type Messages struct{ s *Store }

const messageColumns = `id, name, email, phone, message, lang, read, created_at`

func scanMessage(row interface{ Scan(...any) error }) (ContactMessage, error) {
	var m ContactMessage
	var read int
	var created string
	if err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &m.Message, &m.Lang, &read, &created); err != nil {
		return ContactMessage{}, err
	}
	m.Read = read == 1
	m.CreatedAt = parseTime(created)
	return m, nil
}

// List returns messages newest first.
func (r *Messages) List(ctx context.Context) ([]ContactMessage, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM contact_messages ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContactMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Get returns a message by id.
func (r *Messages) Get(ctx context.Context, id string) (ContactMessage, error) {
	m, err := scanMessage(r.s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM contact_messages WHERE id = ?`, id))
	return m, mapReadErr(err)
}

// Create validates and stores a submission.
func (r *Messages) Create(ctx context.Context, m ContactMessage) (ContactMessage, error) {
	if err := m.normalize(); err != nil {
		return ContactMessage{}, err
	}
	var unused time.Time
	stamp(&m.ID, &m.CreatedAt, &unused, r.s.now(), true)
	m.Read = false
	if err := insertMessage(ctx, r.s.db, m); err != nil {
		return ContactMessage{}, err
	}
	return m, nil
}

func insertMessage(ctx context.Context, db execer, m ContactMessage) error {
	_, err := db.ExecContext(ctx, `INSERT INTO contact_messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Phone, m.Message, m.Lang, boolInt(m.Read), formatTime(m.CreatedAt))
	return mapWriteErr(err)
}

// MarkRead flags message id as read.
func (r *Messages) MarkRead(ctx context.Context, id string, read bool) error {
	return requireAffected(r.s.db.ExecContext(ctx, `UPDATE contact_messages SET read = ? WHERE id = ?`,
		boolInt(read), id))
}

// Delete removes message id.
func (r *Messages) Delete(ctx context.Context, id string) error {
	return requireAffected(r.s.db.ExecContext(ctx, `DELETE FROM contact_messages WHERE id = ?`, id))
}
