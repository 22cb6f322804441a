package content

import (
	"context"
	"fmt"
	"strings"
)

// Users is the repository for admin accounts.
type Users struct{ s *Store }

const userColumns = `id, name, email, role, active, password_hash, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var active int
	var lastLogin, created, updated string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &active, &u.PasswordHash, &lastLogin, &created, &updated)
	if err != nil {
		return User{}, err
	}
	u.Active = active == 1
	u.LastLoginAt = parseTime(lastLogin)
	u.CreatedAt = parseTime(created)
	u.UpdatedAt = parseTime(updated)
	return u, nil
}

// List returns every user ordered by name.
func (r *Users) List(ctx context.Context) ([]User, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Get returns a user by id.
func (r *Users) Get(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	return u, mapReadErr(err)
}

// GetByEmail returns a user by email, ignoring case.
func (r *Users) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
	return u, mapReadErr(err)
}

// Create validates u, hashes its password and inserts it.
func (r *Users) Create(ctx context.Context, u User) (User, error) {
	if err := u.normalize(true); err != nil {
		return User{}, err
	}
	hash, err := HashPassword(u.Password)
	if err != nil {
		return User{}, err
	}
	u.Password, u.PasswordHash = "", hash
	stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt, r.s.now(), true)
	if err := insertUser(ctx, r.s.db, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func insertUser(ctx context.Context, db execer, u User) error {
	_, err := db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Role, boolInt(u.Active), u.PasswordHash, formatTime(u.LastLoginAt),
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	return mapWriteErr(err)
}

// Update replaces the mutable fields of user id. A blank password keeps the
// current hash. Demoting or deactivating the last active admin is refused.
func (r *Users) Update(ctx context.Context, id string, u User) (User, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := u.normalize(false); err != nil {
		return User{}, err
	}
	if existing.IsAdmin() && existing.Active && (!u.IsAdmin() || !u.Active) {
		if err := r.ensureOtherAdmin(ctx, id); err != nil {
			return User{}, err
		}
	}
	u.PasswordHash = existing.PasswordHash
	if u.Password != "" {
		if u.PasswordHash, err = HashPassword(u.Password); err != nil {
			return User{}, err
		}
	}
	u.Password = ""
	u.ID, u.CreatedAt, u.LastLoginAt = existing.ID, existing.CreatedAt, existing.LastLoginAt
	stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt, r.s.now(), false)
	err = requireAffected(r.s.db.ExecContext(ctx, `UPDATE users SET name = ?, email = ?, role = ?, active = ?,
		password_hash = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.Email, u.Role, boolInt(u.Active), u.PasswordHash, formatTime(u.UpdatedAt), id))
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Delete removes user id, refusing to remove the last active admin.
func (r *Users) Delete(ctx context.Context, id string) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsAdmin() && existing.Active {
		if err := r.ensureOtherAdmin(ctx, id); err != nil {
			return err
		}
	}
	return requireAffected(r.s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id))
}

func (r *Users) ensureOtherAdmin(ctx context.Context, id string) error {
	var n int
	err := r.s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = ? AND active = 1 AND id != ?`,
		RoleAdmin, id).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: at least one active admin must remain", ErrConflict)
	}
	return nil
}

// Authenticate checks email and password against an active account and
// records the login time.
func (r *Users) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		if err == ErrNotFound {
			// Burn comparable time so unknown emails are not distinguishable.
			_, _ = CheckPassword(password, dummyHash)
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	ok, err := CheckPassword(password, u.PasswordHash)
	if err != nil || !ok || !u.Active {
		return User{}, ErrInvalidCredentials
	}
	u.LastLoginAt = r.s.now().UTC()
	if _, err := r.s.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`,
		formatTime(u.LastLoginAt), u.ID); err != nil {
		return User{}, err
	}
	return u, nil
}

// EnsureAdmin creates an admin account with the given credentials unless a
// user with that email already exists. It reports whether one was created.
func (r *Users) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	if _, err := r.GetByEmail(ctx, email); err == nil {
		return false, nil
	} else if err != ErrNotFound {
		return false, err
	}
	_, err := r.Create(ctx, User{Name: name, Email: email, Role: RoleAdmin, Active: true, Password: password})
	return err == nil, err
}

// dummyHash is a valid hash of a random string.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$c29tZXNhbHRzb21lc2FsdA$0vhKxHh7zW3N3p5sV6l2mH9Y3sJ8Yy0Jm3JxH7bX0hU"
