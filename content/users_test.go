package content

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := CheckPassword("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword("wrong horse", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("x", "plain")
	assert.Error(t, err)

	ok, err = CheckPassword("anything", dummyHash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserCreateHashesPassword(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	u, err := s.Users.Create(ctx, User{Name: "Maria", Email: " Maria@Example.COM ", Password: "s3cret-pass", Active: true})
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", u.Email)
	assert.Equal(t, RoleEditor, u.Role)
	assert.Empty(t, u.Password)
	assert.NotEmpty(t, u.PasswordHash)

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "argon2id")
	assert.NotContains(t, string(b), "password")

	_, err = s.Users.Create(ctx, User{Name: "Maria 2", Email: "maria@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "content: conflict: email already in use")

	_, err = s.Users.Create(ctx, User{Name: "Short", Email: "short@example.com", Password: "short"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)
}

func TestUserUpdateKeepsHashWhenPasswordBlank(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	u, err := s.Users.Create(ctx, User{Name: "Maria", Email: "maria@example.com", Password: "s3cret-pass", Active: true})
	require.NoError(t, err)

	_, err = s.Users.Update(ctx, u.ID, User{Name: "Maria P.", Email: u.Email, Active: true})
	require.NoError(t, err)
	_, err = s.Users.Authenticate(ctx, u.Email, "s3cret-pass")
	require.NoError(t, err)

	_, err = s.Users.Update(ctx, u.ID, User{Name: "Maria P.", Email: u.Email, Active: true, Password: "new-password"})
	require.NoError(t, err)
	_, err = s.Users.Authenticate(ctx, u.Email, "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	got, err := s.Users.Authenticate(ctx, u.Email, "new-password")
	require.NoError(t, err)
	assert.False(t, got.LastLoginAt.IsZero())
}

func TestAuthenticate(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := s.Users.Create(ctx, User{Name: "Off", Email: "off@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	_, err = s.Users.Authenticate(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Users.Authenticate(ctx, "off@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "inactive accounts cannot log in")
}

func TestLastActiveAdminIsProtected(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	admin, err := s.Users.Create(ctx, User{Name: "Root", Email: "root@example.com", Role: RoleAdmin, Active: true, Password: "s3cret-pass"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Users.Delete(ctx, admin.ID), ErrConflict)
	_, err = s.Users.Update(ctx, admin.ID, User{Name: "Root", Email: admin.Email, Role: RoleEditor, Active: true})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = s.Users.Update(ctx, admin.ID, User{Name: "Root", Email: admin.Email, Role: RoleAdmin, Active: false})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.Users.Create(ctx, User{Name: "Second", Email: "second@example.com", Role: RoleAdmin, Active: true, Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.NoError(t, s.Users.Delete(ctx, admin.ID))
}

func TestEnsureAdmin(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	created, err := s.Users.EnsureAdmin(ctx, "Admin", "admin@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Users.EnsureAdmin(ctx, "Admin", "ADMIN@example.com", "other-pass")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := s.Users.Authenticate(ctx, "admin@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
}
