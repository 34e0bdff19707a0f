package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kochabx/passport/core/auth/session"
	"github.com/kochabx/passport/store/db"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	client, err := db.New(&db.SQLiteConfig{FilePath: filepath.Join(t.TempDir(), "passport.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, AutoMigrate(context.Background(), client.DB()))
	return client.DB()
}

func newUser(name string) *session.User {
	return &session.User{
		ID:           uuid.NewString(),
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		IsActive:     true,
	}
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(userID, token string, created time.Time, ttl time.Duration) *session.Session {
	return &session.Session{
		SessionToken: token,
		UserID:       userID,
		RefreshToken: "refresh-" + token,
		ExpiresAt:    created.Add(ttl),
		CreatedAt:    created,
		LastActivity: created,
		IsActive:     true,
	}
}

func TestUsersCreateDuplicate(t *testing.T) {
	users := NewUsers(newDB(t))
	ctx := context.Background()

	alice := newUser("alice")
	require.NoError(t, users.Create(ctx, alice))

	sameName := newUser("alice")
	sameName.Email = "other@example.com"
	assert.ErrorIs(t, users.Create(ctx, sameName), session.ErrDuplicateUsername)

	sameEmail := newUser("bob")
	sameEmail.Email = alice.Email
	assert.ErrorIs(t, users.Create(ctx, sameEmail), session.ErrDuplicateEmail)
}

func TestUsersFindAndExists(t *testing.T) {
	users := NewUsers(newDB(t))
	ctx := context.Background()

	alice := newUser("alice")
	require.NoError(t, users.Create(ctx, alice))

	got, err := users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.LastLogin)

	got, err = users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = users.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrUserNotFound)

	ok, err := users.ExistsUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = users.ExistsEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUsersUpdates(t *testing.T) {
	users := NewUsers(newDB(t))
	ctx := context.Background()

	alice := newUser("alice")
	bob := newUser("bob")
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, bob))

	require.NoError(t, users.UpdateLastLogin(ctx, alice.ID, base))
	require.NoError(t, users.UpdatePassword(ctx, alice.ID, "new-hash"))
	require.NoError(t, users.UpdateProfile(ctx, alice.ID, "Alice A.", ""))

	got, err := users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, base.Equal(*got.LastLogin))
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Equal(t, "Alice A.", got.FullName)
	assert.Equal(t, alice.Email, got.Email)

	assert.ErrorIs(t, users.UpdateProfile(ctx, alice.ID, "", bob.Email), session.ErrDuplicateEmail)
	assert.ErrorIs(t, users.UpdateProfile(ctx, "missing", "", ""), session.ErrUserNotFound)
	assert.ErrorIs(t, users.UpdatePassword(ctx, "missing", "x"), session.ErrUserNotFound)

	require.NoError(t, users.Deactivate(ctx, alice.ID))
	got, err = users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestSessionsListActiveOrder(t *testing.T) {
	sessions := NewSessions(newDB(t))
	ctx := context.Background()

	for i, tok := range []string{"a", "b", "c"} {
		require.NoError(t, sessions.Create(ctx, newSession("u-1", tok, base.Add(time.Duration(i)*time.Second), time.Hour)))
	}
	require.NoError(t, sessions.Create(ctx, newSession("u-2", "other", base, time.Hour)))

	got, err := sessions.ListActive(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].SessionToken)
	assert.Equal(t, "a", got[2].SessionToken)
	assert.NotZero(t, got[0].ID)
}

func TestSessionsFindByRefreshToken(t *testing.T) {
	sessions := NewSessions(newDB(t))
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, newSession("u-1", "a", base, time.Hour)))

	got, err := sessions.FindByRefreshToken(ctx, "refresh-a", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "a", got.SessionToken)

	_, err = sessions.FindByRefreshToken(ctx, "refresh-a", base.Add(2*time.Hour))
	assert.ErrorIs(t, err, session.ErrSessionNotFound, "expired rows never match")

	_, err = sessions.DeactivateByToken(ctx, "a")
	require.NoError(t, err)
	_, err = sessions.FindByRefreshToken(ctx, "refresh-a", base.Add(time.Minute))
	assert.ErrorIs(t, err, session.ErrSessionNotFound, "inactive rows never match")
}

func TestSessionsUpdateRefreshToken(t *testing.T) {
	sessions := NewSessions(newDB(t))
	ctx := context.Background()

	s := newSession("u-1", "a", base, time.Hour)
	require.NoError(t, sessions.Create(ctx, s))

	at := base.Add(time.Minute)
	require.NoError(t, sessions.UpdateRefreshToken(ctx, s.ID, "refresh-a2", at))

	got, err := sessions.FindByToken(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "refresh-a2", got.RefreshToken)
	assert.True(t, at.Equal(got.LastActivity))
	assert.True(t, s.ExpiresAt.Equal(got.ExpiresAt))

	_, err = sessions.Deactivate(ctx, s.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, sessions.UpdateRefreshToken(ctx, s.ID, "refresh-a3", at), session.ErrSessionNotFound)
}

func TestSessionsTouch(t *testing.T) {
	sessions := NewSessions(newDB(t))
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, newSession("u-1", "a", base, time.Hour)))
	at := base.Add(10 * time.Minute)
	require.NoError(t, sessions.Touch(ctx, "a", at))
	require.NoError(t, sessions.Touch(ctx, "missing", at))

	got, err := sessions.FindByToken(ctx, "a")
	require.NoError(t, err)
	assert.True(t, at.Equal(got.LastActivity))
}

func TestSessionsDeactivateIdempotent(t *testing.T) {
	sessions := NewSessions(newDB(t))
	ctx := context.Background()

	a := newSession("u-1", "a", base, time.Hour)
	b := newSession("u-1", "b", base, time.Hour)
	require.NoError(t, sessions.Create(ctx, a))
	require.NoError(t, sessions.Create(ctx, b))

	n, err := sessions.Deactivate(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = sessions.Deactivate(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = sessions.Deactivate(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionsDeactivateByToken(t *testing.T) {
	sessions := NewSessions(newDB(t))
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, newSession("u-1", "a", base, time.Hour)))

	flipped, err := sessions.DeactivateByToken(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, flipped)
	assert.Equal(t, "u-1", flipped.UserID)
	assert.False(t, flipped.IsActive)

	flipped, err = sessions.DeactivateByToken(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, flipped)

	flipped, err = sessions.DeactivateByToken(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, flipped)
}

func TestSessionsDeactivateAll(t *testing.T) {
	sessions := NewSessions(newDB(t))
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, newSession("u-1", "a", base, time.Hour)))
	require.NoError(t, sessions.Create(ctx, newSession("u-1", "b", base, time.Hour)))
	require.NoError(t, sessions.Create(ctx, newSession("u-2", "c", base, time.Hour)))

	tokens, err := sessions.DeactivateAll(ctx, "u-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, tokens)

	active, err := sessions.ListActive(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	active, err = sessions.ListActive(ctx, "u-2")
	require.NoError(t, err)
	assert.Len(t, active, 1)

	tokens, err = sessions.DeactivateAll(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestSessionsDeactivateExpired(t *testing.T) {
	sessions := NewSessions(newDB(t))
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, newSession("u-1", "short", base, time.Minute)))
	require.NoError(t, sessions.Create(ctx, newSession("u-1", "long", base, time.Hour)))
	gone := newSession("u-1", "gone", base, time.Minute)
	require.NoError(t, sessions.Create(ctx, gone))
	_, err := sessions.Deactivate(ctx, gone.ID)
	require.NoError(t, err)

	n, err := sessions.DeactivateExpired(ctx, base.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	active, err := sessions.ListActive(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "long", active[0].SessionToken)
}

func TestSessionsUniqueToken(t *testing.T) {
	sessions := NewSessions(newDB(t))
	ctx := context.Background()

	require.NoError(t, sessions.Create(ctx, newSession("u-1", "a", base, time.Hour)))
	assert.ErrorIs(t, sessions.Create(ctx, newSession("u-1", "a", base, time.Hour)), gorm.ErrDuplicatedKey)
}
