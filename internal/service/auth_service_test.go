package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/relation-feed/config"
	"github.com/d60-Lab/relation-feed/internal/model"
	"github.com/d60-Lab/relation-feed/internal/testutil"
)

func newAuth(f *fixture) AuthService {
	return NewAuthService(f.users, config.JWTConfig{Secret: "test-secret", Issuer: "relation-feed", Expire: time.Hour})
}

func TestAuthService_RegisterLogin(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	svc := newAuth(f)
	ctx := context.Background()

	u, token, err := svc.Register(ctx, "alice", "Alice@Example.com", "s3cret", "hi")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.NotEqual(t, "s3cret", u.Password)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, "alice", claims.Username)

	_, _, err = svc.Register(ctx, "alice", "other@example.com", "x", "")
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = svc.Register(ctx, "bob", "alice@example.com", "x", "")
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = svc.Register(ctx, "", "c@example.com", "x", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	logged, token, err := svc.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ParseTokenRejects(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	svc := newAuth(f)
	u := &model.User{ID: "u1", Username: "alice"}

	other := NewAuthService(f.users, config.JWTConfig{Secret: "another", Issuer: "relation-feed", Expire: time.Hour})
	forged, err := other.IssueToken(u)
	require.NoError(t, err)
	_, err = svc.ParseToken(forged)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	expired := NewAuthService(f.users, config.JWTConfig{Secret: "test-secret", Issuer: "relation-feed", Expire: time.Hour}).(*authService)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.IssueToken(u)
	require.NoError(t, err)
	_, err = svc.ParseToken(old)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ParseToken(none)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_Profile(t *testing.T) {
	f := newFixture(t, nil, FeedOptions{})
	svc := NewUserService(f.users, f.follows)
	ctx := context.Background()
	u := testutil.SeedUsers(t, f.db, 3)
	_, err := f.relations.Follow(ctx, u[1], u[0])
	require.NoError(t, err)
	_, err = f.relations.Follow(ctx, u[2], u[0])
	require.NoError(t, err)
	_, err = f.relations.Follow(ctx, u[0], u[1])
	require.NoError(t, err)

	p, err := svc.Profile(ctx, u[0], u[1])
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.FollowersCount)
	assert.Equal(t, int64(1), p.FollowingCount)
	assert.True(t, p.IsFollowing)

	p, err = svc.Profile(ctx, u[0], "")
	require.NoError(t, err)
	assert.False(t, p.IsFollowing)

	_, err = svc.Profile(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
