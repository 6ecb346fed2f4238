package authService

import (
	"context"
	"testing"
	"time"

	"github.com/cryptofolio/backend/config"
	"github.com/cryptofolio/backend/data/repository"
	"github.com/cryptofolio/backend/internal/model"
	"github.com/cryptofolio/backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	users  map[string]model.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]model.User{}, nextID: 1}
}

func (r *fakeUserRepo) InsertUser(_ context.Context, email, passwordHash string) (int64, error) {
	if _, ok := r.users[email]; ok {
		return 0, repository.ErrAlreadyExists
	}
	id := r.nextID
	r.nextID++
	r.users[email] = model.User{ID: id, Email: email, PasswordHash: passwordHash}
	return id, nil
}

func (r *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	user, ok := r.users[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return user, nil
}

type fakeTokenCache struct {
	revoked map[string]bool
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{revoked: map[string]bool{}}
}

func (c *fakeTokenCache) RevokeToken(_ context.Context, tokenID string, _ time.Duration) error {
	c.revoked[tokenID] = true
	return nil
}

func (c *fakeTokenCache) IsTokenRevoked(_ context.Context, tokenID string) (bool, error) {
	return c.revoked[tokenID], nil
}

func newTestService() (*AuthService, *fakeUserRepo, *fakeTokenCache) {
	cfg := &config.Config{}
	cfg.Auth.JwtSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour

	repo := newFakeUserRepo()
	tokenCache := newFakeTokenCache()
	return New(cfg, repo, tokenCache), repo, tokenCache
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a hashed password", func(t *testing.T) {
		svc, repo, _ := newTestService()

		userID, err := svc.Register(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, int64(1), userID)

		user := repo.users["alice@example.com"]
		assert.NotEqual(t, "correct horse", user.PasswordHash)
	})

	t.Run("rejects duplicate emails", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Register(ctx, "alice@example.com", "pw-one-long")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "alice@example.com", "pw-two-long")
		assert.ErrorIs(t, err, service.ErrUserAlreadyExists)
	})
}

func TestLoginAndVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("issued token verifies back to the user", func(t *testing.T) {
		svc, _, _ := newTestService()

		userID, err := svc.Register(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)

		token, err := svc.Login(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)
		assert.NotEmpty(t, token.AccessToken)
		assert.True(t, token.ExpiresAt.After(time.Now()))

		claims, err := svc.Verify(ctx, token.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Register(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)

		_, err = svc.Login(ctx, "alice@example.com", "wrong horse")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("rejects an unknown email", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Login(ctx, "nobody@example.com", "whatever-pw")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		svc, _, _ := newTestService()

		otherCfg := &config.Config{}
		otherCfg.Auth.JwtSecret = "other-secret"
		otherCfg.Auth.TokenTTL = time.Hour
		other := New(otherCfg, newFakeUserRepo(), newFakeTokenCache())

		_, err := other.Register(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)
		token, err := other.Login(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)

		_, err = svc.Verify(ctx, token.AccessToken)
		assert.ErrorIs(t, err, service.ErrInvalidToken)
	})

	t.Run("rejects garbage tokens", func(t *testing.T) {
		svc, _, _ := newTestService()

		_, err := svc.Verify(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, service.ErrInvalidToken)
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked token no longer verifies", func(t *testing.T) {
		svc, _, tokenCache := newTestService()

		_, err := svc.Register(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)
		token, err := svc.Login(ctx, "alice@example.com", "correct horse")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, token.AccessToken))
		assert.Len(t, tokenCache.revoked, 1)

		_, err = svc.Verify(ctx, token.AccessToken)
		assert.ErrorIs(t, err, service.ErrTokenRevoked)
	})

	t.Run("logout with an invalid token fails", func(t *testing.T) {
		svc, _, _ := newTestService()

		err := svc.Logout(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, service.ErrInvalidToken)
	})
}
