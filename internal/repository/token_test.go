package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront-downloads/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryRepo(t *testing.T) TokenRepository {
	return NewMemoryTokenRepository()
}

func newRedisRepo(t *testing.T) TokenRepository {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTokenRepository(client)
}

func newToken(expiresAt time.Time) *model.DownloadToken {
	return &model.DownloadToken{
		Token:     uuid.NewString(),
		ProductID: "portfolio-template",
		Email:     "a@b.com",
		SessionID: "cs_test_1",
		ExpiresAt: expiresAt,
	}
}

func TestTokenRepositories(t *testing.T) {
	backends := map[string]func(t *testing.T) TokenRepository{
		"memory": newMemoryRepo,
		"redis":  newRedisRepo,
	}

	for name, newRepo := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("PutAndGet", func(t *testing.T) { testPutAndGet(t, newRepo(t)) })
			t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newRepo(t)) })
			t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
			t.Run("ClaimOnce", func(t *testing.T) { testClaimOnce(t, newRepo(t)) })
			t.Run("ClaimExpired", func(t *testing.T) { testClaimExpired(t, newRepo(t)) })
			t.Run("ReleaseBounded", func(t *testing.T) { testReleaseBounded(t, newRepo(t)) })
			t.Run("ReleaseUnused", func(t *testing.T) { testReleaseUnused(t, newRepo(t)) })
			t.Run("ConcurrentClaims", func(t *testing.T) { testConcurrentClaims(t, newRepo(t)) })
		})
	}
}

func testPutAndGet(t *testing.T, repo TokenRepository) {
	ctx := context.Background()
	tok := newToken(time.Now().Add(10 * time.Minute))

	require.NoError(t, repo.Put(ctx, tok))

	got, err := repo.Get(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, tok.Token, got.Token)
	assert.Equal(t, "portfolio-template", got.ProductID)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, "cs_test_1", got.SessionID)
	assert.False(t, got.Used)
	assert.Zero(t, got.Retries)
	assert.WithinDuration(t, tok.ExpiresAt, got.ExpiresAt, time.Millisecond)
}

func testGetMissing(t *testing.T, repo TokenRepository) {
	_, err := repo.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = repo.Claim(context.Background(), "nonexistent", time.Now())
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func testDelete(t *testing.T, repo TokenRepository) {
	ctx := context.Background()
	tok := newToken(time.Now().Add(time.Minute))
	require.NoError(t, repo.Put(ctx, tok))

	require.NoError(t, repo.Delete(ctx, tok.Token))

	_, err := repo.Get(ctx, tok.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func testClaimOnce(t *testing.T, repo TokenRepository) {
	ctx := context.Background()
	tok := newToken(time.Now().Add(10 * time.Minute))
	require.NoError(t, repo.Put(ctx, tok))

	claimed, err := repo.Claim(ctx, tok.Token, time.Now())
	require.NoError(t, err)
	assert.True(t, claimed.Used)
	assert.Equal(t, "portfolio-template", claimed.ProductID)

	_, err = repo.Claim(ctx, tok.Token, time.Now())
	assert.ErrorIs(t, err, ErrTokenUsed)

	got, err := repo.Get(ctx, tok.Token)
	require.NoError(t, err)
	assert.True(t, got.Used)
}

func testClaimExpired(t *testing.T, repo TokenRepository) {
	ctx := context.Background()
	expiresAt := time.Now().Add(time.Minute)
	tok := newToken(expiresAt)
	require.NoError(t, repo.Put(ctx, tok))

	_, err := repo.Claim(ctx, tok.Token, expiresAt.Add(time.Second))
	assert.ErrorIs(t, err, ErrTokenExpired)

	// expired claims evict the entry
	_, err = repo.Get(ctx, tok.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func testReleaseBounded(t *testing.T, repo TokenRepository) {
	ctx := context.Background()
	tok := newToken(time.Now().Add(10 * time.Minute))
	require.NoError(t, repo.Put(ctx, tok))

	_, err := repo.Claim(ctx, tok.Token, time.Now())
	require.NoError(t, err)

	released, err := repo.Release(ctx, tok.Token, 1)
	require.NoError(t, err)
	assert.True(t, released)

	got, err := repo.Get(ctx, tok.Token)
	require.NoError(t, err)
	assert.False(t, got.Used)
	assert.Equal(t, 1, got.Retries)

	// the retry transfer fails too; no further release is granted
	_, err = repo.Claim(ctx, tok.Token, time.Now())
	require.NoError(t, err)

	released, err = repo.Release(ctx, tok.Token, 1)
	require.NoError(t, err)
	assert.False(t, released)

	_, err = repo.Claim(ctx, tok.Token, time.Now())
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func testReleaseUnused(t *testing.T, repo TokenRepository) {
	ctx := context.Background()
	tok := newToken(time.Now().Add(10 * time.Minute))
	require.NoError(t, repo.Put(ctx, tok))

	released, err := repo.Release(ctx, tok.Token, 1)
	require.NoError(t, err)
	assert.False(t, released)

	released, err = repo.Release(ctx, "nonexistent", 1)
	require.NoError(t, err)
	assert.False(t, released)
}

func testConcurrentClaims(t *testing.T, repo TokenRepository) {
	ctx := context.Background()
	tok := newToken(time.Now().Add(10 * time.Minute))
	require.NoError(t, repo.Put(ctx, tok))

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		used      int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Claim(ctx, tok.Token, time.Now())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, ErrTokenUsed) {
				used++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, used)
}

func TestMemoryTokenRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTokenRepository()
	now := time.Now()

	live := newToken(now.Add(time.Minute))
	expired := newToken(now.Add(-time.Minute))
	require.NoError(t, repo.Put(ctx, live))
	require.NoError(t, repo.Put(ctx, expired))

	removed, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.Get(ctx, expired.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = repo.Get(ctx, live.Token)
	assert.NoError(t, err)
}

func TestRedisTokenRepository_KeyExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	repo := NewRedisTokenRepository(client)

	tok := newToken(time.Now().Add(time.Minute))
	require.NoError(t, repo.Put(ctx, tok))

	ttl := mr.TTL(tokenKey(tok.Token))
	assert.Greater(t, ttl, ExpiredTokenRetention)
	assert.LessOrEqual(t, ttl, ExpiredTokenRetention+time.Minute)

	mr.FastForward(ExpiredTokenRetention + 2*time.Minute)

	_, err := repo.Get(ctx, tok.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	removed, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
