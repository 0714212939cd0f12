package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewBlacklistRepository(0)
	defer repo.Close()

	require.NoError(t, repo.Blacklist(ctx, "revoked-token", time.Now().Add(time.Hour)))

	blacklisted, err := repo.IsBlacklisted(ctx, "revoked-token")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	blacklisted, err = repo.IsBlacklisted(ctx, "other-token")
	require.NoError(t, err)
	assert.False(t, blacklisted)
}

func TestBlacklistSkipsAlreadyExpiredToken(t *testing.T) {
	ctx := context.Background()
	repo := NewBlacklistRepository(0)
	defer repo.Close()

	require.NoError(t, repo.Blacklist(ctx, "dead-token", time.Now().Add(-time.Minute)))

	repo.mu.Lock()
	_, stored := repo.tokens["dead-token"]
	repo.mu.Unlock()

	assert.False(t, stored, "просроченный токен не должен занимать память")
}

func TestBlacklistLazyPruneOnRead(t *testing.T) {
	ctx := context.Background()
	repo := NewBlacklistRepository(0)
	defer repo.Close()

	require.NoError(t, repo.Blacklist(ctx, "short-lived", time.Now().Add(30*time.Millisecond)))

	blacklisted, err := repo.IsBlacklisted(ctx, "short-lived")
	require.NoError(t, err)
	assert.True(t, blacklisted)

	time.Sleep(50 * time.Millisecond)

	blacklisted, err = repo.IsBlacklisted(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, blacklisted)

	repo.mu.Lock()
	_, stored := repo.tokens["short-lived"]
	repo.mu.Unlock()
	assert.False(t, stored, "просроченная запись должна удаляться при чтении")
}

func TestInvalidationWatermark(t *testing.T) {
	ctx := context.Background()
	repo := NewBlacklistRepository(0)
	defer repo.Close()

	issuedBefore := time.Now().Add(-time.Minute)

	invalidated, err := repo.IsInvalidated(ctx, "1", issuedBefore)
	require.NoError(t, err)
	assert.False(t, invalidated, "до InvalidateAll водяного знака нет")

	require.NoError(t, repo.InvalidateAll(ctx, "1"))

	invalidated, err = repo.IsInvalidated(ctx, "1", issuedBefore)
	require.NoError(t, err)
	assert.True(t, invalidated)

	// Токен, выданный после водяного знака, остаётся живым
	invalidated, err = repo.IsInvalidated(ctx, "1", time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.False(t, invalidated)

	// Водяной знак другого пользователя не задевает чужие токены
	invalidated, err = repo.IsInvalidated(ctx, "2", issuedBefore)
	require.NoError(t, err)
	assert.False(t, invalidated)
}

func TestInvalidationWatermarkAdvances(t *testing.T) {
	ctx := context.Background()
	repo := NewBlacklistRepository(0)
	defer repo.Close()

	require.NoError(t, repo.InvalidateAll(ctx, "1"))
	issuedBetween := time.Now().Add(5 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.InvalidateAll(ctx, "1"))

	invalidated, err := repo.IsInvalidated(ctx, "1", issuedBetween)
	require.NoError(t, err)
	assert.True(t, invalidated, "повторный InvalidateAll двигает водяной знак вперёд")
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	repo := NewBlacklistRepository(20 * time.Millisecond)
	defer repo.Close()

	require.NoError(t, repo.Blacklist(ctx, "short-lived", time.Now().Add(10*time.Millisecond)))
	require.NoError(t, repo.Blacklist(ctx, "long-lived", time.Now().Add(time.Hour)))

	assert.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		_, stale := repo.tokens["short-lived"]
		_, fresh := repo.tokens["long-lived"]
		return !stale && fresh
	}, time.Second, 10*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	repo := NewBlacklistRepository(time.Minute)
	repo.Close()
	repo.Close()
}
