package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"oauth2-server/config"
	"oauth2-server/internal/util"

	"github.com/redis/go-redis/v9"
)

// RedisBlacklistRepository : чёрный список и водяные знаки в Redis.
// Срок жизни записей обеспечивает сам Redis (TTL ключа), поэтому отдельная
// фоновая зачистка здесь не нужна.
type RedisBlacklistRepository struct {
	client *config.RedisClient
	// watermarkTTL — срок хранения водяного знака; достаточно времени жизни
	// refresh-токена: более старых токенов к этому моменту уже не существует.
	watermarkTTL time.Duration
}

func NewRedisBlacklistRepository(rdb *config.RedisClient, watermarkTTL time.Duration) *RedisBlacklistRepository {
	return &RedisBlacklistRepository{rdb, watermarkTTL}
}

func (r *RedisBlacklistRepository) Blacklist(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Client.Set(ctx, r.tokenKey(token), "1", ttl).Err(); err != nil {
		return util.LogError("ошибка записи в чёрный список Redis", err)
	}
	return nil
}

func (r *RedisBlacklistRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	exists, err := r.client.Client.Exists(ctx, r.tokenKey(token)).Result()
	if err != nil {
		return false, util.LogError("ошибка чтения чёрного списка Redis", err)
	}
	return exists == 1, nil
}

func (r *RedisBlacklistRepository) InvalidateAll(ctx context.Context, userUUID string) error {
	watermark := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := r.client.Client.Set(ctx, r.watermarkKey(userUUID), watermark, r.watermarkTTL).Err(); err != nil {
		return util.LogError("ошибка записи водяного знака в Redis", err)
	}
	return nil
}

func (r *RedisBlacklistRepository) IsInvalidated(ctx context.Context, userUUID string, issuedAt time.Time) (bool, error) {
	val, err := r.client.Client.Get(ctx, r.watermarkKey(userUUID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	} else if err != nil {
		return false, util.LogError("ошибка чтения водяного знака из Redis", err)
	}

	nanos, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, util.LogError("повреждённый водяной знак в Redis", err)
	}

	return issuedAt.Before(time.Unix(0, nanos)), nil
}

func (r *RedisBlacklistRepository) tokenKey(token string) string {
	return fmt.Sprintf("blacklist:%s", token)
}

func (r *RedisBlacklistRepository) watermarkKey(userUUID string) string {
	return fmt.Sprintf("user_invalidations:%s", userUUID)
}

func isRedisNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
