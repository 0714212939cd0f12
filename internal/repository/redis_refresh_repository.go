package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"oauth2-server/config"
	"oauth2-server/internal/model"
	"oauth2-server/internal/util"
)

// RedisRefreshTokenRepository : refresh-записи в Redis-хэше на пользователя.
// Поле хэша — сам токен, значение — JSON записи. Атомарность Revoke даёт
// HDEL: при конкурентной ротации удалённых полей будет ровно одно.
type RedisRefreshTokenRepository struct {
	client *config.RedisClient
}

func NewRedisRefreshTokenRepository(rdb *config.RedisClient) *RedisRefreshTokenRepository {
	return &RedisRefreshTokenRepository{rdb}
}

func (r *RedisRefreshTokenRepository) Put(ctx context.Context, userUUID string, token string, expiresAt time.Time) error {
	record := model.RefreshRecord{
		UserUUID:  userUUID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return util.LogError("ошибка сериализации refresh записи", err)
	}

	key := r.key(userUUID)
	if err := r.client.Client.HSet(ctx, key, token, data).Err(); err != nil {
		return util.LogError("ошибка сохранения refresh записи в Redis", err)
	}

	// TTL фиксированный, поэтому свежая запись всегда истекает позже всех:
	// ключ целиком живёт до истечения самой новой записи.
	if err := r.client.Client.ExpireAt(ctx, key, expiresAt).Err(); err != nil {
		return util.LogError("ошибка установки TTL ключа в Redis", err)
	}

	r.pruneExpired(ctx, userUUID)
	return nil
}

func (r *RedisRefreshTokenRepository) IsValid(ctx context.Context, userUUID string, token string) (bool, error) {
	data, err := r.client.Client.HGet(ctx, r.key(userUUID), token).Result()
	if err != nil {
		if isRedisNil(err) {
			return false, nil
		}
		return false, util.LogError("ошибка чтения refresh записи из Redis", err)
	}

	var record model.RefreshRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return false, util.LogError("ошибка десериализации refresh записи", err)
	}

	return time.Now().Before(record.ExpiresAt), nil
}

func (r *RedisRefreshTokenRepository) Revoke(ctx context.Context, userUUID string, token string) (bool, error) {
	removed, err := r.client.Client.HDel(ctx, r.key(userUUID), token).Result()
	if err != nil {
		return false, util.LogError("ошибка удаления refresh записи из Redis", err)
	}
	return removed == 1, nil
}

func (r *RedisRefreshTokenRepository) RevokeAll(ctx context.Context, userUUID string) error {
	if err := r.client.Client.Del(ctx, r.key(userUUID)).Err(); err != nil {
		return util.LogError("ошибка удаления refresh записей из Redis", err)
	}
	return nil
}

// pruneExpired лениво убирает просроченные поля хэша.
func (r *RedisRefreshTokenRepository) pruneExpired(ctx context.Context, userUUID string) {
	entries, err := r.client.Client.HGetAll(ctx, r.key(userUUID)).Result()
	if err != nil {
		return
	}

	now := time.Now()
	for field, data := range entries {
		var record model.RefreshRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue
		}
		if now.After(record.ExpiresAt) {
			r.client.Client.HDel(ctx, r.key(userUUID), field)
		}
	}
}

func (r *RedisRefreshTokenRepository) key(userUUID string) string {
	return fmt.Sprintf("refresh_tokens:%s", userUUID)
}
