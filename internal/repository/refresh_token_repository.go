package repository

import (
	"context"
	"sync"
	"time"

	"oauth2-server/internal/model"
)

// RefreshTokenRepository : хранилище refresh-записей в памяти процесса.
// Один mutex сериализует все мутации; чтения тоже идут под ним, потому что
// попутная очистка просроченных записей мутирует срезы.
type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string][]model.RefreshRecord
}

func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{
		tokens: make(map[string][]model.RefreshRecord),
	}
}

// Put добавляет запись и вычищает просроченные записи пользователя.
func (r *RefreshTokenRepository) Put(_ context.Context, userUUID string, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.pruneLocked(userUUID)
	records = append(records, model.RefreshRecord{
		UserUUID:  userUUID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	})
	r.tokens[userUUID] = records

	return nil
}

// IsValid проверяет наличие непросроченной записи.
func (r *RefreshTokenRepository) IsValid(_ context.Context, userUUID string, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, record := range r.tokens[userUUID] {
		if record.Token == token {
			return time.Now().Before(record.ExpiresAt), nil
		}
	}

	return false, nil
}

// Revoke атомарно удаляет ровно одну запись. При конкурентных вызовах
// с одним и тем же токеном true получит ровно один из них.
func (r *RefreshTokenRepository) Revoke(_ context.Context, userUUID string, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := r.tokens[userUUID]
	for i, record := range records {
		if record.Token == token {
			r.tokens[userUUID] = append(records[:i], records[i+1:]...)
			if len(r.tokens[userUUID]) == 0 {
				delete(r.tokens, userUUID)
			}
			return true, nil
		}
	}

	return false, nil
}

// RevokeAll удаляет все записи пользователя.
func (r *RefreshTokenRepository) RevokeAll(_ context.Context, userUUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, userUUID)
	return nil
}

// pruneLocked убирает просроченные записи пользователя. Вызывать под mutex.
func (r *RefreshTokenRepository) pruneLocked(userUUID string) []model.RefreshRecord {
	now := time.Now()
	records := r.tokens[userUUID]

	valid := records[:0]
	for _, record := range records {
		if record.ExpiresAt.After(now) {
			valid = append(valid, record)
		}
	}

	if len(valid) == 0 {
		delete(r.tokens, userUUID)
		return nil
	}

	r.tokens[userUUID] = valid
	return valid
}
