package repository

import (
	"context"
	"log"
	"sync"
	"time"
)

// BlacklistRepository : чёрный список токенов и водяные знаки массовой
// инвалидации в памяти процесса.
//
// Корректность обеспечивает ленивая очистка при чтении; фоновая зачистка
// нужна только чтобы ограничить память при редких обращениях.
type BlacklistRepository struct {
	mu            sync.Mutex
	tokens        map[string]time.Time
	invalidations map[string]time.Time
	stop          chan struct{}
	stopOnce      sync.Once
}

func NewBlacklistRepository(sweepInterval time.Duration) *BlacklistRepository {
	r := &BlacklistRepository{
		tokens:        make(map[string]time.Time),
		invalidations: make(map[string]time.Time),
		stop:          make(chan struct{}),
	}

	if sweepInterval > 0 {
		go r.runSweep(sweepInterval)
	}

	return r
}

// Blacklist добавляет токен в чёрный список до expiresAt.
// Уже просроченный токен защищать нечем — no-op.
func (r *BlacklistRepository) Blacklist(_ context.Context, token string, expiresAt time.Time) error {
	if !expiresAt.After(time.Now()) {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token] = expiresAt
	return nil
}

// IsBlacklisted проверяет токен; просроченная запись удаляется при чтении.
func (r *BlacklistRepository) IsBlacklisted(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiresAt, ok := r.tokens[token]
	if !ok {
		return false, nil
	}

	if time.Now().After(expiresAt) {
		delete(r.tokens, token)
		return false, nil
	}

	return true, nil
}

// InvalidateAll запоминает текущий момент как водяной знак: всё, что
// выдано раньше, считается недействительным ("выйти отовсюду").
func (r *BlacklistRepository) InvalidateAll(_ context.Context, userUUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.invalidations[userUUID] = time.Now()
	return nil
}

// IsInvalidated сравнивает момент выдачи токена с водяным знаком.
func (r *BlacklistRepository) IsInvalidated(_ context.Context, userUUID string, issuedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	watermark, ok := r.invalidations[userUUID]
	if !ok {
		return false, nil
	}

	return issuedAt.Before(watermark), nil
}

// Close останавливает фоновую зачистку.
func (r *BlacklistRepository) Close() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

func (r *BlacklistRepository) runSweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := r.sweep()
			if removed > 0 {
				log.Printf("зачистка чёрного списка: удалено %d записей", removed)
			}
		case <-r.stop:
			return
		}
	}
}

func (r *BlacklistRepository) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, expiresAt := range r.tokens {
		if now.After(expiresAt) {
			delete(r.tokens, token)
			removed++
		}
	}

	return removed
}
