package ports

import (
	"context"
	"time"

	"oauth2-server/internal/model"
)

// RefreshTokenRepository хранит действующие refresh-записи по пользователям.
// Контракт конкурентности: мутации сериализуются по затронутому ключу,
// Revoke — атомарная операция "проверить и удалить".
type RefreshTokenRepository interface {
	// Put добавляет запись и попутно вычищает просроченные записи пользователя.
	Put(ctx context.Context, userUUID string, token string, expiresAt time.Time) error
	// IsValid == true только если существует непросроченная запись.
	// Неизвестный пользователь это false, а не ошибка.
	IsValid(ctx context.Context, userUUID string, token string) (bool, error)
	// Revoke удаляет ровно одну запись. Идемпотентна: повторный вызов
	// возвращает false. Возврат true — точка фиксации ротации.
	Revoke(ctx context.Context, userUUID string, token string) (bool, error)
	// RevokeAll удаляет все записи пользователя.
	RevokeAll(ctx context.Context, userUUID string) error
}

// BlacklistRepository : чёрный список токенов и отметки массовой
// инвалидации сессий пользователя.
type BlacklistRepository interface {
	// Blacklist не делает ничего, если expiresAt уже в прошлом.
	Blacklist(ctx context.Context, token string, expiresAt time.Time) error
	// IsBlacklisted самоочищается: просроченная запись удаляется при чтении.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	// InvalidateAll запоминает текущий момент как водяной знак пользователя.
	InvalidateAll(ctx context.Context, userUUID string) error
	// IsInvalidated == true, если токен выдан раньше водяного знака.
	IsInvalidated(ctx context.Context, userUUID string, issuedAt time.Time) (bool, error)
}

// UserRepository : справочник пользователей (внешний владелец идентичности).
// Отсутствие пользователя — это (nil, nil), а не ошибка.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByUUID(ctx context.Context, uuid string) (*model.User, error)
}
