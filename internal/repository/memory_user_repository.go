package repository

import (
	"context"
	"time"

	"oauth2-server/internal/model"
)

// MemoryUserRepository : справочник пользователей в памяти процесса.
// Используется в демо-режиме и тестах. Справочник только читается после
// создания, поэтому синхронизация не нужна.
type MemoryUserRepository struct {
	users []*model.User
}

func NewMemoryUserRepository(users []*model.User) *MemoryUserRepository {
	return &MemoryUserRepository{users: users}
}

// NewSeededUserRepository создаёт справочник с двумя демо-пользователями.
// Пароль у обоих Password123.
func NewSeededUserRepository() *MemoryUserRepository {
	const passwordHash = "$2a$10$XWeWKRSy1hLbraVJr3NbjOhggEt2kdUf7UG/BLXRHpazyc1wBO/XS"
	now := time.Now()

	return NewMemoryUserRepository([]*model.User{
		{
			UUID:         "1",
			Username:     "testuser",
			PasswordHash: passwordHash,
			Email:        "testuser@example.com",
			Role:         "user",
			CreatedAt:    now,
		},
		{
			UUID:         "2",
			Username:     "admin",
			PasswordHash: passwordHash,
			Email:        "admin@example.com",
			Role:         "admin",
			CreatedAt:    now,
		},
	})
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, nil
}

func (r *MemoryUserRepository) FindByUUID(_ context.Context, uuid string) (*model.User, error) {
	for _, user := range r.users {
		if user.UUID == uuid {
			return user, nil
		}
	}
	return nil, nil
}
