package repository

import (
	"context"
	"database/sql"
	"errors"

	"oauth2-server/config"
	"oauth2-server/internal/model"
	"oauth2-server/internal/util"

	"github.com/jmoiron/sqlx"
)

// UserRepository : справочник пользователей в PostgreSQL.
// Сервис только читает пользователей; управление учётными записями
// принадлежит внешней системе.
type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// FindByUsername : ищет пользователя по username.
// Отсутствие пользователя — это (nil, nil), а не ошибка.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT uuid, username, password_hash, email, role, created_at FROM users WHERE username = $1`

	var user model.User
	err := sqlx.GetContext(ctx, r.DB, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, util.LogError("[UserRepo] ошибка поиска пользователя по username", err)
	}
	return &user, nil
}

// FindByUUID : ищет пользователя по UUID.
func (r *UserRepository) FindByUUID(ctx context.Context, uuid string) (*model.User, error) {
	query := `SELECT uuid, username, password_hash, email, role, created_at FROM users WHERE uuid = $1`

	var user model.User
	err := sqlx.GetContext(ctx, r.DB, &user, query, uuid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, util.LogError("[UserRepo] ошибка поиска пользователя по UUID", err)
	}
	return &user, nil
}
