package model

import "time"

// RefreshRecord : запись о выданном refresh-токене.
// Записи никогда не изменяются на месте: ротация это всегда
// "вставить новую, удалить старую".
type RefreshRecord struct {
	UserUUID  string    `json:"user_uuid"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TokensPair содержит пару access и refresh токенов
// swagger:model
type TokensPair struct {
	// Access токен (JWT)
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"accessToken"`

	// Refresh токен (для получения новой пары)
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refreshToken"`

	// Время жизни access токена в секундах
	ExpiresIn int64 `json:"expiresIn"`
}
