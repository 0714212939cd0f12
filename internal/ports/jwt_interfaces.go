package ports

import (
	"time"

	"oauth2-server/internal/model"
	"oauth2-server/internal/security"
)

type JWTServiceInterface interface {
	GenerateAccessToken(user *model.User) (string, error)
	GenerateRefreshToken(userUUID string) (string, error)
	ValidateAccessToken(tokenStr string) (*security.AccessClaims, error)
	ValidateRefreshToken(tokenStr string) (*security.RefreshClaims, error)
	ExpiryFor(kind security.TokenKind) (time.Time, error)
}
