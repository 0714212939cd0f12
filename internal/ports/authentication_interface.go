package ports

import (
	"context"

	"oauth2-server/internal/model"
)

type AuthenticationService interface {
	Login(ctx context.Context, username, password, ipAddress, userAgent string) (*model.TokensPair, error)
	Refresh(ctx context.Context, refreshToken, ipAddress string) (*model.TokensPair, error)
	Logout(ctx context.Context, refreshToken, accessToken, ipAddress string) error
	LogoutAll(ctx context.Context, userUUID, ipAddress string) error
}
