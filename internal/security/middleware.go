package security

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"oauth2-server/internal/model"
	"oauth2-server/internal/util"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// AuthenticatedUser : личность, прикреплённая к запросу после проверки.
// Роль перечитана из справочника, а не взята из клеймов токена, поэтому
// понижение роли действует сразу, не дожидаясь истечения access-токена.
type AuthenticatedUser struct {
	UserUUID string
	Username string
	Role     string
}

// Интерфейсы зависимостей middleware. Объявлены на стороне потребителя,
// чтобы пакет security не зависел от ports.

type AccessTokenValidator interface {
	ValidateAccessToken(tokenStr string) (*AccessClaims, error)
}

type RevocationChecker interface {
	IsBlacklisted(ctx context.Context, token string) (bool, error)
	IsInvalidated(ctx context.Context, userUUID string, issuedAt time.Time) (bool, error)
}

type UserDirectory interface {
	FindByUUID(ctx context.Context, uuid string) (*model.User, error)
}

type BypassAuditor interface {
	LogAuthBypassAttempt(ipAddress, userUUID, reason string)
}

// JWTMiddleware аутентифицирует запрос по access-токену.
// Порядок проверок важен, дешёвые идут первыми: заголовок → подпись/срок →
// чёрный список → водяной знак инвалидации → справочник пользователей.
func JWTMiddleware(
	jwtService AccessTokenValidator,
	revocations RevocationChecker,
	users UserDirectory,
	audit BypassAuditor,
) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(handleAuthentication(jwtService, revocations, users, audit, next))
	}
}

func handleAuthentication(
	jwtService AccessTokenValidator,
	revocations RevocationChecker,
	users UserDirectory,
	audit BypassAuditor,
	next http.Handler,
) func(writer http.ResponseWriter, request *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()

		token := ExtractBearerToken(request.Header.Get("Authorization"))
		if token == "" {
			util.HandleError(writer, http.StatusUnauthorized, "unauthorized", "No token provided")
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, ErrAccessTokenExpired) {
				util.HandleError(writer, http.StatusUnauthorized, "token_expired", "Access token has expired")
				return
			}
			util.HandleError(writer, http.StatusUnauthorized, "invalid_token", "Invalid access token")
			return
		}

		blacklisted, err := revocations.IsBlacklisted(ctx, token)
		if err != nil {
			util.HandleError(writer, http.StatusInternalServerError, "server_error", "Token validation failed")
			return
		}
		if blacklisted {
			audit.LogAuthBypassAttempt(request.RemoteAddr, claims.UserUUID, "blacklisted_token")
			util.HandleError(writer, http.StatusUnauthorized, "invalid_token", "Token has been revoked")
			return
		}

		invalidated, err := revocations.IsInvalidated(ctx, claims.UserUUID, claims.IssuedAt.Time)
		if err != nil {
			util.HandleError(writer, http.StatusInternalServerError, "server_error", "Token validation failed")
			return
		}
		if invalidated {
			audit.LogAuthBypassAttempt(request.RemoteAddr, claims.UserUUID, "invalidated_user_tokens")
			util.HandleError(writer, http.StatusUnauthorized, "invalid_token", "All user sessions have been terminated")
			return
		}

		user, err := users.FindByUUID(ctx, claims.UserUUID)
		if err != nil {
			util.HandleError(writer, http.StatusInternalServerError, "server_error", "Token validation failed")
			return
		}
		if user == nil {
			audit.LogAuthBypassAttempt(request.RemoteAddr, claims.UserUUID, "user_not_found")
			util.HandleError(writer, http.StatusUnauthorized, "invalid_token", "User not found")
			return
		}

		authenticatedUser := &AuthenticatedUser{
			UserUUID: user.UUID,
			Username: user.Username,
			Role:     user.Role,
		}

		req := request.WithContext(context.WithValue(ctx, UserContextKey, authenticatedUser))
		next.ServeHTTP(writer, req)
	}
}

// RequireRole пропускает только пользователей с одной из перечисленных
// ролей. Запрос обязан пройти JWTMiddleware раньше. Отказ здесь это 403
// forbidden — в отличие от ошибок аутентификации (401).
func RequireRole(allowedRoles ...string) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			user, err := GetUserFromContext(request.Context())
			if err != nil {
				util.HandleError(writer, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}

			if !Allowed(user.Role, allowedRoles) {
				util.HandleError(writer, http.StatusForbidden, "forbidden", "Insufficient permissions")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// Allowed : чистая функция проверки роли.
func Allowed(role string, allowedRoles []string) bool {
	for _, allowed := range allowedRoles {
		if role == allowed {
			return true
		}
	}
	return false
}

func GetUserFromContext(ctx context.Context) (*AuthenticatedUser, error) {
	user, ok := ctx.Value(UserContextKey).(*AuthenticatedUser)
	if !ok || user == nil {
		return nil, fmt.Errorf("пользователь не авторизован")
	}
	return user, nil
}
