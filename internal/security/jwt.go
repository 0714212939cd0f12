package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"oauth2-server/config"
	"oauth2-server/internal/model"
	"oauth2-server/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer зашивается в каждый токен и проверяется при валидации.
const Issuer = "oauth2-server"

// refreshTokenType значение клейма type у refresh-токенов
const refreshTokenType = "refresh"

// Ошибки валидации токенов. Каждый класс токенов отдаёт различимые
// ошибки, чтобы обработчики могли вернуть клиенту разные ответы.
var (
	ErrAccessTokenExpired  = errors.New("access токен просрочен")
	ErrInvalidAccessToken  = errors.New("невалидный access токен")
	ErrRefreshTokenExpired = errors.New("refresh токен просрочен")
	ErrInvalidRefreshToken = errors.New("невалидный refresh токен")
)

type TokenKind string

const (
	AccessTokenKind  TokenKind = "access"
	RefreshTokenKind TokenKind = "refresh"
)

// AccessClaims : полезная нагрузка access-токена.
// jti (RegisteredClaims.ID) — случайный 128-битный идентификатор,
// гарантирует, что два токена, выданные в один момент, байтово различны.
type AccessClaims struct {
	UserUUID string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims : полезная нагрузка refresh-токена.
// Роль и имя пользователя сюда сознательно не кладутся: при обновлении
// они перечитываются из справочника пользователей, поэтому смена роли
// применяется, не дожидаясь истечения refresh-токена.
type RefreshClaims struct {
	UserUUID string `json:"userId"`
	TokenID  string `json:"tokenId"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

type JWTService struct {
	*config.JWTConfig
}

func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{cfg}
}

// GenerateAccessToken выдаёт access-токен с личностью и ролью пользователя.
// Алгоритм зафиксирован: HS256, без переговоров со стороны токена.
func (service *JWTService) GenerateAccessToken(user *model.User) (string, error) {
	expiresAt, err := service.ExpiryFor(AccessTokenKind)
	if err != nil {
		return "", err
	}

	claims := AccessClaims{
		UserUUID: user.UUID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := jwtToken.SignedString([]byte(service.AccessSecret))
	if err != nil {
		return "", util.LogError("ошибка подписи access токена", err)
	}

	return accessToken, nil
}

// GenerateRefreshToken выдаёт refresh-токен, подписанный отдельным секретом.
func (service *JWTService) GenerateRefreshToken(userUUID string) (string, error) {
	expiresAt, err := service.ExpiryFor(RefreshTokenKind)
	if err != nil {
		return "", err
	}

	claims := RefreshClaims{
		UserUUID: userUUID,
		TokenID:  uuid.New().String(),
		Type:     refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	refreshToken, err := jwtToken.SignedString([]byte(service.RefreshSecret))
	if err != nil {
		return "", util.LogError("ошибка подписи refresh токена", err)
	}

	return refreshToken, nil
}

// ValidateAccessToken проверяет подпись, срок действия и issuer access-токена.
func (service *JWTService) ValidateAccessToken(jwtTokenStr string) (*AccessClaims, error) {
	var claims = &AccessClaims{}

	jwtToken, err := jwt.ParseWithClaims(jwtTokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Header["alg"] != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
		}
		return []byte(service.AccessSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, ErrInvalidAccessToken
	}
	if !jwtToken.Valid || claims.Issuer != Issuer {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

// ValidateRefreshToken проверяет подпись, срок действия, issuer и клейм type.
func (service *JWTService) ValidateRefreshToken(jwtTokenStr string) (*RefreshClaims, error) {
	var claims = &RefreshClaims{}

	jwtToken, err := jwt.ParseWithClaims(jwtTokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Header["alg"] != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
		}
		return []byte(service.RefreshSecret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrRefreshTokenExpired
		}
		return nil, ErrInvalidRefreshToken
	}
	if !jwtToken.Valid || claims.Issuer != Issuer || claims.Type != refreshTokenType {
		return nil, ErrInvalidRefreshToken
	}

	return claims, nil
}

// ExpiryFor считает абсолютное время истечения токена заданного типа.
// Чистая функция от настроенных TTL; используется и для вычисления
// срока хранения refresh-записей.
func (service *JWTService) ExpiryFor(kind TokenKind) (time.Time, error) {
	ttl := service.AccessTokenTTL
	if kind == RefreshTokenKind {
		ttl = service.RefreshTokenTTL
	}

	timeDuration, err := time.ParseDuration(ttl)
	if err != nil {
		return time.Time{}, util.LogError("ошибка парсинга TTL", err)
	}

	return time.Now().Add(timeDuration), nil
}

// DecodeRefreshTokenUnverified читает клеймы refresh-токена БЕЗ проверки
// подписи. Используется только на logout, чтобы достать user_id и срок
// истечения отзываемого токена. Для решений об авторизации непригоден.
func DecodeRefreshTokenUnverified(jwtTokenStr string) (*RefreshClaims, error) {
	var claims = &RefreshClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(jwtTokenStr, claims); err != nil {
		return nil, fmt.Errorf("не удалось разобрать токен: %w", err)
	}
	return claims, nil
}

// TokenExpiryUnverified читает срок истечения любого JWT без проверки подписи.
func TokenExpiryUnverified(jwtTokenStr string) (time.Time, error) {
	var claims = &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(jwtTokenStr, claims); err != nil {
		return time.Time{}, fmt.Errorf("не удалось разобрать токен: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("в токене нет клейма exp")
	}
	return claims.ExpiresAt.Time, nil
}

// ExtractBearerToken достаёт токен из заголовка Authorization.
// Возвращает пустую строку, если заголовок отсутствует или схема не Bearer.
func ExtractBearerToken(authorizationHeader string) string {
	parts := strings.Split(authorizationHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
