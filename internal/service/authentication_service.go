package service

import (
	"context"
	"errors"
	"time"

	"oauth2-server/internal/model"
	"oauth2-server/internal/ports"
	"oauth2-server/internal/security"
	"oauth2-server/internal/util"
)

// Ошибки аутентификации. Обработчики переводят их в коды OAuth2,
// наружу текст исходной ошибки не уходит.
var (
	ErrInvalidCredentials    = errors.New("неверный логин или пароль")
	ErrRefreshTokenRevoked   = errors.New("refresh токен отозван")
	ErrRefreshTokenReused    = errors.New("refresh токен отсутствует в хранилище")
	ErrUserNotFound          = errors.New("пользователь не найден")
	ErrMalformedRefreshToken = errors.New("невалидный формат refresh токена")
)

type AuthenticationService struct {
	jwtService  ports.JWTServiceInterface
	refreshRepo ports.RefreshTokenRepository
	blacklist   ports.BlacklistRepository
	userRepo    ports.UserRepository
	audit       ports.AuditLogger
}

func NewAuthenticationService(
	jwtService ports.JWTServiceInterface,
	refreshRepo ports.RefreshTokenRepository,
	blacklist ports.BlacklistRepository,
	userRepo ports.UserRepository,
	audit ports.AuditLogger,
) *AuthenticationService {
	return &AuthenticationService{
		jwtService:  jwtService,
		refreshRepo: refreshRepo,
		blacklist:   blacklist,
		userRepo:    userRepo,
		audit:       audit,
	}
}

// Login проверяет учётные данные и выдаёт пару токенов.
// Проверка пароля выполняется всегда, даже если пользователь не найден:
// по времени ответа нельзя отличить неверный пароль от неизвестного логина.
func (s *AuthenticationService) Login(ctx context.Context, username, password, ipAddress, userAgent string) (*model.TokensPair, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, util.LogError("ошибка обращения к справочнику пользователей", err)
	}

	passwordHash := security.DummyHash
	if user != nil {
		passwordHash = user.PasswordHash
	}

	validPassword := security.CheckPassword(password, passwordHash)
	if user == nil || !validPassword {
		s.audit.LogLogin("", username, ipAddress, userAgent, false, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.LogLogin(user.UUID, user.Username, ipAddress, userAgent, true, "")
	return tokens, nil
}

// Refresh выполняет ротацию refresh-токена.
//
// Порядок проверок: подпись/срок → чёрный список → наличие в хранилище →
// справочник пользователей. Точка фиксации — атомарный Revoke: из двух
// конкурентных запросов с одним токеном удалить запись сможет только один,
// второй получает ErrRefreshTokenReused. Повтор уже ротированного токена
// падает на проверке хранилища, даже если его подпись и срок ещё валидны —
// это и есть защита от воспроизведения.
func (s *AuthenticationService) Refresh(ctx context.Context, refreshToken, ipAddress string) (*model.TokensPair, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.audit.LogTokenRefresh("", ipAddress, false, "invalid_token")
		return nil, err
	}

	blacklisted, err := s.blacklist.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, util.LogError("ошибка проверки чёрного списка", err)
	}
	if blacklisted {
		s.audit.LogSuspiciousActivity(claims.UserUUID, ipAddress, "blacklisted_token_use")
		return nil, ErrRefreshTokenRevoked
	}

	valid, err := s.refreshRepo.IsValid(ctx, claims.UserUUID, refreshToken)
	if err != nil {
		return nil, util.LogError("ошибка проверки хранилища refresh токенов", err)
	}
	if !valid {
		s.audit.LogTokenRefresh(claims.UserUUID, ipAddress, false, "token_not_in_storage")
		return nil, ErrRefreshTokenReused
	}

	user, err := s.userRepo.FindByUUID(ctx, claims.UserUUID)
	if err != nil {
		return nil, util.LogError("ошибка обращения к справочнику пользователей", err)
	}
	if user == nil {
		s.audit.LogTokenRefresh(claims.UserUUID, ipAddress, false, "user_not_found")
		return nil, ErrUserNotFound
	}

	revoked, err := s.refreshRepo.Revoke(ctx, claims.UserUUID, refreshToken)
	if err != nil {
		return nil, util.LogError("не удалось отозвать refresh токен", err)
	}
	if !revoked {
		// Проигравший конкурентной ротации: запись уже удалена.
		s.audit.LogSuspiciousActivity(claims.UserUUID, ipAddress, "concurrent_refresh_replay")
		return nil, ErrRefreshTokenReused
	}

	if err := s.blacklist.Blacklist(ctx, refreshToken, claims.ExpiresAt.Time); err != nil {
		return nil, util.LogError("не удалось занести токен в чёрный список", err)
	}
	s.audit.LogTokenBlacklisted(claims.UserUUID, "refresh", "rotation")

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.LogTokenRefresh(user.UUID, ipAddress, true, "")
	return tokens, nil
}

// Logout отзывает refresh-токен и, если передан, access-токен.
// Подпись здесь не проверяется: клеймы читаются только ради user_id и
// срока истечения отзываемых токенов.
func (s *AuthenticationService) Logout(ctx context.Context, refreshToken, accessToken, ipAddress string) error {
	claims, err := security.DecodeRefreshTokenUnverified(refreshToken)
	if err != nil || claims.UserUUID == "" {
		return ErrMalformedRefreshToken
	}

	if claims.ExpiresAt != nil {
		if err := s.blacklist.Blacklist(ctx, refreshToken, claims.ExpiresAt.Time); err != nil {
			return util.LogError("не удалось занести refresh токен в чёрный список", err)
		}
		s.audit.LogTokenBlacklisted(claims.UserUUID, "refresh", "logout")
	}

	if accessToken != "" {
		if expiresAt, err := security.TokenExpiryUnverified(accessToken); err == nil {
			if err := s.blacklist.Blacklist(ctx, accessToken, expiresAt); err != nil {
				return util.LogError("не удалось занести access токен в чёрный список", err)
			}
			s.audit.LogTokenBlacklisted(claims.UserUUID, "access", "logout")
		}
	}

	if _, err := s.refreshRepo.Revoke(ctx, claims.UserUUID, refreshToken); err != nil {
		return util.LogError("не удалось удалить refresh токен из хранилища", err)
	}

	s.audit.LogLogout(claims.UserUUID, ipAddress)
	return nil
}

// LogoutAll завершает все сессии пользователя: ставит водяной знак
// инвалидации и сносит все refresh-записи.
func (s *AuthenticationService) LogoutAll(ctx context.Context, userUUID, ipAddress string) error {
	if err := s.blacklist.InvalidateAll(ctx, userUUID); err != nil {
		return util.LogError("не удалось поставить водяной знак инвалидации", err)
	}

	if err := s.refreshRepo.RevokeAll(ctx, userUUID); err != nil {
		return util.LogError("не удалось удалить refresh токены пользователя", err)
	}

	s.audit.LogLogoutAll(userUUID, ipAddress)
	return nil
}

// issueTokens выдаёт новую пару и сохраняет refresh-запись.
func (s *AuthenticationService) issueTokens(ctx context.Context, user *model.User) (*model.TokensPair, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, util.LogError("ошибка генерации access токена", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(user.UUID)
	if err != nil {
		return nil, util.LogError("ошибка генерации refresh токена", err)
	}

	refreshExpiry, err := s.jwtService.ExpiryFor(security.RefreshTokenKind)
	if err != nil {
		return nil, err
	}
	if err := s.refreshRepo.Put(ctx, user.UUID, refreshToken, refreshExpiry); err != nil {
		return nil, util.LogError("ошибка сохранения refresh токена", err)
	}

	accessExpiry, err := s.jwtService.ExpiryFor(security.AccessTokenKind)
	if err != nil {
		return nil, err
	}

	return &model.TokensPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(time.Until(accessExpiry).Round(time.Second).Seconds()),
	}, nil
}
