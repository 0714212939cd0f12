package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"oauth2-server/internal/model"
	"oauth2-server/internal/model/requestresponse"
	"oauth2-server/internal/ports"
	"oauth2-server/internal/security"
	"oauth2-server/internal/service"
	"oauth2-server/internal/util"
)

type AuthenticationHandler struct {
	ports.AuthenticationService
}

func NewAuthenticationHandler(authenticationService ports.AuthenticationService) *AuthenticationHandler {
	return &AuthenticationHandler{authenticationService}
}

// Login godoc
// @Summary Аутентификация пользователя
// @Description Выдаёт пару access/refresh токенов по логину и паролю
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Тело запроса"
// @Success 200 {object} requestresponse.TokenResponse "Пара токенов"
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или пустые поля"
// @Failure 401 {object} requestresponse.ErrorResponse "Неверные учётные данные"
// @Failure 429 {object} requestresponse.ErrorResponse "Превышен лимит попыток"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.HandleError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.Username == "" || req.Password == "" {
		util.HandleError(w, http.StatusBadRequest, "invalid_request", "Username and password are required")
		return
	}

	tokens, err := h.AuthenticationService.Login(ctx, req.Username, req.Password, r.RemoteAddr, r.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			util.HandleError(w, http.StatusUnauthorized, "invalid_grant", "Invalid username or password")
			return
		}
		log.Println(err)
		util.HandleError(w, http.StatusInternalServerError, "server_error", "An error occurred during authentication")
		return
	}

	writeTokenResponse(w, tokens)
}

// RefreshToken godoc
// @Summary Обновление пары токенов
// @Description Ротация refresh-токена: старый отзывается, выдаётся новая пара
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RefreshTokenRequest true "Тело запроса"
// @Success 200 {object} requestresponse.TokenResponse "Новая пара токенов"
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON или пустое поле"
// @Failure 401 {object} requestresponse.ErrorResponse "Просроченный, отозванный или повторно использованный токен"
// @Failure 429 {object} requestresponse.ErrorResponse "Превышен лимит попыток"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/refresh [post]
func (h *AuthenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.HandleError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.RefreshToken == "" {
		util.HandleError(w, http.StatusBadRequest, "invalid_request", "Refresh token is required")
		return
	}

	tokens, err := h.AuthenticationService.Refresh(ctx, req.RefreshToken, r.RemoteAddr)
	if err != nil {
		switch {
		case errors.Is(err, security.ErrRefreshTokenExpired):
			util.HandleError(w, http.StatusUnauthorized, "invalid_grant", "Refresh token has expired")
		case errors.Is(err, security.ErrInvalidRefreshToken):
			util.HandleError(w, http.StatusUnauthorized, "invalid_grant", "Invalid refresh token")
		case errors.Is(err, service.ErrRefreshTokenRevoked):
			util.HandleError(w, http.StatusUnauthorized, "invalid_grant", "Refresh token has been revoked")
		case errors.Is(err, service.ErrRefreshTokenReused):
			util.HandleError(w, http.StatusUnauthorized, "invalid_grant", "Refresh token is invalid or has been revoked")
		case errors.Is(err, service.ErrUserNotFound):
			util.HandleError(w, http.StatusUnauthorized, "invalid_grant", "User not found")
		default:
			log.Println(err)
			util.HandleError(w, http.StatusInternalServerError, "server_error", "An error occurred during token refresh")
		}
		return
	}

	writeTokenResponse(w, tokens)
}

// Logout godoc
// @Summary Завершение сессии
// @Description Отзывает refresh-токен и, если передан, access-токен из заголовка
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LogoutRequest true "Тело запроса"
// @Param Authorization header string false "Bearer access-токен (опционально)"
// @Success 200 {object} requestresponse.MessageResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		util.HandleError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if req.RefreshToken == "" {
		util.HandleError(w, http.StatusBadRequest, "invalid_request", "Refresh token is required")
		return
	}

	accessToken := security.ExtractBearerToken(r.Header.Get("Authorization"))

	if err := h.AuthenticationService.Logout(ctx, req.RefreshToken, accessToken, r.RemoteAddr); err != nil {
		if errors.Is(err, service.ErrMalformedRefreshToken) {
			util.HandleError(w, http.StatusBadRequest, "invalid_request", "Invalid refresh token format")
			return
		}
		log.Println(err)
		util.HandleError(w, http.StatusInternalServerError, "server_error", "An error occurred during logout")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(requestresponse.MessageResponse{Message: "Successfully logged out"})
}

// LogoutAll godoc
// @Summary Завершение всех сессий пользователя
// @Description Ставит водяной знак инвалидации и отзывает все refresh-токены
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer access-токен"
// @Success 200 {object} requestresponse.MessageResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /auth/logout-all [post]
func (h *AuthenticationHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	user, err := security.GetUserFromContext(ctx)
	if err != nil {
		util.HandleError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	if err := h.AuthenticationService.LogoutAll(ctx, user.UserUUID, r.RemoteAddr); err != nil {
		log.Println(err)
		util.HandleError(w, http.StatusInternalServerError, "server_error", "An error occurred during logout")
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(requestresponse.MessageResponse{Message: "All sessions have been terminated"})
}

func writeTokenResponse(w http.ResponseWriter, tokens *model.TokensPair) {
	resp := requestresponse.TokenResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    tokens.ExpiresIn,
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Println("ошибка кодирования ответа:", err)
	}
}
