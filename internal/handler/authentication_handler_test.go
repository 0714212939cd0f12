package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"oauth2-server/config"
	"oauth2-server/internal/audit"
	"oauth2-server/internal/handler"
	"oauth2-server/internal/repository"
	"oauth2-server/internal/security"
	"oauth2-server/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Сквозные тесты: настоящий роутер, настоящие сервисы, хранилища в памяти.
// Подменён только приёмник аудита.

type serverFixture struct {
	router    *chi.Mux
	blacklist *repository.BlacklistRepository
}

func newServerFixture(t *testing.T, accessTokenTTL string) *serverFixture {
	t.Helper()

	jwtCfg := &config.JWTConfig{
		AccessSecret:    strings.Repeat("a", 32),
		RefreshSecret:   strings.Repeat("b", 32),
		AccessTokenTTL:  accessTokenTTL,
		RefreshTokenTTL: "168h",
	}

	jwtService := security.NewJWTService(jwtCfg)
	refreshRepo := repository.NewRefreshTokenRepository()
	blacklistRepo := repository.NewBlacklistRepository(0)
	t.Cleanup(blacklistRepo.Close)
	userRepo := repository.NewSeededUserRepository()
	auditLogger := &audit.Noop{}

	authService := service.NewAuthenticationService(jwtService, refreshRepo, blacklistRepo, userRepo, auditLogger)
	authHandler := handler.NewAuthenticationHandler(authService)
	resourceHandler := handler.NewResourceHandler()

	authenticated := security.JWTMiddleware(jwtService, blacklistRepo, userRepo, auditLogger)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.RefreshToken)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/logout-all", authHandler.LogoutAll)
		})
	})
	router.Route("/api", func(r chi.Router) {
		r.Get("/public", resourceHandler.Public)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/protected", resourceHandler.Protected)
			r.Get("/user/profile", resourceHandler.Profile)

			r.Group(func(r chi.Router) {
				r.Use(security.RequireRole("admin"))
				r.Get("/admin/dashboard", resourceHandler.AdminDashboard)
				r.Get("/admin/users", resourceHandler.AdminUsers)
			})
		})
	})

	return &serverFixture{router: router, blacklist: blacklistRepo}
}

func (f *serverFixture) post(t *testing.T, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func (f *serverFixture) get(t *testing.T, path string, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

type tokenBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (f *serverFixture) login(t *testing.T, username, password string) tokenBody {
	t.Helper()

	recorder := f.post(t, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var body tokenBody
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func decodeErrorBody(t *testing.T, recorder *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

// ===== LOGIN =====

func TestLoginEndpoint(t *testing.T) {
	f := newServerFixture(t, "15m")

	tokens := f.login(t, "testuser", "Password123")

	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Greater(t, tokens.ExpiresIn, int64(0))
}

func TestLoginWrongPasswordEndpoint(t *testing.T) {
	f := newServerFixture(t, "15m")

	recorder := f.post(t, "/auth/login", map[string]string{
		"username": "testuser",
		"password": "WrongPassword",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	body := decodeErrorBody(t, recorder)
	assert.Equal(t, "invalid_grant", body.Error)
	assert.Equal(t, "Invalid username or password", body.ErrorDescription)
}

func TestLoginUnknownUserEndpoint(t *testing.T) {
	f := newServerFixture(t, "15m")

	recorder := f.post(t, "/auth/login", map[string]string{
		"username": "ghost",
		"password": "Password123",
	}, "")

	// Тот же ответ, что и при неверном пароле: логины не перечисляемы
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	body := decodeErrorBody(t, recorder)
	assert.Equal(t, "invalid_grant", body.Error)
	assert.Equal(t, "Invalid username or password", body.ErrorDescription)
}

func TestLoginMissingFields(t *testing.T) {
	f := newServerFixture(t, "15m")

	recorder := f.post(t, "/auth/login", map[string]string{"username": "testuser"}, "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_request", decodeErrorBody(t, recorder).Error)
}

func TestLoginInvalidJSON(t *testing.T) {
	f := newServerFixture(t, "15m")

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{broken"))
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_request", decodeErrorBody(t, recorder).Error)
}

// ===== REFRESH =====

func TestRefreshRotation(t *testing.T) {
	f := newServerFixture(t, "15m")

	tokens := f.login(t, "testuser", "Password123")

	recorder := f.post(t, "/auth/refresh", map[string]string{"refresh_token": tokens.RefreshToken}, "")
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var rotated tokenBody
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &rotated))
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)
	assert.NotEmpty(t, rotated.AccessToken)

	// Старый refresh-токен одноразовый: повтор отклоняется
	recorder = f.post(t, "/auth/refresh", map[string]string{"refresh_token": tokens.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "invalid_grant", decodeErrorBody(t, recorder).Error)

	// Новый продолжает работать
	recorder = f.post(t, "/auth/refresh", map[string]string{"refresh_token": rotated.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRefreshGarbageToken(t *testing.T) {
	f := newServerFixture(t, "15m")

	recorder := f.post(t, "/auth/refresh", map[string]string{"refresh_token": "not-a-jwt"}, "")

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	body := decodeErrorBody(t, recorder)
	assert.Equal(t, "invalid_grant", body.Error)
	assert.Equal(t, "Invalid refresh token", body.ErrorDescription)
}

func TestRefreshMissingToken(t *testing.T) {
	f := newServerFixture(t, "15m")

	recorder := f.post(t, "/auth/refresh", map[string]string{}, "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_request", decodeErrorBody(t, recorder).Error)
}

// ===== PROTECTED RESOURCES =====

func TestProtectedResource(t *testing.T) {
	f := newServerFixture(t, "15m")

	recorder := f.get(t, "/api/protected", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "unauthorized", decodeErrorBody(t, recorder).Error)

	tokens := f.login(t, "testuser", "Password123")

	recorder = f.get(t, "/api/protected", tokens.AccessToken)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Message string `json:"message"`
		User    struct {
			UserUUID string `json:"userId"`
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "This is a protected resource", body.Message)
	assert.Equal(t, "testuser", body.User.Username)
	assert.Equal(t, "user", body.User.Role)
}

func TestExpiredAccessTokenBody(t *testing.T) {
	// Access-токены рождаются уже истёкшими, refresh остаётся живым
	f := newServerFixture(t, "-1m")

	tokens := f.login(t, "testuser", "Password123")

	recorder := f.get(t, "/api/protected", tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	body := decodeErrorBody(t, recorder)
	assert.Equal(t, "token_expired", body.Error)
	assert.Equal(t, "Access token has expired", body.ErrorDescription)

	// По refresh при этом можно получить свежую пару
	refreshed := f.post(t, "/auth/refresh", map[string]string{"refresh_token": tokens.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, refreshed.Code)
}

func TestProfileEndpoint(t *testing.T) {
	f := newServerFixture(t, "15m")

	tokens := f.login(t, "admin", "Password123")

	recorder := f.get(t, "/api/user/profile", tokens.AccessToken)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Profile struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "admin", body.Profile.Username)
	assert.Equal(t, "admin", body.Profile.Role)
}

func TestPublicEndpoint(t *testing.T) {
	f := newServerFixture(t, "15m")

	recorder := f.get(t, "/api/public", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "This is a public resource", body.Message)
	_, err := time.Parse(time.RFC3339, body.Timestamp)
	assert.NoError(t, err)
}

// ===== ROLES =====

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	f := newServerFixture(t, "15m")

	userTokens := f.login(t, "testuser", "Password123")
	adminTokens := f.login(t, "admin", "Password123")

	recorder := f.get(t, "/api/admin/dashboard", userTokens.AccessToken)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	body := decodeErrorBody(t, recorder)
	assert.Equal(t, "forbidden", body.Error)
	assert.Equal(t, "Insufficient permissions", body.ErrorDescription)

	recorder = f.get(t, "/api/admin/dashboard", adminTokens.AccessToken)
	require.Equal(t, http.StatusOK, recorder.Code)

	var dashboard struct {
		Message string `json:"message"`
		Data    struct {
			TotalUsers  int `json:"totalUsers"`
			ActiveUsers int `json:"activeUsers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &dashboard))
	assert.Equal(t, "Welcome to admin dashboard", dashboard.Message)

	recorder = f.get(t, "/api/admin/users", userTokens.AccessToken)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = f.get(t, "/api/admin/users", adminTokens.AccessToken)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

// ===== LOGOUT =====

func TestLogoutRevokesSession(t *testing.T) {
	f := newServerFixture(t, "15m")

	tokens := f.login(t, "testuser", "Password123")

	recorder := f.post(t, "/auth/logout", map[string]string{"refresh_token": tokens.RefreshToken}, tokens.AccessToken)
	require.Equal(t, http.StatusOK, recorder.Code)

	var message struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &message))
	assert.Equal(t, "Successfully logged out", message.Message)

	// Отозванный refresh больше не обменивается
	recorder = f.post(t, "/auth/refresh", map[string]string{"refresh_token": tokens.RefreshToken}, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Refresh token has been revoked", decodeErrorBody(t, recorder).ErrorDescription)

	// Access-токен из заголовка тоже попал в чёрный список
	recorder = f.get(t, "/api/protected", tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Token has been revoked", decodeErrorBody(t, recorder).ErrorDescription)
}

func TestLogoutMalformedToken(t *testing.T) {
	f := newServerFixture(t, "15m")

	recorder := f.post(t, "/auth/logout", map[string]string{"refresh_token": "not-a-jwt"}, "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	body := decodeErrorBody(t, recorder)
	assert.Equal(t, "invalid_request", body.Error)
	assert.Equal(t, "Invalid refresh token format", body.ErrorDescription)
}

// Сессии независимы: выход из одной не трогает другую.
func TestLogoutLeavesOtherSessionsAlive(t *testing.T) {
	f := newServerFixture(t, "15m")

	first := f.login(t, "testuser", "Password123")
	second := f.login(t, "testuser", "Password123")

	recorder := f.post(t, "/auth/logout", map[string]string{"refresh_token": first.RefreshToken}, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = f.post(t, "/auth/refresh", map[string]string{"refresh_token": second.RefreshToken}, "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = f.get(t, "/api/protected", second.AccessToken)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

// ===== LOGOUT ALL =====

func TestLogoutAllTerminatesEverySession(t *testing.T) {
	f := newServerFixture(t, "15m")

	first := f.login(t, "testuser", "Password123")
	second := f.login(t, "testuser", "Password123")

	// iat усечён до секунды: даём водяному знаку уйти вперёд
	time.Sleep(10 * time.Millisecond)

	recorder := f.post(t, "/auth/logout-all", nil, first.AccessToken)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var message struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &message))
	assert.Equal(t, "All sessions have been terminated", message.Message)

	// Оба refresh-токена сняты с учёта
	for _, refreshToken := range []string{first.RefreshToken, second.RefreshToken} {
		recorder = f.post(t, "/auth/refresh", map[string]string{"refresh_token": refreshToken}, "")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	}

	// Оба access-токена перекрыты водяным знаком
	for _, accessToken := range []string{first.AccessToken, second.AccessToken} {
		recorder = f.get(t, "/api/protected", accessToken)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Equal(t, "All user sessions have been terminated", decodeErrorBody(t, recorder).ErrorDescription)
	}

	// Чужие сессии не пострадали
	admin := f.login(t, "admin", "Password123")
	recorder = f.get(t, "/api/protected", admin.AccessToken)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestLogoutAllRequiresAuthentication(t *testing.T) {
	f := newServerFixture(t, "15m")

	recorder := f.post(t, "/auth/logout-all", nil, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "unauthorized", decodeErrorBody(t, recorder).Error)
}
