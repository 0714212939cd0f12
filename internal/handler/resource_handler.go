package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"oauth2-server/internal/model/requestresponse"
	"oauth2-server/internal/security"
	"oauth2-server/internal/util"
)

// ResourceHandler отдаёт демонстрационные ресурсы, защищённые
// аутентификацией и ролями.
type ResourceHandler struct{}

func NewResourceHandler() *ResourceHandler {
	return &ResourceHandler{}
}

// Protected godoc
// @Summary Защищённый ресурс
// @Tags Resources
// @Produce json
// @Param Authorization header string true "Bearer access-токен"
// @Success 200 {object} requestresponse.ProtectedResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Router /api/protected [get]
func (h *ResourceHandler) Protected(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user, err := security.GetUserFromContext(r.Context())
	if err != nil {
		util.HandleError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	resp := requestresponse.ProtectedResponse{
		Message: "This is a protected resource",
		User:    userInfo(user),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Profile godoc
// @Summary Профиль текущего пользователя
// @Tags Resources
// @Produce json
// @Param Authorization header string true "Bearer access-токен"
// @Success 200 {object} requestresponse.ProfileResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Router /api/user/profile [get]
func (h *ResourceHandler) Profile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	user, err := security.GetUserFromContext(r.Context())
	if err != nil {
		util.HandleError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	resp := requestresponse.ProfileResponse{Profile: userInfo(user)}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// AdminDashboard godoc
// @Summary Админская панель
// @Tags Resources
// @Produce json
// @Param Authorization header string true "Bearer access-токен"
// @Success 200 {object} requestresponse.DashboardResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse "Недостаточно прав"
// @Router /api/admin/dashboard [get]
func (h *ResourceHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	resp := requestresponse.DashboardResponse{Message: "Welcome to admin dashboard"}
	resp.Data.TotalUsers = 100
	resp.Data.ActiveUsers = 75

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// AdminUsers godoc
// @Summary Список пользователей (админ)
// @Tags Resources
// @Produce json
// @Param Authorization header string true "Bearer access-токен"
// @Success 200 {object} requestresponse.UserListResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 403 {object} requestresponse.ErrorResponse "Недостаточно прав"
// @Router /api/admin/users [get]
func (h *ResourceHandler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	resp := requestresponse.UserListResponse{
		Users: []requestresponse.UserInfo{
			{UserUUID: "1", Username: "testuser", Role: "user"},
			{UserUUID: "2", Username: "admin", Role: "admin"},
		},
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

// Public godoc
// @Summary Публичный ресурс
// @Tags Resources
// @Produce json
// @Success 200 {object} requestresponse.PublicResponse
// @Router /api/public [get]
func (h *ResourceHandler) Public(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	resp := requestresponse.PublicResponse{
		Message:   "This is a public resource",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func userInfo(user *security.AuthenticatedUser) requestresponse.UserInfo {
	return requestresponse.UserInfo{
		UserUUID: user.UserUUID,
		Username: user.Username,
		Role:     user.Role,
	}
}
