package requestresponse

// UserInfo : сведения об аутентифицированном пользователе
type UserInfo struct {
	UserUUID string `json:"userId" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	Username string `json:"username" example:"testuser"`
	Role     string `json:"role" example:"user"`
}

// ProtectedResponse : ответ защищённого ресурса
type ProtectedResponse struct {
	Message string   `json:"message" example:"This is a protected resource"`
	User    UserInfo `json:"user"`
}

// ProfileResponse : профиль текущего пользователя
type ProfileResponse struct {
	Profile UserInfo `json:"profile"`
}

// DashboardResponse : данные админской панели
type DashboardResponse struct {
	Message string `json:"message" example:"Welcome to admin dashboard"`
	Data    struct {
		TotalUsers  int `json:"totalUsers" example:"100"`
		ActiveUsers int `json:"activeUsers" example:"75"`
	} `json:"data"`
}

// UserListResponse : список пользователей (админ)
type UserListResponse struct {
	Users []UserInfo `json:"users"`
}

// PublicResponse : ответ публичного ресурса
type PublicResponse struct {
	Message   string `json:"message" example:"This is a public resource"`
	Timestamp string `json:"timestamp"`
}
