package ports

// AuditLogger : приёмник событий безопасности. Все методы
// fire-and-forget и никогда не блокируют путь запроса.
type AuditLogger interface {
	LogLogin(userUUID, username, ipAddress, userAgent string, success bool, reason string)
	LogTokenRefresh(userUUID, ipAddress string, success bool, reason string)
	LogLogout(userUUID, ipAddress string)
	LogLogoutAll(userUUID, ipAddress string)
	LogTokenBlacklisted(userUUID, tokenType, reason string)
	LogSuspiciousActivity(userUUID, ipAddress, activity string)
	LogAuthBypassAttempt(ipAddress, userUUID, reason string)
	LogRateLimitHit(ipAddress, endpoint string)
}
