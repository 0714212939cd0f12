package audit

// Noop : заглушка приёмника аудита для тестов и отключённого аудита.
type Noop struct{}

func (Noop) LogLogin(userUUID, username, ipAddress, userAgent string, success bool, reason string) {}
func (Noop) LogTokenRefresh(userUUID, ipAddress string, success bool, reason string)              {}
func (Noop) LogLogout(userUUID, ipAddress string)                                                 {}
func (Noop) LogLogoutAll(userUUID, ipAddress string)                                              {}
func (Noop) LogTokenBlacklisted(userUUID, tokenType, reason string)                               {}
func (Noop) LogSuspiciousActivity(userUUID, ipAddress, activity string)                           {}
func (Noop) LogAuthBypassAttempt(ipAddress, userUUID, reason string)                              {}
func (Noop) LogRateLimitHit(ipAddress, endpoint string)                                           {}
