// Package ratelimit ограничивает частоту запросов к auth-эндпоинтам
// счётчиками с фиксированным окном в Redis. Отказ случается до того, как
// запрос дойдёт до ядра выдачи токенов.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"oauth2-server/config"
	"oauth2-server/internal/ports"
	"oauth2-server/internal/util"
)

type Limiter struct {
	redis  *config.RedisClient
	window time.Duration
	audit  ports.AuditLogger
}

func NewLimiter(rdb *config.RedisClient, cfg *config.RateLimitConfig, audit ports.AuditLogger) (*Limiter, error) {
	window, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return nil, util.LogError("ошибка парсинга окна rate limit", err)
	}

	return &Limiter{
		redis:  rdb,
		window: window,
		audit:  audit,
	}, nil
}

// Middleware отсекает запросы с одного IP сверх max за окно.
// Превышение это 429 too_many_requests; ошибки Redis запрос не валят —
// лимитер это защита, а не точка отказа.
func (l *Limiter) Middleware(endpoint string, max int) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ip := clientIP(request)

			allowed, err := l.allow(request.Context(), endpoint, ip, max)
			if err != nil {
				next.ServeHTTP(writer, request)
				return
			}

			if !allowed {
				l.audit.LogRateLimitHit(ip, endpoint)
				util.HandleError(writer, http.StatusTooManyRequests, "too_many_requests",
					"Too many requests, please try again later")
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

func (l *Limiter) allow(ctx context.Context, endpoint, ip string, max int) (bool, error) {
	key := fmt.Sprintf("rate_limit:%s:%s", endpoint, ip)

	count, err := l.redis.Client.Incr(ctx, key).Result()
	if err != nil {
		return true, util.LogError("ошибка инкремента счётчика rate limit", err)
	}

	if count == 1 {
		if err := l.redis.Client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, util.LogError("ошибка установки TTL счётчика rate limit", err)
		}
	}

	return count <= int64(max), nil
}

func clientIP(request *http.Request) string {
	host, _, err := net.SplitHostPort(request.RemoteAddr)
	if err != nil {
		return request.RemoteAddr
	}
	return host
}
