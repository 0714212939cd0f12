// Package audit пишет события безопасности в структурированный JSON-журнал.
// Отправка событий fire-and-forget: буферизированный канал и один воркер;
// при переполненном буфере событие отбрасывается, путь запроса не блокируется.
package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"oauth2-server/config"
)

type Event struct {
	Name   string
	Level  slog.Level
	Fields []slog.Attr
}

type Logger struct {
	logger    *slog.Logger
	events    chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once
	file      *os.File
}

// NewLogger открывает файл журнала и запускает воркер.
func NewLogger(cfg *config.AuditConfig) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог журнала аудита: %w", err)
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть журнал аудита: %w", err)
	}

	logger := NewLoggerWithWriter(file, cfg.BufferSize)
	logger.file = file
	return logger, nil
}

// NewLoggerWithWriter создаёт журнал поверх произвольного writer (тесты).
func NewLoggerWithWriter(w io.Writer, bufferSize int) *Logger {
	if bufferSize <= 0 {
		bufferSize = 256
	}

	l := &Logger{
		logger: slog.New(slog.NewJSONHandler(w, nil)),
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.run()

	return l
}

func (l *Logger) run() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.events:
			l.write(event)
		case <-l.done:
			// Дописываем то, что уже в буфере.
			for {
				select {
				case event := <-l.events:
					l.write(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(event Event) {
	l.logger.LogAttrs(context.Background(), event.Level, event.Name, event.Fields...)
}

func (l *Logger) emit(event Event) {
	select {
	case l.events <- event:
	default:
		l.dropped.Add(1)
	}
}

// Dropped возвращает число событий, отброшенных из-за переполнения буфера.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close дописывает буфер и закрывает файл журнала.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.wg.Wait()
		if l.file != nil {
			l.file.Close()
		}
	})
}

func (l *Logger) LogLogin(userUUID, username, ipAddress, userAgent string, success bool, reason string) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	l.emit(Event{
		Name:  "USER_LOGIN",
		Level: level,
		Fields: []slog.Attr{
			slog.String("user_uuid", userUUID),
			slog.String("username", username),
			slog.String("ip", ipAddress),
			slog.String("user_agent", userAgent),
			slog.Bool("success", success),
			slog.String("reason", reason),
		},
	})
}

func (l *Logger) LogTokenRefresh(userUUID, ipAddress string, success bool, reason string) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	l.emit(Event{
		Name:  "TOKEN_REFRESH",
		Level: level,
		Fields: []slog.Attr{
			slog.String("user_uuid", userUUID),
			slog.String("ip", ipAddress),
			slog.Bool("success", success),
			slog.String("reason", reason),
		},
	})
}

func (l *Logger) LogLogout(userUUID, ipAddress string) {
	l.emit(Event{
		Name:  "USER_LOGOUT",
		Level: slog.LevelInfo,
		Fields: []slog.Attr{
			slog.String("user_uuid", userUUID),
			slog.String("ip", ipAddress),
		},
	})
}

func (l *Logger) LogLogoutAll(userUUID, ipAddress string) {
	l.emit(Event{
		Name:  "SESSIONS_TERMINATED",
		Level: slog.LevelInfo,
		Fields: []slog.Attr{
			slog.String("user_uuid", userUUID),
			slog.String("ip", ipAddress),
		},
	})
}

func (l *Logger) LogTokenBlacklisted(userUUID, tokenType, reason string) {
	l.emit(Event{
		Name:  "TOKEN_BLACKLISTED",
		Level: slog.LevelInfo,
		Fields: []slog.Attr{
			slog.String("user_uuid", userUUID),
			slog.String("token_type", tokenType),
			slog.String("reason", reason),
		},
	})
}

func (l *Logger) LogSuspiciousActivity(userUUID, ipAddress, activity string) {
	l.emit(Event{
		Name:  "SUSPICIOUS_ACTIVITY",
		Level: slog.LevelWarn,
		Fields: []slog.Attr{
			slog.String("user_uuid", userUUID),
			slog.String("ip", ipAddress),
			slog.String("activity", activity),
		},
	})
}

func (l *Logger) LogAuthBypassAttempt(ipAddress, userUUID, reason string) {
	l.emit(Event{
		Name:  "AUTH_BYPASS_ATTEMPT",
		Level: slog.LevelError,
		Fields: []slog.Attr{
			slog.String("ip", ipAddress),
			slog.String("user_uuid", userUUID),
			slog.String("reason", reason),
		},
	})
}

func (l *Logger) LogRateLimitHit(ipAddress, endpoint string) {
	l.emit(Event{
		Name:  "RATE_LIMIT_HIT",
		Level: slog.LevelWarn,
		Fields: []slog.Attr{
			slog.String("ip", ipAddress),
			slog.String("endpoint", endpoint),
		},
	})
}
