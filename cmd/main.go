package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oauth2-server/config"
	"oauth2-server/internal/audit"
	"oauth2-server/internal/handler"
	"oauth2-server/internal/ports"
	"oauth2-server/internal/ratelimit"
	"oauth2-server/internal/repository"
	"oauth2-server/internal/security"
	"oauth2-server/internal/service"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title OAuth2 Token Server
// @version 1.0
// @description Выдача, проверка, ротация и отзыв bearer-токенов

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	auditLogger, err := audit.NewLogger(&cfg.Audit)
	if err != nil {
		log.Fatalf("Ошибка создания журнала аудита: %v", err)
	}
	defer auditLogger.Close()

	redisClient, err := config.SetupRedis(&cfg.RedisConfig)
	if err != nil {
		log.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Ошибка при закрытии Redis: %v", err)
		}
	}()

	refreshTTL, err := time.ParseDuration(cfg.JWT.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("Ошибка парсинга refresh_token_ttl: %v", err)
	}

	var refreshRepo ports.RefreshTokenRepository
	var blacklistRepo ports.BlacklistRepository
	if cfg.Storage.RefreshStore == "redis" {
		refreshRepo = repository.NewRedisRefreshTokenRepository(redisClient)
		blacklistRepo = repository.NewRedisBlacklistRepository(redisClient, refreshTTL)
	} else {
		sweepInterval, err := time.ParseDuration(cfg.Blacklist.SweepInterval)
		if err != nil {
			log.Fatalf("Ошибка парсинга sweep_interval: %v", err)
		}
		refreshRepo = repository.NewRefreshTokenRepository()
		memoryBlacklist := repository.NewBlacklistRepository(sweepInterval)
		defer memoryBlacklist.Close()
		blacklistRepo = memoryBlacklist
	}

	var userRepo ports.UserRepository
	if cfg.Storage.UserDirectory == "postgres" {
		db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
		if err != nil {
			log.Fatalf("Не удалось подключиться к БД: %v", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("Ошибка при закрытии БД: %v", err)
			}
		}()
		userRepo = repository.NewUserRepository(db)
	} else {
		userRepo = repository.NewSeededUserRepository()
	}

	jwtService := security.NewJWTService(&cfg.JWT)
	authService := service.NewAuthenticationService(jwtService, refreshRepo, blacklistRepo, userRepo, auditLogger)

	limiter, err := ratelimit.NewLimiter(redisClient, &cfg.RateLimit, auditLogger)
	if err != nil {
		log.Fatalf("Ошибка создания rate limiter: %v", err)
	}

	if cfg.Audit.ArchiveEnabled {
		archiver, err := audit.NewArchiver(ctx, &cfg.Audit)
		if err != nil {
			log.Fatalf("Ошибка создания архиватора аудита: %v", err)
		}
		archiveInterval, err := time.ParseDuration(cfg.Audit.ArchiveInterval)
		if err != nil {
			log.Fatalf("Ошибка парсинга archive_interval: %v", err)
		}
		go archiver.RunPeriodic(ctx, archiveInterval)
	}

	srv, router := config.SetupServer(cfg.ServerAddr)

	authHandler := handler.NewAuthenticationHandler(authService)
	resourceHandler := handler.NewResourceHandler()

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	setupAuthRoutes(router, authHandler, jwtService, blacklistRepo, userRepo, auditLogger, limiter, &cfg.RateLimit)
	setupResourceRoutes(router, resourceHandler, jwtService, blacklistRepo, userRepo, auditLogger)

	runServer(ctx, srv)
}

func setupAuthRoutes(
	r chi.Router,
	h *handler.AuthenticationHandler,
	jwtService *security.JWTService,
	blacklistRepo ports.BlacklistRepository,
	userRepo ports.UserRepository,
	auditLogger ports.AuditLogger,
	limiter *ratelimit.Limiter,
	rateCfg *config.RateLimitConfig,
) {
	r.Route("/auth", func(r chi.Router) {
		r.With(limiter.Middleware("/auth/login", rateCfg.LoginMax)).Post("/login", h.Login)
		r.With(limiter.Middleware("/auth/refresh", rateCfg.RefreshMax)).Post("/refresh", h.RefreshToken)
		r.With(limiter.Middleware("/auth/logout", rateCfg.LogoutMax)).Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(security.JWTMiddleware(jwtService, blacklistRepo, userRepo, auditLogger))
			r.Post("/logout-all", h.LogoutAll)
		})
	})
}

func setupResourceRoutes(
	r chi.Router,
	h *handler.ResourceHandler,
	jwtService *security.JWTService,
	blacklistRepo ports.BlacklistRepository,
	userRepo ports.UserRepository,
	auditLogger ports.AuditLogger,
) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/public", h.Public)

		r.Group(func(r chi.Router) {
			r.Use(security.JWTMiddleware(jwtService, blacklistRepo, userRepo, auditLogger))
			r.Get("/protected", h.Protected)
			r.Get("/user/profile", h.Profile)

			r.Group(func(r chi.Router) {
				r.Use(security.RequireRole("admin"))
				r.Get("/admin/dashboard", h.AdminDashboard)
				r.Get("/admin/users", h.AdminUsers)
			})
		})
	})
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("сервер запущен на " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		log.Printf("получен сигнал %v остановки работы сервера ", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Printf("ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}
}
