package config

import "fmt"

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type JWTConfig struct {
	AccessSecret    string `yaml:"access_secret"`
	RefreshSecret   string `yaml:"refresh_secret"`
	AccessTokenTTL  string `yaml:"access_token_ttl"`
	RefreshTokenTTL string `yaml:"refresh_token_ttl"`
}

// Validate проверяет секреты при старте сервера.
// Секреты обязаны быть разными: компрометация одного ключевого
// пространства не должна позволять подделывать другой класс токенов.
func (cfg *JWTConfig) Validate() error {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return fmt.Errorf("access_secret и refresh_secret обязательны")
	}
	if len(cfg.AccessSecret) < 32 || len(cfg.RefreshSecret) < 32 {
		return fmt.Errorf("секреты должны быть не короче 32 символов")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return fmt.Errorf("access_secret и refresh_secret должны отличаться")
	}
	return nil
}

type RateLimitConfig struct {
	Window     string `yaml:"window"`
	LoginMax   int    `yaml:"login_max"`
	RefreshMax int    `yaml:"refresh_max"`
	LogoutMax  int    `yaml:"logout_max"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Local    bool   `yaml:"local"`
}

type AuditConfig struct {
	LogFile         string   `yaml:"log_file"`
	BufferSize      int      `yaml:"buffer_size"`
	ArchiveEnabled  bool     `yaml:"archive_enabled"`
	ArchiveInterval string   `yaml:"archive_interval"`
	S3              S3Config `yaml:"s3"`
}

type BlacklistConfig struct {
	SweepInterval string `yaml:"sweep_interval"`
}

// StorageConfig выбирает реализацию хранилищ: "memory" или "redis" для
// refresh-токенов и чёрного списка, "memory" или "postgres" для пользователей.
type StorageConfig struct {
	RefreshStore  string `yaml:"refresh_store"`
	UserDirectory string `yaml:"user_directory"`
}
