package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinJWTSecretLength - минимальная длина секрета подписи JWT.
const MinJWTSecretLength = 32

// Config - корневая конфигурация сервера.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig - настройки HTTP-сервера. TLS включается, если заданы и сертификат, и ключ.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:""`
	Port            string        `yaml:"port"             env:"SERVER_PORT"             env-default:"8000"`
	CertFile        string        `yaml:"cert_file"        env:"TLS_CERT_FILE"`
	KeyFile         string        `yaml:"key_file"         env:"TLS_KEY_FILE"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// TLSEnabled сообщает, что сервер должен слушать HTTPS.
func (s ServerConfig) TLSEnabled() bool {
	return s.CertFile != "" && s.KeyFile != ""
}

// Addr возвращает адрес для http.Server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// DatabaseConfig - настройки подключения к PostgreSQL.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn"              env:"DATABASE_DSN"`
	MigrateOnStart bool   `yaml:"migrate_on_start" env:"DATABASE_MIGRATE_ON_START" env-default:"true"`
}

// AuthConfig - настройки выпуска токенов.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"        env:"JWT_SECRET"`
	JWTIssuer       string        `yaml:"jwt_issuer"        env:"JWT_ISSUER"        env-default:"calculations"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"  env:"ACCESS_TOKEN_TTL"  env-default:"30m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
}

// CORSConfig - настройки CORS. Списки задаются через запятую.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"300"`
}

// Origins возвращает список разрешенных источников.
func (c CORSConfig) Origins() []string { return splitList(c.AllowedOrigins) }

// Methods возвращает список разрешенных методов.
func (c CORSConfig) Methods() []string { return splitList(c.AllowedMethods) }

// Headers возвращает список разрешенных заголовков.
func (c CORSConfig) Headers() []string { return splitList(c.AllowedHeaders) }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate проверяет согласованность конфигурации.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port: не указан порт"))
	}
	if (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		errs = append(errs, errors.New("server: для TLS нужны и cert_file, и key_file"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn: не указана строка подключения к БД"))
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("auth.jwt_secret: секрет короче %d символов", MinJWTSecretLength))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.access_token_ttl: должен быть положительным"))
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.refresh_token_ttl: должен быть положительным"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout: должен быть положительным"))
	}

	return errors.Join(errs...)
}
