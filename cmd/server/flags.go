package main

import (
	"flag"
	"fmt"

	"github.com/maynagashev/calculations/internal/config"
)

// Переменные окружения, которые можно переопределить флагами.
const (
	envServerPort  = "SERVER_PORT"
	envTLSCertFile = "TLS_CERT_FILE"
	envTLSKeyFile  = "TLS_KEY_FILE"
	envDatabaseDSN = "DATABASE_DSN"
	envJWTSecret   = "JWT_SECRET"
)

// flagValues хранит значения флагов командной строки. Пустое значение означает "не задан".
type flagValues struct {
	Port        string
	CertFile    string
	KeyFile     string
	DatabaseDSN string
	JWTSecret   string
}

// parseFlags разбирает аргументы командной строки и переопределяет ими значения из окружения.
func parseFlags(cfg *config.Config, name string, args []string) error {
	var fv flagValues
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	// Определяем флаги
	fs.StringVar(&fv.Port, "port", "",
		fmt.Sprintf("Порт HTTP(S)-сервера (env: %s, default: %s)", envServerPort, cfg.Server.Port))
	fs.StringVar(&fv.CertFile, "cert-file", "",
		fmt.Sprintf("Путь к файлу TLS-сертификата (env: %s)", envTLSCertFile))
	fs.StringVar(&fv.KeyFile, "key-file", "",
		fmt.Sprintf("Путь к файлу TLS-ключа (env: %s)", envTLSKeyFile))
	fs.StringVar(&fv.DatabaseDSN, "database-dsn", "",
		fmt.Sprintf("Строка подключения к базе данных (env: %s)", envDatabaseDSN))
	fs.StringVar(&fv.JWTSecret, "jwt-secret", "",
		fmt.Sprintf("Секрет подписи JWT (env: %s)", envJWTSecret))

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("ошибка разбора флагов: %w", err)
	}

	applyFlags(cfg, fv)
	return nil
}

// applyFlags переносит заданные флаги в конфигурацию. Флаги важнее переменных окружения.
func applyFlags(cfg *config.Config, fv flagValues) {
	if fv.Port != "" {
		cfg.Server.Port = fv.Port
	}
	if fv.CertFile != "" {
		cfg.Server.CertFile = fv.CertFile
	}
	if fv.KeyFile != "" {
		cfg.Server.KeyFile = fv.KeyFile
	}
	if fv.DatabaseDSN != "" {
		cfg.Database.DSN = fv.DatabaseDSN
	}
	if fv.JWTSecret != "" {
		cfg.Auth.JWTSecret = fv.JWTSecret
	}
}
