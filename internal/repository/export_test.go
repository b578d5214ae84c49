package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

// SetSqlxConnect подменяет подключение к БД и возвращает функцию восстановления.
func SetSqlxConnect(fn func(driverName, dsn string) (*sqlx.DB, error)) func() {
	prev := sqlxConnect
	sqlxConnect = fn
	return func() { sqlxConnect = prev }
}

// SetGooseUpContext подменяет запуск миграций и возвращает функцию восстановления.
func SetGooseUpContext(fn func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error) func() {
	prev := gooseUpContext
	gooseUpContext = fn
	return func() { gooseUpContext = prev }
}
