package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"github.com/maynagashev/calculations/internal/config"
	"github.com/maynagashev/calculations/internal/handlers"
	appmiddleware "github.com/maynagashev/calculations/internal/middleware"
	"github.com/maynagashev/calculations/internal/repository"
	"github.com/maynagashev/calculations/internal/services"
)

// Швы для подмены в тестах.
var (
	newPostgresDB = repository.NewPostgresDB
	runMigrations = repository.RunMigrations
)

// Структура для хранения инициализированных зависимостей.
type dependencies struct {
	db                 *sqlx.DB
	resolver           services.AuthResolver
	authHandler        *handlers.AuthHandler
	userHandler        *handlers.UserHandler
	calculationHandler *handlers.CalculationHandler
}

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		os.Exit(1)
	}
}

// run содержит основную логику запуска сервера и возвращает ошибку.
func run() error {
	log.Println("Запуск сервера Calculations...")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if err = parseFlags(cfg, os.Args[0], os.Args[1:]); err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("некорректная конфигурация: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Инициализация зависимостей
	deps, err := setupDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	// Отложенное закрытие соединения с БД
	defer func() {
		if closeErr := deps.db.Close(); closeErr != nil {
			log.Printf("Ошибка закрытия соединения с БД: %v", closeErr)
		}
	}()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      setupRouter(deps, cfg.CORS),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return serve(ctx, server, cfg.Server)
}

// serve запускает сервер и останавливает его по отмене контекста.
func serve(ctx context.Context, server *http.Server, cfg config.ServerConfig) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSEnabled() {
			log.Printf("Запуск HTTPS-сервера на %s (сертификат: %s, ключ: %s)", server.Addr, cfg.CertFile, cfg.KeyFile)
			err = server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			log.Printf("Запуск HTTP-сервера на %s", server.Addr)
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ошибка запуска сервера: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Получен сигнал остановки, завершаем обработку запросов...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	log.Println("Сервер остановлен.")
	return nil
}

// setupDependencies инициализирует и возвращает все необходимые зависимости сервера.
func setupDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}
	var err error

	// 1. Подключение к БД
	deps.db, err = newPostgresDB(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}

	// 2. Миграции схемы
	if cfg.Database.MigrateOnStart {
		if err = runMigrations(ctx, deps.db); err != nil {
			if closeErr := deps.db.Close(); closeErr != nil {
				log.Printf("Ошибка закрытия соединения с БД после неудачной миграции: %v", closeErr)
			}
			return nil, fmt.Errorf("ошибка миграции схемы: %w", err)
		}
	}

	// 3. Создание репозиториев
	userRepo := repository.NewPostgresUserRepository(deps.db)
	calcRepo := repository.NewPostgresCalculationRepository(deps.db)

	// 4. Создание сервисов
	tokenService := services.NewTokenService(services.TokenConfig{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.JWTIssuer,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	deps.resolver = services.NewAuthResolver(tokenService, userRepo)
	authService := services.NewAuthService(userRepo, tokenService)
	userService := services.NewUserService(userRepo)
	calcService := services.NewCalculationService(calcRepo)

	// 5. Создание обработчиков
	deps.authHandler = handlers.NewAuthHandler(authService)
	deps.userHandler = handlers.NewUserHandler(userService)
	deps.calculationHandler = handlers.NewCalculationHandler(calcService)

	return deps, nil
}

// setupRouter настраивает и возвращает роутер chi.
func setupRouter(deps *dependencies, corsCfg config.CORSConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.Origins(),
		AllowedMethods:   corsCfg.Methods(),
		AllowedHeaders:   corsCfg.Headers(),
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	}))

	// --- Маршруты --- //
	r.Get("/health", handlers.Health)

	// Публичные маршруты (регистрация, вход)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", deps.authHandler.Register)
		r.Post("/login", deps.authHandler.Login)
		r.Post("/token", deps.authHandler.Token)
	})

	// Приватные маршруты (требуют аутентификации)
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Authenticator(deps.resolver))
		r.Use(appmiddleware.RequireActive)

		r.Route("/user", func(r chi.Router) {
			r.Get("/me", deps.userHandler.Me)
			r.Put("/profile", deps.userHandler.UpdateProfile)
			r.Post("/change-password", deps.userHandler.ChangePassword)
		})

		r.Route("/calculations", func(r chi.Router) {
			r.Post("/", deps.calculationHandler.Create)
			r.Get("/", deps.calculationHandler.List)
			r.Get("/{id}", deps.calculationHandler.Get)
			r.Put("/{id}", deps.calculationHandler.Update)
			r.Delete("/{id}", deps.calculationHandler.Delete)
		})
	})
	return r
}
