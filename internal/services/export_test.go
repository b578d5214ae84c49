package services

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/calculations/internal/repository"
)

// NewAuthServiceForTest создает сервис аутентификации с минимальной стоимостью bcrypt
// и фиксированными часами.
func NewAuthServiceForTest(userRepo repository.UserRepository, tokens TokenService, now func() time.Time) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		hashCost: bcrypt.MinCost,
		now:      now,
	}
}

// NewUserServiceForTest создает сервис профиля с минимальной стоимостью bcrypt.
func NewUserServiceForTest(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo, hashCost: bcrypt.MinCost}
}

// NewTokenServiceAt создает сервис токенов с заданными часами.
func NewTokenServiceAt(cfg TokenConfig, now func() time.Time) TokenService {
	return &jwtTokenService{cfg: cfg, now: now}
}
