package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/repository"
)

// UserService определяет операции над профилем текущего пользователя.
type UserService interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, update models.ProfileUpdate) (*models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req models.PasswordChangeRequest) error
}

var _ UserService = (*userService)(nil)

type userService struct {
	userRepo repository.UserRepository
	hashCost int
}

// NewUserService создает сервис профиля пользователя.
func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo, hashCost: bcrypt.DefaultCost}
}

// UpdateProfile применяет частичное обновление профиля. Пустой запрос возвращает текущую запись.
func (s *userService) UpdateProfile(
	ctx context.Context,
	userID uuid.UUID,
	update models.ProfileUpdate,
) (*models.User, error) {
	update = update.Normalized()
	if update.Username != nil && *update.Username == "" {
		return nil, NewValidationError("Username cannot be empty")
	}
	if update.Username != nil && utf8.RuneCountInString(*update.Username) < MinUsernameLength {
		return nil, NewValidationError(usernameTooShort)
	}
	if update.Email != nil && *update.Email == "" {
		return nil, NewValidationError("Email cannot be empty")
	}

	var (
		user *models.User
		err  error
	)
	if update.IsEmpty() {
		user, err = s.userRepo.GetUserByID(ctx, userID)
	} else {
		user, err = s.userRepo.UpdateProfile(ctx, userID, update)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		case isDuplicate(err):
			log.Printf("[UserService] Конфликт уникальности при обновлении профиля %s", userID)
			return nil, ErrUserExists
		}
		log.Printf("[UserService] Ошибка обновления профиля %s: %v", userID, err)
		return nil, fmt.Errorf("ошибка обновления профиля: %w", err)
	}

	return user, nil
}

// ChangePassword проверяет текущий пароль и сохраняет хеш нового.
func (s *userService) ChangePassword(ctx context.Context, userID uuid.UUID, req models.PasswordChangeRequest) error {
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmNewPassword == "" {
		return NewValidationError("All fields are required.")
	}
	if req.NewPassword != req.ConfirmNewPassword {
		return NewValidationError("New password and confirmation do not match.")
	}
	if len(req.NewPassword) < MinPasswordLength {
		return NewValidationError(fmt.Sprintf("New password must be at least %d characters.", MinPasswordLength))
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("ошибка поиска пользователя: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		log.Printf("[UserService] Неверный текущий пароль для %s", userID)
		return NewValidationError("Current password is incorrect.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	if err = s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		log.Printf("[UserService] Ошибка сохранения пароля для %s: %v", userID, err)
		return fmt.Errorf("ошибка сохранения пароля: %w", err)
	}

	log.Printf("[UserService] Пароль пользователя %s обновлен", userID)
	return nil
}

var (
	ErrUserNotFound = errors.New("пользователь не найден")
)
