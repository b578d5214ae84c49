package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/repository"
)

const (
	// MinPasswordLength - минимальная длина пароля.
	MinPasswordLength = 8
	// MinUsernameLength - минимальная длина имени пользователя после обрезки пробелов.
	MinUsernameLength = 3

	usernameTooShort = "Username must be at least 3 characters long"
)

// LoginResult - результат успешного входа.
type LoginResult struct {
	Tokens *TokenPair
	User   *models.User
}

// AuthService определяет интерфейс для сервиса аутентификации.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, login, password string) (*LoginResult, error)
}

// Убедимся, что authService удовлетворяет интерфейсу AuthService.
var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo repository.UserRepository
	tokens   TokenService
	hashCost int
	now      func() time.Time
}

// NewAuthService создает новый экземпляр сервиса аутентификации.
func NewAuthService(userRepo repository.UserRepository, tokens TokenService) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

// Register регистрирует нового пользователя. Пароль сохраняется только в виде bcrypt-хеша.
func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req = req.Normalized()
	if utf8.RuneCountInString(req.Username) < MinUsernameLength {
		return nil, NewValidationError(usernameTooShort)
	}
	username, email := req.Username, req.Email

	if req.Password != req.ConfirmPassword {
		return nil, NewValidationError("Passwords do not match")
	}
	if err := checkPasswordStrength(req.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		log.Printf("[AuthService] Ошибка хеширования пароля для '%s': %v", username, err)
		return nil, errors.New("внутренняя ошибка сервера при хешировании пароля")
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     true,
		IsVerified:   false,
	}

	created, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		if isDuplicate(err) {
			log.Printf("[AuthService] Попытка регистрации с занятым именем или email: %s / %s", username, email)
			return nil, ErrUserExists
		}
		log.Printf("[AuthService] Непредвиденная ошибка репозитория при регистрации '%s': %v", username, err)
		return nil, errors.New("внутренняя ошибка сервера при создании пользователя")
	}

	log.Printf("[AuthService] Пользователь '%s' успешно зарегистрирован", username)
	return created, nil
}

// Login аутентифицирует пользователя по имени или email и выдает пару токенов.
func (s *authService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	login = strings.TrimSpace(login)

	user, err := s.userRepo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Printf("[AuthService] Попытка входа несуществующего пользователя: %s", login)
			return nil, ErrInvalidCredentials // Общая ошибка для несуществующего пользователя и неверного пароля
		}
		log.Printf("[AuthService] Ошибка репозитория при поиске '%s': %v", login, err)
		return nil, errors.New("внутренняя ошибка сервера при поиске пользователя")
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Printf("[AuthService] Неверный пароль для пользователя: %s", login)
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		log.Printf("[AuthService] Попытка входа деактивированного пользователя: %s", login)
		return nil, ErrInactiveAccount
	}

	loginAt := s.now().UTC()
	if err = s.userRepo.UpdateLastLogin(ctx, user.ID, loginAt); err != nil {
		log.Printf("[AuthService] Ошибка обновления времени входа для '%s': %v", login, err)
		return nil, errors.New("внутренняя ошибка сервера при обновлении времени входа")
	}
	user.LastLoginAt = &loginAt

	tokens, err := s.tokens.IssueTokens(user)
	if err != nil {
		log.Printf("[AuthService] Ошибка генерации JWT для '%s': %v", login, err)
		return nil, errors.New("внутренняя ошибка сервера при генерации токена")
	}

	log.Printf("[AuthService] Пользователь '%s' успешно аутентифицирован", login)
	return &LoginResult{Tokens: tokens, User: user}, nil
}

// checkPasswordStrength проверяет длину и состав пароля.
func checkPasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError(fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return NewValidationError("Password must contain at least one uppercase letter, one lowercase letter and one digit")
	}
	return nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrUsernameTaken) ||
		errors.Is(err, repository.ErrEmailTaken) ||
		errors.Is(err, repository.ErrDuplicateUser)
}

// ValidationError - ошибка проверки данных запроса на уровне сервиса.
// Message предназначен для клиента.
type ValidationError struct {
	Message string
}

// NewValidationError создает ошибку валидации с сообщением для клиента.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Кастомные ошибки сервиса.
var (
	ErrInvalidCredentials = errors.New("неверное имя пользователя или пароль")
	ErrUserExists         = errors.New("имя пользователя или email уже заняты")
	ErrValidation         = errors.New("ошибка валидации")
)
