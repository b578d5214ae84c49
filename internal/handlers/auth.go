package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/services"
)

const tokenTypeBearer = "bearer"

// AuthHandler обрабатывает HTTP-запросы, связанные с аутентификацией.
type AuthHandler struct {
	service   services.AuthService // Зависимость от интерфейса, а не конкретной реализации
	validator *requestValidator
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(s services.AuthService) *AuthHandler {
	return &AuthHandler{service: s, validator: newRequestValidator()}
}

// Register обрабатывает запрос на регистрацию нового пользователя.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		log.Printf("[AuthHandler] Ошибка декодирования запроса регистрации: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Схема проверяется по уже обрезанным значениям.
	// Ошибки схемы регистрации отдаются как 400 с первым сообщением.
	req = req.Normalized()
	if errs := h.validator.Validate(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: errs[0].Field + ": " + errs[0].Message, Errors: errs})
		return
	}

	log.Printf("[AuthHandler] Попытка регистрации пользователя: %s", req.Username)

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		var vErr *services.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, services.ErrUserExists):
			writeError(w, http.StatusBadRequest, "Username or email already exists")
		default:
			log.Printf("[AuthHandler] Ошибка регистрации '%s': %v", req.Username, err)
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusCreated, models.NewUserResponse(user))
}

// Login обрабатывает JSON-запрос на вход пользователя.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		log.Printf("[AuthHandler] Ошибка декодирования запроса входа: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.Validate(req); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	result, ok := h.login(w, r, req.Username, req.Password)
	if !ok {
		return
	}

	u := result.User
	writeJSON(w, http.StatusOK, models.LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresAt:    result.Tokens.AccessExpiresAt,
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
	})
}

// Token обрабатывает form-логин (application/x-www-form-urlencoded) и возвращает только access-токен.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		log.Printf("[AuthHandler] Ошибка разбора формы: %v", err)
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		writeValidationErrors(w, missingFormFields(username, password))
		return
	}

	result, ok := h.login(w, r, username, password)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: result.Tokens.AccessToken,
		TokenType:   tokenTypeBearer,
	})
}

// login вызывает сервис и отвечает ошибкой сам. ok=false означает, что ответ уже записан.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, login, password string) (*services.LoginResult, bool) {
	log.Printf("[AuthHandler] Попытка входа пользователя: %s", login)

	result, err := h.service.Login(r.Context(), login, password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
		case errors.Is(err, services.ErrInactiveAccount):
			writeError(w, http.StatusBadRequest, "Inactive user")
		default:
			log.Printf("[AuthHandler] Ошибка входа '%s': %v", login, err)
			writeInternalError(w)
		}
		return nil, false
	}
	return result, true
}

func missingFormFields(username, password string) []FieldError {
	var errs []FieldError
	if username == "" {
		errs = append(errs, FieldError{Field: "username", Message: "Field required"})
	}
	if password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "Field required"})
	}
	return errs
}
