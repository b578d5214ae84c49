package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/maynagashev/calculations/internal/middleware"
	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/services"
)

// UserHandler обрабатывает запросы к профилю текущего пользователя.
type UserHandler struct {
	service   services.UserService
	validator *requestValidator
}

// NewUserHandler создает новый экземпляр UserHandler.
func NewUserHandler(s services.UserService) *UserHandler {
	return &UserHandler{service: s, validator: newRequestValidator()}
}

// Me возвращает текущего пользователя в том виде, в каком его только что прочитал резолвер.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		log.Printf("[UserHandler:Me] Не удалось получить пользователя из контекста")
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, models.NewUserResponse(user))
}

// UpdateProfile частично обновляет профиль.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		log.Printf("[UserHandler:UpdateProfile] Не удалось получить пользователя из контекста")
		writeInternalError(w)
		return
	}

	var req models.ProfileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req = req.Normalized()
	if errs := h.validator.Validate(req); errs != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: errs[0].Field + ": " + errs[0].Message, Errors: errs})
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		var vErr *services.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, services.ErrUserExists):
			writeError(w, http.StatusBadRequest, "Username or email already exists")
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("[UserHandler:UpdateProfile] Ошибка обновления профиля %s: %v", user.ID, err)
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, models.NewUserResponse(updated))
}

// ChangePassword меняет пароль текущего пользователя.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		log.Printf("[UserHandler:ChangePassword] Не удалось получить пользователя из контекста")
		writeInternalError(w)
		return
	}

	var req models.PasswordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.ChangePassword(r.Context(), user.ID, req); err != nil {
		var vErr *services.ValidationError
		switch {
		case errors.As(err, &vErr):
			writeError(w, http.StatusBadRequest, vErr.Message)
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found.")
		default:
			log.Printf("[UserHandler:ChangePassword] Ошибка смены пароля %s: %v", user.ID, err)
			writeInternalError(w)
		}
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Password updated successfully"})
}
