package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maynagashev/calculations/internal/calculator"
	"github.com/maynagashev/calculations/internal/middleware"
	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/services"
)

const (
	detailCalculationNotFound = "Calculation not found."
	detailInvalidID           = "Invalid calculation id format."
)

// CalculationHandler обрабатывает BREAD-запросы к вычислениям текущего пользователя.
type CalculationHandler struct {
	service   services.CalculationService
	validator *requestValidator
}

// NewCalculationHandler создает новый экземпляр CalculationHandler.
func NewCalculationHandler(s services.CalculationService) *CalculationHandler {
	return &CalculationHandler{service: s, validator: newRequestValidator()}
}

// Create создает вычисление. Тип и число аргументов проверяются до вычисления (422).
func (h *CalculationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		log.Printf("[CalcHandler:Create] Не удалось получить пользователя из контекста")
		writeInternalError(w)
		return
	}

	var req models.CalculationCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.Validate(req); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	calc, err := h.service.Create(r.Context(), user.ID, req.Type, req.Inputs)
	if err != nil {
		h.writeServiceError(w, "Create", err)
		return
	}

	log.Printf("[CalcHandler:Create] Пользователь %s создал вычисление %s", user.ID, calc.ID)
	writeJSON(w, http.StatusCreated, models.NewCalculationResponse(calc))
}

// List возвращает вычисления текущего пользователя.
func (h *CalculationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		log.Printf("[CalcHandler:List] Не удалось получить пользователя из контекста")
		writeInternalError(w)
		return
	}

	calcs, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		h.writeServiceError(w, "List", err)
		return
	}

	resp := make([]models.CalculationResponse, 0, len(calcs))
	for i := range calcs {
		resp = append(resp, models.NewCalculationResponse(&calcs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get возвращает одно вычисление текущего пользователя.
func (h *CalculationHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r, "Get")
	if !ok {
		return
	}

	calc, err := h.service.Get(r.Context(), user.ID, id)
	if err != nil {
		h.writeServiceError(w, "Get", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewCalculationResponse(calc))
}

// Update заменяет аргументы вычисления и пересчитывает результат.
func (h *CalculationHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r, "Update")
	if !ok {
		return
	}

	var req models.CalculationUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := h.validator.Validate(req); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	calc, err := h.service.UpdateInputs(r.Context(), user.ID, id, req.Inputs)
	if err != nil {
		h.writeServiceError(w, "Update", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewCalculationResponse(calc))
}

// Delete удаляет вычисление текущего пользователя.
func (h *CalculationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, id, ok := h.userAndID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, id); err != nil {
		h.writeServiceError(w, "Delete", err)
		return
	}

	log.Printf("[CalcHandler:Delete] Пользователь %s удалил вычисление %s", user.ID, id)
	w.WriteHeader(http.StatusNoContent)
}

// userAndID достает пользователя из контекста и id из пути. При ошибке ответ уже записан.
func (h *CalculationHandler) userAndID(w http.ResponseWriter, r *http.Request, op string) (*models.User, uuid.UUID, bool) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		log.Printf("[CalcHandler:%s] Не удалось получить пользователя из контекста", op)
		writeInternalError(w)
		return nil, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, detailInvalidID)
		return nil, uuid.Nil, false
	}
	return user, id, true
}

// writeServiceError переводит ошибки сервиса в HTTP-ответы.
// Отсутствующее и чужое вычисление дают одинаковый 404.
func (h *CalculationHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, services.ErrCalculationNotFound):
		writeError(w, http.StatusNotFound, detailCalculationNotFound)
	case errors.Is(err, calculator.ErrInvalidInputs), errors.Is(err, calculator.ErrUnknownType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[CalcHandler:%s] Внутренняя ошибка: %v", op, err)
		writeInternalError(w)
	}
}
