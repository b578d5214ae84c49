package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/maynagashev/calculations/internal/calculator"
)

// Calculation представляет запись о вычислении пользователя.
// Владелец (UserID) всегда берётся из аутентифицированного пользователя.
type Calculation struct {
	ID        uuid.UUID       `db:"id"`
	UserID    uuid.UUID       `db:"user_id"`
	Type      calculator.Type `db:"type"`
	Inputs    pq.Float64Array `db:"inputs"`
	Result    float64         `db:"result"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// CalculationResponse - проекция вычисления для API.
type CalculationResponse struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Type      calculator.Type `json:"type"`
	Inputs    []float64       `json:"inputs"`
	Result    float64         `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewCalculationResponse строит проекцию из записи хранилища.
func NewCalculationResponse(c *Calculation) CalculationResponse {
	inputs := []float64(c.Inputs)
	if inputs == nil {
		inputs = []float64{}
	}
	return CalculationResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		Type:      c.Type,
		Inputs:    inputs,
		Result:    c.Result,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// CalculationCreateRequest представляет тело запроса на создание вычисления.
// Число аргументов для типа проверяется отдельным валидатором структуры.
type CalculationCreateRequest struct {
	Type   calculator.Type `json:"type" validate:"required"`
	Inputs []float64       `json:"inputs" validate:"required"`
}

// CalculationUpdateRequest представляет тело запроса на изменение вычисления.
// Тип записи на этом уровне неизвестен, поэтому проверяется только общий минимум аргументов.
type CalculationUpdateRequest struct {
	Inputs []float64 `json:"inputs" validate:"required,min=2"`
}
