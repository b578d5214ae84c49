package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/maynagashev/calculations/internal/calculator"
	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/repository"
)

// CalculationService определяет операции над вычислениями пользователя.
// Владелец всегда передается явно и берется из аутентифицированного пользователя.
type CalculationService interface {
	Create(ctx context.Context, userID uuid.UUID, calcType calculator.Type, inputs []float64) (*models.Calculation, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Calculation, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Calculation, error)
	UpdateInputs(ctx context.Context, userID, id uuid.UUID, inputs []float64) (*models.Calculation, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

var _ CalculationService = (*calculationService)(nil)

type calculationService struct {
	repo    repository.CalculationRepository
	compute repository.RecomputeFunc
}

// NewCalculationService создает сервис вычислений.
func NewCalculationService(repo repository.CalculationRepository) CalculationService {
	return &calculationService{repo: repo, compute: calculator.Compute}
}

// Create вычисляет результат и сохраняет новую запись.
func (s *calculationService) Create(
	ctx context.Context,
	userID uuid.UUID,
	calcType calculator.Type,
	inputs []float64,
) (*models.Calculation, error) {
	result, err := s.compute(calcType, inputs)
	if err != nil {
		return nil, err
	}

	calc := &models.Calculation{
		ID:     uuid.New(),
		UserID: userID,
		Type:   calcType,
		Inputs: pq.Float64Array(inputs),
		Result: result,
	}

	created, err := s.repo.CreateCalculation(ctx, calc)
	if err != nil {
		log.Printf("[CalcService] Ошибка сохранения вычисления пользователя %s: %v", userID, err)
		return nil, fmt.Errorf("ошибка создания вычисления: %w", err)
	}
	return created, nil
}

// List возвращает вычисления пользователя, новые первыми.
func (s *calculationService) List(ctx context.Context, userID uuid.UUID) ([]models.Calculation, error) {
	calcs, err := s.repo.ListCalculationsByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка вычислений: %w", err)
	}
	return calcs, nil
}

// Get возвращает вычисление, если оно принадлежит пользователю.
func (s *calculationService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Calculation, error) {
	calc, err := s.repo.GetCalculation(ctx, id, userID)
	if err != nil {
		return nil, mapCalcError(err)
	}
	return calc, nil
}

// UpdateInputs заменяет аргументы и пересчитывает результат в одной транзакции.
func (s *calculationService) UpdateInputs(
	ctx context.Context,
	userID, id uuid.UUID,
	inputs []float64,
) (*models.Calculation, error) {
	calc, err := s.repo.UpdateCalculationInputs(ctx, id, userID, inputs, s.compute)
	if err != nil {
		return nil, mapCalcError(err)
	}
	return calc, nil
}

// Delete удаляет вычисление пользователя.
func (s *calculationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.DeleteCalculation(ctx, id, userID); err != nil {
		return mapCalcError(err)
	}
	return nil
}

// mapCalcError переводит ошибки репозитория в ошибки сервиса.
// Ошибки вычислителя пропускаются как есть.
func mapCalcError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCalculationNotFound):
		return ErrCalculationNotFound
	case errors.Is(err, calculator.ErrInvalidInputs), errors.Is(err, calculator.ErrUnknownType):
		return err
	}
	return fmt.Errorf("ошибка хранилища вычислений: %w", err)
}

var (
	ErrCalculationNotFound = errors.New("вычисление не найдено")
)
