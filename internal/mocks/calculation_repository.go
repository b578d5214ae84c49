package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/repository"
)

var _ repository.CalculationRepository = (*CalculationRepository)(nil)

// CalculationRepository - мок repository.CalculationRepository.
type CalculationRepository struct {
	mock.Mock
}

func calculation(args mock.Arguments) (*models.Calculation, error) {
	if c, ok := args.Get(0).(*models.Calculation); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CalculationRepository) CreateCalculation(
	ctx context.Context,
	calc *models.Calculation,
) (*models.Calculation, error) {
	return calculation(m.Called(ctx, calc))
}

func (m *CalculationRepository) ListCalculationsByUserID(
	ctx context.Context,
	userID uuid.UUID,
) ([]models.Calculation, error) {
	args := m.Called(ctx, userID)
	if calcs, ok := args.Get(0).([]models.Calculation); ok {
		return calcs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CalculationRepository) GetCalculation(ctx context.Context, id, userID uuid.UUID) (*models.Calculation, error) {
	return calculation(m.Called(ctx, id, userID))
}

// UpdateCalculationInputs: если первым значением ответа задана *models.Calculation,
// она пересчитывается переданной функцией, как это делает настоящий репозиторий.
func (m *CalculationRepository) UpdateCalculationInputs(
	ctx context.Context,
	id, userID uuid.UUID,
	inputs []float64,
	recompute repository.RecomputeFunc,
) (*models.Calculation, error) {
	calc, err := calculation(m.Called(ctx, id, userID, inputs))
	if err != nil || calc == nil {
		return calc, err
	}
	result, err := recompute(calc.Type, inputs)
	if err != nil {
		return nil, err
	}
	updated := *calc
	updated.Inputs = inputs
	updated.Result = result
	return &updated, nil
}

func (m *CalculationRepository) DeleteCalculation(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}
