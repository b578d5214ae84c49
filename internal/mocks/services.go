package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/maynagashev/calculations/internal/calculator"
	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/services"
)

var (
	_ services.TokenService       = (*TokenService)(nil)
	_ services.AuthResolver       = (*AuthResolver)(nil)
	_ services.AuthService        = (*AuthService)(nil)
	_ services.UserService        = (*UserService)(nil)
	_ services.CalculationService = (*CalculationService)(nil)
)

// TokenService - мок services.TokenService.
type TokenService struct {
	mock.Mock
}

func (m *TokenService) VerifyAccessToken(tokenString string) (services.TokenPayload, error) {
	args := m.Called(tokenString)
	if p, ok := args.Get(0).(services.TokenPayload); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TokenService) IssueTokens(user *models.User) (*services.TokenPair, error) {
	args := m.Called(user)
	if p, ok := args.Get(0).(*services.TokenPair); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// AuthResolver - мок services.AuthResolver.
type AuthResolver struct {
	mock.Mock
}

func (m *AuthResolver) Resolve(ctx context.Context, tokenString string) (*models.User, error) {
	args := m.Called(ctx, tokenString)
	if u, ok := args.Get(0).(*models.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// AuthService - мок services.AuthService.
type AuthService struct {
	mock.Mock
}

func (m *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if u, ok := args.Get(0).(*models.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *AuthService) Login(ctx context.Context, login, password string) (*services.LoginResult, error) {
	args := m.Called(ctx, login, password)
	if r, ok := args.Get(0).(*services.LoginResult); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// UserService - мок services.UserService.
type UserService struct {
	mock.Mock
}

func (m *UserService) UpdateProfile(
	ctx context.Context,
	userID uuid.UUID,
	update models.ProfileUpdate,
) (*models.User, error) {
	args := m.Called(ctx, userID, update)
	if u, ok := args.Get(0).(*models.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, req models.PasswordChangeRequest) error {
	return m.Called(ctx, userID, req).Error(0)
}

// CalculationService - мок services.CalculationService.
type CalculationService struct {
	mock.Mock
}

func (m *CalculationService) Create(
	ctx context.Context,
	userID uuid.UUID,
	calcType calculator.Type,
	inputs []float64,
) (*models.Calculation, error) {
	return calculation(m.Called(ctx, userID, calcType, inputs))
}

func (m *CalculationService) List(ctx context.Context, userID uuid.UUID) ([]models.Calculation, error) {
	args := m.Called(ctx, userID)
	if calcs, ok := args.Get(0).([]models.Calculation); ok {
		return calcs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CalculationService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Calculation, error) {
	return calculation(m.Called(ctx, userID, id))
}

func (m *CalculationService) UpdateInputs(
	ctx context.Context,
	userID, id uuid.UUID,
	inputs []float64,
) (*models.Calculation, error) {
	return calculation(m.Called(ctx, userID, id, inputs))
}

func (m *CalculationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}
