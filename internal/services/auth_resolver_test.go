package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/calculations/internal/mocks"
	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/repository"
	"github.com/maynagashev/calculations/internal/services"
)

func TestAuthResolver_Resolve(t *testing.T) {
	ctx := context.Background()
	const token = "token"
	activeUser := &models.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com", IsActive: true}
	inactiveUser := &models.User{ID: uuid.New(), Username: "bob", Email: "bob@example.com", IsActive: false}
	uuidName := uuid.New()
	uuidNamedUser := &models.User{ID: uuid.New(), Username: uuidName.String(), IsActive: true}

	tests := []struct {
		name      string
		setup     func(tokens *mocks.TokenService, users *mocks.UserRepository)
		wantUser  *models.User
		wantErr   error
		wantOther bool // ожидается внутренняя ошибка, отличная от ошибок аутентификации
	}{
		{
			name: "Токен не прошел проверку",
			setup: func(tokens *mocks.TokenService, _ *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).Return(nil, services.ErrInvalidToken).Once()
			},
			wantErr: services.ErrUnauthenticated,
		},
		{
			name: "Проверка без полезной нагрузки",
			setup: func(tokens *mocks.TokenService, _ *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).Return(nil, nil).Once()
			},
			wantErr: services.ErrUnauthenticated,
		},
		{
			name: "Subject с id: пользователь найден",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).Return(services.SubjectPayload{ID: activeUser.ID}, nil).Once()
				users.On("GetUserByID", ctx, activeUser.ID).Return(activeUser, nil).Once()
			},
			wantUser: activeUser,
		},
		{
			name: "Subject с id: пользователь удален",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).Return(services.SubjectPayload{ID: activeUser.ID}, nil).Once()
				users.On("GetUserByID", ctx, activeUser.ID).Return(nil, repository.ErrUserNotFound).Once()
				users.On("GetUserByLogin", ctx, activeUser.ID.String()).Return(nil, repository.ErrUserNotFound).Once()
			},
			wantErr: services.ErrUnauthenticated,
		},
		{
			name: "Subject с id не совпал, имя пользователя в форме UUID",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).Return(services.SubjectPayload{ID: uuidName}, nil).Once()
				users.On("GetUserByID", ctx, uuidName).Return(nil, repository.ErrUserNotFound).Once()
				users.On("GetUserByLogin", ctx, uuidName.String()).Return(uuidNamedUser, nil).Once()
			},
			wantUser: uuidNamedUser,
		},
		{
			name: "Деактивированный пользователь",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).Return(services.SubjectPayload{ID: inactiveUser.ID}, nil).Once()
				users.On("GetUserByID", ctx, inactiveUser.ID).Return(inactiveUser, nil).Once()
			},
			wantErr: services.ErrInactiveAccount,
		},
		{
			name: "Subject-id без совпадения, затем поиск по имени или email",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				missing := uuid.New()
				tokens.On("VerifyAccessToken", token).
					Return(services.ClaimsPayload{Subject: missing.String(), Email: "x@example.com"}, nil).Once()
				users.On("GetUserByID", ctx, missing).Return(nil, repository.ErrUserNotFound).Once()
				users.On("GetUserByLogin", ctx, missing.String()).Return(nil, repository.ErrUserNotFound).Once()
				users.On("GetUserByEmail", ctx, "x@example.com").Return(activeUser, nil).Once()
			},
			wantUser: activeUser,
		},
		{
			name: "Subject с именем пользователя",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).Return(services.ClaimsPayload{Subject: "alice"}, nil).Once()
				users.On("GetUserByLogin", ctx, "alice").Return(activeUser, nil).Once()
			},
			wantUser: activeUser,
		},
		{
			name: "Только claim username",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).Return(services.ClaimsPayload{Username: "alice"}, nil).Once()
				users.On("GetUserByUsername", ctx, "alice").Return(activeUser, nil).Once()
			},
			wantUser: activeUser,
		},
		{
			name: "Username не найден, найден по email",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).
					Return(services.ClaimsPayload{Username: "ghost", Email: "alice@example.com"}, nil).Once()
				users.On("GetUserByUsername", ctx, "ghost").Return(nil, repository.ErrUserNotFound).Once()
				users.On("GetUserByEmail", ctx, "alice@example.com").Return(activeUser, nil).Once()
			},
			wantUser: activeUser,
		},
		{
			name: "Ни один путь не нашел пользователя",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).
					Return(services.ClaimsPayload{Subject: "ghost", Username: "ghost", Email: "ghost@example.com"}, nil).Once()
				users.On("GetUserByLogin", ctx, "ghost").Return(nil, repository.ErrUserNotFound).Once()
				users.On("GetUserByUsername", ctx, "ghost").Return(nil, repository.ErrUserNotFound).Once()
				users.On("GetUserByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound).Once()
			},
			wantErr: services.ErrUnauthenticated,
		},
		{
			name: "Ошибка хранилища прерывает поиск",
			setup: func(tokens *mocks.TokenService, users *mocks.UserRepository) {
				tokens.On("VerifyAccessToken", token).Return(services.SubjectPayload{ID: activeUser.ID}, nil).Once()
				users.On("GetUserByID", ctx, activeUser.ID).Return(nil, errors.New("connection refused")).Once()
			},
			wantOther: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := new(mocks.TokenService)
			users := new(mocks.UserRepository)
			tt.setup(tokens, users)

			resolver := services.NewAuthResolver(tokens, users)
			user, err := resolver.Resolve(ctx, token)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			case tt.wantOther:
				require.Error(t, err)
				assert.NotErrorIs(t, err, services.ErrUnauthenticated)
				assert.NotErrorIs(t, err, services.ErrInactiveAccount)
				assert.Nil(t, user)
			default:
				require.NoError(t, err)
				assert.Same(t, tt.wantUser, user)
			}

			tokens.AssertExpectations(t)
			users.AssertExpectations(t)
		})
	}
}

// Резолвер перечитывает пользователя на каждый запрос, поэтому изменения
// профиля и деактивация видны сразу на следующем вызове с тем же токеном.
func TestAuthResolver_ReflectsCurrentState(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	tokens := new(mocks.TokenService)
	users := new(mocks.UserRepository)
	tokens.On("VerifyAccessToken", "token").Return(services.SubjectPayload{ID: userID}, nil)

	users.On("GetUserByID", ctx, userID).
		Return(&models.User{ID: userID, Username: "old", IsActive: true}, nil).Once()
	users.On("GetUserByID", ctx, userID).
		Return(&models.User{ID: userID, Username: "new", IsActive: true}, nil).Once()
	users.On("GetUserByID", ctx, userID).
		Return(&models.User{ID: userID, Username: "new", IsActive: false}, nil).Once()

	resolver := services.NewAuthResolver(tokens, users)

	user, err := resolver.Resolve(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "old", user.Username)

	user, err = resolver.Resolve(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "new", user.Username)

	user, err = resolver.Resolve(ctx, "token")
	require.ErrorIs(t, err, services.ErrInactiveAccount)
	assert.NotErrorIs(t, err, services.ErrUnauthenticated)
	assert.Nil(t, user)

	users.AssertExpectations(t)
	users.AssertNotCalled(t, "GetUserByLogin", mock.Anything, mock.Anything)
}
