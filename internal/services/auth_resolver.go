package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/repository"
)

// AuthResolver превращает bearer-токен в актуальную запись активного пользователя.
type AuthResolver interface {
	Resolve(ctx context.Context, tokenString string) (*models.User, error)
}

var _ AuthResolver = (*authResolver)(nil)

type authResolver struct {
	tokens TokenVerifier
	users  repository.UserRepository
}

// NewAuthResolver создает резолвер пользователя по токену.
func NewAuthResolver(tokens TokenVerifier, users repository.UserRepository) AuthResolver {
	return &authResolver{tokens: tokens, users: users}
}

// Resolve проверяет токен и перечитывает пользователя из хранилища.
// Содержимому токена не доверяем: возвращается только запись из БД в её текущем состоянии.
func (r *authResolver) Resolve(ctx context.Context, tokenString string) (*models.User, error) {
	payload, err := r.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		log.Printf("[AuthResolver] Токен не прошел проверку: %v", err)
		return nil, ErrUnauthenticated
	}
	if payload == nil {
		return nil, ErrUnauthenticated
	}

	var user *models.User
	switch p := payload.(type) {
	case SubjectPayload:
		user, err = r.resolveSubject(ctx, p.ID.String())
	case ClaimsPayload:
		user, err = r.resolveClaims(ctx, p)
	default:
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}

	if user == nil {
		log.Printf("[AuthResolver] Пользователь для токена не найден")
		return nil, ErrUnauthenticated
	}
	if !user.IsActive {
		log.Printf("[AuthResolver] Пользователь %s деактивирован", user.ID)
		return nil, ErrInactiveAccount
	}

	return user, nil
}

// resolveClaims ищет пользователя сначала по subject (как id, затем как имя или email),
// затем по отдельным claims username и email.
func (r *authResolver) resolveClaims(ctx context.Context, p ClaimsPayload) (*models.User, error) {
	var user *models.User
	var err error

	if p.Subject != "" {
		user, err = r.resolveSubject(ctx, p.Subject)
		if err != nil {
			return nil, err
		}
	}

	if user == nil && p.Username != "" {
		user, err = r.find(func() (*models.User, error) { return r.users.GetUserByUsername(ctx, p.Username) })
		if err != nil {
			return nil, err
		}
	}
	if user == nil && p.Email != "" {
		user, err = r.find(func() (*models.User, error) { return r.users.GetUserByEmail(ctx, p.Email) })
		if err != nil {
			return nil, err
		}
	}

	return user, nil
}

// resolveSubject ищет по subject как по id, а при промахе как по имени или email.
// Имя пользователя может совпадать по форме с UUID.
func (r *authResolver) resolveSubject(ctx context.Context, subject string) (*models.User, error) {
	if id, parseErr := uuid.Parse(subject); parseErr == nil {
		user, err := r.find(func() (*models.User, error) { return r.users.GetUserByID(ctx, id) })
		if err != nil || user != nil {
			return user, err
		}
	}
	return r.find(func() (*models.User, error) { return r.users.GetUserByLogin(ctx, subject) })
}

// find выполняет поиск, считая "не найден" штатным исходом (nil, nil).
func (r *authResolver) find(lookup func() (*models.User, error)) (*models.User, error) {
	user, err := lookup()
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		log.Printf("[AuthResolver] Ошибка репозитория при поиске пользователя: %v", err)
		return nil, fmt.Errorf("ошибка поиска пользователя по токену: %w", err)
	}
	return user, nil
}

// Ошибки аутентификации.
var (
	ErrUnauthenticated = errors.New("не удалось проверить учетные данные")
	ErrInactiveAccount = errors.New("пользователь деактивирован")
)
