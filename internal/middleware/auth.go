package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/services"
)

// Тип для ключа контекста.
type contextKey string

// Ключ для хранения текущего пользователя в контексте.
const UserKey contextKey = "user"

// Тексты ответов, которые видит клиент.
const (
	detailUnauthenticated = "Could not validate credentials"
	detailInactive        = "Inactive user"
	detailInternal        = "Internal server error"
)

// Authenticator извлекает bearer-токен и через резолвер получает актуальную запись пользователя.
func Authenticator(resolver services.AuthResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Получаем заголовок Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				log.Println("[AuthMiddleware] Заголовок Authorization отсутствует")
				writeUnauthenticated(w)
				return
			}

			// Проверяем формат "Bearer token"
			headerParts := strings.Fields(authHeader)
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
				log.Println("[AuthMiddleware] Неверный формат заголовка Authorization")
				writeUnauthenticated(w)
				return
			}

			user, err := resolver.Resolve(r.Context(), headerParts[1])
			if err != nil {
				switch {
				case errors.Is(err, services.ErrUnauthenticated):
					writeUnauthenticated(w)
				case errors.Is(err, services.ErrInactiveAccount):
					writeDetail(w, http.StatusBadRequest, detailInactive)
				default:
					log.Printf("[AuthMiddleware] Ошибка разрешения пользователя: %v", err)
					writeDetail(w, http.StatusInternalServerError, detailInternal)
				}
				return
			}

			log.Printf("[AuthMiddleware] Пользователь %s успешно аутентифицирован", user.ID)

			// Передаем управление следующему обработчику с обновленным контекстом
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireActive повторно проверяет, что пользователь из контекста активен.
// Ставится после Authenticator.
func RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUserFromContext(r.Context())
		if !ok {
			writeUnauthenticated(w)
			return
		}
		if !user.IsActive {
			log.Printf("[AuthMiddleware] Пользователь %s деактивирован", user.ID)
			writeDetail(w, http.StatusBadRequest, detailInactive)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser кладет пользователя в контекст.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUserFromContext извлекает пользователя из контекста запроса.
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserKey).(*models.User)
	return user, ok && user != nil
}

func writeUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, http.StatusUnauthorized, detailUnauthenticated)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"detail": detail}); err != nil {
		log.Printf("[AuthMiddleware] Ошибка записи ответа: %v", err)
	}
}
