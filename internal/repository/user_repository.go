package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/maynagashev/calculations/internal/models"
)

// Имена ограничений уникальности из миграций.
const (
	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"
)

// userColumns - полный список колонок пользователя. Выбираем всегда все,
// чтобы запись приходила из хранилища заполненной целиком.
const userColumns = `id, username, email, password_hash, first_name, last_name,` +
	` is_active, is_verified, last_login_at, created_at, updated_at`

// UserRepository определяет методы для работы с данными пользователей в хранилище.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update models.ProfileUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// postgresUserRepository реализует UserRepository для PostgreSQL.
type postgresUserRepository struct {
	db  *sqlx.DB
	psq sq.StatementBuilderType
}

// NewPostgresUserRepository создает новый экземпляр репозитория пользователей для PostgreSQL.
func NewPostgresUserRepository(db *sqlx.DB) UserRepository {
	return &postgresUserRepository{
		db:  db,
		psq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// CreateUser создает нового пользователя в базе данных и возвращает сохраненную запись.
func (r *postgresUserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	query := `INSERT INTO users (id, username, email, password_hash, first_name, last_name, is_active, is_verified)` +
		` VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + userColumns
	var created models.User

	err := r.db.QueryRowxContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.IsActive, user.IsVerified,
	).StructScan(&created)
	if err != nil {
		if dupErr := uniqueViolation(err); dupErr != nil {
			log.Printf("[Repo] Ошибка создания пользователя '%s': %v", user.Username, dupErr)
			return nil, dupErr
		}
		log.Printf("[Repo] Непредвиденная ошибка при создании пользователя '%s': %v", user.Username, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на создание пользователя: %w", err)
	}

	log.Printf("[Repo] Пользователь '%s' успешно создан с ID %s", created.Username, created.ID)
	return &created, nil
}

// GetUserByID находит пользователя по идентификатору.
func (r *postgresUserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetUserByUsername находит пользователя по его имени.
func (r *postgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

// GetUserByEmail находит пользователя по email.
func (r *postgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// GetUserByLogin находит пользователя, у которого имя или email совпадает с login.
// Имя одного пользователя может совпасть с email другого: совпадение по имени приоритетнее.
func (r *postgresUserRepository) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1 OR email=$1`+
		` ORDER BY (username=$1) DESC LIMIT 1`, login)
}

func (r *postgresUserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User

	err := r.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[Repo] Пользователь '%v' не найден", arg)
			return nil, ErrUserNotFound
		}
		log.Printf("[Repo] Ошибка при поиске пользователя '%v': %v", arg, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение пользователя: %w", err)
	}

	return &user, nil
}

// UpdateProfile обновляет только переданные поля профиля одним запросом
// и возвращает актуальную запись.
func (r *postgresUserRepository) UpdateProfile(
	ctx context.Context,
	id uuid.UUID,
	update models.ProfileUpdate,
) (*models.User, error) {
	builder := r.psq.Update("users")
	if update.FirstName != nil {
		builder = builder.Set("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		builder = builder.Set("last_name", *update.LastName)
	}
	if update.Email != nil {
		builder = builder.Set("email", *update.Email)
	}
	if update.Username != nil {
		builder = builder.Set("username", *update.Username)
	}
	builder = builder.
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + userColumns)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка построения запроса на обновление профиля: %w", err)
	}

	var updated models.User
	err = r.db.QueryRowxContext(ctx, query, args...).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[Repo] Обновление профиля: пользователь %s не найден", id)
			return nil, ErrUserNotFound
		}
		if dupErr := uniqueViolation(err); dupErr != nil {
			log.Printf("[Repo] Обновление профиля пользователя %s: %v", id, dupErr)
			return nil, dupErr
		}
		log.Printf("[Repo] Ошибка обновления профиля пользователя %s: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на обновление профиля: %w", err)
	}

	log.Printf("[Repo] Профиль пользователя %s обновлен", id)
	return &updated, nil
}

// UpdatePassword сохраняет новый хеш пароля.
func (r *postgresUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	return r.execAffectingUser(ctx, "обновление пароля", query, passwordHash, id)
}

// UpdateLastLogin фиксирует время последнего входа.
func (r *postgresUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE users SET last_login_at=$1 WHERE id=$2`
	return r.execAffectingUser(ctx, "обновление времени входа", query, at, id)
}

func (r *postgresUserRepository) execAffectingUser(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Printf("[Repo] Ошибка выполнения запроса (%s): %v", op, err)
		return fmt.Errorf("ошибка выполнения запроса (%s): %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа измененных строк (%s): %w", op, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// uniqueViolation переводит нарушение уникальности в ошибку репозитория.
// Возвращает nil, если err не является нарушением уникальности.
func uniqueViolation(err error) error {
	var pgErr *pq.Error
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolationCode {
		return nil
	}
	switch pgErr.Constraint {
	case usernameConstraint:
		return ErrUsernameTaken
	case emailConstraint:
		return ErrEmailTaken
	default:
		return ErrDuplicateUser
	}
}

// Кастомные ошибки репозитория.
var (
	ErrUserNotFound  = errors.New("пользователь не найден")
	ErrUsernameTaken = errors.New("имя пользователя уже занято")
	ErrEmailTaken    = errors.New("email уже занят")
	ErrDuplicateUser = errors.New("пользователь с такими данными уже существует")
)
