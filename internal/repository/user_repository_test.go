package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/calculations/internal/models"
	"github.com/maynagashev/calculations/internal/repository"
)

var userRowColumns = []string{
	"id", "username", "email", "password_hash", "first_name", "last_name",
	"is_active", "is_verified", "last_login_at", "created_at", "updated_at",
}

const selectUserColumns = `SELECT id, username, email, password_hash, first_name, last_name,` +
	` is_active, is_verified, last_login_at, created_at, updated_at FROM users`

func userRow(u *models.User) *sqlmock.Rows {
	return sqlmock.NewRows(userRowColumns).AddRow(
		u.ID.String(), u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.IsActive, u.IsVerified, nil, u.CreatedAt, u.UpdatedAt,
	)
}

func newTestUser() *models.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.User{
		ID:           uuid.New(),
		Username:     "testuser",
		Email:        "test@example.com",
		PasswordHash: "hash123",
		FirstName:    "Test",
		LastName:     "User",
		IsActive:     true,
		IsVerified:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestNewPostgresUserRepository(t *testing.T) {
	// Можно передать nil, так как конструктор его просто сохраняет
	repo := repository.NewPostgresUserRepository(nil)
	assert.NotNil(t, repo)

	db, _, _ := sqlmock.New()
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo = repository.NewPostgresUserRepository(sqlxDB)
	assert.NotNil(t, repo)
}

// Вспомогательная функция для создания мока БД и репозитория.
func setupUserRepoMock(t *testing.T) (repository.UserRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return repository.NewPostgresUserRepository(sqlxDB), mock
}

func TestCreateUser(t *testing.T) {
	insertQuery := regexp.QuoteMeta(
		`INSERT INTO users (id, username, email, password_hash, first_name, last_name, is_active, is_verified)` +
			` VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING`,
	)

	tests := []struct {
		name        string
		mockSetup   func(mock sqlmock.Sqlmock, user *models.User)
		expectedErr error
	}{
		{
			name: "Успешное создание",
			mockSetup: func(mock sqlmock.Sqlmock, user *models.User) {
				mock.ExpectQuery(insertQuery).
					WithArgs(user.ID, user.Username, user.Email, user.PasswordHash,
						user.FirstName, user.LastName, user.IsActive, user.IsVerified).
					WillReturnRows(userRow(user))
			},
		},
		{
			name: "Имя пользователя занято",
			mockSetup: func(mock sqlmock.Sqlmock, _ *models.User) {
				pqErr := &pq.Error{Code: "23505", Constraint: "users_username_key"}
				mock.ExpectQuery(insertQuery).WillReturnError(pqErr)
			},
			expectedErr: repository.ErrUsernameTaken,
		},
		{
			name: "Email занят",
			mockSetup: func(mock sqlmock.Sqlmock, _ *models.User) {
				pqErr := &pq.Error{Code: "23505", Constraint: "users_email_key"}
				mock.ExpectQuery(insertQuery).WillReturnError(pqErr)
			},
			expectedErr: repository.ErrEmailTaken,
		},
		{
			name: "Ошибка базы данных",
			mockSetup: func(mock sqlmock.Sqlmock, _ *models.User) {
				mock.ExpectQuery(insertQuery).WillReturnError(errors.New("database error"))
			},
			expectedErr: errors.New("ошибка выполнения запроса"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupUserRepoMock(t)
			user := newTestUser()
			tt.mockSetup(mock, user)

			created, err := repo.CreateUser(context.Background(), user)

			if tt.expectedErr == nil {
				require.NoError(t, err)
				require.NotNil(t, created)
				assert.Equal(t, user.ID, created.ID)
				assert.Equal(t, user.Username, created.Username)
				assert.Equal(t, user.Email, created.Email)
				assert.True(t, created.IsActive)
				assert.Nil(t, created.LastLoginAt)
			} else {
				require.Error(t, err)
				assert.Nil(t, created)
				switch {
				case errors.Is(tt.expectedErr, repository.ErrUsernameTaken),
					errors.Is(tt.expectedErr, repository.ErrEmailTaken):
					assert.ErrorIs(t, err, tt.expectedErr)
				default:
					assert.Contains(t, err.Error(), tt.expectedErr.Error())
				}
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "Не все ожидания мока были выполнены")
		})
	}
}

const loginWhere = ` WHERE username=$1 OR email=$1 ORDER BY (username=$1) DESC LIMIT 1`

func TestGetUserLookups(t *testing.T) {
	testUser := newTestUser()

	tests := []struct {
		name   string
		query  string
		arg    any
		lookup func(repo repository.UserRepository) (*models.User, error)
	}{
		{
			name:  "По ID",
			query: selectUserColumns + ` WHERE id=$1`,
			arg:   testUser.ID,
			lookup: func(repo repository.UserRepository) (*models.User, error) {
				return repo.GetUserByID(context.Background(), testUser.ID)
			},
		},
		{
			name:  "По имени",
			query: selectUserColumns + ` WHERE username=$1`,
			arg:   testUser.Username,
			lookup: func(repo repository.UserRepository) (*models.User, error) {
				return repo.GetUserByUsername(context.Background(), testUser.Username)
			},
		},
		{
			name:  "По email",
			query: selectUserColumns + ` WHERE email=$1`,
			arg:   testUser.Email,
			lookup: func(repo repository.UserRepository) (*models.User, error) {
				return repo.GetUserByEmail(context.Background(), testUser.Email)
			},
		},
		{
			name:  "По имени или email",
			query: selectUserColumns + loginWhere,
			arg:   testUser.Email,
			lookup: func(repo repository.UserRepository) (*models.User, error) {
				return repo.GetUserByLogin(context.Background(), testUser.Email)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+": найден", func(t *testing.T) {
			repo, mock := setupUserRepoMock(t)
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).WithArgs(tt.arg).WillReturnRows(userRow(testUser))

			user, err := tt.lookup(repo)

			require.NoError(t, err)
			assert.Equal(t, testUser.ID, user.ID)
			assert.Equal(t, testUser.Username, user.Username)
			assert.Equal(t, testUser.FirstName, user.FirstName)
			assert.Equal(t, testUser.CreatedAt, user.CreatedAt)
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run(tt.name+": не найден", func(t *testing.T) {
			repo, mock := setupUserRepoMock(t)
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).WithArgs(tt.arg).WillReturnError(sql.ErrNoRows)

			user, err := tt.lookup(repo)

			assert.Nil(t, user)
			assert.ErrorIs(t, err, repository.ErrUserNotFound)
			assert.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run(tt.name+": ошибка БД", func(t *testing.T) {
			repo, mock := setupUserRepoMock(t)
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).WithArgs(tt.arg).WillReturnError(errors.New("db down"))

			user, err := tt.lookup(repo)

			assert.Nil(t, user)
			require.Error(t, err)
			assert.NotErrorIs(t, err, repository.ErrUserNotFound)
			assert.Contains(t, err.Error(), "ошибка выполнения запроса")
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// Имя одного пользователя совпадает с email другого: выбирается совпадение по имени.
func TestGetUserByLogin_PrefersUsername(t *testing.T) {
	byName := newTestUser()
	byName.Username = "carol@example.com"

	repo, mock := setupUserRepoMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectUserColumns + loginWhere)).
		WithArgs("carol@example.com").
		WillReturnRows(userRow(byName))

	user, err := repo.GetUserByLogin(context.Background(), "carol@example.com")

	require.NoError(t, err)
	assert.Equal(t, byName.ID, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfile(t *testing.T) {
	testUser := newTestUser()
	newUsername := "renamed"
	newFirstName := "Updated"

	t.Run("Обновляются только переданные поля", func(t *testing.T) {
		repo, mock := setupUserRepoMock(t)
		updated := *testUser
		updated.Username = newUsername
		updated.FirstName = newFirstName

		query := regexp.QuoteMeta(`UPDATE users SET first_name = $1, username = $2, updated_at = NOW() WHERE id = $3 RETURNING`)
		mock.ExpectQuery(query).
			WithArgs(newFirstName, newUsername, testUser.ID).
			WillReturnRows(userRow(&updated))

		user, err := repo.UpdateProfile(context.Background(), testUser.ID, models.ProfileUpdate{
			FirstName: &newFirstName,
			Username:  &newUsername,
		})

		require.NoError(t, err)
		assert.Equal(t, newUsername, user.Username)
		assert.Equal(t, newFirstName, user.FirstName)
		assert.Equal(t, testUser.Email, user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Имя пользователя занято", func(t *testing.T) {
		repo, mock := setupUserRepoMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET username = $1`)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})

		user, err := repo.UpdateProfile(context.Background(), testUser.ID, models.ProfileUpdate{Username: &newUsername})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, repository.ErrUsernameTaken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пользователь не найден", func(t *testing.T) {
		repo, mock := setupUserRepoMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users SET first_name = $1`)).
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		user, err := repo.UpdateProfile(context.Background(), testUser.ID, models.ProfileUpdate{FirstName: &newFirstName})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdatePassword(t *testing.T) {
	id := uuid.New()
	query := regexp.QuoteMeta(`UPDATE users SET password_hash=$1, updated_at=NOW() WHERE id=$2`)

	t.Run("Успешно", func(t *testing.T) {
		repo, mock := setupUserRepoMock(t)
		mock.ExpectExec(query).WithArgs("newhash", id).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdatePassword(context.Background(), id, "newhash"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пользователь не найден", func(t *testing.T) {
		repo, mock := setupUserRepoMock(t)
		mock.ExpectExec(query).WithArgs("newhash", id).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdatePassword(context.Background(), id, "newhash")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка БД", func(t *testing.T) {
		repo, mock := setupUserRepoMock(t)
		mock.ExpectExec(query).WillReturnError(errors.New("boom"))

		err := repo.UpdatePassword(context.Background(), id, "newhash")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "обновление пароля")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateLastLogin(t *testing.T) {
	repo, mock := setupUserRepoMock(t)
	id := uuid.New()
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET last_login_at=$1 WHERE id=$2`)).
		WithArgs(at, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateLastLogin(context.Background(), id, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
