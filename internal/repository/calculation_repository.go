package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/maynagashev/calculations/internal/calculator"
	"github.com/maynagashev/calculations/internal/models"
)

const calculationColumns = `id, user_id, type, inputs, result, created_at, updated_at`

// RecomputeFunc пересчитывает результат вычисления по его типу и новым аргументам.
type RecomputeFunc func(calcType calculator.Type, inputs []float64) (float64, error)

// CalculationRepository определяет методы для работы с вычислениями.
// Каждый запрос к конкретной записи фильтруется одновременно по id и владельцу.
type CalculationRepository interface {
	CreateCalculation(ctx context.Context, calc *models.Calculation) (*models.Calculation, error)
	ListCalculationsByUserID(ctx context.Context, userID uuid.UUID) ([]models.Calculation, error)
	GetCalculation(ctx context.Context, id, userID uuid.UUID) (*models.Calculation, error)
	UpdateCalculationInputs(
		ctx context.Context,
		id, userID uuid.UUID,
		inputs []float64,
		recompute RecomputeFunc,
	) (*models.Calculation, error)
	DeleteCalculation(ctx context.Context, id, userID uuid.UUID) error
}

// postgresCalculationRepository реализует CalculationRepository для PostgreSQL.
type postgresCalculationRepository struct {
	db *sqlx.DB
}

// NewPostgresCalculationRepository создает новый экземпляр репозитория вычислений.
func NewPostgresCalculationRepository(db *sqlx.DB) CalculationRepository {
	return &postgresCalculationRepository{db: db}
}

// CreateCalculation сохраняет новое вычисление и возвращает сохраненную запись.
func (r *postgresCalculationRepository) CreateCalculation(
	ctx context.Context,
	calc *models.Calculation,
) (*models.Calculation, error) {
	query := `INSERT INTO calculations (id, user_id, type, inputs, result)` +
		` VALUES ($1, $2, $3, $4, $5) RETURNING ` + calculationColumns
	var created models.Calculation

	err := r.db.QueryRowxContext(ctx, query,
		calc.ID, calc.UserID, calc.Type, calc.Inputs, calc.Result,
	).StructScan(&created)
	if err != nil {
		log.Printf("[CalcRepo] Ошибка создания вычисления для пользователя %s: %v", calc.UserID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на создание вычисления: %w", err)
	}

	log.Printf("[CalcRepo] Вычисление %s (%s) создано для пользователя %s", created.ID, created.Type, created.UserID)
	return &created, nil
}

// ListCalculationsByUserID возвращает все вычисления пользователя, сначала новые.
func (r *postgresCalculationRepository) ListCalculationsByUserID(
	ctx context.Context,
	userID uuid.UUID,
) ([]models.Calculation, error) {
	query := `SELECT ` + calculationColumns + ` FROM calculations WHERE user_id=$1 ORDER BY created_at DESC`

	calcs := make([]models.Calculation, 0)
	if err := r.db.SelectContext(ctx, &calcs, query, userID); err != nil {
		log.Printf("[CalcRepo] Ошибка получения списка вычислений пользователя %s: %v", userID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка вычислений: %w", err)
	}

	log.Printf("[CalcRepo] Получено %d вычислений пользователя %s", len(calcs), userID)
	return calcs, nil
}

// GetCalculation находит вычисление по id среди записей пользователя.
// Чужое и несуществующее вычисление неразличимы: в обоих случаях ErrCalculationNotFound.
func (r *postgresCalculationRepository) GetCalculation(
	ctx context.Context,
	id, userID uuid.UUID,
) (*models.Calculation, error) {
	query := `SELECT ` + calculationColumns + ` FROM calculations WHERE id=$1 AND user_id=$2`
	var calc models.Calculation

	err := r.db.GetContext(ctx, &calc, query, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[CalcRepo] Вычисление %s не найдено у пользователя %s", id, userID)
			return nil, ErrCalculationNotFound
		}
		log.Printf("[CalcRepo] Ошибка при поиске вычисления %s: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение вычисления: %w", err)
	}

	return &calc, nil
}

// UpdateCalculationInputs заменяет аргументы вычисления и сохраняет пересчитанный результат.
// Чтение, пересчет и запись выполняются в одной транзакции; при ошибке пересчета
// транзакция откатывается и запись не меняется.
func (r *postgresCalculationRepository) UpdateCalculationInputs(
	ctx context.Context,
	id, userID uuid.UUID,
	inputs []float64,
	recompute RecomputeFunc,
) (*models.Calculation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer func() {
		// После Commit откат вернет sql.ErrTxDone, это ожидаемо.
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Printf("[CalcRepo] Ошибка отката транзакции: %v", rbErr)
		}
	}()

	var calcType calculator.Type
	err = tx.GetContext(ctx, &calcType,
		`SELECT type FROM calculations WHERE id=$1 AND user_id=$2 FOR UPDATE`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[CalcRepo] Обновление: вычисление %s не найдено у пользователя %s", id, userID)
			return nil, ErrCalculationNotFound
		}
		return nil, fmt.Errorf("ошибка выполнения запроса на блокировку вычисления: %w", err)
	}

	result, err := recompute(calcType, inputs)
	if err != nil {
		return nil, err
	}

	query := `UPDATE calculations SET inputs=$1, result=$2, updated_at=NOW()` +
		` WHERE id=$3 AND user_id=$4 RETURNING ` + calculationColumns
	var updated models.Calculation
	err = tx.QueryRowxContext(ctx, query, pq.Float64Array(inputs), result, id, userID).StructScan(&updated)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса на обновление вычисления: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	log.Printf("[CalcRepo] Вычисление %s пользователя %s обновлено", id, userID)
	return &updated, nil
}

// DeleteCalculation удаляет вычисление пользователя.
func (r *postgresCalculationRepository) DeleteCalculation(ctx context.Context, id, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM calculations WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		log.Printf("[CalcRepo] Ошибка удаления вычисления %s: %v", id, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление вычисления: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа удаленных строк: %w", err)
	}
	if affected == 0 {
		log.Printf("[CalcRepo] Удаление: вычисление %s не найдено у пользователя %s", id, userID)
		return ErrCalculationNotFound
	}

	log.Printf("[CalcRepo] Вычисление %s пользователя %s удалено", id, userID)
	return nil
}

// Кастомная ошибка репозитория вычислений.
var (
	ErrCalculationNotFound = errors.New("вычисление не найдено")
)
