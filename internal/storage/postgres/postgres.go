package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fdg312/meal-planner/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const mealColumns = `id::text, owner_user_id, meal_name, meal_type, to_char(meal_date, 'YYYY-MM-DD'),
	meal_id, calories, is_veg, created_at, updated_at`

// PostgresStorage: Postgres реализация PlannedMealsStorage
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// New подключается к базе и проверяет соединение
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{pool: pool}, nil
}

func (p *PostgresStorage) ListByDate(ctx context.Context, ownerUserID, date string) ([]storage.PlannedMeal, error) {
	query := `
		SELECT ` + mealColumns + `
		FROM planned_meals
		WHERE owner_user_id = $1 AND meal_date = $2::date
		ORDER BY created_at ASC
	`
	return p.list(ctx, query, ownerUserID, date)
}

func (p *PostgresStorage) ListAll(ctx context.Context, ownerUserID string) ([]storage.PlannedMeal, error) {
	query := `
		SELECT ` + mealColumns + `
		FROM planned_meals
		WHERE owner_user_id = $1
		ORDER BY meal_date ASC, created_at ASC
	`
	return p.list(ctx, query, ownerUserID)
}

func (p *PostgresStorage) Get(ctx context.Context, ownerUserID, id string) (storage.PlannedMeal, error) {
	query := `
		SELECT ` + mealColumns + `
		FROM planned_meals
		WHERE owner_user_id = $1 AND id::text = $2
	`
	m, err := scanMeal(p.pool.QueryRow(ctx, query, ownerUserID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.PlannedMeal{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.PlannedMeal{}, fmt.Errorf("failed to get planned meal: %w", err)
	}
	return m, nil
}

func (p *PostgresStorage) Create(ctx context.Context, ownerUserID string, in storage.PlannedMealUpsert) (storage.PlannedMeal, error) {
	query := `
		INSERT INTO planned_meals (owner_user_id, meal_name, meal_type, meal_date, meal_id, calories, is_veg)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7)
		RETURNING ` + mealColumns

	m, err := scanMeal(p.pool.QueryRow(ctx, query,
		ownerUserID,
		in.MealName,
		in.MealType,
		in.MealDate,
		in.MealID,
		in.Calories,
		in.IsVeg,
	))
	if isUniqueViolation(err) {
		return storage.PlannedMeal{}, storage.ErrSlotTaken
	}
	if err != nil {
		return storage.PlannedMeal{}, fmt.Errorf("failed to create planned meal: %w", err)
	}
	return m, nil
}

func (p *PostgresStorage) Update(ctx context.Context, ownerUserID, id string, in storage.PlannedMealUpsert) (storage.PlannedMeal, error) {
	query := `
		UPDATE planned_meals
		SET meal_name = $3, meal_type = $4, meal_date = $5::date, meal_id = $6,
		    calories = $7, is_veg = $8, updated_at = NOW()
		WHERE owner_user_id = $1 AND id::text = $2
		RETURNING ` + mealColumns

	m, err := scanMeal(p.pool.QueryRow(ctx, query,
		ownerUserID,
		id,
		in.MealName,
		in.MealType,
		in.MealDate,
		in.MealID,
		in.Calories,
		in.IsVeg,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.PlannedMeal{}, storage.ErrNotFound
	}
	if isUniqueViolation(err) {
		return storage.PlannedMeal{}, storage.ErrSlotTaken
	}
	if err != nil {
		return storage.PlannedMeal{}, fmt.Errorf("failed to update planned meal: %w", err)
	}
	return m, nil
}

func (p *PostgresStorage) Delete(ctx context.Context, ownerUserID, id string) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM planned_meals WHERE owner_user_id = $1 AND id::text = $2`,
		ownerUserID, id)
	if err != nil {
		return fmt.Errorf("failed to delete planned meal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close закрывает пул соединений
func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStorage) list(ctx context.Context, query string, args ...any) ([]storage.PlannedMeal, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list planned meals: %w", err)
	}
	defer rows.Close()

	meals := []storage.PlannedMeal{}
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planned meal: %w", err)
		}
		meals = append(meals, m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating planned meals: %w", rows.Err())
	}
	return meals, nil
}

func scanMeal(row pgx.Row) (storage.PlannedMeal, error) {
	var m storage.PlannedMeal
	err := row.Scan(
		&m.ID,
		&m.OwnerUserID,
		&m.MealName,
		&m.MealType,
		&m.MealDate,
		&m.MealID,
		&m.Calories,
		&m.IsVeg,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
