package db

import (
	"context"
	"time"
)

const entryColumns = `id, user_id, food_id, eaten_at, meal_type, servings, calories, protein, carbohydrates, fat, created_at`

const insertEntry = `-- name: InsertEntry :one
INSERT INTO food_entries (
    user_id, food_id, eaten_at, meal_type, servings, calories, protein, carbohydrates, fat, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + entryColumns + `
`

type InsertEntryParams struct {
	UserID        int64
	FoodID        int64
	EatenAt       time.Time
	MealType      string
	Servings      float64
	Calories      float64
	Protein       float64
	Carbohydrates float64
	Fat           float64
	CreatedAt     time.Time
}

func (q *Queries) InsertEntry(ctx context.Context, arg InsertEntryParams) (FoodEntry, error) {
	row := q.db.QueryRowContext(ctx, insertEntry,
		arg.UserID,
		arg.FoodID,
		arg.EatenAt,
		arg.MealType,
		arg.Servings,
		arg.Calories,
		arg.Protein,
		arg.Carbohydrates,
		arg.Fat,
		arg.CreatedAt,
	)
	var i FoodEntry
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.FoodID,
		&i.EatenAt,
		&i.MealType,
		&i.Servings,
		&i.Calories,
		&i.Protein,
		&i.Carbohydrates,
		&i.Fat,
		&i.CreatedAt,
	)
	return i, err
}

const deleteEntry = `-- name: DeleteEntry :execrows
DELETE FROM food_entries WHERE id = ? AND user_id = ?
`

type DeleteEntryParams struct {
	ID     int64
	UserID int64
}

func (q *Queries) DeleteEntry(ctx context.Context, arg DeleteEntryParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteEntry, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listEntriesBetween = `-- name: ListEntriesBetween :many
SELECT e.id, e.user_id, e.food_id, e.eaten_at, e.meal_type, e.servings,
       e.calories, e.protein, e.carbohydrates, e.fat, e.created_at,
       f.name, f.brand, f.serving_size
FROM food_entries e
JOIN foods f ON f.id = e.food_id
WHERE e.user_id = ? AND e.eaten_at >= ? AND e.eaten_at < ?
ORDER BY e.eaten_at, e.id
`

type ListEntriesBetweenParams struct {
	UserID int64
	From   time.Time
	To     time.Time
}

func (q *Queries) ListEntriesBetween(ctx context.Context, arg ListEntriesBetweenParams) ([]FoodEntryWithFood, error) {
	rows, err := q.db.QueryContext(ctx, listEntriesBetween, arg.UserID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FoodEntryWithFood
	for rows.Next() {
		var i FoodEntryWithFood
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.FoodID,
			&i.EatenAt,
			&i.MealType,
			&i.Servings,
			&i.Calories,
			&i.Protein,
			&i.Carbohydrates,
			&i.Fat,
			&i.CreatedAt,
			&i.FoodName,
			&i.FoodBrand,
			&i.FoodServingSize,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
