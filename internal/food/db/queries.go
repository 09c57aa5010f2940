package db

import (
	"context"
	"database/sql"
	"time"
)

const foodColumns = `id, name, brand, barcode, serving_size, serving_size_grams, calories, protein, carbohydrates, fat, fiber, sugar, sodium, source, source_id, image_url, is_verified, created_at`

func scanFood(row interface{ Scan(...interface{}) error }) (Food, error) {
	var i Food
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Brand,
		&i.Barcode,
		&i.ServingSize,
		&i.ServingSizeGrams,
		&i.Calories,
		&i.Protein,
		&i.Carbohydrates,
		&i.Fat,
		&i.Fiber,
		&i.Sugar,
		&i.Sodium,
		&i.Source,
		&i.SourceID,
		&i.ImageUrl,
		&i.IsVerified,
		&i.CreatedAt,
	)
	return i, err
}

const getFoodByBarcode = `-- name: GetFoodByBarcode :one
SELECT ` + foodColumns + ` FROM foods WHERE barcode = ?
`

func (q *Queries) GetFoodByBarcode(ctx context.Context, barcode sql.NullString) (Food, error) {
	row := q.db.QueryRowContext(ctx, getFoodByBarcode, barcode)
	return scanFood(row)
}

const getFoodByID = `-- name: GetFoodByID :one
SELECT ` + foodColumns + ` FROM foods WHERE id = ?
`

func (q *Queries) GetFoodByID(ctx context.Context, id int64) (Food, error) {
	row := q.db.QueryRowContext(ctx, getFoodByID, id)
	return scanFood(row)
}

const getFoodBySourceRef = `-- name: GetFoodBySourceRef :one
SELECT ` + foodColumns + ` FROM foods WHERE source = ? AND source_id = ? AND barcode IS NULL
`

type GetFoodBySourceRefParams struct {
	Source   string
	SourceID sql.NullString
}

func (q *Queries) GetFoodBySourceRef(ctx context.Context, arg GetFoodBySourceRefParams) (Food, error) {
	row := q.db.QueryRowContext(ctx, getFoodBySourceRef, arg.Source, arg.SourceID)
	return scanFood(row)
}

const insertFoodValues = `(
    name, brand, barcode, serving_size, serving_size_grams,
    calories, protein, carbohydrates, fat, fiber, sugar, sodium,
    source, source_id, image_url, is_verified, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertFood = `-- name: InsertFood :one
INSERT INTO foods ` + insertFoodValues + `
RETURNING ` + foodColumns + `
`

type InsertFoodParams struct {
	Name             string
	Brand            string
	Barcode          sql.NullString
	ServingSize      string
	ServingSizeGrams float64
	Calories         float64
	Protein          float64
	Carbohydrates    float64
	Fat              float64
	Fiber            float64
	Sugar            float64
	Sodium           float64
	Source           string
	SourceID         sql.NullString
	ImageUrl         string
	IsVerified       bool
	CreatedAt        time.Time
}

func (arg InsertFoodParams) args() []interface{} {
	return []interface{}{
		arg.Name,
		arg.Brand,
		arg.Barcode,
		arg.ServingSize,
		arg.ServingSizeGrams,
		arg.Calories,
		arg.Protein,
		arg.Carbohydrates,
		arg.Fat,
		arg.Fiber,
		arg.Sugar,
		arg.Sodium,
		arg.Source,
		arg.SourceID,
		arg.ImageUrl,
		arg.IsVerified,
		arg.CreatedAt,
	}
}

func (q *Queries) InsertFood(ctx context.Context, arg InsertFoodParams) (Food, error) {
	row := q.db.QueryRowContext(ctx, insertFood, arg.args()...)
	return scanFood(row)
}

const insertFoodIgnoreBarcodeConflict = `-- name: InsertFoodIgnoreBarcodeConflict :execrows
INSERT INTO foods ` + insertFoodValues + `
ON CONFLICT (barcode) DO NOTHING
`

func (q *Queries) InsertFoodIgnoreBarcodeConflict(ctx context.Context, arg InsertFoodParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertFoodIgnoreBarcodeConflict, arg.args()...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const insertFoodIgnoreSourceConflict = `-- name: InsertFoodIgnoreSourceConflict :execrows
INSERT INTO foods ` + insertFoodValues + `
ON CONFLICT (source, source_id) WHERE source_id IS NOT NULL AND barcode IS NULL DO NOTHING
`

func (q *Queries) InsertFoodIgnoreSourceConflict(ctx context.Context, arg InsertFoodParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertFoodIgnoreSourceConflict, arg.args()...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const searchFoodsByName = `-- name: SearchFoodsByName :many
SELECT ` + foodColumns + ` FROM foods
WHERE unicode_lower(name) LIKE '%' || unicode_lower(?) || '%' ESCAPE '\'
ORDER BY name COLLATE NOCASE, id
LIMIT ?
`

type SearchFoodsByNameParams struct {
	Query string
	Limit int64
}

func (q *Queries) SearchFoodsByName(ctx context.Context, arg SearchFoodsByNameParams) ([]Food, error) {
	rows, err := q.db.QueryContext(ctx, searchFoodsByName, arg.Query, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Food
	for rows.Next() {
		i, err := scanFood(rows)
		if err != nil {
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
