package food

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"intellieats/internal/apperr"
	db "intellieats/internal/food/db"
)

// Repository is a database-backed store for canonical foods.
type Repository struct {
	queries *db.Queries
	db      *sql.DB
	now     func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{
		queries: db.New(d),
		db:      d,
		now:     time.Now,
	}
}

// Get retrieves a food by its local id. It returns nil, nil when absent.
func (r *Repository) Get(ctx context.Context, id int64) (*Food, error) {
	row, err := r.queries.GetFoodByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get food by ID: %w", err)
	}
	f := fromRow(row)
	return &f, nil
}

// GetByBarcode retrieves a food by barcode. It returns nil, nil when absent.
func (r *Repository) GetByBarcode(ctx context.Context, barcode string) (*Food, error) {
	row, err := r.queries.GetFoodByBarcode(ctx, nullString(barcode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get food by barcode: %w", err)
	}
	f := fromRow(row)
	return &f, nil
}

// SearchByName returns foods whose name contains query, case-insensitively,
// ordered by name.
func (r *Repository) SearchByName(ctx context.Context, query string, limit int) ([]Food, error) {
	rows, err := r.queries.SearchFoodsByName(ctx, db.SearchFoodsByNameParams{
		Query: escapeLike(query),
		Limit: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search foods: %w", err)
	}

	foods := make([]Food, 0, len(rows))
	for _, row := range rows {
		foods = append(foods, fromRow(row))
	}
	return foods, nil
}

// Create inserts a new food and returns the stored row. A barcode that is
// already stored is a validation error.
func (r *Repository) Create(ctx context.Context, f Food) (Food, error) {
	row, err := r.queries.InsertFood(ctx, r.insertParams(f))
	if err != nil {
		if code := strings.TrimSpace(f.Barcode); code != "" {
			if existing, getErr := r.GetByBarcode(ctx, code); getErr == nil && existing != nil {
				return Food{}, apperr.Validation("food.Create", "a food with barcode %s already exists", code)
			}
		}
		return Food{}, fmt.Errorf("failed to insert food: %w", err)
	}
	return fromRow(row), nil
}

// UpsertByBarcode inserts f unless a food with the same barcode exists, and
// returns whichever row the store holds afterwards. created is false when a
// concurrent writer got there first.
func (r *Repository) UpsertByBarcode(ctx context.Context, f Food) (stored Food, created bool, err error) {
	if f.Barcode == "" {
		return Food{}, false, fmt.Errorf("upsert by barcode requires a barcode")
	}

	n, err := r.queries.InsertFoodIgnoreBarcodeConflict(ctx, r.insertParams(f))
	if err != nil {
		return Food{}, false, fmt.Errorf("failed to upsert food by barcode: %w", err)
	}

	row, err := r.queries.GetFoodByBarcode(ctx, nullString(f.Barcode))
	if err != nil {
		return Food{}, false, fmt.Errorf("failed to read back food by barcode: %w", err)
	}
	return fromRow(row), n > 0, nil
}

// UpsertBySourceRef is UpsertByBarcode keyed on (source, source_id), for
// provider records without a barcode.
func (r *Repository) UpsertBySourceRef(ctx context.Context, f Food) (stored Food, created bool, err error) {
	if f.Source == "" || f.SourceID == "" {
		return Food{}, false, fmt.Errorf("upsert by source requires source and source_id")
	}
	if strings.TrimSpace(f.Barcode) != "" {
		return Food{}, false, fmt.Errorf("upsert by source is for foods without a barcode")
	}

	n, err := r.queries.InsertFoodIgnoreSourceConflict(ctx, r.insertParams(f))
	if err != nil {
		return Food{}, false, fmt.Errorf("failed to upsert food by source: %w", err)
	}

	row, err := r.queries.GetFoodBySourceRef(ctx, db.GetFoodBySourceRefParams{
		Source:   f.Source,
		SourceID: nullString(f.SourceID),
	})
	if err != nil {
		return Food{}, false, fmt.Errorf("failed to read back food by source: %w", err)
	}
	return fromRow(row), n > 0, nil
}

func (r *Repository) insertParams(f Food) db.InsertFoodParams {
	f = f.Normalize()
	createdAt := f.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	return db.InsertFoodParams{
		Name:             f.Name,
		Brand:            f.Brand,
		Barcode:          nullString(f.Barcode),
		ServingSize:      f.ServingSize,
		ServingSizeGrams: f.ServingSizeGrams,
		Calories:         f.Calories,
		Protein:          f.Protein,
		Carbohydrates:    f.Carbohydrates,
		Fat:              f.Fat,
		Fiber:            f.Fiber,
		Sugar:            f.Sugar,
		Sodium:           f.Sodium,
		Source:           f.Source,
		SourceID:         nullString(f.SourceID),
		ImageUrl:         f.ImageURL,
		IsVerified:       f.Verified,
		CreatedAt:        createdAt.UTC(),
	}
}

func fromRow(row db.Food) Food {
	return Food{
		ID:               row.ID,
		Name:             row.Name,
		Brand:            row.Brand,
		Barcode:          row.Barcode.String,
		ServingSize:      row.ServingSize,
		ServingSizeGrams: row.ServingSizeGrams,
		Calories:         row.Calories,
		Protein:          row.Protein,
		Carbohydrates:    row.Carbohydrates,
		Fat:              row.Fat,
		Fiber:            row.Fiber,
		Sugar:            row.Sugar,
		Sodium:           row.Sodium,
		Source:           row.Source,
		SourceID:         row.SourceID.String,
		ImageURL:         row.ImageUrl,
		Verified:         row.IsVerified,
		CreatedAt:        row.CreatedAt,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
