package db

import (
	"database/sql"
	"time"
)

type Food struct {
	ID               int64
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
