// Package food holds the canonical food record every provider is normalized into,
// and the local store for it.
package food

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Source tags for the provenance of a Food.
const (
	SourceUser          = "user"
	SourceOpenFoodFacts = "openfoodfacts"
	SourceUSDA          = "usda"
	SourceEdamam        = "edamam"
)

// Food is a food item normalized to a single serving basis.
// Sodium is in milligrams, every other nutrient in grams (calories in kcal).
type Food struct {
	ID               int64     `json:"id,omitempty"`
	Name             string    `json:"name"`
	Brand            string    `json:"brand,omitempty"`
	Barcode          string    `json:"barcode,omitempty"`
	ServingSize      string    `json:"serving_size"`
	ServingSizeGrams float64   `json:"serving_size_grams"`
	Calories         float64   `json:"calories"`
	Protein          float64   `json:"protein"`
	Carbohydrates    float64   `json:"carbohydrates"`
	Fat              float64   `json:"fat"`
	Fiber            float64   `json:"fiber"`
	Sugar            float64   `json:"sugar"`
	Sodium           float64   `json:"sodium"`
	Source           string    `json:"source"`
	SourceID         string    `json:"source_id,omitempty"`
	ImageURL         string    `json:"image_url,omitempty"`
	Verified         bool      `json:"verified"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
}

// Stored reports whether the food carries a local id.
func (f Food) Stored() bool { return f.ID > 0 }

// Normalize trims text fields and forces every nutrient to a finite, non-negative value.
func (f Food) Normalize() Food {
	f.Name = strings.TrimSpace(f.Name)
	f.Brand = strings.TrimSpace(f.Brand)
	f.Barcode = strings.TrimSpace(f.Barcode)
	f.ServingSize = strings.TrimSpace(f.ServingSize)
	f.SourceID = strings.TrimSpace(f.SourceID)
	if f.Source == "" {
		f.Source = SourceUser
	}
	f.ServingSizeGrams = nonNegative(f.ServingSizeGrams)
	f.Calories = nonNegative(f.Calories)
	f.Protein = nonNegative(f.Protein)
	f.Carbohydrates = nonNegative(f.Carbohydrates)
	f.Fat = nonNegative(f.Fat)
	f.Fiber = nonNegative(f.Fiber)
	f.Sugar = nonNegative(f.Sugar)
	f.Sodium = nonNegative(f.Sodium)
	return f
}

// Validate checks the fields a user submission must carry.
func (f Food) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("name is required")
	}
	for name, v := range map[string]float64{
		"serving_size_grams": f.ServingSizeGrams,
		"calories":           f.Calories,
		"protein":            f.Protein,
		"carbohydrates":      f.Carbohydrates,
		"fat":                f.Fat,
		"fiber":              f.Fiber,
		"sugar":              f.Sugar,
		"sodium":             f.Sodium,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%s must be a non-negative number", name)
		}
	}
	return nil
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
