package db

import (
	"time"
)

type FoodEntry struct {
	ID            int64
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

// FoodEntryWithFood is a food_entries row joined with the display fields of its food.
type FoodEntryWithFood struct {
	FoodEntry
	FoodName        string
	FoodBrand       string
	FoodServingSize string
}
