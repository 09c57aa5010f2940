package db

import (
	"time"
)

type Analysis struct {
	ID           int64
	UserID       int64
	AnalysisType string
	AnalysisDate time.Time
	AnalysisText string
	AvgCalories  float64
	AvgProtein   float64
	AvgCarbs     float64
	AvgFat       float64
	CreatedAt    time.Time
}
