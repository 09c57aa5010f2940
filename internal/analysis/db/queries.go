package db

import (
	"context"
	"time"
)

const analysisColumns = `id, user_id, analysis_type, analysis_date, analysis_text, avg_calories, avg_protein, avg_carbs, avg_fat, created_at`

func scanAnalysis(row interface{ Scan(...interface{}) error }) (Analysis, error) {
	var i Analysis
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.AnalysisType,
		&i.AnalysisDate,
		&i.AnalysisText,
		&i.AvgCalories,
		&i.AvgProtein,
		&i.AvgCarbs,
		&i.AvgFat,
		&i.CreatedAt,
	)
	return i, err
}

const insertAnalysis = `-- name: InsertAnalysis :one
INSERT INTO analyses (
    user_id, analysis_type, analysis_date, analysis_text, avg_calories, avg_protein, avg_carbs, avg_fat, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + analysisColumns + `
`

type InsertAnalysisParams struct {
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

func (q *Queries) InsertAnalysis(ctx context.Context, arg InsertAnalysisParams) (Analysis, error) {
	row := q.db.QueryRowContext(ctx, insertAnalysis,
		arg.UserID,
		arg.AnalysisType,
		arg.AnalysisDate,
		arg.AnalysisText,
		arg.AvgCalories,
		arg.AvgProtein,
		arg.AvgCarbs,
		arg.AvgFat,
		arg.CreatedAt,
	)
	return scanAnalysis(row)
}

const listRecentAnalyses = `-- name: ListRecentAnalyses :many
SELECT ` + analysisColumns + ` FROM analyses
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

type ListRecentAnalysesParams struct {
	UserID int64
	Limit  int64
}

func (q *Queries) ListRecentAnalyses(ctx context.Context, arg ListRecentAnalysesParams) ([]Analysis, error) {
	rows, err := q.db.QueryContext(ctx, listRecentAnalyses, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Analysis
	for rows.Next() {
		i, err := scanAnalysis(rows)
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
