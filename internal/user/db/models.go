package db

import (
	"database/sql"
	"time"
)

type User struct {
	ID          int64
	Username    string
	Email       string
	TelegramID  sql.NullInt64
	CalorieGoal int64
	ProteinGoal float64
	CarbGoal    float64
	FatGoal     float64
	CreatedAt   time.Time
}
