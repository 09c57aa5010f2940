package sessiondb

import (
	"time"
)

type TelegramSession struct {
	ID          int64
	UserID      int64
	SessionType string
	ContextData string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
