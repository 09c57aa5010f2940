package sessiondb

import (
	"context"
	"time"
)

const createSession = `-- name: CreateSession :one
INSERT INTO telegram_sessions (user_id, session_type, context_data, expires_at, created_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id
`

type CreateSessionParams struct {
	UserID      int64
	SessionType string
	ContextData string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createSession,
		arg.UserID,
		arg.SessionType,
		arg.ContextData,
		arg.ExpiresAt,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getActiveSession = `-- name: GetActiveSession :one
SELECT id, user_id, session_type, context_data, expires_at, created_at
FROM telegram_sessions
WHERE user_id = ? AND session_type = ? AND expires_at > ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`

type GetActiveSessionParams struct {
	UserID      int64
	SessionType string
	ExpiresAt   time.Time
}

func (q *Queries) GetActiveSession(ctx context.Context, arg GetActiveSessionParams) (TelegramSession, error) {
	row := q.db.QueryRowContext(ctx, getActiveSession, arg.UserID, arg.SessionType, arg.ExpiresAt)
	var i TelegramSession
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.SessionType,
		&i.ContextData,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}

const deleteUserSessions = `-- name: DeleteUserSessions :exec
DELETE FROM telegram_sessions WHERE user_id = ? AND session_type = ?
`

type DeleteUserSessionsParams struct {
	UserID      int64
	SessionType string
}

func (q *Queries) DeleteUserSessions(ctx context.Context, arg DeleteUserSessionsParams) error {
	_, err := q.db.ExecContext(ctx, deleteUserSessions, arg.UserID, arg.SessionType)
	return err
}

const cleanupExpiredSessions = `-- name: CleanupExpiredSessions :execrows
DELETE FROM telegram_sessions WHERE expires_at <= ?
`

func (q *Queries) CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, cleanupExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
