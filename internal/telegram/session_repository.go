package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intellieats/internal/food"
	sessiondb "intellieats/internal/telegram/session_db"
)

// SessionSearch holds the results of a user's last /search or /barcode.
const SessionSearch = "search"

const defaultSessionTTL = 30 * time.Minute

// Session is short-lived per-user state between commands.
type Session struct {
	ID          int64
	UserID      int64
	SessionType string
	Data        SessionContextData
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// SessionContextData is stored in the context_data JSON column.
type SessionContextData struct {
	Query   string      `json:"query,omitempty"`
	Results []food.Food `json:"results"`
}

// SessionRepository provides access to session persistence operations.
type SessionRepository struct {
	db      *sql.DB
	queries *sessiondb.Queries
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionRepository creates a SessionRepository. A zero ttl uses 30 minutes.
func NewSessionRepository(db *sql.DB, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionRepository{
		db:      db,
		queries: sessiondb.New(db),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Replace drops the user's sessions of sessionType and stores a new one.
func (sr *SessionRepository) Replace(ctx context.Context, userID int64, sessionType string, data SessionContextData) (int64, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return 0, fmt.Errorf("failed to encode session data: %w", err)
	}

	tx, err := sr.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer tx.Rollback()

	q := sr.queries.WithTx(tx)
	if err := q.DeleteUserSessions(ctx, sessiondb.DeleteUserSessionsParams{UserID: userID, SessionType: sessionType}); err != nil {
		return 0, fmt.Errorf("failed to clear sessions: %w", err)
	}

	now := sr.now().UTC()
	id, err := q.CreateSession(ctx, sessiondb.CreateSessionParams{
		UserID:      userID,
		SessionType: sessionType,
		ContextData: string(payload),
		ExpiresAt:   now.Add(sr.ttl),
		CreatedAt:   now,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}
	return id, nil
}

// GetActive returns the user's latest unexpired session of sessionType, or nil.
func (sr *SessionRepository) GetActive(ctx context.Context, userID int64, sessionType string) (*Session, error) {
	row, err := sr.queries.GetActiveSession(ctx, sessiondb.GetActiveSessionParams{
		UserID:      userID,
		SessionType: sessionType,
		ExpiresAt:   sr.now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var data SessionContextData
	if err := json.Unmarshal([]byte(row.ContextData), &data); err != nil {
		return nil, fmt.Errorf("failed to decode session %d: %w", row.ID, err)
	}
	return &Session{
		ID:          row.ID,
		UserID:      row.UserID,
		SessionType: row.SessionType,
		Data:        data,
		ExpiresAt:   row.ExpiresAt,
		CreatedAt:   row.CreatedAt,
	}, nil
}

// CleanupExpired removes all expired sessions.
func (sr *SessionRepository) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := sr.queries.CleanupExpiredSessions(ctx, sr.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return n, nil
}
