package metricsdb

import (
	"context"
	"time"
)

const insertExecutionMetric = `-- name: InsertExecutionMetric :exec
INSERT INTO execution_metrics (
    task, model, prompt_tokens, completion_tokens, latency_ms, timestamp
) VALUES (?, ?, ?, ?, ?, ?)
`

type InsertExecutionMetricParams struct {
	Task             string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	LatencyMs        int64
	Timestamp        time.Time
}

func (q *Queries) InsertExecutionMetric(ctx context.Context, arg InsertExecutionMetricParams) error {
	_, err := q.db.ExecContext(ctx, insertExecutionMetric,
		arg.Task,
		arg.Model,
		arg.PromptTokens,
		arg.CompletionTokens,
		arg.LatencyMs,
		arg.Timestamp,
	)
	return err
}

const getDailyUsage = `-- name: GetDailyUsage :many
SELECT substr(timestamp, 1, 10) AS day,
       COUNT(*) AS count,
       SUM(prompt_tokens),
       SUM(completion_tokens)
FROM execution_metrics
WHERE timestamp >= ?
GROUP BY day
ORDER BY day DESC
`

func (q *Queries) GetDailyUsage(ctx context.Context, since time.Time) ([]GetDailyUsageRow, error) {
	rows, err := q.db.QueryContext(ctx, getDailyUsage, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetDailyUsageRow
	for rows.Next() {
		var i GetDailyUsageRow
		if err := rows.Scan(
			&i.Day,
			&i.Count,
			&i.Sum,
			&i.Sum2,
		); err != nil {
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

const cleanupExecutionMetrics = `-- name: CleanupExecutionMetrics :execrows
DELETE FROM execution_metrics WHERE timestamp < ?
`

func (q *Queries) CleanupExecutionMetrics(ctx context.Context, before time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, cleanupExecutionMetrics, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
