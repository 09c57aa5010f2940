package metricsdb

import (
	"database/sql"
	"time"
)

type ExecutionMetric struct {
	ID               int64
	Task             string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	LatencyMs        int64
	Timestamp        time.Time
}

type GetDailyUsageRow struct {
	Day   string
	Count int64
	Sum   sql.NullFloat64
	Sum2  sql.NullFloat64
}
