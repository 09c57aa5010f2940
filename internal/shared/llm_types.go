// Package shared holds the types passed between the text generators and the usage store.
package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// GenerationMeta describes one text generation. Task names what it was for,
// e.g. "daily_analysis".
type GenerationMeta struct {
	Task    string
	Usage   TokenUsage
	Latency time.Duration
}
