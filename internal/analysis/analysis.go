// Package analysis asks a language model for narrative feedback on a period
// summary and keeps the result alongside the numbers that produced it.
package analysis

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	db "intellieats/internal/analysis/db"
	"intellieats/internal/apperr"
	"intellieats/internal/llm"
	"intellieats/internal/logger"
	"intellieats/internal/shared"
	"intellieats/internal/summary"
	"intellieats/internal/user"
)

//go:embed prompt.md
var promptTemplate string

var prompt = template.Must(template.New("analysis").Parse(promptTemplate))

// MaxTextLength is the longest narrative stored, in characters.
const MaxTextLength = 5000

const defaultListLimit = 10

type Kind string

const (
	Daily  Kind = "daily"
	Weekly Kind = "weekly"
)

// ParseKind accepts "daily" or "weekly"; empty means daily.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	default:
		return "", apperr.Validation("analysis.ParseKind", "unknown analysis kind %q (want daily or weekly)", s)
	}
}

// Record is a persisted analysis.
type Record struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Kind        Kind      `json:"analysis_type"`
	PeriodStart time.Time `json:"analysis_date"`
	Text        string    `json:"analysis_text"`
	AvgCalories float64   `json:"avg_calories"`
	AvgProtein  float64   `json:"avg_protein"`
	AvgCarbs    float64   `json:"avg_carbs"`
	AvgFat      float64   `json:"avg_fat"`
	CreatedAt   time.Time `json:"created_at"`
}

// EntryLine is one entry as shown to the model.
type EntryLine struct {
	EatenAt       string
	Meal          string
	Name          string
	Brand         string
	Servings      float64
	Calories      float64
	Protein       float64
	Carbohydrates float64
	Fat           float64
}

// Input is the structured data handed to the model.
type Input struct {
	Kind     Kind
	Start    string
	End      string
	Days     int
	Goals    user.Goals
	Totals   summary.Totals
	Averages summary.Totals
	Entries  []EntryLine
}

// NewInput flattens a summary into prompt data. Times are shown in loc.
func NewInput(kind Kind, s summary.PeriodSummary, loc *time.Location) Input {
	if loc == nil {
		loc = time.Local
	}
	in := Input{
		Kind:     kind,
		Start:    s.Window.Start.In(loc).Format("2006-01-02"),
		End:      s.Window.End.Add(-time.Nanosecond).In(loc).Format("2006-01-02"),
		Days:     s.Days,
		Goals:    s.Goals,
		Totals:   s.Totals,
		Averages: s.Averages,
		Entries:  make([]EntryLine, 0, len(s.Entries)),
	}
	for _, e := range s.Entries {
		in.Entries = append(in.Entries, EntryLine{
			EatenAt:       e.Entry.EatenAt.In(loc).Format("Mon 15:04"),
			Meal:          string(e.Entry.Meal),
			Name:          e.Food.Name,
			Brand:         e.Food.Brand,
			Servings:      e.Entry.Servings,
			Calories:      e.Entry.Calories,
			Protein:       e.Entry.Protein,
			Carbohydrates: e.Entry.Carbohydrates,
			Fat:           e.Entry.Fat,
		})
	}
	return in
}

// BuildPrompt renders the prompt for in.
func BuildPrompt(in Input) (string, error) {
	var buf bytes.Buffer
	if err := prompt.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("failed to render analysis prompt: %w", err)
	}
	return buf.String(), nil
}

// Summarizer produces period summaries.
type Summarizer interface {
	Daily(ctx context.Context, userID int64, date time.Time) (summary.PeriodSummary, error)
	Weekly(ctx context.Context, userID int64, date time.Time) (summary.PeriodSummary, error)
	Location() *time.Location
}

// UsageRecorder stores token usage of a generation.
type UsageRecorder interface {
	RecordMeta(ctx context.Context, meta shared.GenerationMeta) error
}

// Service runs and lists analyses.
type Service struct {
	queries   *db.Queries
	summaries Summarizer
	gen       llm.TextGenerator
	usage     UsageRecorder
	log       *logger.Logger
	now       func() time.Time
}

// NewService creates a Service. usage may be nil.
func NewService(d *sql.DB, summaries Summarizer, gen llm.TextGenerator, usage UsageRecorder, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		queries:   db.New(d),
		summaries: summaries,
		gen:       gen,
		usage:     usage,
		log:       log,
		now:       time.Now,
	}
}

// Analyze summarizes the period of kind ending on date, asks the model for
// feedback and stores it with the period's daily averages.
func (s *Service) Analyze(ctx context.Context, userID int64, kind Kind, date time.Time) (Record, error) {
	const op = "analysis.Analyze"

	if s.gen == nil {
		return Record{}, apperr.Unavailable(op, fmt.Errorf("no text generator configured"))
	}

	var (
		sum summary.PeriodSummary
		err error
	)
	switch kind {
	case Daily:
		sum, err = s.summaries.Daily(ctx, userID, date)
	case Weekly:
		sum, err = s.summaries.Weekly(ctx, userID, date)
	default:
		return Record{}, apperr.Validation(op, "unknown analysis kind %q", kind)
	}
	if err != nil {
		return Record{}, err
	}

	text, err := BuildPrompt(NewInput(kind, sum, s.summaries.Location()))
	if err != nil {
		return Record{}, err
	}

	start := time.Now()
	resp, err := s.gen.GenerateContent(ctx, text)
	if err != nil {
		s.log.Error("Analysis generation failed", "user_id", userID, "kind", kind, "error", err)
		return Record{}, apperr.Unavailable(op, err)
	}
	latency := time.Since(start)

	if s.usage != nil {
		meta := shared.GenerationMeta{Task: string(kind) + "_analysis", Usage: resp.Usage, Latency: latency}
		if err := s.usage.RecordMeta(ctx, meta); err != nil {
			s.log.Warn("Failed to record generation usage", "error", err)
		}
	}

	row, err := s.queries.InsertAnalysis(ctx, db.InsertAnalysisParams{
		UserID:       userID,
		AnalysisType: string(kind),
		AnalysisDate: sum.Window.Start.UTC(),
		AnalysisText: truncate(strings.TrimSpace(resp.Content), MaxTextLength),
		AvgCalories:  sum.Averages.Calories,
		AvgProtein:   sum.Averages.Protein,
		AvgCarbs:     sum.Averages.Carbohydrates,
		AvgFat:       sum.Averages.Fat,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert analysis: %w", err)
	}

	s.log.Info("Analysis stored", "user_id", userID, "kind", kind, "analysis_id", row.ID, "latency_ms", latency.Milliseconds())
	return fromRow(row), nil
}

// List returns the user's most recent analyses, newest first.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.queries.ListRecentAnalyses(ctx, db.ListRecentAnalysesParams{UserID: userID, Limit: int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, fromRow(row))
	}
	return records, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func fromRow(row db.Analysis) Record {
	return Record{
		ID:          row.ID,
		UserID:      row.UserID,
		Kind:        Kind(row.AnalysisType),
		PeriodStart: row.AnalysisDate,
		Text:        row.AnalysisText,
		AvgCalories: row.AvgCalories,
		AvgProtein:  row.AvgProtein,
		AvgCarbs:    row.AvgCarbs,
		AvgFat:      row.AvgFat,
		CreatedAt:   row.CreatedAt,
	}
}
