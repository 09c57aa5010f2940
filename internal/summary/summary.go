// Package summary aggregates logged entries into period totals. It reads only
// the values frozen on each entry.
package summary

import (
	"context"
	"strings"
	"time"

	"intellieats/internal/apperr"
	"intellieats/internal/diary"
	"intellieats/internal/user"
)

const dayLayout = "2006-01-02"

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days is the number of calendar days the window spans, at least 1.
func (w Window) Days() int {
	n := 0
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	if n < 1 {
		return 1
	}
	return n
}

// DayWindow is [midnight, next midnight) of date's calendar day in loc.
func DayWindow(date time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	d := date.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekWindow is the seven days ending with date's calendar day.
func WeekWindow(date time.Time, loc *time.Location) Window {
	day := DayWindow(date, loc)
	return Window{Start: day.End.AddDate(0, 0, -7), End: day.End}
}

// ParseDay parses a YYYY-MM-DD date in loc. An empty string means today.
func ParseDay(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return now.In(loc), nil
	}
	t, err := time.ParseInLocation(dayLayout, s, loc)
	if err != nil {
		return time.Time{}, apperr.Validation("summary.ParseDay", "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Totals are summed snapshot values.
type Totals struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Carbohydrates float64 `json:"carbohydrates"`
	Fat           float64 `json:"fat"`
}

func (t *Totals) add(e diary.LoggedEntry) {
	t.Calories += e.Calories
	t.Protein += e.Protein
	t.Carbohydrates += e.Carbohydrates
	t.Fat += e.Fat
}

func (t Totals) divide(n int) Totals {
	if n <= 0 {
		return t
	}
	f := float64(n)
	return Totals{
		Calories:      t.Calories / f,
		Protein:       t.Protein / f,
		Carbohydrates: t.Carbohydrates / f,
		Fat:           t.Fat / f,
	}
}

// MealBucket holds the entries of one meal category.
type MealBucket struct {
	Totals  Totals                `json:"totals"`
	Entries []diary.EntryWithFood `json:"entries"`
}

// PeriodSummary is a computed, never persisted view of a window.
type PeriodSummary struct {
	UserID   int64                     `json:"user_id"`
	Window   Window                    `json:"window"`
	Totals   Totals                    `json:"totals"`
	Goals    user.Goals                `json:"goals"`
	Meals    map[diary.Meal]MealBucket `json:"meals"`
	Entries  []diary.EntryWithFood     `json:"entries"`
	Days     int                       `json:"days"`
	Averages Totals                    `json:"daily_averages"`
}

// EntryLister reads entries in a window.
type EntryLister interface {
	ListBetween(ctx context.Context, userID int64, from, to time.Time) ([]diary.EntryWithFood, error)
}

// UserGetter loads users for their goals.
type UserGetter interface {
	Get(ctx context.Context, id int64) (user.User, error)
}

// Engine computes summaries. It has no side effects.
type Engine struct {
	entries EntryLister
	users   UserGetter
	loc     *time.Location
}

// NewEngine creates an Engine. loc is the reference location for calendar days.
func NewEngine(entries EntryLister, users UserGetter, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{entries: entries, users: users, loc: loc}
}

// Location returns the reference location for calendar days.
func (e *Engine) Location() *time.Location { return e.loc }

// Summarize totals the user's entries with Start <= eaten_at < End.
func (e *Engine) Summarize(ctx context.Context, userID int64, w Window) (PeriodSummary, error) {
	if !w.End.After(w.Start) {
		return PeriodSummary{}, apperr.Validation("summary.Summarize", "window end must be after start")
	}
	u, err := e.users.Get(ctx, userID)
	if err != nil {
		return PeriodSummary{}, err
	}
	entries, err := e.entries.ListBetween(ctx, userID, w.Start, w.End)
	if err != nil {
		return PeriodSummary{}, err
	}
	return Aggregate(userID, w, u.Goals, entries), nil
}

// Daily summarizes date's calendar day.
func (e *Engine) Daily(ctx context.Context, userID int64, date time.Time) (PeriodSummary, error) {
	return e.Summarize(ctx, userID, DayWindow(date, e.loc))
}

// Weekly summarizes the seven days ending with date.
func (e *Engine) Weekly(ctx context.Context, userID int64, date time.Time) (PeriodSummary, error) {
	return e.Summarize(ctx, userID, WeekWindow(date, e.loc))
}

// Aggregate builds a summary from entries. Entries outside w are ignored.
func Aggregate(userID int64, w Window, goals user.Goals, entries []diary.EntryWithFood) PeriodSummary {
	s := PeriodSummary{
		UserID:  userID,
		Window:  w,
		Goals:   goals,
		Meals:   make(map[diary.Meal]MealBucket, len(diary.Meals)),
		Entries: make([]diary.EntryWithFood, 0, len(entries)),
		Days:    w.Days(),
	}
	for _, m := range diary.Meals {
		s.Meals[m] = MealBucket{Entries: []diary.EntryWithFood{}}
	}

	for _, ewf := range entries {
		if !w.Contains(ewf.Entry.EatenAt) {
			continue
		}
		s.Entries = append(s.Entries, ewf)
		s.Totals.add(ewf.Entry)

		bucket, ok := s.Meals[ewf.Entry.Meal]
		if !ok {
			continue
		}
		bucket.Totals.add(ewf.Entry)
		bucket.Entries = append(bucket.Entries, ewf)
		s.Meals[ewf.Entry.Meal] = bucket
	}
	s.Averages = s.Totals.divide(s.Days)
	return s
}
