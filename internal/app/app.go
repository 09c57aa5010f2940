package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"intellieats/internal/analysis"
	"intellieats/internal/config"
	"intellieats/internal/database"
	"intellieats/internal/diary"
	"intellieats/internal/food"
	"intellieats/internal/httpapi"
	"intellieats/internal/llm"
	"intellieats/internal/logger"
	"intellieats/internal/metrics"
	"intellieats/internal/provider"
	"intellieats/internal/resolver"
	"intellieats/internal/summary"
	"intellieats/internal/telegram"
	"intellieats/internal/user"

	"github.com/gin-gonic/gin"
)

// App holds the application's dependencies.
type App struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
	gen llm.TextGenerator

	Users     *user.Repository
	Foods     *food.Repository
	Resolver  *resolver.Resolver
	Diary     *diary.Service
	Summaries *summary.Engine
	Analyses  *analysis.Service
	Usage     *metrics.Store
	Sessions  *telegram.SessionRepository
	Tokens    *httpapi.Tokens
}

// New opens the database and wires every service from cfg. A missing LLM key
// is not fatal: analyses then fail as unavailable.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gen, err := llm.NewTextGenerator(ctx, cfg)
	if err != nil {
		log.Warn("Text generation disabled", "provider", cfg.LLMProvider, "error", err)
		gen = nil
	}

	barcodes, searchers := Providers(cfg)
	names := make([]string, 0, len(barcodes)+len(searchers))
	for _, b := range barcodes {
		names = append(names, b.Name()+":barcode")
	}
	for _, s := range searchers {
		names = append(names, s.Name()+":search")
	}
	log.Info("Food providers configured", "providers", names)

	a := &App{cfg: cfg, log: log, db: db, gen: gen}
	a.Users = user.NewRepository(db.SQL)
	a.Foods = food.NewRepository(db.SQL)
	a.Resolver = resolver.New(a.Foods, barcodes, searchers, log.With("component", "resolver"))
	a.Diary = diary.NewService(db.SQL, a.Resolver, a.Users, log.With("component", "diary"))
	a.Summaries = summary.NewEngine(a.Diary, a.Users, cfg.Location)
	a.Usage = metrics.NewStore(db.SQL)
	a.Analyses = analysis.NewService(db.SQL, a.Summaries, gen, a.Usage, log.With("component", "analysis"))
	a.Sessions = telegram.NewSessionRepository(db.SQL, 0)
	a.Tokens = httpapi.NewTokens(cfg.JWTSecret, 0)
	return a, nil
}

// Providers builds the source adapters from cfg, in lookup order.
// Edamam is only included when its credentials are set.
func Providers(cfg *config.Config) ([]provider.BarcodeLooker, []provider.Searcher) {
	off := provider.NewOpenFoodFacts(cfg.OpenFoodFactsConfig())
	usda := provider.NewUSDA(cfg.USDAConfig())

	barcodes := []provider.BarcodeLooker{off}
	searchers := []provider.Searcher{usda}
	if ecfg, ok := cfg.EdamamConfig(); ok {
		edamam := provider.NewEdamam(ecfg)
		barcodes = append(barcodes, edamam)
		searchers = append(searchers, edamam)
	}
	return barcodes, searchers
}

// Close releases the text generator and the database.
func (a *App) Close() error {
	if c, ok := a.gen.(llm.Closer); ok {
		if err := c.Close(); err != nil {
			a.log.Warn("Failed to close text generator", "error", err)
		}
	}
	return a.db.Close()
}

// Router returns the HTTP API.
func (a *App) Router() *gin.Engine {
	return httpapi.NewRouter(httpapi.Deps{
		Users:          a.Users,
		Foods:          a.Foods,
		Resolver:       a.Resolver,
		Diary:          a.Diary,
		Summaries:      a.Summaries,
		Analyses:       a.Analyses,
		Tokens:         a.Tokens,
		Log:            a.log.With("component", "http"),
		DataDir:        a.dataDir(),
		AllowedOrigins: a.cfg.AllowedOrigins,
	})
}

// BotDeps returns the services behind the Telegram commands.
func (a *App) BotDeps() telegram.Deps {
	return telegram.Deps{
		Users:     a.Users,
		Foods:     a.Resolver,
		Diary:     a.Diary,
		Summaries: a.Summaries,
		Analyses:  a.Analyses,
		Sessions:  a.Sessions,
		Usage:     a.Usage,
		Log:       a.log.With("component", "telegram"),
		AdminID:   a.cfg.AdminTelegramID,
		DataDir:   a.dataDir(),
	}
}

// PrintSummary writes the daily or weekly summary of a user for date (YYYY-MM-DD, empty for today).
func (a *App) PrintSummary(ctx context.Context, w io.Writer, userID int64, date string, weekly bool) error {
	day, err := summary.ParseDay(date, a.Summaries.Location(), time.Now())
	if err != nil {
		return err
	}
	var s summary.PeriodSummary
	if weekly {
		s, err = a.Summaries.Weekly(ctx, userID, day)
	} else {
		s, err = a.Summaries.Daily(ctx, userID, day)
	}
	if err != nil {
		return err
	}
	writeSummary(w, s, a.Summaries.Location())
	return nil
}

// RunAnalysis generates, stores and prints an analysis.
func (a *App) RunAnalysis(ctx context.Context, w io.Writer, userID int64, kind, date string) error {
	k, err := analysis.ParseKind(kind)
	if err != nil {
		return err
	}
	day, err := summary.ParseDay(date, a.Summaries.Location(), time.Now())
	if err != nil {
		return err
	}
	rec, err := a.Analyses.Analyze(ctx, userID, k, day)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "=== %s ANALYSIS #%d ===\n", strings.ToUpper(string(rec.Kind)), rec.ID)
	fmt.Fprintf(w, "Average per day: %.0f kcal, %.1f g protein, %.1f g carbs, %.1f g fat\n\n",
		rec.AvgCalories, rec.AvgProtein, rec.AvgCarbs, rec.AvgFat)
	fmt.Fprintln(w, rec.Text)
	return nil
}

// LookupBarcode resolves code and prints the stored food.
func (a *App) LookupBarcode(ctx context.Context, w io.Writer, code string) error {
	f, err := a.Resolver.ResolveByBarcode(ctx, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "#%d %s", f.ID, f.Name)
	if f.Brand != "" {
		fmt.Fprintf(w, " (%s)", f.Brand)
	}
	fmt.Fprintf(w, " [%s]\n", f.Source)
	fmt.Fprintf(w, "Serving:  %s\n", f.ServingSize)
	fmt.Fprintf(w, "Calories: %.1f kcal\n", f.Calories)
	fmt.Fprintf(w, "Protein:  %.1f g\nCarbs:    %.1f g\nFat:      %.1f g\n", f.Protein, f.Carbohydrates, f.Fat)
	fmt.Fprintf(w, "Fiber:    %.1f g\nSugar:    %.1f g\nSodium:   %.0f mg\n", f.Fiber, f.Sugar, f.Sodium)
	return nil
}

// CleanupReport counts the rows removed by Cleanup.
type CleanupReport struct {
	Metrics  int64
	Sessions int64
}

// Cleanup removes usage metrics older than days and expired bot sessions.
func (a *App) Cleanup(ctx context.Context, days int) (CleanupReport, error) {
	var r CleanupReport
	n, err := a.Usage.Cleanup(ctx, days)
	if err != nil {
		return r, err
	}
	r.Metrics = n
	n, err = a.Sessions.CleanupExpired(ctx)
	if err != nil {
		return r, err
	}
	r.Sessions = n
	return r, nil
}

func (a *App) dataDir() string {
	return filepath.Dir(a.cfg.DatabasePath)
}

func writeSummary(w io.Writer, s summary.PeriodSummary, loc *time.Location) {
	start := s.Window.Start.In(loc).Format("2006-01-02")
	end := s.Window.End.Add(-time.Nanosecond).In(loc).Format("2006-01-02")
	if s.Days > 1 {
		fmt.Fprintf(w, "=== SUMMARY %s .. %s (%d days) ===\n", start, end, s.Days)
	} else {
		fmt.Fprintf(w, "=== SUMMARY %s ===\n", start)
	}
	fmt.Fprintf(w, "Total:   %.0f kcal, %.1f g protein, %.1f g carbs, %.1f g fat\n",
		s.Totals.Calories, s.Totals.Protein, s.Totals.Carbohydrates, s.Totals.Fat)
	fmt.Fprintf(w, "Goals:   %d kcal, %.0f g protein, %.0f g carbs, %.0f g fat (per day)\n",
		s.Goals.Calories, s.Goals.Protein, s.Goals.Carbohydrates, s.Goals.Fat)
	if s.Days > 1 {
		fmt.Fprintf(w, "Average: %.0f kcal, %.1f g protein, %.1f g carbs, %.1f g fat\n",
			s.Averages.Calories, s.Averages.Protein, s.Averages.Carbohydrates, s.Averages.Fat)
	}

	for _, m := range diary.Meals {
		bucket := s.Meals[m]
		if len(bucket.Entries) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%.0f kcal)\n", strings.ToUpper(string(m)), bucket.Totals.Calories)
		for _, e := range bucket.Entries {
			fmt.Fprintf(w, "- %s %gx %s: %.0f kcal\n",
				e.Entry.EatenAt.In(loc).Format("01-02 15:04"), e.Entry.Servings, e.Food.Name, e.Entry.Calories)
		}
	}
}
