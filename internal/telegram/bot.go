package telegram

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"intellieats/internal/analysis"
	"intellieats/internal/apperr"
	"intellieats/internal/config"
	"intellieats/internal/diary"
	"intellieats/internal/food"
	"intellieats/internal/logger"
	"intellieats/internal/metrics"
	"intellieats/internal/resolver"
	"intellieats/internal/summary"
	"intellieats/internal/user"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	searchResultLimit = 8
	commandTimeout    = 2 * time.Minute
)

// API is the subset of the Telegram client the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

type Users interface {
	GetOrCreateByTelegramID(ctx context.Context, telegramID int64, username string) (user.User, error)
	UpdateGoals(ctx context.Context, id int64, g user.Goals) (user.User, error)
}

type Foods interface {
	ResolveByBarcode(ctx context.Context, code string) (food.Food, error)
	SearchByName(ctx context.Context, query string, limit int) ([]resolver.ResultEntry, error)
}

type Diary interface {
	LogEntry(ctx context.Context, req diary.LogRequest) (diary.EntryWithFood, error)
	LogFoodByID(ctx context.Context, userID, foodID int64, servings float64, meal string, eatenAt *time.Time) (diary.EntryWithFood, error)
}

type Summaries interface {
	Daily(ctx context.Context, userID int64, date time.Time) (summary.PeriodSummary, error)
	Weekly(ctx context.Context, userID int64, date time.Time) (summary.PeriodSummary, error)
	Location() *time.Location
}

type Analyses interface {
	Analyze(ctx context.Context, userID int64, kind analysis.Kind, date time.Time) (analysis.Record, error)
}

type Sessions interface {
	Replace(ctx context.Context, userID int64, sessionType string, data SessionContextData) (int64, error)
	GetActive(ctx context.Context, userID int64, sessionType string) (*Session, error)
}

type UsageReporter interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Deps are the services behind the bot commands.
type Deps struct {
	Users     Users
	Foods     Foods
	Diary     Diary
	Summaries Summaries
	Analyses  Analyses
	Sessions  Sessions
	Usage     UsageReporter
	Log       *logger.Logger
	AdminID   int64
	DataDir   string
	Now       func() time.Time
}

// Bot answers food-tracking commands received through a Telegram webhook.
type Bot struct {
	api API
	Deps
	wg sync.WaitGroup
}

// NewBot initializes the Telegram API client and sets the webhook.
func NewBot(cfg *config.Config, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	b := New(api, deps)
	b.Log.Info("Authorized on account", "username", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %q: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	b.Log.Info("Webhook set", "description", resp.Description)

	return b, nil
}

// New creates a Bot over an existing API client.
func New(api API, deps Deps) *Bot {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Bot{api: api, Deps: deps}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Wait blocks until every in-flight message has been processed.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.Log.Warn("Error parsing update", "error", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.processMessage(msg)
	}()
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	chatID := msg.Chat.ID
	u, err := b.Users.GetOrCreateByTelegramID(ctx, msg.From.ID, msg.From.UserName)
	if err != nil {
		b.Log.Error("Failed to resolve telegram user", "telegram_id", msg.From.ID, "error", err)
		b.reply(chatID, "❌ Could not load your profile. Try again later.")
		return
	}

	if !msg.IsCommand() {
		b.reply(chatID, "Send /help to see what I can do.")
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	log := b.Log.With("command", msg.Command(), "user_id", u.ID)
	log.Debug("Handling command")

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText)
	case "search":
		err = b.handleSearch(ctx, chatID, u, args)
	case "barcode":
		err = b.handleBarcode(ctx, chatID, u, args)
	case "log":
		err = b.handleLog(ctx, chatID, u, args)
	case "today":
		err = b.handleSummary(ctx, chatID, u, args, false)
	case "week":
		err = b.handleSummary(ctx, chatID, u, args, true)
	case "goals":
		err = b.handleGoals(ctx, chatID, u, args)
	case "analyze":
		err = b.handleAnalyze(ctx, chatID, u, args)
	case "metrics":
		if msg.From.ID != b.AdminID || b.AdminID == 0 {
			log.Warn("Unauthorized metrics request", "telegram_id", msg.From.ID)
			b.reply(chatID, "⛔ This command is for the administrator only.")
			return
		}
		err = b.handleMetricsCommand(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Send /help for the list.")
	}

	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			log.Error("Command failed", "error", err)
			b.sendAdminAlert(fmt.Sprintf("⚠️ *Command failed*\n/%s for user %d", msg.Command(), u.ID))
		}
		b.reply(chatID, userMessage(err))
	}
}

const helpText = `🥗 *IntelliEats*

/search <food> - find foods by name
/barcode <code> - look up a packaged food
/log <n|#id> <servings> [meal] - log a result from your last search, or a stored food id
/today [YYYY-MM-DD] - daily totals by meal
/week [YYYY-MM-DD] - last 7 days with daily averages
/goals <kcal> <protein> <carbs> <fat> - set daily goals
/analyze [daily|weekly] - nutrition feedback`

func (b *Bot) handleSearch(ctx context.Context, chatID int64, u user.User, query string) error {
	if query == "" {
		b.reply(chatID, "Usage: /search <food name>")
		return nil
	}
	results, err := b.Foods.SearchByName(ctx, query, searchResultLimit)
	if err != nil {
		return err
	}

	foods := make([]food.Food, len(results))
	for i, r := range results {
		foods[i] = r.Food
	}
	if len(foods) > 0 {
		if _, err := b.Sessions.Replace(ctx, u.ID, SessionSearch, SessionContextData{Query: query, Results: foods}); err != nil {
			return err
		}
	}

	b.reply(chatID, formatSearchResults(query, results))
	return nil
}

func (b *Bot) handleBarcode(ctx context.Context, chatID int64, u user.User, code string) error {
	if code == "" {
		b.reply(chatID, "Usage: /barcode <code>")
		return nil
	}
	f, err := b.Foods.ResolveByBarcode(ctx, code)
	if err != nil {
		return err
	}
	if _, err := b.Sessions.Replace(ctx, u.ID, SessionSearch, SessionContextData{Query: code, Results: []food.Food{f}}); err != nil {
		return err
	}
	b.reply(chatID, formatFood(f)+"\n\nLog it with `/log 1 <servings> [meal]`")
	return nil
}

func (b *Bot) handleLog(ctx context.Context, chatID int64, u user.User, raw string) error {
	args, err := parseLogArgs(raw)
	if err != nil {
		return err
	}
	now := b.Now()
	meal := args.Meal
	if meal == "" {
		meal = string(mealAt(now.In(b.Summaries.Location())))
	}

	var entry diary.EntryWithFood
	if args.FoodID > 0 {
		entry, err = b.Diary.LogFoodByID(ctx, u.ID, args.FoodID, args.Servings, meal, &now)
	} else {
		var sess *Session
		sess, err = b.Sessions.GetActive(ctx, u.ID, SessionSearch)
		if err != nil {
			return err
		}
		if sess == nil {
			return apperr.Validation("telegram.log", "no recent search, run /search or /barcode first")
		}
		if args.Index > len(sess.Data.Results) {
			return apperr.Validation("telegram.log", "result %d does not exist, the last search had %d", args.Index, len(sess.Data.Results))
		}
		entry, err = b.Diary.LogEntry(ctx, diary.LogRequest{
			UserID:   u.ID,
			Food:     sess.Data.Results[args.Index-1],
			Servings: args.Servings,
			Meal:     meal,
			EatenAt:  &now,
		})
	}
	if err != nil {
		return err
	}

	b.reply(chatID, formatLogged(entry))
	return nil
}

func (b *Bot) handleSummary(ctx context.Context, chatID int64, u user.User, rawDate string, weekly bool) error {
	date, err := summary.ParseDay(rawDate, b.Summaries.Location(), b.Now())
	if err != nil {
		return err
	}
	var sum summary.PeriodSummary
	if weekly {
		sum, err = b.Summaries.Weekly(ctx, u.ID, date)
	} else {
		sum, err = b.Summaries.Daily(ctx, u.ID, date)
	}
	if err != nil {
		return err
	}
	b.reply(chatID, formatSummary(sum, b.Summaries.Location()))
	return nil
}

func (b *Bot) handleGoals(ctx context.Context, chatID int64, u user.User, raw string) error {
	if raw == "" {
		b.reply(chatID, formatGoals(u.Goals))
		return nil
	}
	g, err := parseGoalsArgs(raw)
	if err != nil {
		return err
	}
	updated, err := b.Users.UpdateGoals(ctx, u.ID, g)
	if err != nil {
		return err
	}
	b.reply(chatID, "✅ Goals updated.\n\n"+formatGoals(updated.Goals))
	return nil
}

func (b *Bot) handleAnalyze(ctx context.Context, chatID int64, u user.User, raw string) error {
	kind, err := analysis.ParseKind(raw)
	if err != nil {
		return err
	}

	status := tgbotapi.NewMessage(chatID, "🧑‍🍳 *Thinking...*")
	status.ParseMode = tgbotapi.ModeMarkdown
	sent, sendErr := b.api.Send(status)

	rec, err := b.Analyses.Analyze(ctx, u.ID, kind, b.Now())
	if err != nil {
		return err
	}

	text := fmt.Sprintf("📝 *%s analysis*\n\n%s", capitalize(string(rec.Kind)), escape(rec.Text))
	if sendErr != nil {
		b.reply(chatID, text)
		return nil
	}
	edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.Log.Warn("Failed to edit status message", "error", err)
	}
	return nil
}

func (b *Bot) handleMetricsCommand(ctx context.Context, chatID int64) error {
	usage, err := b.Usage.GetDailyUsage(ctx, 7)
	if err != nil {
		return err
	}
	b.reply(chatID, formatMetrics(usage, metrics.GetSysHealth(b.DataDir)))
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.Log.Warn("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendAdminAlert(text string) {
	if b.AdminID == 0 {
		return
	}
	b.reply(b.AdminID, text)
}

// logArgs are the parsed arguments of /log. Exactly one of Index and FoodID is set.
type logArgs struct {
	Index    int
	FoodID   int64
	Servings float64
	Meal     string
}

func parseLogArgs(raw string) (logArgs, error) {
	const op = "telegram.parseLogArgs"

	fields := strings.Fields(raw)
	if len(fields) < 2 || len(fields) > 3 {
		return logArgs{}, apperr.Validation(op, "usage: /log <n|#id> <servings> [meal]")
	}

	var args logArgs
	if ref, ok := strings.CutPrefix(fields[0], "#"); ok {
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil || id <= 0 {
			return logArgs{}, apperr.Validation(op, "invalid food id %q", fields[0])
		}
		args.FoodID = id
	} else {
		n, err := strconv.Atoi(fields[0])
		if err != nil || n <= 0 {
			return logArgs{}, apperr.Validation(op, "invalid result number %q", fields[0])
		}
		args.Index = n
	}

	servings, err := strconv.ParseFloat(strings.ReplaceAll(fields[1], ",", "."), 64)
	if err != nil || math.IsNaN(servings) || math.IsInf(servings, 0) || servings <= 0 {
		return logArgs{}, apperr.Validation(op, "servings must be a positive number, got %q", fields[1])
	}
	args.Servings = servings

	if len(fields) == 3 {
		meal, err := diary.ParseMeal(fields[2])
		if err != nil {
			return logArgs{}, err
		}
		args.Meal = string(meal)
	}
	return args, nil
}

func parseGoalsArgs(raw string) (user.Goals, error) {
	const op = "telegram.parseGoalsArgs"

	fields := strings.Fields(raw)
	if len(fields) != 4 {
		return user.Goals{}, apperr.Validation(op, "usage: /goals <kcal> <protein> <carbs> <fat>")
	}
	kcal, err := strconv.Atoi(fields[0])
	if err != nil {
		return user.Goals{}, apperr.Validation(op, "calorie goal must be a whole number, got %q", fields[0])
	}
	var macros [3]float64
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return user.Goals{}, apperr.Validation(op, "invalid number %q", f)
		}
		macros[i] = v
	}
	return user.Goals{Calories: kcal, Protein: macros[0], Carbohydrates: macros[1], Fat: macros[2]}, nil
}

// mealAt guesses the meal category from the local time of day.
func mealAt(t time.Time) diary.Meal {
	switch h := t.Hour(); {
	case h >= 5 && h < 11:
		return diary.Breakfast
	case h >= 11 && h < 16:
		return diary.Lunch
	case h >= 18 && h < 22:
		return diary.Dinner
	default:
		return diary.Snack
	}
}

func formatSearchResults(query string, results []resolver.ResultEntry) string {
	if len(results) == 0 {
		return fmt.Sprintf("🔎 No foods found for \"%s\".", escape(query))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔎 *Results for \"%s\"*\n\n", escape(query)))
	for i, r := range results {
		f := r.Food
		sb.WriteString(fmt.Sprintf("%d. %s - %.0f kcal", i+1, foodLabel(f), f.Calories))
		if f.ServingSize != "" {
			sb.WriteString(" / " + escape(f.ServingSize))
		}
		if r.InLocalStore {
			sb.WriteString(fmt.Sprintf(" (#%d)", f.ID))
		} else {
			sb.WriteString(" (" + escape(f.Source) + ")")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nLog one with `/log <n> <servings> [meal]`")
	return sb.String()
}

func formatFood(f food.Food) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏷 *%s*", escape(f.Name)))
	if f.Brand != "" {
		sb.WriteString(" - " + escape(f.Brand))
	}
	sb.WriteString("\n")
	if f.ServingSize != "" {
		sb.WriteString(fmt.Sprintf("Serving: %s\n", escape(f.ServingSize)))
	}
	sb.WriteString(fmt.Sprintf("🔥 %.0f kcal • P %.1fg • C %.1fg • F %.1fg\n", f.Calories, f.Protein, f.Carbohydrates, f.Fat))
	sb.WriteString(fmt.Sprintf("Fiber %.1fg • Sugar %.1fg • Sodium %.0fmg", f.Fiber, f.Sugar, f.Sodium))
	if f.ID > 0 {
		sb.WriteString(fmt.Sprintf("\nFood id: #%d", f.ID))
	}
	return sb.String()
}

func formatLogged(e diary.EntryWithFood) string {
	return fmt.Sprintf("✅ Logged %s x %s for %s\n🔥 %.0f kcal • P %.1fg • C %.1fg • F %.1fg",
		formatServings(e.Entry.Servings), foodLabel(e.Food), e.Entry.Meal,
		e.Entry.Calories, e.Entry.Protein, e.Entry.Carbohydrates, e.Entry.Fat)
}

func formatSummary(s summary.PeriodSummary, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	start := s.Window.Start.In(loc).Format("2006-01-02")
	end := s.Window.End.Add(-time.Nanosecond).In(loc).Format("2006-01-02")

	var sb strings.Builder
	if s.Days > 1 {
		sb.WriteString(fmt.Sprintf("📊 *%s to %s*\n\n", start, end))
	} else {
		sb.WriteString(fmt.Sprintf("📊 *%s*\n\n", start))
	}

	g := s.Goals
	sb.WriteString(fmt.Sprintf("🔥 Calories: %.0f / %d kcal%s\n", s.Totals.Calories, g.Calories*s.Days, percent(s.Totals.Calories, float64(g.Calories*s.Days))))
	sb.WriteString(fmt.Sprintf("🥩 Protein: %.1f / %.0f g\n", s.Totals.Protein, g.Protein*float64(s.Days)))
	sb.WriteString(fmt.Sprintf("🍞 Carbs: %.1f / %.0f g\n", s.Totals.Carbohydrates, g.Carbohydrates*float64(s.Days)))
	sb.WriteString(fmt.Sprintf("🧈 Fat: %.1f / %.0f g\n", s.Totals.Fat, g.Fat*float64(s.Days)))

	if s.Days > 1 {
		a := s.Averages
		sb.WriteString(fmt.Sprintf("\n📈 *Daily average*: %.0f kcal • P %.1fg • C %.1fg • F %.1fg\n", a.Calories, a.Protein, a.Carbohydrates, a.Fat))
		return sb.String()
	}

	if len(s.Entries) == 0 {
		sb.WriteString("\n_Nothing logged yet._")
		return sb.String()
	}
	for _, m := range diary.Meals {
		bucket := s.Meals[m]
		if len(bucket.Entries) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n*%s* (%.0f kcal)\n", capitalize(string(m)), bucket.Totals.Calories))
		for _, e := range bucket.Entries {
			sb.WriteString(fmt.Sprintf("• %s x %s - %.0f kcal\n", formatServings(e.Entry.Servings), foodLabel(e.Food), e.Entry.Calories))
		}
	}
	return sb.String()
}

func formatGoals(g user.Goals) string {
	return fmt.Sprintf("🎯 *Daily goals*\n🔥 %d kcal\n🥩 %.0f g protein\n🍞 %.0f g carbs\n🧈 %.0f g fat",
		g.Calories, g.Protein, g.Carbohydrates, g.Fat)
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}

// userMessage renders err for a chat reply without internal details.
func userMessage(err error) string {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Kind == apperr.KindInternal {
		return "❌ Something went wrong. Please try again later."
	}
	msg := string(e.Kind)
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch e.Kind {
	case apperr.KindNotFound:
		return "🤷 " + escape(msg)
	case apperr.KindProviderUnavailable:
		return "⏳ That service is unavailable right now. Please try again later."
	default:
		return "⚠️ " + escape(msg)
	}
}

func foodLabel(f food.Food) string {
	if f.Brand == "" {
		return escape(f.Name)
	}
	return fmt.Sprintf("%s (%s)", escape(f.Name), escape(f.Brand))
}

func formatServings(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percent(v, goal float64) string {
	if goal <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%.0f%%)", v/goal*100)
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
