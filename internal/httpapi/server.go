// Package httpapi is the JSON HTTP boundary over the food, diary, summary and
// analysis services.
package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"intellieats/internal/analysis"
	"intellieats/internal/apperr"
	"intellieats/internal/diary"
	"intellieats/internal/food"
	"intellieats/internal/logger"
	"intellieats/internal/metrics"
	"intellieats/internal/resolver"
	"intellieats/internal/summary"
	"intellieats/internal/user"

	"github.com/gin-gonic/gin"
)

type Users interface {
	Create(ctx context.Context, username, email string) (user.User, error)
	Get(ctx context.Context, id int64) (user.User, error)
}

type Foods interface {
	Get(ctx context.Context, id int64) (*food.Food, error)
	Create(ctx context.Context, f food.Food) (food.Food, error)
}

type Resolver interface {
	ResolveByBarcode(ctx context.Context, code string) (food.Food, error)
	SearchByName(ctx context.Context, query string, limit int) ([]resolver.ResultEntry, error)
}

type Diary interface {
	LogEntry(ctx context.Context, req diary.LogRequest) (diary.EntryWithFood, error)
	Delete(ctx context.Context, userID, entryID int64) error
}

type Summaries interface {
	Daily(ctx context.Context, userID int64, date time.Time) (summary.PeriodSummary, error)
	Weekly(ctx context.Context, userID int64, date time.Time) (summary.PeriodSummary, error)
	Location() *time.Location
}

type Analyses interface {
	Analyze(ctx context.Context, userID int64, kind analysis.Kind, date time.Time) (analysis.Record, error)
	List(ctx context.Context, userID int64, limit int) ([]analysis.Record, error)
}

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Users     Users
	Foods     Foods
	Resolver  Resolver
	Diary     Diary
	Summaries Summaries
	Analyses  Analyses
	Tokens    *Tokens
	Log       *logger.Logger
	// DataDir is reported in the health payload.
	DataDir        string
	AllowedOrigins []string
	Now            func() time.Time
}

type server struct {
	Deps
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	s := &server{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(d.Log))
	r.Use(Metrics())
	r.Use(CORS(d.AllowedOrigins))

	r.GET("/", s.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/users", s.createUser)
	r.GET("/foods/search", s.searchFoods)
	r.GET("/foods/barcode/:barcode", s.foodByBarcode)
	r.GET("/foods/:id", s.getFood)

	auth := r.Group("/")
	auth.Use(RequireAuth(d.Tokens))
	{
		auth.GET("/users/:id", s.getUser)
		auth.POST("/foods", s.createFood)
		auth.POST("/entries", s.logEntry)
		auth.DELETE("/entries/:id", s.deleteEntry)
		auth.GET("/entries/daily", s.dailySummary)
		auth.GET("/summary/weekly", s.weeklySummary)
		auth.POST("/analyses", s.analyze)
		auth.GET("/analyses", s.listAnalyses)
	}
	return r
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "IntelliEats API",
		"status":  "running",
		"system":  metrics.GetSysHealth(s.DataDir),
	})
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

func (s *server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.Validation("httpapi.createUser", "invalid request body: %v", err))
		return
	}
	u, err := s.Users.Create(c.Request.Context(), req.Username, req.Email)
	if err != nil {
		s.fail(c, err)
		return
	}
	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u, "token": token})
}

func (s *server) getUser(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	if id != currentUserID(c) {
		abort(c, http.StatusForbidden, "forbidden", "cannot read another user")
		return
	}
	u, err := s.Users.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *server) createFood(c *gin.Context) {
	var f food.Food
	if err := c.ShouldBindJSON(&f); err != nil {
		s.fail(c, apperr.Validation("httpapi.createFood", "invalid request body: %v", err))
		return
	}
	if err := f.Validate(); err != nil {
		s.fail(c, apperr.New(apperr.KindValidation, "httpapi.createFood", err))
		return
	}
	f.ID = 0
	f.Source = food.SourceUser
	f.SourceID = ""
	f.Verified = true
	f.CreatedAt = time.Time{}

	created, err := s.Foods.Create(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *server) searchFoods(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.fail(c, apperr.Validation("httpapi.searchFoods", "limit must be an integer"))
			return
		}
		limit = n
	}
	results, err := s.Resolver.SearchByName(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (s *server) foodByBarcode(c *gin.Context) {
	f, err := s.Resolver.ResolveByBarcode(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

func (s *server) getFood(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	f, err := s.Foods.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if f == nil {
		s.fail(c, apperr.NotFound("httpapi.getFood", "food %d not found", id))
		return
	}
	c.JSON(http.StatusOK, f)
}

type logEntryRequest struct {
	FoodID   int64      `json:"food_id"`
	Food     *food.Food `json:"food"`
	Servings float64    `json:"servings"`
	MealType string     `json:"meal_type"`
	EatenAt  *time.Time `json:"eaten_at"`
}

func (s *server) logEntry(c *gin.Context) {
	const op = "httpapi.logEntry"

	var req logEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.Validation(op, "invalid request body: %v", err))
		return
	}

	var f food.Food
	switch {
	case req.FoodID > 0:
		f = food.Food{ID: req.FoodID}
	case req.Food != nil:
		f = *req.Food
	default:
		s.fail(c, apperr.Validation(op, "food_id or food is required"))
		return
	}

	entry, err := s.Diary.LogEntry(c.Request.Context(), diary.LogRequest{
		UserID:   currentUserID(c),
		Food:     f,
		Servings: req.Servings,
		Meal:     req.MealType,
		EatenAt:  req.EatenAt,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *server) deleteEntry(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	if err := s.Diary.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) dailySummary(c *gin.Context) {
	date, ok := s.queryDay(c)
	if !ok {
		return
	}
	sum, err := s.Summaries.Daily(c.Request.Context(), currentUserID(c), date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *server) weeklySummary(c *gin.Context) {
	date, ok := s.queryDay(c)
	if !ok {
		return
	}
	sum, err := s.Summaries.Weekly(c.Request.Context(), currentUserID(c), date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *server) analyze(c *gin.Context) {
	kind, err := analysis.ParseKind(c.Query("kind"))
	if err != nil {
		s.fail(c, err)
		return
	}
	date, ok := s.queryDay(c)
	if !ok {
		return
	}
	rec, err := s.Analyses.Analyze(c.Request.Context(), currentUserID(c), kind, date)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *server) listAnalyses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	recs, err := s.Analyses.List(c.Request.Context(), currentUserID(c), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": recs})
}

func (s *server) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.fail(c, apperr.Validation("httpapi", "invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

func (s *server) queryDay(c *gin.Context) (time.Time, bool) {
	date, err := summary.ParseDay(c.Query("date"), s.Summaries.Location(), s.Now())
	if err != nil {
		s.fail(c, err)
		return time.Time{}, false
	}
	return date, true
}

// fail maps err onto a status code and writes the error body.
func (s *server) fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.Log.Error("Request failed", "path", routePath(c), "request_id", c.GetString(requestIDKey), "error", err)
		msg = "internal server error"
	}
	abort(c, status, string(kind), msg)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindProviderUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": message, "code": code},
	})
}
