package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"intellieats/internal/apperr"
	"intellieats/internal/config"
	"intellieats/internal/food"
	"intellieats/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const riceNoodles = `{
  "status": 1,
  "product": {
    "product_name": "Rice Noodles",
    "brands": "Thai Kitchen",
    "serving_size": "56 g",
    "serving_quantity": 56,
    "nutriments": {
      "energy-kcal_100g": 385,
      "proteins_100g": 9.6,
      "carbohydrates_100g": 84,
      "fat_100g": 0.5,
      "sodium_100g": 1.2
    }
  }
}`

func newTestApp(t *testing.T) *App {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v0/product/737628064502.json" {
			w.Write([]byte(riceNoodles))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		DatabasePath:     filepath.Join(t.TempDir(), "data", "app.db"),
		JWTSecret:        "secret",
		Location:         time.UTC,
		OpenFoodFactsURL: srv.URL,
		USDAURL:          srv.URL,
		USDAAPIKey:       "key",
		ProviderTimeout:  time.Second,
		LLMProvider:      "gemini",
	}
	a, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestApp_LookupBarcodeAndSummary(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	var out bytes.Buffer
	require.NoError(t, a.LookupBarcode(ctx, &out, "737628064502"))
	assert.Contains(t, out.String(), "Rice Noodles (Thai Kitchen) [openfoodfacts]")
	assert.Contains(t, out.String(), "Sodium:   1200 mg")

	err := a.LookupBarcode(ctx, &out, "000000000000")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	noodles, err := a.Foods.GetByBarcode(ctx, "737628064502")
	require.NoError(t, err)
	require.NotNil(t, noodles)

	u, err := a.Users.Create(ctx, "ana", "ana@example.com")
	require.NoError(t, err)
	at := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)
	_, err = a.Diary.LogFoodByID(ctx, u.ID, noodles.ID, 2, "breakfast", &at)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, a.PrintSummary(ctx, &out, u.ID, "2025-03-14", false))
	assert.Contains(t, out.String(), "=== SUMMARY 2025-03-14 ===")
	assert.Contains(t, out.String(), "Total:   770 kcal")
	assert.Contains(t, out.String(), "BREAKFAST (770 kcal)")
	assert.Contains(t, out.String(), "2x Rice Noodles")

	out.Reset()
	require.NoError(t, a.PrintSummary(ctx, &out, u.ID, "2025-03-14", true))
	assert.Contains(t, out.String(), "2025-03-08 .. 2025-03-14 (7 days)")
	assert.Contains(t, out.String(), "Average: 110 kcal")

	err = a.PrintSummary(ctx, &out, u.ID, "yesterday", false)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestApp_RunAnalysisWithoutGenerator(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)
	u, err := a.Users.Create(ctx, "ana", "ana@example.com")
	require.NoError(t, err)

	var out bytes.Buffer
	err = a.RunAnalysis(ctx, &out, u.ID, "weekly", "2025-03-14")
	assert.True(t, apperr.Is(err, apperr.KindProviderUnavailable))
	assert.Empty(t, out.String())

	err = a.RunAnalysis(ctx, &out, u.ID, "yearly", "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestApp_ImportFoods(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	payload := `[
	  {"name": "Greek Yogurt", "barcode": "111", "serving_size": "170 g", "calories": 100, "protein": 17},
	  {"name": "Greek Yogurt (dup)", "barcode": "111", "calories": 120},
	  {"name": "", "calories": 50},
	  {"name": "Apple", "calories": 52, "carbohydrates": 14, "source": "usda", "source_id": "171688"}
	]`
	report, err := a.ImportFoods(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Stored: 3, Skipped: 1}, report)

	yogurt, err := a.Foods.GetByBarcode(ctx, "111")
	require.NoError(t, err)
	require.NotNil(t, yogurt)
	assert.Equal(t, "Greek Yogurt", yogurt.Name)

	_, err = a.ImportFoods(ctx, strings.NewReader(`{"name": "not a list"}`))
	assert.Error(t, err)
}

func TestApp_Cleanup(t *testing.T) {
	a := newTestApp(t)
	report, err := a.Cleanup(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, CleanupReport{}, report)
}

func TestApp_Router(t *testing.T) {
	a := newTestApp(t)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "IntelliEats API")
}

func TestProviders(t *testing.T) {
	cfg := &config.Config{LLMProvider: "gemini"}

	barcodes, searchers := Providers(cfg)
	require.Len(t, barcodes, 1)
	require.Len(t, searchers, 1)
	assert.Equal(t, food.SourceOpenFoodFacts, barcodes[0].Name())
	assert.Equal(t, food.SourceUSDA, searchers[0].Name())

	cfg.EdamamAppID, cfg.EdamamAppKey = "app", "key"
	barcodes, searchers = Providers(cfg)
	require.Len(t, barcodes, 2)
	require.Len(t, searchers, 2)
	assert.Equal(t, food.SourceEdamam, barcodes[1].Name())
	assert.Equal(t, food.SourceEdamam, searchers[1].Name())
}
