package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"intellieats/internal/config"
	"intellieats/internal/food"
	"intellieats/internal/logger"
	"intellieats/internal/resolver"
	"intellieats/internal/summary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usdaChicken = `{
  "foods": [
    {
      "fdcId": 171077,
      "description": "Chicken breast, roasted",
      "foodNutrients": [
        {"nutrientName": "Energy", "unitName": "KCAL", "value": 165},
        {"nutrientName": "Protein", "unitName": "G", "value": 31},
        {"nutrientName": "Total lipid (fat)", "unitName": "G", "value": 3.6}
      ]
    }
  ]
}`

// TestFullWorkflow drives the HTTP API against fake providers and checks that
// barcode products are fetched once and provider hits are stored once.
func TestFullWorkflow(t *testing.T) {
	var offCalls, usdaCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v0/product/"):
			offCalls.Add(1)
			w.Write([]byte(riceNoodles))
		case r.URL.Path == "/foods/search":
			usdaCalls.Add(1)
			w.Write([]byte(usdaChicken))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := &config.Config{
		DatabasePath:     filepath.Join(t.TempDir(), "acceptance.db"),
		JWTSecret:        "secret",
		Location:         time.UTC,
		OpenFoodFactsURL: srv.URL,
		USDAURL:          srv.URL,
		USDAAPIKey:       "key",
		ProviderTimeout:  time.Second,
		LLMProvider:      "groq",
	}
	a, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	defer a.Close()
	router := a.Router()

	do := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// 1. Sign up
	rec := do(http.MethodPost, "/users", "", map[string]string{"username": "ana", "email": "Ana@Example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var signup struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signup))

	// 2. Barcode lookups hit the provider once
	var first, second food.Food
	rec = do(http.MethodGet, "/foods/barcode/737628064502", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	rec = do(http.MethodGet, "/foods/barcode/737628064502", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(1), offCalls.Load())

	// 3. Search returns the provider hit, not yet stored
	rec = do(http.MethodGet, "/foods/search?q=chicken&limit=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var search struct {
		Results []resolver.ResultEntry `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &search))
	require.Len(t, search.Results, 1)
	assert.False(t, search.Results[0].InLocalStore)
	chicken := search.Results[0].Food
	assert.Zero(t, chicken.ID)

	// 4. Logging the hit twice stores one food
	for _, at := range []string{"2025-03-14T12:00:00Z", "2025-03-14T19:00:00Z"} {
		meal := "lunch"
		if strings.HasPrefix(at[11:], "19") {
			meal = "dinner"
		}
		rec = do(http.MethodPost, "/entries", signup.Token, map[string]interface{}{
			"food": chicken, "servings": 2, "meal_type": meal, "eaten_at": at,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	stored, err := a.Foods.SearchByName(context.Background(), "chicken", 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	rec = do(http.MethodPost, "/entries", signup.Token, map[string]interface{}{
		"food_id": first.ID, "servings": 1, "meal_type": "breakfast", "eaten_at": "2025-03-14T08:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// 5. The day adds up
	rec = do(http.MethodGet, "/entries/daily?date=2025-03-14", signup.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var day summary.PeriodSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	assert.InDelta(t, 165*2*2+385, day.Totals.Calories, 1e-9)
	assert.Len(t, day.Entries, 3)
	assert.Len(t, day.Meals["dinner"].Entries, 1)

	// 6. Analyses need a configured generator
	rec = do(http.MethodPost, "/analyses?kind=daily&date=2025-03-14", signup.Token, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
