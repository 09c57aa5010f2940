package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offCola = `{
  "status": 1,
  "product": {
    "product_name": "Coca-Cola",
    "brands": "Coca-Cola",
    "serving_size": "330 ml",
    "serving_quantity": "330",
    "image_url": "https://images.example/cola.jpg",
    "nutriments": {
      "energy-kcal_100g": 42,
      "proteins_100g": 0,
      "carbohydrates_100g": "10.6",
      "fat_100g": 0,
      "sugars_100g": 10.6,
      "sodium_100g": 1.2
    }
  }
}`

const usdaChicken = `{
  "foods": [
    {
      "fdcId": 171077,
      "description": "Chicken, broilers or fryers, breast, meat only, cooked, roasted",
      "foodNutrients": [
        {"nutrientName": "Energy", "unitName": "KJ", "value": 690},
        {"nutrientName": "Protein", "unitName": "G", "value": 31.0},
        {"nutrientName": "Fatty acids, total saturated", "unitName": "G", "value": 1.0},
        {"nutrientName": "Total lipid (fat)", "unitName": "G", "value": 3.57},
        {"nutrientName": "Carbohydrate, by difference", "unitName": "G", "value": 0},
        {"nutrientName": "Energy", "unitName": "KCAL", "value": 165},
        {"nutrientName": "Sodium, Na", "unitName": "MG", "value": 74}
      ]
    },
    {
      "fdcId": 2646170,
      "description": "Chicken thigh",
      "brandOwner": "Farm Co",
      "foodNutrients": [
        {"nutrientName": "Energy", "unitName": "KJ", "value": 836.8},
        {"nutrientName": "Sodium, Na", "unitName": "G", "value": 0.09}
      ]
    }
  ]
}`

const edamamHints = `{
  "hints": [
    {"food": {"foodId": "food_a1", "label": "Apple", "image": "https://img/apple.jpg",
      "nutrients": {"ENERC_KCAL": 52, "PROCNT": 0.26, "CHOCDF": 13.81, "FAT": 0.17, "FIBTG": 2.4}}},
    {"food": {"foodId": "food_a2", "label": "Apple juice", "brand": "Juicy",
      "nutrients": {"ENERC_KCAL": 46}}}
  ]
}`

func TestNormalizeOFFProduct(t *testing.T) {
	f, err := NormalizeOFFProduct("5449000000996", []byte(offCola))
	require.NoError(t, err)

	assert.Equal(t, "Coca-Cola", f.Name)
	assert.Equal(t, "5449000000996", f.Barcode)
	assert.Equal(t, "5449000000996", f.SourceID)
	assert.Equal(t, "openfoodfacts", f.Source)
	assert.Equal(t, "330 ml", f.ServingSize)
	assert.Equal(t, 330.0, f.ServingSizeGrams)
	assert.Equal(t, 42.0, f.Calories)
	assert.Equal(t, 10.6, f.Carbohydrates)
	assert.InDelta(t, 1200.0, f.Sodium, 1e-9)
	assert.True(t, f.Verified)

	t.Run("Defaults", func(t *testing.T) {
		f, err := NormalizeOFFProduct("1", []byte(`{"status":1,"product":{"nutriments":{}}}`))
		require.NoError(t, err)
		assert.Equal(t, "Unknown Product", f.Name)
		assert.Equal(t, "100g", f.ServingSize)
		assert.Equal(t, 100.0, f.ServingSizeGrams)
		assert.Zero(t, f.Calories)
	})

	t.Run("StatusNotFound", func(t *testing.T) {
		_, err := NormalizeOFFProduct("000000000000", []byte(`{"status":0,"status_verbose":"product not found"}`))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := NormalizeOFFProduct("1", []byte(`{"status":`))
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})
}

func TestNormalizeUSDASearch(t *testing.T) {
	foods, err := NormalizeUSDASearch([]byte(usdaChicken))
	require.NoError(t, err)
	require.Len(t, foods, 2)

	breast := foods[0]
	assert.Equal(t, "171077", breast.SourceID)
	assert.Equal(t, "usda", breast.Source)
	assert.Equal(t, "100g", breast.ServingSize)
	assert.Equal(t, 165.0, breast.Calories, "kcal wins over kJ")
	assert.Equal(t, 31.0, breast.Protein)
	assert.Equal(t, 3.57, breast.Fat, "saturated fatty acids must not be taken as total fat")
	assert.Equal(t, 74.0, breast.Sodium)

	thigh := foods[1]
	assert.Equal(t, "Farm Co", thigh.Brand)
	assert.InDelta(t, 200.0, thigh.Calories, 0.01)
	assert.InDelta(t, 90.0, thigh.Sodium, 1e-9)

	t.Run("Empty", func(t *testing.T) {
		foods, err := NormalizeUSDASearch([]byte(`{"foods":[]}`))
		require.NoError(t, err)
		assert.Empty(t, foods)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := NormalizeUSDASearch([]byte(`<html>`))
		assert.Error(t, err)
	})
}

func TestNormalizeEdamamParser(t *testing.T) {
	foods, err := NormalizeEdamamParser([]byte(edamamHints), "")
	require.NoError(t, err)
	require.Len(t, foods, 2)
	assert.Equal(t, "Apple", foods[0].Name)
	assert.Equal(t, "food_a1", foods[0].SourceID)
	assert.Equal(t, 2.4, foods[0].Fiber)
	assert.Equal(t, "Juicy", foods[1].Brand)
	assert.Empty(t, foods[1].Barcode)

	withCode, err := NormalizeEdamamParser([]byte(edamamHints), "0123")
	require.NoError(t, err)
	assert.Equal(t, "0123", withCode[0].Barcode)
}

func TestOpenFoodFacts_LookupByBarcode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v0/product/5449000000996.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(offCola))
	})
	mux.HandleFunc("/api/v0/product/000000000000.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status":0}`))
	})
	mux.HandleFunc("/api/v0/product/500.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/v0/product/garbage.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	off := NewOpenFoodFacts(Config{BaseURL: srv.URL + "/"})
	ctx := context.Background()

	f, err := off.LookupByBarcode(ctx, "5449000000996")
	require.NoError(t, err)
	assert.Equal(t, "Coca-Cola", f.Name)
	assert.Zero(t, f.ID)

	_, err = off.LookupByBarcode(ctx, "000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = off.LookupByBarcode(ctx, "500")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = off.LookupByBarcode(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnavailable)
	var ue *UnavailableError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "openfoodfacts", ue.Provider)
}

func TestUSDA_SearchByName(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(usdaChicken))
	}))
	defer srv.Close()

	u := NewUSDA(Config{BaseURL: srv.URL, APIKey: "DEMO_KEY"})
	foods, err := u.SearchByName(context.Background(), "chicken breast", 1)
	require.NoError(t, err)
	assert.Len(t, foods, 1)

	require.NotNil(t, got)
	assert.Equal(t, "/foods/search", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "DEMO_KEY", q.Get("api_key"))
	assert.Equal(t, "chicken breast", q.Get("query"))
	assert.Equal(t, "1", q.Get("pageSize"))
	assert.Equal(t, []string{"Survey (FNDDS)", "Foundation", "SR Legacy"}, q["dataType"])
}

func TestEdamam_LookupByBarcode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id", r.URL.Query().Get("app_id"))
		assert.Equal(t, "key", r.URL.Query().Get("app_key"))
		if r.URL.Query().Get("upc") == "0123" {
			w.Write([]byte(edamamHints))
			return
		}
		w.Write([]byte(`{"hints":[]}`))
	}))
	defer srv.Close()

	e := NewEdamam(Config{BaseURL: srv.URL, AppID: "id", APIKey: "key"})
	f, err := e.LookupByBarcode(context.Background(), "0123")
	require.NoError(t, err)
	assert.Equal(t, "Apple", f.Name)
	assert.Equal(t, "0123", f.Barcode)

	_, err = e.LookupByBarcode(context.Background(), "999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	u := NewUSDA(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := u.SearchByName(context.Background(), "slow", 5)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, strings.Contains(err.Error(), "usda unavailable"))
}
