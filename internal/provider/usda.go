package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"intellieats/internal/food"

	"github.com/tidwall/gjson"
)

var usdaDataTypes = []string{"Survey (FNDDS)", "Foundation", "SR Legacy"}

// USDA searches FoodData Central for whole foods.
type USDA struct {
	c *client
}

// NewUSDA creates a FoodData Central adapter.
func NewUSDA(cfg Config) *USDA {
	return &USDA{c: newClient(food.SourceUSDA, cfg)}
}

func (u *USDA) Name() string { return food.SourceUSDA }

// SearchByName runs a foods search and normalizes every hit.
func (u *USDA) SearchByName(ctx context.Context, query string, limit int) ([]food.Food, error) {
	params := url.Values{}
	params.Set("api_key", u.c.cfg.APIKey)
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(limit))
	for _, dt := range usdaDataTypes {
		params.Add("dataType", dt)
	}

	body, err := u.c.get(ctx, "search", u.c.cfg.BaseURL+"/foods/search?"+params.Encode())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	foods, err := NormalizeUSDASearch(body)
	if err != nil {
		return nil, u.c.unavailable(err)
	}
	if limit > 0 && len(foods) > limit {
		foods = foods[:limit]
	}
	return foods, nil
}

// NormalizeUSDASearch maps a /foods/search payload into Foods on a 100 g basis.
func NormalizeUSDASearch(body []byte) ([]food.Food, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed search payload")
	}

	hits := gjson.GetBytes(body, "foods").Array()
	foods := make([]food.Food, 0, len(hits))
	for _, hit := range hits {
		name := strings.TrimSpace(hit.Get("description").String())
		if name == "" {
			name = "Unknown"
		}
		f := food.Food{
			Name:             name,
			Brand:            hit.Get("brandOwner").String(),
			ServingSize:      "100g",
			ServingSizeGrams: 100,
			Source:           food.SourceUSDA,
			SourceID:         hit.Get("fdcId").String(),
			Verified:         true,
		}
		applyUSDANutrients(&f, hit.Get("foodNutrients").Array())
		foods = append(foods, f.Normalize())
	}
	return foods, nil
}

// applyUSDANutrients matches nutrients by name. The first match of each
// nutrient wins, except that a kcal energy value always replaces a kJ one.
func applyUSDANutrients(f *food.Food, nutrients []gjson.Result) {
	seen := map[string]bool{}
	energyFromKJ := false

	set := func(key string, dst *float64, v float64) {
		if seen[key] {
			return
		}
		seen[key] = true
		*dst = v
	}

	for _, n := range nutrients {
		name := strings.ToLower(n.Get("nutrientName").String())
		unit := strings.ToUpper(n.Get("unitName").String())
		value := number(n.Get("value"))

		switch {
		case strings.Contains(name, "energy") || strings.Contains(name, "calor"):
			switch unit {
			case "KJ":
				if !seen["calories"] {
					set("calories", &f.Calories, value/4.184)
					energyFromKJ = true
				}
			default:
				if energyFromKJ {
					f.Calories = value
					energyFromKJ = false
					continue
				}
				set("calories", &f.Calories, value)
			}
		case strings.Contains(name, "protein"):
			set("protein", &f.Protein, grams(value, unit))
		case strings.Contains(name, "carbohydrate"):
			set("carbohydrates", &f.Carbohydrates, grams(value, unit))
		case strings.Contains(name, "fatty acids"):
			// saturated/trans breakdowns are not total fat
		case strings.Contains(name, "total lipid") || strings.Contains(name, "fat"):
			set("fat", &f.Fat, grams(value, unit))
		case strings.Contains(name, "fiber"):
			set("fiber", &f.Fiber, grams(value, unit))
		case strings.Contains(name, "sugars"):
			set("sugar", &f.Sugar, grams(value, unit))
		case strings.Contains(name, "sodium"):
			set("sodium", &f.Sodium, milligrams(value, unit))
		}
	}
}

func grams(v float64, unit string) float64 {
	switch unit {
	case "MG":
		return v / 1000
	case "UG":
		return v / 1e6
	default:
		return v
	}
}

func milligrams(v float64, unit string) float64 {
	switch unit {
	case "G":
		return v * 1000
	case "UG":
		return v / 1000
	default:
		return v
	}
}
