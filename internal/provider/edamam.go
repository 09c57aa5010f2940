package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"intellieats/internal/food"

	"github.com/tidwall/gjson"
)

// Edamam searches the Edamam Food Database and resolves UPC codes through
// its parser endpoint.
type Edamam struct {
	c *client
}

// NewEdamam creates an Edamam adapter. cfg.AppID and cfg.APIKey are the
// application credentials.
func NewEdamam(cfg Config) *Edamam {
	return &Edamam{c: newClient(food.SourceEdamam, cfg)}
}

func (e *Edamam) Name() string { return food.SourceEdamam }

// SearchByName queries the parser with free text.
func (e *Edamam) SearchByName(ctx context.Context, query string, limit int) ([]food.Food, error) {
	body, err := e.parser(ctx, "search", "ingr", query)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	foods, err := NormalizeEdamamParser(body, "")
	if err != nil {
		return nil, e.c.unavailable(err)
	}
	if limit > 0 && len(foods) > limit {
		foods = foods[:limit]
	}
	return foods, nil
}

// LookupByBarcode queries the parser by UPC and returns the first hint.
func (e *Edamam) LookupByBarcode(ctx context.Context, code string) (food.Food, error) {
	body, err := e.parser(ctx, "barcode", "upc", code)
	if err != nil {
		return food.Food{}, err
	}

	foods, err := NormalizeEdamamParser(body, code)
	if err != nil {
		return food.Food{}, e.c.unavailable(err)
	}
	if len(foods) == 0 {
		return food.Food{}, ErrNotFound
	}
	return foods[0], nil
}

func (e *Edamam) parser(ctx context.Context, operation, param, value string) ([]byte, error) {
	params := url.Values{}
	params.Set(param, value)
	params.Set("app_id", e.c.cfg.AppID)
	params.Set("app_key", e.c.cfg.APIKey)
	return e.c.get(ctx, operation, e.c.cfg.BaseURL+"/api/food-database/v2/parser?"+params.Encode())
}

// NormalizeEdamamParser maps parser hints into Foods on a 100 g basis.
// barcode, when set, is stamped on every result.
func NormalizeEdamamParser(body []byte, barcode string) ([]food.Food, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("malformed parser payload")
	}

	hints := gjson.GetBytes(body, "hints").Array()
	foods := make([]food.Food, 0, len(hints))
	for _, h := range hints {
		item := h.Get("food")
		if !item.Exists() {
			continue
		}
		name := strings.TrimSpace(item.Get("label").String())
		if name == "" {
			name = "Unknown"
		}
		n := item.Get("nutrients")
		f := food.Food{
			Name:             name,
			Brand:            item.Get("brand").String(),
			Barcode:          barcode,
			ServingSize:      "100g",
			ServingSizeGrams: 100,
			Calories:         number(n.Get("ENERC_KCAL")),
			Protein:          number(n.Get("PROCNT")),
			Carbohydrates:    number(n.Get("CHOCDF")),
			Fat:              number(n.Get("FAT")),
			Fiber:            number(n.Get("FIBTG")),
			Source:           food.SourceEdamam,
			SourceID:         item.Get("foodId").String(),
			ImageURL:         item.Get("image").String(),
			Verified:         true,
		}
		foods = append(foods, f.Normalize())
	}
	return foods, nil
}
