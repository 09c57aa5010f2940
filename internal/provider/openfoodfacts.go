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

// OpenFoodFacts looks up packaged products by barcode.
type OpenFoodFacts struct {
	c *client
}

// NewOpenFoodFacts creates an Open Food Facts adapter.
func NewOpenFoodFacts(cfg Config) *OpenFoodFacts {
	return &OpenFoodFacts{c: newClient(food.SourceOpenFoodFacts, cfg)}
}

func (o *OpenFoodFacts) Name() string { return food.SourceOpenFoodFacts }

// LookupByBarcode fetches a product and normalizes it.
func (o *OpenFoodFacts) LookupByBarcode(ctx context.Context, code string) (food.Food, error) {
	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", o.c.cfg.BaseURL, url.PathEscape(code))

	body, err := o.c.get(ctx, "barcode", endpoint)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return food.Food{}, err
	}
	// OFF answers unknown products with a 404 whose body still carries status 0.
	if errors.Is(err, ErrNotFound) && !gjson.ValidBytes(body) {
		return food.Food{}, ErrNotFound
	}

	f, err := NormalizeOFFProduct(code, body)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return food.Food{}, o.c.unavailable(err)
	}
	return f, err
}

// NormalizeOFFProduct maps an Open Food Facts product payload into a Food.
// Nutrients are taken per 100 g; sodium is converted from grams to milligrams.
func NormalizeOFFProduct(barcode string, body []byte) (food.Food, error) {
	if !gjson.ValidBytes(body) {
		return food.Food{}, fmt.Errorf("malformed product payload")
	}
	doc := gjson.ParseBytes(body)
	if doc.Get("status").Int() != 1 {
		return food.Food{}, ErrNotFound
	}
	product := doc.Get("product")
	if !product.IsObject() {
		return food.Food{}, ErrNotFound
	}

	n := product.Get("nutriments")
	name := strings.TrimSpace(product.Get("product_name").String())
	if name == "" {
		name = "Unknown Product"
	}
	servingSize := strings.TrimSpace(product.Get("serving_size").String())
	if servingSize == "" {
		servingSize = "100g"
	}
	servingGrams := number(product.Get("serving_quantity"))
	if servingGrams <= 0 {
		servingGrams = 100
	}

	f := food.Food{
		Name:             name,
		Brand:            product.Get("brands").String(),
		Barcode:          barcode,
		ServingSize:      servingSize,
		ServingSizeGrams: servingGrams,
		Calories:         number(n.Get("energy-kcal_100g")),
		Protein:          number(n.Get("proteins_100g")),
		Carbohydrates:    number(n.Get("carbohydrates_100g")),
		Fat:              number(n.Get("fat_100g")),
		Fiber:            number(n.Get("fiber_100g")),
		Sugar:            number(n.Get("sugars_100g")),
		Sodium:           number(n.Get("sodium_100g")) * 1000,
		Source:           food.SourceOpenFoodFacts,
		SourceID:         barcode,
		ImageURL:         product.Get("image_url").String(),
		Verified:         true,
	}
	return f.Normalize(), nil
}

// number reads a JSON number or numeric string, defaulting to 0.
func number(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return r.Float()
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0
		}
		return v
	default:
		return 0
	}
}
