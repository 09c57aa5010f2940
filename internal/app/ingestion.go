package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"intellieats/internal/food"
)

// ImportReport summarizes an ImportFoods run.
type ImportReport struct {
	Stored  int
	Skipped int
}

// ImportFoods reads a JSON array of foods from r and stores each one through
// the resolver, so barcodes and provider references are never duplicated.
// Invalid items are logged and skipped; storage errors abort the import.
func (a *App) ImportFoods(ctx context.Context, r io.Reader) (ImportReport, error) {
	var items []food.Food
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return ImportReport{}, fmt.Errorf("failed to decode foods: %w", err)
	}

	var report ImportReport
	for i, f := range items {
		if err := f.Validate(); err != nil {
			a.log.Warn("Skipping invalid food", "index", i, "name", f.Name, "error", err)
			report.Skipped++
			continue
		}
		f.ID = 0
		stored, err := a.Resolver.EnsureStored(ctx, f)
		if err != nil {
			return report, fmt.Errorf("failed to store food %q: %w", f.Name, err)
		}
		a.log.Debug("Imported food", "food_id", stored.ID, "name", stored.Name)
		report.Stored++
	}

	a.log.Info("Food import complete", "stored", report.Stored, "skipped", report.Skipped)
	return report, nil
}
