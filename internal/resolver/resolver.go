// Package resolver turns a barcode or a free-text query into canonical foods,
// reading the local store first and falling back to external providers.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"intellieats/internal/apperr"
	"intellieats/internal/food"
	"intellieats/internal/logger"
	"intellieats/internal/metrics"
	"intellieats/internal/provider"

	"golang.org/x/sync/errgroup"
)

const (
	LocalSearchLimit    = 10
	ProviderSearchLimit = 10
	DefaultSearchLimit  = 20
	MaxSearchLimit      = 50
)

// Store is the subset of the food repository the resolver needs.
type Store interface {
	Get(ctx context.Context, id int64) (*food.Food, error)
	GetByBarcode(ctx context.Context, barcode string) (*food.Food, error)
	SearchByName(ctx context.Context, query string, limit int) ([]food.Food, error)
	Create(ctx context.Context, f food.Food) (food.Food, error)
	UpsertByBarcode(ctx context.Context, f food.Food) (food.Food, bool, error)
	UpsertBySourceRef(ctx context.Context, f food.Food) (food.Food, bool, error)
}

// ResultEntry is one search hit. Provider hits have Food.ID == 0.
type ResultEntry struct {
	Food         food.Food `json:"food"`
	InLocalStore bool      `json:"in_local_store"`
}

// Resolver implements barcode resolution and merged search.
type Resolver struct {
	store     Store
	barcodes  []provider.BarcodeLooker
	searchers []provider.Searcher
	log       *logger.Logger
}

// New creates a Resolver. Providers are consulted in the order given.
func New(store Store, barcodes []provider.BarcodeLooker, searchers []provider.Searcher, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		store:     store,
		barcodes:  barcodes,
		searchers: searchers,
		log:       log,
	}
}

// ResolveByBarcode returns the stored food for code, fetching and caching it
// from the first provider that knows it. A product no provider knows creates no state.
func (r *Resolver) ResolveByBarcode(ctx context.Context, code string) (food.Food, error) {
	const op = "resolver.ResolveByBarcode"

	code = strings.TrimSpace(code)
	if code == "" {
		return food.Food{}, apperr.Validation(op, "barcode is required")
	}

	cached, err := r.store.GetByBarcode(ctx, code)
	if err != nil {
		return food.Food{}, err
	}
	if cached != nil {
		metrics.ObserveBarcodeResolution("cache_hit")
		return *cached, nil
	}

	fetched, source, err := r.lookup(ctx, code)
	if err != nil {
		metrics.ObserveBarcodeResolution("not_found")
		return food.Food{}, apperr.New(apperr.KindNotFound, op, err)
	}

	fetched.Barcode = code
	stored, created, err := r.store.UpsertByBarcode(ctx, fetched)
	if err != nil {
		return food.Food{}, err
	}
	if created {
		metrics.ObserveBarcodeResolution("created")
		r.log.Info("Cached food from provider", "barcode", code, "provider", source, "food_id", stored.ID)
	} else {
		metrics.ObserveBarcodeResolution("conflict")
		r.log.Info("Barcode conflict handled, using existing record", "barcode", code, "food_id", stored.ID)
	}
	return stored, nil
}

func (r *Resolver) lookup(ctx context.Context, code string) (food.Food, string, error) {
	for _, p := range r.barcodes {
		f, err := p.LookupByBarcode(ctx, code)
		switch {
		case err == nil:
			return f, p.Name(), nil
		case errors.Is(err, provider.ErrNotFound):
			r.log.Debug("Barcode not known to provider", "provider", p.Name(), "barcode", code)
		default:
			r.log.Warn("Barcode provider failed", "provider", p.Name(), "barcode", code, "error", err)
		}
		if ctx.Err() != nil {
			break
		}
	}
	return food.Food{}, "", fmt.Errorf("barcode %s not found", code)
}

// SearchByName returns local matches followed by provider matches, truncated to
// limit. A limit <= 0 means DefaultSearchLimit; larger than MaxSearchLimit is capped.
// Provider failures degrade to fewer results.
func (r *Resolver) SearchByName(ctx context.Context, query string, limit int) ([]ResultEntry, error) {
	const op = "resolver.SearchByName"

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation(op, "query is required")
	}
	switch {
	case limit <= 0:
		limit = DefaultSearchLimit
	case limit > MaxSearchLimit:
		limit = MaxSearchLimit
	}

	local, err := r.store.SearchByName(ctx, query, LocalSearchLimit)
	if err != nil {
		return nil, err
	}

	results := make([]ResultEntry, 0, limit)
	for _, f := range local {
		results = append(results, ResultEntry{Food: f, InLocalStore: true})
	}
	if len(results) >= limit {
		return results[:limit], nil
	}

	// Each provider writes only its own slot, so ordering follows configuration.
	perProvider := make([][]food.Food, len(r.searchers))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range r.searchers {
		i, s := i, s
		g.Go(func() error {
			foods, err := s.SearchByName(gctx, query, ProviderSearchLimit)
			if err != nil {
				r.log.Warn("Search provider failed", "provider", s.Name(), "query", query, "error", err)
				return nil
			}
			if len(foods) > ProviderSearchLimit {
				foods = foods[:ProviderSearchLimit]
			}
			perProvider[i] = foods
			return nil
		})
	}
	_ = g.Wait()

	for _, foods := range perProvider {
		for _, f := range foods {
			if len(results) == limit {
				return results, nil
			}
			f.ID = 0
			results = append(results, ResultEntry{Food: f, InLocalStore: false})
		}
	}
	return results, nil
}

// EnsureStored returns f as a stored row, persisting it when it has no local id.
// Provider records are keyed by barcode or by (source, source_id) so repeated
// logging of the same hit reuses one row.
func (r *Resolver) EnsureStored(ctx context.Context, f food.Food) (food.Food, error) {
	const op = "resolver.EnsureStored"

	if f.Stored() {
		existing, err := r.store.Get(ctx, f.ID)
		if err != nil {
			return food.Food{}, err
		}
		if existing == nil {
			return food.Food{}, apperr.NotFound(op, "food %d not found", f.ID)
		}
		return *existing, nil
	}

	if err := f.Validate(); err != nil {
		return food.Food{}, apperr.New(apperr.KindValidation, op, err)
	}

	switch {
	case strings.TrimSpace(f.Barcode) != "":
		stored, _, err := r.store.UpsertByBarcode(ctx, f)
		return stored, err
	case f.Source != "" && f.Source != food.SourceUser && strings.TrimSpace(f.SourceID) != "":
		stored, _, err := r.store.UpsertBySourceRef(ctx, f)
		return stored, err
	default:
		return r.store.Create(ctx, f)
	}
}
