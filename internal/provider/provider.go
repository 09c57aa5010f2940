// Package provider contains the source adapters that map external nutrition
// databases into food.Food records.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"intellieats/internal/food"
	"intellieats/internal/metrics"

	"golang.org/x/time/rate"
)

const defaultTimeout = 5 * time.Second

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 8 << 20

// ErrNotFound is returned when a provider explicitly reports that it has no record.
var ErrNotFound = errors.New("provider: not found")

// ErrUnavailable matches every *UnavailableError via errors.Is.
var ErrUnavailable = errors.New("provider: unavailable")

// UnavailableError reports a transport failure, timeout, non-success status or
// malformed payload from a provider.
type UnavailableError struct {
	Provider string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Config is the explicit configuration of one adapter.
type Config struct {
	BaseURL   string
	APIKey    string
	AppID     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
}

// Searcher finds foods by free text.
type Searcher interface {
	Name() string
	SearchByName(ctx context.Context, query string, limit int) ([]food.Food, error)
}

// BarcodeLooker resolves a single product by barcode.
type BarcodeLooker interface {
	Name() string
	LookupByBarcode(ctx context.Context, code string) (food.Food, error)
}

// client is the HTTP plumbing shared by the adapters.
type client struct {
	name       string
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newClient(name string, cfg Config) *client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return &client{
		name:       name,
		cfg:        cfg,
		httpClient: &http.Client{},
		limiter:    limiter,
	}
}

// get fetches url within the configured timeout. A 404 is returned as ErrNotFound
// along with the body so callers can inspect it; other non-2xx statuses are unavailable.
func (c *client) get(ctx context.Context, operation, url string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case errors.Is(err, ErrNotFound):
			outcome = "not_found"
		case err != nil:
			outcome = "error"
		}
		metrics.ObserveProviderCall(c.name, operation, outcome, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.unavailable(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, c.unavailable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "IntelliEats/0.1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.unavailable(fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.unavailable(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return body, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, c.unavailable(fmt.Errorf("status %d", resp.StatusCode))
	}
	return body, nil
}

func (c *client) unavailable(err error) error {
	return &UnavailableError{Provider: c.name, Err: err}
}
