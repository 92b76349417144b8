// Package fxrate keeps the display-to-settlement exchange rate fresh.
package fxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"rentshare-backend-go/pkg/cache"
)

// Config describes the rate source.
type Config struct {
	// APIURL is a "latest rates" endpoint for the base currency, e.g.
	// https://open.er-api.com/v6/latest/PHP. It answers {"rates":{"USD":0.0175,...}}.
	APIURL   string
	From     string
	To       string
	Fallback float64
	// TTL is how long a fetched rate stays in the shared cache.
	TTL time.Duration
}

// Provider serves the last known rate. It never blocks on the network in Rate.
type Provider struct {
	cfg    Config
	http   *http.Client
	cache  cache.Cache
	logger *zap.Logger
	rate   atomic.Uint64 // math.Float64bits
}

// NewProvider starts at the fallback rate. c may be nil.
func NewProvider(cfg Config, c cache.Cache, logger *zap.Logger) *Provider {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	p := &Provider{cfg: cfg, http: &http.Client{Timeout: 10 * time.Second}, cache: c, logger: logger}
	p.store(cfg.Fallback)
	return p
}

func (p *Provider) cacheKey() string {
	return "fx:" + strings.ToUpper(p.cfg.From) + ":" + strings.ToUpper(p.cfg.To)
}

// Rate returns the current rate.
func (p *Provider) Rate(context.Context) float64 {
	return math.Float64frombits(p.rate.Load())
}

func (p *Provider) store(v float64) {
	p.rate.Store(math.Float64bits(v))
}

// Refresh loads the rate from the shared cache, or from the API when the cache is cold,
// and keeps the previous rate on any failure.
func (p *Provider) Refresh(ctx context.Context) error {
	if p.cache != nil {
		if raw, err := p.cache.Get(ctx, p.cacheKey()); err == nil && raw != "" {
			if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
				p.store(v)
				return nil
			}
		}
	}
	if p.cfg.APIURL == "" {
		return nil
	}
	v, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("Exchange rate refresh failed, keeping previous rate",
			zap.Float64("rate", p.Rate(ctx)), zap.Error(err))
		return err
	}
	p.store(v)
	if p.cache != nil {
		if err := p.cache.Set(ctx, p.cacheKey(), strconv.FormatFloat(v, 'f', -1, 64), p.cfg.TTL); err != nil {
			p.logger.Warn("Failed to cache exchange rate", zap.Error(err))
		}
	}
	p.logger.Info("Exchange rate refreshed", zap.String("pair", p.cacheKey()), zap.Float64("rate", v))
	return nil
}

func (p *Provider) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIURL, nil)
	if err != nil {
		return 0, err
	}
	res, err := p.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fx request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fx request: status %d", res.StatusCode)
	}
	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("fx decode: %w", err)
	}
	v, ok := body.Rates[strings.ToUpper(p.cfg.To)]
	if !ok || v <= 0 {
		return 0, fmt.Errorf("fx response has no %s rate", p.cfg.To)
	}
	return v, nil
}
