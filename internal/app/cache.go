package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/market"
	"aShareBacktest/internal/ports"
)

// BarCache holds fully loaded bar tables for a sweep. It is filled before the
// sweep starts and only read afterwards.
type BarCache struct {
	mu   sync.RWMutex
	repo ports.BarRepository
	end  time.Time
	bars map[string][]domain.Bar
}

// NewBarCache creates a cache that reads bars up to end (zero = all) from repo.
func NewBarCache(repo ports.BarRepository, end time.Time) *BarCache {
	return &BarCache{repo: repo, end: end, bars: make(map[string][]domain.Bar)}
}

// Preload reads every code into the cache. Codes that fail to load or have no
// bars are skipped; their errors are joined into the returned error.
func (c *BarCache) Preload(ctx context.Context, codes []string) error {
	var errs []error
	for _, code := range codes {
		if err := ctx.Err(); err != nil {
			return err
		}
		code = market.StripSuffix(code)
		bars, err := c.repo.ReadBars(ctx, code, time.Time{}, c.end)
		if err != nil {
			errs = append(errs, fmt.Errorf("loading %s: %w", code, err))
			continue
		}
		if len(bars) == 0 {
			errs = append(errs, fmt.Errorf("loading %s: %w: no bars stored", code, ports.ErrInvalidBars))
			continue
		}
		c.Put(code, bars)
	}
	return errors.Join(errs...)
}

// Put stores bars for code, replacing any earlier entry.
func (c *BarCache) Put(code string, bars []domain.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars[market.StripSuffix(code)] = bars
}

// Get returns the cached bars for code. Callers must not modify the slice.
func (c *BarCache) Get(code string) ([]domain.Bar, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bars, ok := c.bars[market.StripSuffix(code)]
	return bars, ok
}

// Codes returns the cached codes in sorted order.
func (c *BarCache) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	codes := make([]string, 0, len(c.bars))
	for code := range c.bars {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
