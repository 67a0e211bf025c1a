// Package refrate supplies the market assumptions of a projection run:
// the floating and fixed reference rates and the cost of funds.
package refrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fracarlesi/piano-excel-sub003/internal/config"
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
)

// ErrNoRates is returned when a source yields no usable rate at all.
var ErrNoRates = errors.New("no rates available")

// Source provides the market snapshot a projection is run against.
type Source interface {
	Name() string
	Rates(ctx context.Context) (product.Globals, error)
}

// Static returns fixed, configured rates.
type Static struct {
	Globals product.Globals
}

// Name returns the source name.
func (Static) Name() string { return "static" }

// Rates returns the configured snapshot.
func (s Static) Rates(context.Context) (product.Globals, error) {
	return s.Globals, nil
}

// New builds the source selected by rates.source. The configured static
// values double as the feed's fallback for series it does not publish.
func New(cfg config.RatesConfig) (Source, error) {
	switch cfg.Source {
	case "", "static":
		return Static{Globals: cfg.Globals()}, nil
	case "feed":
		if cfg.FeedURL == "" {
			return nil, fmt.Errorf("rate feed: empty URL")
		}
		timeout := time.Duration(cfg.FeedTimeout) * time.Second
		return NewFeed(cfg.FeedURL, cfg.Globals(), timeout), nil
	default:
		return nil, fmt.Errorf("unknown rate source %q", cfg.Source)
	}
}
