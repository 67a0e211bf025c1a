package refrate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/fracarlesi/piano-excel-sub003/internal/infra"
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
)

// Series names the feed items each assumption is read from. Matching is a
// case-insensitive substring test on the item title.
type Series struct {
	Reference   string
	Fixed       string
	CostOfFunds string
}

// DefaultSeries matches the central-bank style rate bulletins.
var DefaultSeries = Series{
	Reference:   "euribor 3m",
	Fixed:       "swap",
	CostOfFunds: "cost of funds",
}

// Feed reads rates from an RSS or Atom feed. Each item carries one
// observation; the newest item per series wins. Values come from an RSS-CB
// <cb:value> extension when present, otherwise from the first number in the
// item description.
type Feed struct {
	URL      string
	Series   Series
	Fallback product.Globals

	parser  *gofeed.Parser
	cache   *infra.Cache[product.Globals]
	limiter *infra.RateLimiter
	timeout time.Duration
}

// NewFeed creates a feed source. Results are cached for ten minutes.
func NewFeed(url string, fallback product.Globals, timeout time.Duration) *Feed {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Feed{
		URL:      url,
		Series:   DefaultSeries,
		Fallback: fallback,
		parser:   gofeed.NewParser(),
		cache:    infra.NewCache[product.Globals](10 * time.Minute),
		limiter:  infra.NewRateLimiter(2, time.Second),
		timeout:  timeout,
	}
}

// Name returns the data source name.
func (f *Feed) Name() string { return "feed" }

// Rates fetches and parses the feed.
func (f *Feed) Rates(ctx context.Context) (product.Globals, error) {
	if cached, ok := f.cache.Get(f.URL); ok {
		return cached, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return product.Globals{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(f.URL, ctx)
	if err != nil {
		return product.Globals{}, fmt.Errorf("parse rate feed %s: %w", f.URL, err)
	}
	g, err := f.Extract(feed)
	if err != nil {
		return product.Globals{}, err
	}
	f.cache.Set(f.URL, g)
	return g, nil
}

// Extract reads the assumptions from a parsed feed. Series missing from the
// feed keep their fallback value; a feed matching no series is an error.
func (f *Feed) Extract(feed *gofeed.Feed) (product.Globals, error) {
	g := f.Fallback
	targets := []struct {
		key string
		dst *float64
	}{
		{f.Series.Reference, &g.ReferenceRate},
		{f.Series.Fixed, &g.FixedReferenceRate},
		{f.Series.CostOfFunds, &g.CostOfFunds},
	}

	found := 0
	for _, tgt := range targets {
		if tgt.key == "" {
			continue
		}
		if v, ok := latest(feed.Items, tgt.key); ok {
			*tgt.dst = v
			found++
		}
	}
	if found == 0 {
		return product.Globals{}, fmt.Errorf("rate feed %s: %w", f.URL, ErrNoRates)
	}
	return g, nil
}

// latest returns the value of the newest item whose title contains key.
// Items without a date rank below dated ones.
func latest(items []*gofeed.Item, key string) (float64, bool) {
	key = strings.ToLower(key)
	var (
		best     float64
		bestTime time.Time
		ok       bool
	)
	for _, item := range items {
		if !strings.Contains(strings.ToLower(item.Title), key) {
			continue
		}
		v, valid := itemValue(item)
		if !valid {
			continue
		}
		var ts time.Time
		if item.PublishedParsed != nil {
			ts = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			ts = *item.UpdatedParsed
		}
		if !ok || ts.After(bestTime) {
			best, bestTime, ok = v, ts, true
		}
	}
	return best, ok
}

func itemValue(item *gofeed.Item) (float64, bool) {
	if v, ok := cbValue(item.Extensions); ok {
		return v, true
	}
	return firstNumber(cleanHTML(item.Description))
}

// cbValue digs <cb:statistics><cb:interestRate><cb:value> out of the
// extension tree.
func cbValue(exts ext.Extensions) (float64, bool) {
	stats := exts["cb"]["statistics"]
	if len(stats) == 0 {
		return 0, false
	}
	rates := stats[0].Children["interestRate"]
	if len(rates) == 0 {
		return 0, false
	}
	values := rates[0].Children["value"]
	if len(values) == 0 {
		return 0, false
	}
	return parseNumber(values[0].Value)
}

var numberRe = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

func firstNumber(s string) (float64, bool) {
	return parseNumber(numberRe.FindString(s))
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
