// Package portfolio runs the per-product credit pipelines of a portfolio
// and composes their statements into division and consolidated views.
package portfolio

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fracarlesi/piano-excel-sub003/internal/credit"
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Engine Configuration
// ════════════════════════════════════════════════════════════════════

// Config holds the runner parameters.
type Config struct {
	Workers int // products projected in parallel (default: NumCPU)
}

// DefaultConfig returns one worker per CPU.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU()}
}

// Engine projects whole portfolios. It holds no state between runs and is
// safe for concurrent use.
type Engine struct {
	cfg Config
	obs Observer
}

// NewEngine creates a portfolio engine. A nil observer discards events.
func NewEngine(cfg Config, obs Observer) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Engine{cfg: cfg, obs: obs}
}

// ════════════════════════════════════════════════════════════════════
// Results
// ════════════════════════════════════════════════════════════════════

// Division is the element-wise sum of the products sharing a division.
type Division struct {
	Name      string           `json:"name"`
	Products  []string         `json:"products"`
	Statement models.Statement `json:"statement"`
	Totals    models.Totals    `json:"totals"`
}

// Result is one full projection of a portfolio.
type Result struct {
	RunID        string                 `json:"run_id"`
	GeneratedAt  time.Time              `json:"generated_at"`
	Globals      product.Globals        `json:"globals"`
	Products     []credit.ProductResult `json:"products"`
	Divisions    []Division             `json:"divisions"`
	Consolidated models.Statement       `json:"consolidated"`
	Totals       models.Totals          `json:"totals"`
}

// Product returns the result of one product by ID.
func (r *Result) Product(id string) (*credit.ProductResult, bool) {
	for i := range r.Products {
		if r.Products[i].ProductID == id {
			return &r.Products[i], true
		}
	}
	return nil, false
}

// WithoutVintages returns a shallow copy of r without per-vintage detail.
// r itself is left untouched.
func (r *Result) WithoutVintages() *Result {
	out := *r
	out.Products = append(out.Products[:0:0], r.Products...)
	for i := range out.Products {
		out.Products[i].Vintages = nil
	}
	return &out
}

// ════════════════════════════════════════════════════════════════════
// Run
// ════════════════════════════════════════════════════════════════════

// Run projects every product and sums the results. Products are
// independent, so they run in parallel; cancelling ctx stops scheduling
// further products and returns the context error. An empty runID gets a
// fresh UUID.
func (e *Engine) Run(ctx context.Context, runID string, cfgs []product.Config, g product.Globals) (*Result, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	start := time.Now()
	e.obs.ProjectionStarted(runID, len(cfgs))

	results := make([]credit.ProductResult, len(cfgs))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(e.cfg.Workers)
	for i, cfg := range cfgs {
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t0 := time.Now()
			results[i] = credit.Project(cfg, g)
			e.obs.ProductProjected(runID, &results[i], time.Since(t0))
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		err = fmt.Errorf("projection %s: %w", runID, err)
		e.obs.ProjectionFinished(runID, time.Since(start), err)
		return nil, err
	}

	res := &Result{
		RunID:        runID,
		GeneratedAt:  time.Now().UTC(),
		Globals:      g,
		Products:     results,
		Divisions:    Divisions(results),
		Consolidated: Consolidate(results),
	}
	res.Totals = ComputeTotals(res.Consolidated)
	e.obs.ProjectionFinished(runID, time.Since(start), nil)
	return res, nil
}

// Consolidate sums the statements of every product.
func Consolidate(results []credit.ProductResult) models.Statement {
	st := models.NewStatement()
	for _, r := range results {
		st = st.Plus(r.Statement)
	}
	return st
}

// Divisions groups products by division and sums each group. Divisions are
// sorted by name, products keep their input order.
func Divisions(results []credit.ProductResult) []Division {
	byName := make(map[string]*Division)
	for _, r := range results {
		d, ok := byName[r.Division]
		if !ok {
			d = &Division{Name: r.Division, Statement: models.NewStatement()}
			byName[r.Division] = d
		}
		d.Products = append(d.Products, r.ProductID)
		d.Statement = d.Statement.Plus(r.Statement)
	}
	out := make([]Division, 0, len(byName))
	for _, d := range byName {
		d.Totals = ComputeTotals(d.Statement)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
