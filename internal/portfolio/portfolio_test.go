package portfolio

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/fracarlesi/piano-excel-sub003/internal/credit"
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/pkg/models"
)

var globals = product.Globals{ReferenceRate: 3, FixedReferenceRate: 2.5, CostOfFunds: 4}

func sampleConfigs(t *testing.T) []product.Config {
	t.Helper()
	cfgs, err := product.ResolveAll([]product.Input{
		{ID: "bridge", Division: "corporate", AmortizationType: "bullet", Volumes: []float64{100, 100, 100}},
		{ID: "sme", Division: "corporate", Volumes: []float64{200, 250, 300}, Guarantee: &product.GuaranteeInput{Type: "mcc"}},
		{ID: "mortgage", Division: "retail", LTV: product.Float(75), Volumes: []float64{500, 500, 500, 500}},
	})
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	return cfgs
}

// recordingObserver counts events.
type recordingObserver struct {
	mu       sync.Mutex
	started  int
	products []string
	finished int
	lastErr  error
}

func (o *recordingObserver) ProjectionStarted(string, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *recordingObserver) ProductProjected(_ string, r *credit.ProductResult, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.products = append(o.products, r.ProductID)
}

func (o *recordingObserver) ProjectionFinished(_ string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished++
	o.lastErr = err
}

// ── Run ──

func TestRunSumsProducts(t *testing.T) {
	obs := &recordingObserver{}
	e := NewEngine(Config{Workers: 2}, obs)
	res, err := e.Run(context.Background(), "", sampleConfigs(t), globals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID == "" {
		t.Error("a run ID should be generated")
	}
	if len(res.Products) != 3 || res.Products[0].ProductID != "bridge" || res.Products[2].ProductID != "mortgage" {
		t.Fatalf("products must keep input order: %+v", res.Products)
	}
	if obs.started != 1 || obs.finished != 1 || len(obs.products) != 3 || obs.lastErr != nil {
		t.Errorf("observer: %+v", obs)
	}

	for _, nl := range res.Consolidated.Lines() {
		var want models.QuarterlySeries
		for _, p := range res.Products {
			for _, pl := range p.Statement.Lines() {
				if pl.Key == nl.Key {
					want = want.Plus(pl.Line.Quarterly)
				}
			}
		}
		for q := range want {
			if math.Abs(nl.Line.Quarterly[q]-want[q]) > 1e-9 {
				t.Errorf("%s[%d]: got %v, want %v", nl.Key, q, nl.Line.Quarterly[q], want[q])
			}
		}
	}
}

func TestRunDivisions(t *testing.T) {
	res, err := NewEngine(DefaultConfig(), nil).Run(context.Background(), "run-1", sampleConfigs(t), globals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.RunID != "run-1" {
		t.Errorf("RunID: got %q", res.RunID)
	}
	if len(res.Divisions) != 2 || res.Divisions[0].Name != "corporate" || res.Divisions[1].Name != "retail" {
		t.Fatalf("divisions: %+v", res.Divisions)
	}
	corp := res.Divisions[0]
	if len(corp.Products) != 2 {
		t.Errorf("corporate products: got %v", corp.Products)
	}
	sum := corp.Statement.Performing.Quarterly.Plus(res.Divisions[1].Statement.Performing.Quarterly)
	if math.Abs(sum.Total()-res.Consolidated.Performing.Quarterly.Total()) > 1e-6 {
		t.Error("divisions must add up to the consolidated statement")
	}

	p, ok := res.Product("sme")
	if !ok || p.Division != "corporate" {
		t.Errorf("Product lookup: %v %v", p, ok)
	}
	if _, ok := res.Product("unknown"); ok {
		t.Error("unknown product must not be found")
	}
}

func TestWithoutVintages(t *testing.T) {
	res, err := NewEngine(Config{Workers: 1}, nil).Run(context.Background(), "", sampleConfigs(t), globals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	stripped := res.WithoutVintages()
	for _, p := range stripped.Products {
		if p.Vintages != nil {
			t.Errorf("%s: vintages should be dropped", p.ProductID)
		}
	}
	if len(res.Products[0].Vintages) == 0 {
		t.Error("the original result must keep its vintages")
	}
	if stripped.RunID != res.RunID || stripped.Consolidated != res.Consolidated {
		t.Error("everything but the vintages should be copied")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	obs := &recordingObserver{}
	_, err := NewEngine(Config{Workers: 1}, obs).Run(ctx, "", sampleConfigs(t), globals)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if obs.lastErr == nil {
		t.Error("observer should see the failure")
	}
}

func TestRunEmptyPortfolio(t *testing.T) {
	res, err := NewEngine(Config{}, nil).Run(context.Background(), "", nil, globals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Consolidated.Performing.Quarterly.Total() != 0 || len(res.Divisions) != 0 {
		t.Errorf("empty portfolio should produce zero series: %+v", res)
	}
}

// ── Totals ──

func TestTotals(t *testing.T) {
	st := models.NewStatement()
	var perf, ecl, npl, col, gar models.QuarterlySeries
	perf[4], ecl[4], npl[4], col[4], gar[4] = 1000, 12, 80, 30, 5
	st.Performing = models.NewLine(models.KindStock, perf)
	st.ECLProvision = models.NewLine(models.KindStock, ecl)
	st.NonPerforming = models.NewLine(models.KindStock, npl)
	st.CollateralRecoveries = models.NewLine(models.KindFlow, col)
	st.GuaranteeRecoveries = models.NewLine(models.KindFlow, gar)

	tot := ComputeTotals(st)
	if tot.NetPerforming.Quarterly[4] != 988 {
		t.Errorf("net performing: got %v, want 988", tot.NetPerforming.Quarterly[4])
	}
	if tot.TotalAssets.Quarterly[4] != 1068 {
		t.Errorf("total assets: got %v, want 1068", tot.TotalAssets.Quarterly[4])
	}
	if tot.Recoveries.Quarterly[4] != 35 || tot.Recoveries.Annual[1] != 35 {
		t.Errorf("recoveries: got %v", tot.Recoveries.Quarterly[4])
	}
	if tot.TotalAssets.YearEnd == nil || tot.Recoveries.YearEnd != nil {
		t.Error("stock totals carry a year-end view, flow totals do not")
	}
}

func TestObserversFanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	_, err := NewEngine(Config{Workers: 1}, Observers{a, NewLogObserver(nil), b}).Run(context.Background(), "", sampleConfigs(t), globals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, o := range []*recordingObserver{a, b} {
		if o.started != 1 || o.finished != 1 || len(o.products) != 3 {
			t.Errorf("observer: %+v", o)
		}
	}
}
