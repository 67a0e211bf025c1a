package portfolio

import (
	"log/slog"
	"time"

	"github.com/fracarlesi/piano-excel-sub003/internal/credit"
)

// Observer receives progress events from the engine. Implementations must be
// safe for concurrent use; ProductProjected is called from worker goroutines.
type Observer interface {
	ProjectionStarted(runID string, products int)
	ProductProjected(runID string, r *credit.ProductResult, elapsed time.Duration)
	ProjectionFinished(runID string, elapsed time.Duration, err error)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) ProjectionStarted(string, int)                                 {}
func (NopObserver) ProductProjected(string, *credit.ProductResult, time.Duration) {}
func (NopObserver) ProjectionFinished(string, time.Duration, error)               {}

// LogObserver writes events to a structured logger.
type LogObserver struct {
	Logger *slog.Logger
}

// NewLogObserver wraps logger, falling back to slog.Default.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{Logger: logger}
}

func (o *LogObserver) ProjectionStarted(runID string, products int) {
	o.Logger.Info("projection started", "run_id", runID, "products", products)
}

func (o *LogObserver) ProductProjected(runID string, r *credit.ProductResult, elapsed time.Duration) {
	o.Logger.Debug("product projected",
		"run_id", runID,
		"product", r.ProductID,
		"vintages", len(r.Vintages),
		"gbv_defaulted", r.Statement.GBVDefaulted.Quarterly.Total(),
		"elapsed", elapsed,
	)
}

func (o *LogObserver) ProjectionFinished(runID string, elapsed time.Duration, err error) {
	if err != nil {
		o.Logger.Error("projection failed", "run_id", runID, "elapsed", elapsed, "error", err)
		return
	}
	o.Logger.Info("projection finished", "run_id", runID, "elapsed", elapsed)
}

// Observers fans every event out to each observer in order.
type Observers []Observer

func (obs Observers) ProjectionStarted(runID string, products int) {
	for _, o := range obs {
		o.ProjectionStarted(runID, products)
	}
}

func (obs Observers) ProductProjected(runID string, r *credit.ProductResult, elapsed time.Duration) {
	for _, o := range obs {
		o.ProductProjected(runID, r, elapsed)
	}
}

func (obs Observers) ProjectionFinished(runID string, elapsed time.Duration, err error) {
	for _, o := range obs {
		o.ProjectionFinished(runID, elapsed, err)
	}
}
