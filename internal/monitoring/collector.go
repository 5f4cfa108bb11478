package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/folio-scout/harvest-cli/internal/model"
	"github.com/folio-scout/harvest-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of harvest health over a
// lookback window.
type MetricsSnapshot struct {
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsPartial  int     `json:"runs_partial"`
	RunsFailed   int     `json:"runs_failed"`
	FailRate     float64 `json:"fail_rate"`

	RecordsHarvested int            `json:"records_harvested"`
	FailuresByKind   map[string]int `json:"failures_by_kind,omitempty"`
	AvgRunSeconds    float64        `json:"avg_run_seconds"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the run archive.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of harvest metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours:  lookbackHours,
		FailuresByKind: make(map[string]int),
		CollectedAt:    time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{
		CreatedAfter: cutoff,
		Limit:        10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap.RunsTotal = len(runs)
	var totalDurationMS int64
	var timedRuns int

	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusPartial:
			snap.RunsPartial++
		case model.RunStatusFailed:
			snap.RunsFailed++
		}
		if r.Result == nil {
			continue
		}
		snap.RecordsHarvested += len(r.Result.Records)
		for _, f := range r.Result.Failures {
			snap.FailuresByKind[f.Kind]++
		}
		if r.Result.DurationMS > 0 {
			totalDurationMS += r.Result.DurationMS
			timedRuns++
		}
	}

	finished := snap.RunsComplete + snap.RunsPartial + snap.RunsFailed
	if finished > 0 {
		snap.FailRate = float64(snap.RunsFailed) / float64(finished)
	}
	if timedRuns > 0 {
		snap.AvgRunSeconds = float64(totalDurationMS) / float64(timedRuns) / 1000
	}
	if len(snap.FailuresByKind) == 0 {
		snap.FailuresByKind = nil
	}

	return snap, nil
}
