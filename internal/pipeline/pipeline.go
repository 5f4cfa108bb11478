// Package pipeline orchestrates a harvest run: it drains the discovery
// cursor in page order and fans profile extraction out over a bounded
// worker group, aggregating records and attributable failures.
package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/folio-scout/harvest-cli/internal/config"
	"github.com/folio-scout/harvest-cli/internal/discovery"
	"github.com/folio-scout/harvest-cli/internal/extract"
	"github.com/folio-scout/harvest-cli/internal/fetch"
	"github.com/folio-scout/harvest-cli/internal/model"
	"github.com/folio-scout/harvest-cli/internal/store"
)

// Pipeline runs keyword harvests. The store is optional; when nil the run
// is not archived.
type Pipeline struct {
	cfg     *config.Config
	st      store.Store
	fetcher fetch.Fetcher
	ext     *extract.Extractor
}

// New builds a Pipeline over the shared fetch controller. The selector
// profile is loaded from config when a path is set.
func New(cfg *config.Config, st store.Store, fetcher fetch.Fetcher) (*Pipeline, error) {
	sel := extract.DefaultSelectors()
	if cfg.Extract.SelectorsPath != "" {
		loaded, err := extract.LoadSelectors(cfg.Extract.SelectorsPath)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: load selector profile")
		}
		sel = loaded
	}

	return &Pipeline{
		cfg:     cfg,
		st:      st,
		fetcher: fetcher,
		ext:     extract.New(fetcher, sel),
	}, nil
}

// Run executes one harvest. Per-profile failures are recorded, never fatal;
// the only hard failure is discovery erroring before a single reference was
// yielded. On cancellation the accumulated result is returned with the
// cancelled marker set and a partial outcome.
func (p *Pipeline) Run(ctx context.Context, params model.HarvestParams) (*model.HarvestResult, error) {
	start := time.Now()
	if params.MaxProfiles < 0 {
		return nil, eris.Errorf("pipeline: max_profiles must be >= 0, got %d", params.MaxProfiles)
	}
	if params.MaxPages < 0 {
		return nil, eris.Errorf("pipeline: max_pages must be >= 0, got %d", params.MaxPages)
	}
	if params.Keyword == "" {
		params.Keyword = p.cfg.Harvest.Keyword
	}
	if params.MaxProfiles == 0 {
		params.MaxProfiles = p.cfg.Harvest.MaxProfiles
	}
	if params.MaxPages == 0 {
		params.MaxPages = p.cfg.Harvest.MaxPages
	}

	run := p.recordStart(ctx, params)

	zap.L().Info("harvest: starting",
		zap.String("keyword", params.Keyword),
		zap.Int("max_profiles", params.MaxProfiles),
		zap.Int("max_pages", params.MaxPages),
	)

	disc := discovery.New(p.fetcher, discovery.Config{
		BaseURL:        p.cfg.Platform.BaseURL,
		TrackingSource: p.cfg.Platform.TrackingSource,
		MaxPages:       params.MaxPages,
	})
	cursor := disc.Open(params.Keyword, params.MaxProfiles)
	p.recordStatus(ctx, run, model.RunStatusDiscovering)

	var (
		mu        sync.Mutex
		extracted []entry
		failures  []model.Failure
	)

	concurrency := p.cfg.Harvest.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	g := &errgroup.Group{}
	g.SetLimit(concurrency)

	// The cursor is drained here, on the caller goroutine: page order stays
	// strict so dedup and cap accounting are deterministic. Only extraction
	// fans out.
	discovered := 0
	cancelled := false
	for {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		ref, ok, err := cursor.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				cancelled = true
			}
			break
		}
		if !ok {
			break
		}
		discovered++
		if discovered == 1 {
			p.recordStatus(ctx, run, model.RunStatusExtracting)
		}

		g.Go(func() error {
			rec, err := p.ext.Extract(ctx, ref)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, classifyFailure(ref, err))
				zap.L().Warn("harvest: profile failed",
					zap.String("username", ref.Username),
					zap.Int("page", ref.Page),
					zap.Error(err),
				)
				return nil
			}
			extracted = append(extracted, entry{ref: ref, record: rec})
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		cancelled = true
	}

	result := &model.HarvestResult{
		Keyword:      params.Keyword,
		Records:      sortByDiscoveryOrder(extracted),
		Failures:     failures,
		Discovered:   discovered,
		PagesFetched: cursor.PagesFetched(),
		DurationMS:   time.Since(start).Milliseconds(),
		Cancelled:    cancelled,
	}

	var runErr error
	switch {
	case cursor.Err() != nil && discovered == 0 && !cancelled:
		result.Outcome = model.OutcomeFailed
		result.Failures = append(result.Failures, model.Failure{
			Ref:     model.ProfileRef{Page: cursor.CurrentPage()},
			Stage:   model.StageDiscovery,
			Kind:    failureKind(cursor.Err()),
			Message: cursor.Err().Error(),
		})
		result.Error = cursor.Err().Error()
		runErr = eris.Wrap(cursor.Err(), "pipeline: discovery failed before yielding any reference")
	case cancelled || len(failures) > 0 || cursor.Err() != nil:
		result.Outcome = model.OutcomePartial
	default:
		result.Outcome = model.OutcomeComplete
	}

	// Discovery errors after at least one yield are recorded, not fatal.
	if cursor.Err() != nil && result.Outcome == model.OutcomePartial {
		result.Failures = append(result.Failures, model.Failure{
			Ref:     model.ProfileRef{Page: cursor.CurrentPage()},
			Stage:   model.StageDiscovery,
			Kind:    failureKind(cursor.Err()),
			Message: cursor.Err().Error(),
		})
	}

	p.recordFinish(run, result)

	zap.L().Info("harvest: finished",
		zap.String("keyword", params.Keyword),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("records", len(result.Records)),
		zap.Int("failures", len(result.Failures)),
		zap.Int("pages", result.PagesFetched),
		zap.Int64("duration_ms", result.DurationMS),
	)

	return result, runErr
}

// recordStart archives the run start. Store errors are logged, never fatal.
func (p *Pipeline) recordStart(ctx context.Context, params model.HarvestParams) *model.HarvestRun {
	if p.st == nil {
		return nil
	}
	run, err := p.st.CreateRun(ctx, params)
	if err != nil {
		zap.L().Warn("harvest: create run failed", zap.Error(err))
		return nil
	}
	return run
}

func (p *Pipeline) recordStatus(ctx context.Context, run *model.HarvestRun, status model.RunStatus) {
	if p.st == nil || run == nil {
		return
	}
	if err := p.st.UpdateRunStatus(ctx, run.ID, status); err != nil {
		zap.L().Warn("harvest: update run status failed",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

// recordFinish archives the result and records. It uses a background
// context so a cancelled run is still archived.
func (p *Pipeline) recordFinish(run *model.HarvestRun, result *model.HarvestResult) {
	if p.st == nil || run == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.st.CompleteRun(ctx, run.ID, result); err != nil {
		zap.L().Warn("harvest: complete run failed",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
	if len(result.Records) > 0 {
		if err := p.st.InsertRecords(ctx, run.ID, result.Records); err != nil {
			zap.L().Warn("harvest: insert records failed",
				zap.String("run_id", run.ID),
				zap.Error(err),
			)
		}
	}
}

// classifyFailure maps an extraction-path error onto the failure taxonomy.
func classifyFailure(ref model.ProfileRef, err error) model.Failure {
	f := model.Failure{
		Ref:     ref,
		Stage:   model.StageExtract,
		Kind:    failureKind(err),
		Message: err.Error(),
	}
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		f.Attempts = fe.Attempts
	}
	return f
}

func failureKind(err error) string {
	var fe *fetch.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case fetch.KindTimeout:
			return model.FailureKindTimeout
		case fetch.KindHTTPStatus:
			return model.FailureKindHTTPStatus
		default:
			return model.FailureKindNetwork
		}
	}
	var ee *extract.ExtractionError
	if errors.As(err, &ee) {
		switch ee.Kind {
		case extract.KindMissingIdentity:
			return model.FailureKindMissingIdentity
		default:
			return model.FailureKindMalformedPayload
		}
	}
	return model.FailureKindInternal
}

// entry pairs a record with the reference it was extracted from, keeping
// the discovery position available for the final sort.
type entry struct {
	ref    model.ProfileRef
	record model.Record
}

// sortByDiscoveryOrder restores the stable discovery order that the
// unordered extraction fan-out scrambled.
func sortByDiscoveryOrder(entries []entry) []model.Record {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ref.Page != entries[j].ref.Page {
			return entries[i].ref.Page < entries[j].ref.Page
		}
		return entries[i].ref.Ordinal < entries[j].ref.Ordinal
	})
	records := make([]model.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.record)
	}
	return records
}
