package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folio-scout/harvest-cli/internal/model"
	"github.com/folio-scout/harvest-cli/internal/store"
)

// stubStore implements store.Store over an in-memory run slice.
type stubStore struct {
	runs    []model.HarvestRun
	listErr error
}

func (m *stubStore) ListRuns(_ context.Context, filter store.RunFilter) ([]model.HarvestRun, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var filtered []model.HarvestRun
	for _, r := range m.runs {
		if !filter.CreatedAfter.IsZero() && r.CreatedAt.Before(filter.CreatedAfter) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

// Unused store methods — satisfy the interface.
func (m *stubStore) CreateRun(context.Context, model.HarvestParams) (*model.HarvestRun, error) {
	return nil, nil
}
func (m *stubStore) UpdateRunStatus(context.Context, string, model.RunStatus) error { return nil }
func (m *stubStore) CompleteRun(context.Context, string, *model.HarvestResult) error {
	return nil
}
func (m *stubStore) GetRun(context.Context, string) (*model.HarvestRun, error) { return nil, nil }
func (m *stubStore) InsertRecords(context.Context, string, []model.Record) error {
	return nil
}
func (m *stubStore) ListRecords(context.Context, string) ([]model.Record, error) { return nil, nil }
func (m *stubStore) Migrate(context.Context) error                               { return nil }
func (m *stubStore) Close() error                                                { return nil }

func finishedRun(status model.RunStatus, records int, failures []model.Failure, durationMS int64, age time.Duration) model.HarvestRun {
	recs := make([]model.Record, records)
	return model.HarvestRun{
		ID:     "run",
		Status: status,
		Result: &model.HarvestResult{
			Records:    recs,
			Failures:   failures,
			DurationMS: durationMS,
		},
		CreatedAt: time.Now().UTC().Add(-age),
	}
}

func TestCollect_Empty(t *testing.T) {
	c := NewCollector(&stubStore{})

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.RunsTotal)
	assert.Zero(t, snap.FailRate)
	assert.Nil(t, snap.FailuresByKind)
	assert.Equal(t, 24, snap.LookbackHours)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollect_Aggregates(t *testing.T) {
	st := &stubStore{runs: []model.HarvestRun{
		finishedRun(model.RunStatusComplete, 10, nil, 2000, time.Hour),
		finishedRun(model.RunStatusPartial, 4, []model.Failure{
			{Kind: model.FailureKindTimeout},
			{Kind: model.FailureKindHTTPStatus},
			{Kind: model.FailureKindTimeout},
		}, 4000, time.Hour),
		finishedRun(model.RunStatusFailed, 0, []model.Failure{
			{Kind: model.FailureKindNetwork},
		}, 0, time.Hour),
		{ID: "queued", Status: model.RunStatusQueued, CreatedAt: time.Now().UTC()},
	}}
	c := NewCollector(st)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 4, snap.RunsTotal)
	assert.Equal(t, 1, snap.RunsComplete)
	assert.Equal(t, 1, snap.RunsPartial)
	assert.Equal(t, 1, snap.RunsFailed)
	assert.InDelta(t, 1.0/3.0, snap.FailRate, 0.001)
	assert.Equal(t, 14, snap.RecordsHarvested)
	assert.Equal(t, map[string]int{
		model.FailureKindTimeout:    2,
		model.FailureKindHTTPStatus: 1,
		model.FailureKindNetwork:    1,
	}, snap.FailuresByKind)
	assert.InDelta(t, 3.0, snap.AvgRunSeconds, 0.001)
}

func TestCollect_LookbackExcludesOldRuns(t *testing.T) {
	st := &stubStore{runs: []model.HarvestRun{
		finishedRun(model.RunStatusComplete, 5, nil, 1000, time.Hour),
		finishedRun(model.RunStatusFailed, 0, nil, 0, 48*time.Hour),
	}}
	c := NewCollector(st)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.RunsTotal)
	assert.Equal(t, 0, snap.RunsFailed)
}

func TestCollect_StoreError(t *testing.T) {
	c := NewCollector(&stubStore{listErr: errors.New("archive down")})

	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list runs")
}
