package store

import (
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"

	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/normalize"
)

// ErrInitialLoad is the message recorded when any part of InitialLoad fails.
const ErrInitialLoad = "failed to load initial data"

// DataStore is the aggregate batch store: batch filtering, the last-used
// filter, replay, per-round curves, lookups and batch-level analysis.
type DataStore struct {
	Status

	api model.BatchAPI

	batchData       Dataset[model.BatchSummary]
	rounds          Dataset[model.RoundsByBatch]
	totalBatches    Dataset[int]
	deviceOptions   Dataset[[]model.Option]
	operatorOptions Dataset[[]model.Option]

	initialVariance      Dataset[model.InitialVariance]
	repairEffect         Dataset[model.RepairEffect]
	frequencyRange       Dataset[model.FrequencyRangeAnalysis]
	operatorDeviceImpact Dataset[model.OperatorDeviceImpact]

	currentFilter *model.Filter
	dataLoaded    bool
}

// DataSnapshot is a copy of the DataStore state.
type DataSnapshot struct {
	Loading         bool
	Err             string
	BatchData       model.BatchSummary
	Rounds          model.RoundsByBatch
	TotalBatches    int
	DeviceOptions   []model.Option
	OperatorOptions []model.Option

	InitialVariance      model.InitialVariance
	RepairEffect         model.RepairEffect
	FrequencyRange       model.FrequencyRangeAnalysis
	OperatorDeviceImpact model.OperatorDeviceImpact

	CurrentFilter *model.Filter
	DataLoaded    bool
}

// NewDataStore returns an empty store reading from api.
func NewDataStore(api model.BatchAPI, opts ...Option) *DataStore {
	s := &DataStore{api: api}
	s.configure(opts)
	s.rounds.value = model.RoundsByBatch{}
	return s
}

// Snapshot returns a deep copy of the store state.
func (s *DataStore) Snapshot() DataSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := DataSnapshot{
		Loading:         s.loading,
		Err:             s.err,
		BatchData:       cloneSummary(s.batchData.value),
		Rounds:          s.rounds.value.Clone(),
		TotalBatches:    s.totalBatches.value,
		DeviceOptions:   slices.Clone(s.deviceOptions.value),
		OperatorOptions: slices.Clone(s.operatorOptions.value),

		InitialVariance:      s.initialVariance.value,
		RepairEffect:         s.repairEffect.value,
		FrequencyRange:       s.frequencyRange.value,
		OperatorDeviceImpact: s.operatorDeviceImpact.value,

		DataLoaded: s.dataLoaded,
	}
	snap.InitialVariance.Rounds = slices.Clone(snap.InitialVariance.Rounds)
	snap.FrequencyRange.Ranges = slices.Clone(snap.FrequencyRange.Ranges)
	snap.OperatorDeviceImpact.Cells = slices.Clone(snap.OperatorDeviceImpact.Cells)
	if s.currentFilter != nil {
		f := s.currentFilter.Clone()
		snap.CurrentFilter = &f
	}
	return snap
}

func cloneSummary(b model.BatchSummary) model.BatchSummary {
	return model.BatchSummary{
		BatchIDs:    slices.Clone(b.BatchIDs),
		Frequencies: slices.Clone(b.Frequencies),
		Stdevs:      slices.Clone(b.Stdevs),
		Timestamps:  slices.Clone(b.Timestamps),
	}
}

// BatchData returns a copy of the current batch summary.
func (s *DataStore) BatchData() model.BatchSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSummary(s.batchData.value)
}

// Rounds returns a copy of the per-round cache.
func (s *DataStore) Rounds() model.RoundsByBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rounds.value.Clone()
}

// DataLoaded reports whether a non-empty batch fetch has succeeded.
func (s *DataStore) DataLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataLoaded
}

// CurrentFilter returns the last saved filter.
func (s *DataStore) CurrentFilter() (model.Filter, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentFilter == nil {
		return model.Filter{}, false
	}
	return s.currentFilter.Clone(), true
}

// SaveCurrentFilter remembers f without fetching.
func (s *DataStore) SaveCurrentFilter(f model.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveFilterLocked(f)
}

func (s *DataStore) saveFilterLocked(f model.Filter) {
	c := f.Clone()
	s.currentFilter = &c
}

// FetchBatchData loads the batches selected by f and replaces the batch
// summary. A failure resets the summary to its empty shape. DataLoaded is
// set only after a non-empty success.
func (s *DataStore) FetchBatchData(ctx context.Context, f model.Filter) {
	s.mu.Lock()
	s.beginLocked()
	s.saveFilterLocked(f)
	ticket := s.batchData.issue()
	s.mu.Unlock()
	defer s.end()

	rows, err := s.api.Batches(ctx, f)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.batchData.stale(&s.Status, ticket) {
		return
	}
	if err != nil {
		s.failLocked("fetch batch data", err, "failed to fetch batch data")
		s.batchData.value = model.EmptyBatchSummary()
		return
	}
	if len(rows) == 0 {
		s.batchData.value = model.EmptyBatchSummary()
		return
	}
	s.batchData.value = s.opts.formatter.BatchSummary(rows)
	s.dataLoaded = true
}

// ReloadLastData replays the last saved filter unless data is already
// loaded, then loads the rounds of the batches it returned.
func (s *DataStore) ReloadLastData(ctx context.Context) {
	s.mu.Lock()
	if s.dataLoaded {
		s.mu.Unlock()
		return
	}
	var f model.Filter
	if s.currentFilter != nil {
		f = s.currentFilter.Clone()
	}
	s.mu.Unlock()

	s.FetchBatchData(ctx, f)

	ids := s.BatchData().BatchIDs
	if len(ids) > 0 {
		s.FetchBatchRounds(ctx, ids)
	}
}

// FetchBatchRounds merges the rounds of batchIDs into the cache: new keys
// are added, existing keys overwritten, others kept. An empty id list clears
// the whole cache without a request, and a failure empties it.
func (s *DataStore) FetchBatchRounds(ctx context.Context, batchIDs []string) {
	s.mu.Lock()
	s.beginLocked()
	if len(batchIDs) == 0 {
		s.rounds.issue()
		s.rounds.value = model.RoundsByBatch{}
		s.mu.Unlock()
		s.end()
		return
	}
	ticket := s.rounds.issue()
	s.mu.Unlock()
	defer s.end()

	fetched, err := s.api.BatchRounds(ctx, batchIDs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rounds.stale(&s.Status, ticket) {
		return
	}
	if err != nil {
		s.failLocked("fetch batch rounds", err, "failed to fetch batch rounds")
		s.rounds.value = model.RoundsByBatch{}
		return
	}
	merged := s.rounds.value.Clone()
	for id, rs := range fetched {
		merged[id] = slices.Clone(rs)
	}
	s.rounds.value = merged
}

// FetchTotalBatches loads the batch count.
func (s *DataStore) FetchTotalBatches(ctx context.Context) {
	fetch(ctx, &s.Status, &s.totalBatches, "fetch total batches", "failed to fetch total batches", nil, s.api.BatchCount)
}

// FetchDevices loads the device select options.
func (s *DataStore) FetchDevices(ctx context.Context) {
	fetch(ctx, &s.Status, &s.deviceOptions, "fetch devices", "failed to fetch devices", nil, s.deviceOptionsCall)
}

// FetchOperators loads the operator select options.
func (s *DataStore) FetchOperators(ctx context.Context) {
	fetch(ctx, &s.Status, &s.operatorOptions, "fetch operators", "failed to fetch operators", nil, s.operatorOptionsCall)
}

func (s *DataStore) deviceOptionsCall(ctx context.Context) ([]model.Option, error) {
	devices, err := s.api.Devices(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.DeviceOptions(devices), nil
}

func (s *DataStore) operatorOptionsCall(ctx context.Context) ([]model.Option, error) {
	operators, err := s.api.Operators(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.OperatorOptions(operators), nil
}

// InitialLoad fetches the batch count, devices and operators concurrently.
// Each part writes its own field as soon as it succeeds; if any part fails
// the whole load reports ErrInitialLoad.
func (s *DataStore) InitialLoad(ctx context.Context) {
	s.mu.Lock()
	s.beginLocked()
	s.mu.Unlock()
	defer s.end()

	var g errgroup.Group
	g.Go(func() error { return loadInto(ctx, s, &s.totalBatches, s.api.BatchCount) })
	g.Go(func() error { return loadInto(ctx, s, &s.deviceOptions, s.deviceOptionsCall) })
	g.Go(func() error { return loadInto(ctx, s, &s.operatorOptions, s.operatorOptionsCall) })
	err := g.Wait()

	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.failLocked("initial load", errors.New(ErrInitialLoad), ErrInitialLoad)
		s.opts.logger.Debug("initial load cause", zap.Error(err))
	}
}

// loadInto writes one InitialLoad part without touching the status.
func loadInto[T any](ctx context.Context, s *DataStore, d *Dataset[T], call func(context.Context) (T, error)) error {
	s.mu.Lock()
	ticket := d.issue()
	s.mu.Unlock()

	v, err := call(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !d.stale(&s.Status, ticket) {
		d.value = v
	}
	return nil
}

// FetchInitialVariance analyses the first roundCount rounds of a batch.
// A non-positive roundCount uses model.DefaultRoundCount.
func (s *DataStore) FetchInitialVariance(ctx context.Context, batchID string, roundCount int) {
	if roundCount <= 0 {
		roundCount = model.DefaultRoundCount
	}
	fetch(ctx, &s.Status, &s.initialVariance, "fetch initial variance", "failed to analyse initial variance", nil,
		func(ctx context.Context) (model.InitialVariance, error) {
			return s.api.InitialVariance(ctx, batchID, roundCount)
		})
}

// FetchRepairEffect compares a device before and after a repair method.
func (s *DataStore) FetchRepairEffect(ctx context.Context, deviceID, repairMethod string) {
	fetch(ctx, &s.Status, &s.repairEffect, "fetch repair effect", "failed to analyse repair effect", nil,
		func(ctx context.Context) (model.RepairEffect, error) {
			return s.api.RepairEffect(ctx, deviceID, repairMethod)
		})
}

// FetchFrequencyRangeAnalysis groups a device's variance by frequency range.
func (s *DataStore) FetchFrequencyRangeAnalysis(ctx context.Context, deviceID string, ranges []model.FrequencyRange) {
	fetch(ctx, &s.Status, &s.frequencyRange, "fetch frequency range analysis", "failed to analyse variance by frequency range", nil,
		func(ctx context.Context) (model.FrequencyRangeAnalysis, error) {
			return s.api.FrequencyRangeAnalysis(ctx, deviceID, ranges)
		})
}

// FetchOperatorDeviceImpact loads the operator by device variance matrix.
func (s *DataStore) FetchOperatorDeviceImpact(ctx context.Context, startDate, endDate string) {
	fetch(ctx, &s.Status, &s.operatorDeviceImpact, "fetch operator device impact", "failed to analyse operator and device impact", nil,
		func(ctx context.Context) (model.OperatorDeviceImpact, error) {
			return s.api.OperatorDeviceImpact(ctx, startDate, endDate)
		})
}
