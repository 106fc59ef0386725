package store

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/olam/internal/model"
)

const fetchDataFailed = "failed to fetch data"

// DashboardStore holds the overview page data.
type DashboardStore struct {
	Status

	api model.DashboardAPI

	overview    Dataset[model.DashboardOverview]
	trend       Dataset[model.VarianceTrend]
	performance Dataset[model.DevicePerformance]
}

// DashboardSnapshot is a copy of the DashboardStore state.
type DashboardSnapshot struct {
	Loading           bool
	Err               string
	Overview          model.DashboardOverview
	VarianceTrend     model.VarianceTrend
	DevicePerformance model.DevicePerformance
}

func NewDashboardStore(api model.DashboardAPI, opts ...Option) *DashboardStore {
	s := &DashboardStore{api: api}
	s.configure(opts)
	return s
}

// FetchDashboardData loads the overview, trend and device performance
// concurrently. The three fields are written only when all succeed.
func (s *DashboardStore) FetchDashboardData(ctx context.Context) {
	s.mu.Lock()
	s.beginLocked()
	ticket := s.overview.issue()
	s.mu.Unlock()
	defer s.end()

	var (
		g           errgroup.Group
		overview    model.DashboardOverview
		trend       model.VarianceTrend
		performance model.DevicePerformance
	)
	g.Go(func() (err error) {
		overview, err = s.api.Dashboard(ctx)
		return err
	})
	g.Go(func() (err error) {
		trend, err = s.api.VarianceTrend(ctx)
		return err
	})
	g.Go(func() (err error) {
		performance, err = s.api.DevicePerformance(ctx)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overview.stale(&s.Status, ticket) {
		return
	}
	if err != nil {
		s.failLocked("fetch dashboard data", err, fetchDataFailed)
		return
	}
	s.overview.value = overview
	s.trend.value = trend
	s.performance.value = performance
}

func (s *DashboardStore) Snapshot() DashboardSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DashboardSnapshot{
		Loading:           s.loading,
		Err:               s.err,
		Overview:          s.overview.value,
		VarianceTrend:     slices.Clone(s.trend.value),
		DevicePerformance: slices.Clone(s.performance.value),
	}
}

// VarianceStore holds the variance analysis page data.
type VarianceStore struct {
	Status

	api  model.ViewAPI
	data Dataset[model.VarianceAnalysis]
}

func NewVarianceStore(api model.ViewAPI, opts ...Option) *VarianceStore {
	s := &VarianceStore{api: api}
	s.configure(opts)
	return s
}

func (s *VarianceStore) FetchVarianceData(ctx context.Context, q model.VarianceQuery) {
	fetch(ctx, &s.Status, &s.data, "fetch variance data", fetchDataFailed, nil,
		func(ctx context.Context) (model.VarianceAnalysis, error) { return s.api.Variance(ctx, q) })
}

// Data returns a copy of the last variance analysis.
func (s *VarianceStore) Data() model.VarianceAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.data.value
	v.Records = slices.Clone(v.Records)
	return v
}

// GridStore holds grid records and the grid filter options.
type GridStore struct {
	Status

	api     model.ViewAPI
	page    Dataset[model.GridPage]
	options Dataset[model.GridOptions]
}

func NewGridStore(api model.ViewAPI, opts ...Option) *GridStore {
	s := &GridStore{api: api}
	s.configure(opts)
	return s
}

func (s *GridStore) FetchGridData(ctx context.Context, q model.GridQuery) {
	fetch(ctx, &s.Status, &s.page, "fetch grid data", fetchDataFailed, nil,
		func(ctx context.Context) (model.GridPage, error) { return s.api.Grid(ctx, q) })
}

func (s *GridStore) FetchGridOptions(ctx context.Context) {
	fetch(ctx, &s.Status, &s.options, "fetch grid options", fetchDataFailed, nil, s.api.GridOptions)
}

// Page returns a copy of the last grid page.
func (s *GridStore) Page() model.GridPage {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.page.value
	p.Records = slices.Clone(p.Records)
	return p
}

// Options returns a copy of the grid filter options.
func (s *GridStore) Options() model.GridOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.GridOptions{
		GridMods: slices.Clone(s.options.value.GridMods),
		EndWays:  slices.Clone(s.options.value.EndWays),
	}
}

// TimelineStore holds one day of device timelines.
type TimelineStore struct {
	Status

	api model.ViewAPI
	day Dataset[model.TimelineDay]
}

func NewTimelineStore(api model.ViewAPI, opts ...Option) *TimelineStore {
	s := &TimelineStore{api: api}
	s.configure(opts)
	return s
}

func (s *TimelineStore) FetchDay(ctx context.Context, q model.TimelineQuery) {
	fetch(ctx, &s.Status, &s.day, "fetch timeline day", fetchDataFailed, nil,
		func(ctx context.Context) (model.TimelineDay, error) { return s.api.TimelineDay(ctx, q) })
}

// Day returns a copy of the last loaded day.
func (s *TimelineStore) Day() model.TimelineDay {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.day.value
	d.Devices = make([]model.DeviceTimeline, len(s.day.value.Devices))
	for i, dev := range s.day.value.Devices {
		dev.Segments = slices.Clone(dev.Segments)
		d.Devices[i] = dev
	}
	return d
}

// DeviceStore holds the device analysis page data.
type DeviceStore struct {
	Status

	api  model.ViewAPI
	data Dataset[model.DeviceAnalysis]
}

func NewDeviceStore(api model.ViewAPI, opts ...Option) *DeviceStore {
	s := &DeviceStore{api: api}
	s.configure(opts)
	return s
}

func (s *DeviceStore) FetchDeviceData(ctx context.Context, q model.DeviceQuery) {
	fetch(ctx, &s.Status, &s.data, "fetch device data", fetchDataFailed, nil,
		func(ctx context.Context) (model.DeviceAnalysis, error) { return s.api.Device(ctx, q) })
}

func (s *DeviceStore) Data() model.DeviceAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.DeviceAnalysis{
		Devices: slices.Clone(s.data.value.Devices),
		Trend:   slices.Clone(s.data.value.Trend),
	}
}

// OperatorStore holds the operator analysis page data.
type OperatorStore struct {
	Status

	api  model.ViewAPI
	data Dataset[model.OperatorAnalysis]
}

func NewOperatorStore(api model.ViewAPI, opts ...Option) *OperatorStore {
	s := &OperatorStore{api: api}
	s.configure(opts)
	return s
}

func (s *OperatorStore) FetchOperatorData(ctx context.Context, q model.OperatorQuery) {
	fetch(ctx, &s.Status, &s.data, "fetch operator data", fetchDataFailed, nil,
		func(ctx context.Context) (model.OperatorAnalysis, error) { return s.api.Operator(ctx, q) })
}

func (s *OperatorStore) Data() model.OperatorAnalysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.OperatorAnalysis{
		Operators: slices.Clone(s.data.value.Operators),
		Trend:     slices.Clone(s.data.value.Trend),
	}
}
