package store

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/tinytelemetry/olam/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// fakeAPI is an in-memory model.AnalyticsAPI. Unset hooks return zero values.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	batchesFilters []model.Filter
	roundsIDs      [][]string
	chatRequests   []model.ChatRequest
	roundCounts    []int

	batches   func(ctx context.Context, f model.Filter) ([]model.BatchRow, error)
	rounds    func(ctx context.Context, ids []string) (model.RoundsByBatch, error)
	count     func(ctx context.Context) (int, error)
	devices   func(ctx context.Context) ([]model.Device, error)
	operators func(ctx context.Context) ([]model.Operator, error)
	chat      func(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error)

	dashboardErr   error
	trendErr       error
	performanceErr error
	overview       model.DashboardOverview
	trend          model.VarianceTrend
	performance    model.DevicePerformance
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) Dashboard(ctx context.Context) (model.DashboardOverview, error) {
	f.record("dashboard")
	return f.overview, f.dashboardErr
}

func (f *fakeAPI) VarianceTrend(ctx context.Context) (model.VarianceTrend, error) {
	f.record("trend")
	return f.trend, f.trendErr
}

func (f *fakeAPI) DevicePerformance(ctx context.Context) (model.DevicePerformance, error) {
	f.record("performance")
	return f.performance, f.performanceErr
}

func (f *fakeAPI) Variance(ctx context.Context, q model.VarianceQuery) (model.VarianceAnalysis, error) {
	f.record("variance")
	return model.VarianceAnalysis{Stats: model.VarianceStats{Count: 1}}, nil
}

func (f *fakeAPI) Grid(ctx context.Context, q model.GridQuery) (model.GridPage, error) {
	f.record("grid")
	return model.GridPage{Records: []model.GridRecord{{GridID: 7, DeviceID: q.DeviceID}}, Total: 1}, nil
}

func (f *fakeAPI) GridOptions(ctx context.Context) (model.GridOptions, error) {
	f.record("grid options")
	return model.GridOptions{GridMods: []int{1}, EndWays: []int{2}}, nil
}

func (f *fakeAPI) TimelineDay(ctx context.Context, q model.TimelineQuery) (model.TimelineDay, error) {
	f.record("timeline")
	return model.TimelineDay{Date: q.Date}, nil
}

func (f *fakeAPI) Device(ctx context.Context, q model.DeviceQuery) (model.DeviceAnalysis, error) {
	f.record("device")
	return model.DeviceAnalysis{Devices: []model.DeviceScore{{DeviceID: q.DeviceID}}}, nil
}

func (f *fakeAPI) Operator(ctx context.Context, q model.OperatorQuery) (model.OperatorAnalysis, error) {
	f.record("operator")
	return model.OperatorAnalysis{Operators: []model.OperatorScore{{OperatorID: q.OperatorID}}}, nil
}

func (f *fakeAPI) Chat(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	f.record("chat")
	f.mu.Lock()
	f.chatRequests = append(f.chatRequests, req)
	f.mu.Unlock()
	if f.chat != nil {
		return f.chat(ctx, req)
	}
	return model.ChatResponse{}, nil
}

func (f *fakeAPI) BatchCount(ctx context.Context) (int, error) {
	f.record("count")
	if f.count != nil {
		return f.count(ctx)
	}
	return 0, nil
}

func (f *fakeAPI) Devices(ctx context.Context) ([]model.Device, error) {
	f.record("devices")
	if f.devices != nil {
		return f.devices(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) Operators(ctx context.Context) ([]model.Operator, error) {
	f.record("operators")
	if f.operators != nil {
		return f.operators(ctx)
	}
	return nil, nil
}

func (f *fakeAPI) Batches(ctx context.Context, filter model.Filter) ([]model.BatchRow, error) {
	f.record("batches")
	f.mu.Lock()
	f.batchesFilters = append(f.batchesFilters, filter.Clone())
	f.mu.Unlock()
	if f.batches != nil {
		return f.batches(ctx, filter)
	}
	return nil, nil
}

func (f *fakeAPI) BatchRounds(ctx context.Context, ids []string) (model.RoundsByBatch, error) {
	f.record("rounds")
	f.mu.Lock()
	f.roundsIDs = append(f.roundsIDs, append([]string(nil), ids...))
	f.mu.Unlock()
	if f.rounds != nil {
		return f.rounds(ctx, ids)
	}
	return model.RoundsByBatch{}, nil
}

func (f *fakeAPI) InitialVariance(ctx context.Context, batchID string, roundCount int) (model.InitialVariance, error) {
	f.record("initial variance")
	f.mu.Lock()
	f.roundCounts = append(f.roundCounts, roundCount)
	f.mu.Unlock()
	return model.InitialVariance{BatchID: batchID, RoundCount: roundCount}, nil
}

func (f *fakeAPI) RepairEffect(ctx context.Context, deviceID, repairMethod string) (model.RepairEffect, error) {
	f.record("repair effect")
	return model.RepairEffect{DeviceID: deviceID, RepairMethod: repairMethod}, nil
}

func (f *fakeAPI) FrequencyRangeAnalysis(ctx context.Context, deviceID string, ranges []model.FrequencyRange) (model.FrequencyRangeAnalysis, error) {
	f.record("frequency range")
	out := model.FrequencyRangeAnalysis{DeviceID: deviceID}
	for _, r := range ranges {
		out.Ranges = append(out.Ranges, model.RangeStat{FrequencyRange: r})
	}
	return out, nil
}

func (f *fakeAPI) OperatorDeviceImpact(ctx context.Context, startDate, endDate string) (model.OperatorDeviceImpact, error) {
	f.record("impact")
	return model.OperatorDeviceImpact{Cells: []model.ImpactCell{{OperatorID: startDate, DeviceID: endDate}}}, nil
}

var _ model.AnalyticsAPI = (*fakeAPI)(nil)

// row builds a batch row with final_f, stdev and end_time present.
func row(id string, freq, stdev float64, end string) model.BatchRow {
	return model.BatchRow{
		BatchID: id,
		FinalF:  model.Some(freq),
		Stdev:   model.Some(stdev),
		EndTime: model.Some(end),
	}
}
