package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tinytelemetry/olam/internal/apiclient"
	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/normalize"
)

var utc = WithFormatter(normalize.Formatter{Location: time.UTC})

func statusErr(code int) error {
	return &apiclient.Error{
		Method:     "GET",
		Path:       "/batches",
		StatusCode: code,
		Message:    fmt.Sprintf("Request failed with status code %d", code),
	}
}

func TestFetchBatchDataNormalizes(t *testing.T) {
	api := newFakeAPI()
	api.batches = func(context.Context, model.Filter) ([]model.BatchRow, error) {
		return []model.BatchRow{row("B1", 100, 0.2, "2024-01-01T00:00:00")}, nil
	}
	s := NewDataStore(api, utc)

	s.FetchBatchData(context.Background(), model.Filter{BatchIDs: []string{"B1"}})

	want := model.BatchSummary{
		BatchIDs:    []string{"B1"},
		Frequencies: []float64{100},
		Stdevs:      []float64{0.2},
		Timestamps:  []string{"2024/01/01 00:00"},
	}
	if diff := cmp.Diff(want, s.BatchData()); diff != "" {
		t.Fatalf("BatchData mismatch (-want +got):\n%s", diff)
	}
	if !s.DataLoaded() {
		t.Fatal("DataLoaded = false after a non-empty fetch")
	}
	if s.Loading() || s.Err() != "" {
		t.Fatalf("Loading=%v Err=%q", s.Loading(), s.Err())
	}
}

func TestFetchBatchDataFrequencyFieldFromFirstRow(t *testing.T) {
	api := newFakeAPI()
	api.batches = func(context.Context, model.Filter) ([]model.BatchRow, error) {
		return []model.BatchRow{
			{BatchID: "B1", StartF: model.Some(10.0)},
			{BatchID: "B2", StartF: model.Some(20.0), FinalF: model.Some(99.0)},
		}, nil
	}
	s := NewDataStore(api, utc)
	s.FetchBatchData(context.Background(), model.Filter{})

	if diff := cmp.Diff([]float64{10, 20}, s.BatchData().Frequencies); diff != "" {
		t.Fatalf("Frequencies mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchBatchDataEmptyKeepsDataLoaded(t *testing.T) {
	api := newFakeAPI()
	rows := []model.BatchRow{row("B1", 100, 0.2, "2024-01-01T00:00:00")}
	api.batches = func(context.Context, model.Filter) ([]model.BatchRow, error) { return rows, nil }
	s := NewDataStore(api, utc)
	ctx := context.Background()

	s.FetchBatchData(ctx, model.Filter{})
	rows = nil
	s.FetchBatchData(ctx, model.Filter{LotNumbers: []string{"none"}})

	if diff := cmp.Diff(model.EmptyBatchSummary(), s.BatchData()); diff != "" {
		t.Fatalf("BatchData mismatch (-want +got):\n%s", diff)
	}
	if !s.DataLoaded() {
		t.Fatal("DataLoaded was reset by an empty result")
	}

	fresh := NewDataStore(api, utc)
	fresh.FetchBatchData(ctx, model.Filter{})
	if fresh.DataLoaded() {
		t.Fatal("DataLoaded set by an empty result")
	}
}

func TestFetchBatchDataFailureResetsToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr string
	}{
		{"status error", statusErr(500), "Request failed with status code 500"},
		{"empty message", errors.New(""), "failed to fetch batch data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			fail := false
			api.batches = func(context.Context, model.Filter) ([]model.BatchRow, error) {
				if fail {
					return nil, tt.err
				}
				return []model.BatchRow{row("B1", 1, 1, "2024-01-01")}, nil
			}
			s := NewDataStore(api, utc)
			s.FetchBatchData(context.Background(), model.Filter{})
			fail = true
			s.FetchBatchData(context.Background(), model.Filter{})

			got := s.Snapshot()
			if diff := cmp.Diff(model.EmptyBatchSummary(), got.BatchData); diff != "" {
				t.Fatalf("BatchData mismatch (-want +got):\n%s", diff)
			}
			if got.Loading {
				t.Fatal("Loading stuck true")
			}
			if got.Err != tt.wantErr {
				t.Fatalf("Err = %q, want %q", got.Err, tt.wantErr)
			}
		})
	}
}

func TestFetchClearsErrorAtStart(t *testing.T) {
	api := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	api.batches = func(context.Context, model.Filter) ([]model.BatchRow, error) {
		calls++
		if calls == 1 {
			return nil, statusErr(500)
		}
		close(started)
		<-release
		return nil, nil
	}
	s := NewDataStore(api)
	ctx := context.Background()

	s.FetchBatchData(ctx, model.Filter{})
	if s.Err() == "" {
		t.Fatal("expected an error after the failed fetch")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.FetchBatchData(ctx, model.Filter{})
	}()
	<-started
	if !s.Loading() || s.Err() != "" {
		t.Fatalf("in flight: Loading=%v Err=%q", s.Loading(), s.Err())
	}
	close(release)
	<-done
	if s.Loading() {
		t.Fatal("Loading stuck true")
	}
}

func TestSaveCurrentFilterDoesNotAlias(t *testing.T) {
	s := NewDataStore(newFakeAPI())
	ids := []string{"D01"}
	s.SaveCurrentFilter(model.Filter{DeviceIDs: ids, TargetFMin: model.Float(0)})
	ids[0] = "changed"

	f, ok := s.CurrentFilter()
	if !ok || f.DeviceIDs[0] != "D01" || *f.TargetFMin != 0 {
		t.Fatalf("CurrentFilter = %+v, %v", f, ok)
	}
}

func TestReloadLastDataReplaysFilter(t *testing.T) {
	api := newFakeAPI()
	api.batches = func(context.Context, model.Filter) ([]model.BatchRow, error) {
		return []model.BatchRow{row("A", 1, 0.1, "2024-01-01"), row("B", 2, 0.2, "2024-01-02")}, nil
	}
	api.rounds = func(_ context.Context, ids []string) (model.RoundsByBatch, error) {
		out := model.RoundsByBatch{}
		for _, id := range ids {
			out[id] = []model.Round{{Count: 1}}
		}
		return out, nil
	}
	s := NewDataStore(api)
	saved := model.Filter{
		DeviceIDs:  []string{"D01"},
		StartDate:  "2024-01-01",
		TargetFMin: model.Float(0),
		Limit:      50,
	}
	s.SaveCurrentFilter(saved)

	s.ReloadLastData(context.Background())

	if diff := cmp.Diff([]model.Filter{saved}, api.batchesFilters); diff != "" {
		t.Fatalf("replayed filter mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"A", "B"}}, api.roundsIDs); diff != "" {
		t.Fatalf("rounds ids mismatch (-want +got):\n%s", diff)
	}
	if len(s.Rounds()) != 2 {
		t.Fatalf("Rounds = %+v", s.Rounds())
	}
}

func TestReloadLastDataIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.batches = func(context.Context, model.Filter) ([]model.BatchRow, error) {
		return []model.BatchRow{row("A", 1, 0.1, "2024-01-01")}, nil
	}
	s := NewDataStore(api)
	ctx := context.Background()

	s.ReloadLastData(ctx)
	before := api.totalCalls()
	if before != 2 {
		t.Fatalf("first replay calls = %d, want 2", before)
	}

	s.ReloadLastData(ctx)
	s.ReloadLastData(ctx)
	if api.totalCalls() != before {
		t.Fatalf("replay with data loaded issued %d calls", api.totalCalls()-before)
	}
}

func TestReloadLastDataFreshStore(t *testing.T) {
	api := newFakeAPI()
	s := NewDataStore(api)

	s.ReloadLastData(context.Background())

	if diff := cmp.Diff([]model.Filter{{}}, api.batchesFilters); diff != "" {
		t.Fatalf("filters mismatch (-want +got):\n%s", diff)
	}
	if api.callCount("rounds") != 0 {
		t.Fatal("rounds fetched for an empty result")
	}
	if s.DataLoaded() {
		t.Fatal("DataLoaded after an empty replay")
	}
}

func TestFetchBatchRoundsMerges(t *testing.T) {
	api := newFakeAPI()
	old := []model.Round{{Count: 1, Resonant: 1}}
	fresh := []model.Round{{Count: 2, Resonant: 2}}
	responses := []model.RoundsByBatch{
		{"A": old, "C": old},
		{"A": fresh, "B": fresh},
	}
	api.rounds = func(context.Context, []string) (model.RoundsByBatch, error) {
		r := responses[0]
		responses = responses[1:]
		return r, nil
	}
	s := NewDataStore(api)
	ctx := context.Background()

	s.FetchBatchRounds(ctx, []string{"A", "C"})
	s.FetchBatchRounds(ctx, []string{"A", "B"})

	want := model.RoundsByBatch{"A": fresh, "B": fresh, "C": old}
	if diff := cmp.Diff(want, s.Rounds()); diff != "" {
		t.Fatalf("Rounds mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchBatchRoundsEmptyClears(t *testing.T) {
	api := newFakeAPI()
	api.rounds = func(context.Context, []string) (model.RoundsByBatch, error) {
		return model.RoundsByBatch{"A": {{Count: 1}}}, nil
	}
	s := NewDataStore(api)
	ctx := context.Background()
	s.FetchBatchRounds(ctx, []string{"A"})

	s.FetchBatchRounds(ctx, nil)

	if len(s.Rounds()) != 0 {
		t.Fatalf("Rounds = %+v, want empty", s.Rounds())
	}
	if api.callCount("rounds") != 1 {
		t.Fatalf("rounds calls = %d, want 1", api.callCount("rounds"))
	}
	if s.Loading() {
		t.Fatal("Loading stuck true")
	}
}

func TestFetchBatchRoundsFailureEmpties(t *testing.T) {
	api := newFakeAPI()
	fail := false
	api.rounds = func(context.Context, []string) (model.RoundsByBatch, error) {
		if fail {
			return nil, statusErr(500)
		}
		return model.RoundsByBatch{"A": {{Count: 1}}}, nil
	}
	s := NewDataStore(api)
	ctx := context.Background()
	s.FetchBatchRounds(ctx, []string{"A"})
	fail = true
	s.FetchBatchRounds(ctx, []string{"B"})

	if len(s.Rounds()) != 0 || s.Err() == "" {
		t.Fatalf("Rounds = %+v, Err = %q", s.Rounds(), s.Err())
	}
}

func TestLookups(t *testing.T) {
	api := newFakeAPI()
	api.count = func(context.Context) (int, error) { return 42, nil }
	api.devices = func(context.Context) ([]model.Device, error) {
		return []model.Device{{DeviceID: "D01", DeviceName: "Lapper 01"}}, nil
	}
	api.operators = func(context.Context) ([]model.Operator, error) {
		return []model.Operator{{OperatorID: "OP01", OperatorName: "Wang Li"}}, nil
	}
	s := NewDataStore(api)
	ctx := context.Background()

	s.FetchTotalBatches(ctx)
	s.FetchDevices(ctx)
	s.FetchOperators(ctx)

	snap := s.Snapshot()
	if snap.TotalBatches != 42 {
		t.Fatalf("TotalBatches = %d", snap.TotalBatches)
	}
	if diff := cmp.Diff([]model.Option{{Value: "D01", Label: "Lapper 01"}}, snap.DeviceOptions); diff != "" {
		t.Fatalf("DeviceOptions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Option{{Value: "OP01", Label: "Wang Li"}}, snap.OperatorOptions); diff != "" {
		t.Fatalf("OperatorOptions mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupFailureKeepsOldOptions(t *testing.T) {
	api := newFakeAPI()
	fail := false
	api.devices = func(context.Context) ([]model.Device, error) {
		if fail {
			return nil, statusErr(503)
		}
		return []model.Device{{DeviceID: "D01", DeviceName: "Lapper 01"}}, nil
	}
	s := NewDataStore(api)
	s.FetchDevices(context.Background())
	fail = true
	s.FetchDevices(context.Background())

	snap := s.Snapshot()
	if len(snap.DeviceOptions) != 1 || snap.Err == "" {
		t.Fatalf("DeviceOptions = %+v, Err = %q", snap.DeviceOptions, snap.Err)
	}
}

func TestInitialLoadPartialFailure(t *testing.T) {
	api := newFakeAPI()
	api.count = func(context.Context) (int, error) { return 7, nil }
	api.devices = func(context.Context) ([]model.Device, error) { return nil, statusErr(500) }
	api.operators = func(context.Context) ([]model.Operator, error) {
		return []model.Operator{{OperatorID: "OP01", OperatorName: "Wang Li"}}, nil
	}
	s := NewDataStore(api)

	s.InitialLoad(context.Background())

	snap := s.Snapshot()
	if snap.Err != ErrInitialLoad {
		t.Fatalf("Err = %q, want %q", snap.Err, ErrInitialLoad)
	}
	if snap.TotalBatches != 7 || len(snap.OperatorOptions) != 1 {
		t.Fatalf("successful parts not written: %+v", snap)
	}
	if snap.DeviceOptions != nil {
		t.Fatalf("DeviceOptions = %+v, want none", snap.DeviceOptions)
	}
	if snap.Loading {
		t.Fatal("Loading stuck true")
	}
}

func TestInitialLoadSuccess(t *testing.T) {
	api := newFakeAPI()
	api.count = func(context.Context) (int, error) { return 3, nil }
	s := NewDataStore(api)

	s.InitialLoad(context.Background())

	if s.Err() != "" || s.Snapshot().TotalBatches != 3 {
		t.Fatalf("Err = %q, snapshot = %+v", s.Err(), s.Snapshot())
	}
	for _, name := range []string{"count", "devices", "operators"} {
		if api.callCount(name) != 1 {
			t.Fatalf("%s calls = %d", name, api.callCount(name))
		}
	}
}

func TestAnalysisActions(t *testing.T) {
	api := newFakeAPI()
	s := NewDataStore(api)
	ctx := context.Background()

	s.FetchInitialVariance(ctx, "B1", 0)
	s.FetchInitialVariance(ctx, "B1", 5)
	s.FetchRepairEffect(ctx, "D01", "resurface")
	s.FetchFrequencyRangeAnalysis(ctx, "D01", []model.FrequencyRange{{Min: 1, Max: 2}})
	s.FetchOperatorDeviceImpact(ctx, "2024-01-01", "2024-01-31")

	if diff := cmp.Diff([]int{model.DefaultRoundCount, 5}, api.roundCounts); diff != "" {
		t.Fatalf("round counts mismatch (-want +got):\n%s", diff)
	}
	snap := s.Snapshot()
	if snap.InitialVariance.RoundCount != 5 || snap.RepairEffect.RepairMethod != "resurface" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.FrequencyRange.Ranges) != 1 || snap.OperatorDeviceImpact.Cells[0].DeviceID != "2024-01-31" {
		t.Fatalf("snapshot = %+v", snap)
	}
}

// racedFetch starts two FetchBatchData calls and lets the second finish
// first. It returns the batch ids left in the store.
func racedFetch(t *testing.T, opts ...Option) []string {
	t.Helper()
	api := newFakeAPI()
	gates := map[string]chan struct{}{
		"first":  make(chan struct{}),
		"second": make(chan struct{}),
	}
	var started sync.WaitGroup
	started.Add(2)
	api.batches = func(_ context.Context, f model.Filter) ([]model.BatchRow, error) {
		id := f.BatchIDs[0]
		started.Done()
		<-gates[id]
		return []model.BatchRow{row(id, 1, 1, "2024-01-01")}, nil
	}
	s := NewDataStore(api, opts...)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.FetchBatchData(ctx, model.Filter{BatchIDs: []string{"first"}})
	}()
	// Wait until the first request is issued so its ticket is older.
	for api.callCount("batches") < 1 {
		time.Sleep(time.Millisecond)
	}
	go func() {
		defer wg.Done()
		s.FetchBatchData(ctx, model.Filter{BatchIDs: []string{"second"}})
	}()
	started.Wait()

	close(gates["second"])
	for s.BatchData().Len() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(gates["first"])
	wg.Wait()

	if s.Loading() {
		t.Fatal("Loading stuck true")
	}
	return s.BatchData().BatchIDs
}

func TestConcurrentFetchLastWriteWins(t *testing.T) {
	if got := racedFetch(t); !cmp.Equal(got, []string{"first"}) {
		t.Fatalf("BatchIDs = %v, want the last response to arrive", got)
	}
}

func TestConcurrentFetchStaleDiscard(t *testing.T) {
	if got := racedFetch(t, WithStaleDiscard()); !cmp.Equal(got, []string{"second"}) {
		t.Fatalf("BatchIDs = %v, want the newest request", got)
	}
}
