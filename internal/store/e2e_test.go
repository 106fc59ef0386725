package store_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/tinytelemetry/olam/internal/apiclient"
	"github.com/tinytelemetry/olam/internal/kvstore"
	"github.com/tinytelemetry/olam/internal/mockapi"
	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/store"
)

func newStores(t *testing.T) (*store.Stores, *mockapi.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock := mockapi.NewServer("", mockapi.SampleFixtures())
	ts := httptest.NewServer(mock.Handler())
	t.Cleanup(ts.Close)

	client, err := apiclient.New(ts.URL+"/api", apiclient.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("apiclient.New: %v", err)
	}
	storage, err := kvstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store.New(client, storage), mock
}

func TestReplayOverHTTP(t *testing.T) {
	stores, mock := newStores(t)
	ctx := context.Background()

	stores.Data.SaveCurrentFilter(model.Filter{
		LotNumbers: []string{"L01"},
		DeviceIDs:  []string{"ignored"},
		Limit:      10,
	})
	stores.Data.ReloadLastData(ctx)

	reqs := mock.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %+v", reqs)
	}
	if reqs[0].Path != "/batches" || reqs[0].Query.Has("deviceIds") {
		t.Fatalf("batches request = %+v", reqs[0])
	}
	if diff := cmp.Diff([]string{"L01"}, reqs[0].Query["lotNumbers"]); diff != "" {
		t.Fatalf("lotNumbers mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"B240101-01", "B240101-02"}, reqs[1].Query["batchIds"]); diff != "" {
		t.Fatalf("rounds batchIds mismatch (-want +got):\n%s", diff)
	}

	snap := stores.Data.Snapshot()
	if !snap.DataLoaded || snap.BatchData.Len() != 2 || len(snap.Rounds) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}

	stores.Data.ReloadLastData(ctx)
	if n := len(mock.Requests()); n != 2 {
		t.Fatalf("second replay issued %d requests", n-2)
	}
}

func TestFailedFetchOverHTTP(t *testing.T) {
	stores, mock := newStores(t)
	mock.FailPath("/batches", http.StatusInternalServerError)

	stores.Data.FetchBatchData(context.Background(), model.Filter{})

	snap := stores.Data.Snapshot()
	if snap.Err != "Request failed with status code 500" || snap.Loading {
		t.Fatalf("Err = %q, Loading = %v", snap.Err, snap.Loading)
	}
	if diff := cmp.Diff(model.EmptyBatchSummary(), snap.BatchData); diff != "" {
		t.Fatalf("BatchData mismatch (-want +got):\n%s", diff)
	}
}

func TestInitialLoadOverHTTP(t *testing.T) {
	stores, mock := newStores(t)
	mock.FailPath("/devices", http.StatusInternalServerError)

	stores.Data.InitialLoad(context.Background())

	snap := stores.Data.Snapshot()
	if snap.Err != store.ErrInitialLoad {
		t.Fatalf("Err = %q", snap.Err)
	}
	if snap.TotalBatches != 4 || len(snap.OperatorOptions) != 3 || len(snap.DeviceOptions) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestDashboardOverHTTP(t *testing.T) {
	stores, _ := newStores(t)
	stores.Dashboard.FetchDashboardData(context.Background())

	snap := stores.Dashboard.Snapshot()
	if snap.Err != "" || snap.Overview.TotalBatches != 4 || len(snap.DevicePerformance) != 3 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestChatOverHTTP(t *testing.T) {
	stores, mock := newStores(t)
	settings := stores.AI.Settings()
	settings.APIKey = "k"
	stores.AI.SetSettings(settings)
	if err := stores.AI.SaveSettings(); err != nil {
		t.Fatal(err)
	}

	if !stores.AI.Send(context.Background(), "lowest stdev?") {
		t.Fatal("Send returned false")
	}
	msgs := stores.AI.Messages()
	if len(msgs) != 2 || msgs[1].Content != mockapi.SampleFixtures().ChatReply {
		t.Fatalf("messages = %+v", msgs)
	}
	if mock.Count("/ai/chat") != 1 {
		t.Fatalf("chat requests = %d", mock.Count("/ai/chat"))
	}
}
