package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tinytelemetry/olam/internal/model"
)

func sampleExport() Export {
	return Export{
		CapturedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		BaseURL:    model.DefaultBaseURL,
		Filter:     model.Filter{LotNumbers: []string{"L01"}, Limit: 20},
		Summary: model.BatchSummary{
			BatchIDs:    []string{"B2", "B1"},
			Frequencies: []float64{32768.2, 32767.9},
			Stdevs:      []float64{0.21, 0},
			Timestamps:  []string{"2024/01/01 09:12", "Invalid Date"},
		},
		Rounds: model.RoundsByBatch{
			"B1": {{Count: 1, Resonant: 32745.1, Stdev: 1.8, Time: "t1"}, {Count: 2, Resonant: 32768.2, Stdev: 0.2, Time: "t2"}},
		},
	}
}

func TestWriteAndReadBack(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	e := sampleExport()
	id, err := s.Write(ctx, e)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	summary, err := s.Summary(ctx, id)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if diff := cmp.Diff(e.Summary, summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	rounds, err := s.Rounds(ctx, id)
	if err != nil {
		t.Fatalf("Rounds: %v", err)
	}
	if diff := cmp.Diff(e.Rounds, rounds); diff != "" {
		t.Fatalf("rounds mismatch (-want +got):\n%s", diff)
	}
}

func TestExportsListing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snap", "olam.duckdb")
	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	first, err := s.Write(ctx, sampleExport())
	if err != nil {
		t.Fatal(err)
	}
	empty := Export{Summary: model.EmptyBatchSummary()}
	second, err := s.Write(ctx, empty)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopening must not re-run migrations or lose data.
	s, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	list, err := s.Exports(ctx)
	if err != nil {
		t.Fatalf("Exports: %v", err)
	}
	if len(list) != 2 || list[0].ID != second || list[1].ID != first {
		t.Fatalf("exports = %+v", list)
	}
	if list[1].FilterMode != "lot numbers" || list[1].Batches != 2 || list[1].Filter.Limit != 20 {
		t.Fatalf("first export = %+v", list[1])
	}
	if list[0].FilterMode != "combined" || list[0].Batches != 0 {
		t.Fatalf("second export = %+v", list[0])
	}
}
