package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tinytelemetry/olam/internal/model"
)

func decodeRows(t *testing.T, raw string) []model.BatchRow {
	t.Helper()
	var rows []model.BatchRow
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	return rows
}

func TestBatchSummarySingleRow(t *testing.T) {
	rows := decodeRows(t, `[{"batch_id":"B1","final_f":100,"stdev":0.2,"end_time":"2024-01-01T00:00:00"}]`)

	got := BatchSummary(rows)
	want := model.BatchSummary{
		BatchIDs:    []string{"B1"},
		Frequencies: []float64{100},
		Stdevs:      []float64{0.2},
		Timestamps:  []string{"2024/01/01 00:00"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestBatchSummaryEmpty(t *testing.T) {
	for _, rows := range [][]model.BatchRow{nil, {}} {
		got := BatchSummary(rows)
		if diff := cmp.Diff(model.EmptyBatchSummary(), got); diff != "" {
			t.Fatalf("empty mismatch (-want +got):\n%s", diff)
		}
		b, err := json.Marshal(got)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != `{"batchIds":[],"frequencies":[],"stdevs":[],"timestamps":[]}` {
			t.Fatalf("empty shape encoded as %s", b)
		}
	}
}

func TestFrequencyFieldChosenFromFirstRow(t *testing.T) {
	rows := decodeRows(t, `[
		{"batch_id":"B1","start_f":10,"start_time":"2024-03-01 08:00:00"},
		{"batch_id":"B2","final_f":99,"start_f":20,"start_time":"2024-03-01 09:30:00"},
		{"batch_id":"B3","target_f":77,"start_time":"2024-03-01 10:00:00"}
	]`)

	got := BatchSummary(rows)
	if diff := cmp.Diff([]float64{10, 20, 0}, got.Frequencies); diff != "" {
		t.Fatalf("frequencies (-want +got):\n%s", diff)
	}
}

func TestFrequencyFieldPrecedence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []float64
	}{
		{"final_f wins", `[{"batch_id":"A","final_f":3,"target_f":2,"start_f":1},{"batch_id":"B","target_f":5}]`, []float64{3, 0}},
		{"target_f next", `[{"batch_id":"A","target_f":2,"start_f":1},{"batch_id":"B","final_f":9,"target_f":4}]`, []float64{2, 4}},
		{"present null still selects", `[{"batch_id":"A","final_f":null,"target_f":2},{"batch_id":"B","final_f":8}]`, []float64{0, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BatchSummary(decodeRows(t, tt.raw))
			if diff := cmp.Diff(tt.want, got.Frequencies); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestStdevDefaultsToZero(t *testing.T) {
	rows := decodeRows(t, `[{"batch_id":"A","final_f":1},{"batch_id":"B","final_f":1,"stdev":null},{"batch_id":"C","final_f":1,"stdev":1.5}]`)
	got := BatchSummary(rows)
	if diff := cmp.Diff([]float64{0, 0, 1.5}, got.Stdevs); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestTimestampSelectionAndFormats(t *testing.T) {
	f := Formatter{Layout: model.DefaultTimestampLayout, Location: time.UTC}

	rows := decodeRows(t, `[
		{"batch_id":"A","final_f":1,"start_time":"2024-05-02T06:07:08","end_time":"2024-05-02T09:10:11"},
		{"batch_id":"B","final_f":1,"start_time":"2024-05-02T06:07:08"},
		{"batch_id":"C","final_f":1,"end_time":"Thu, 02 May 2024 12:30:00 GMT"},
		{"batch_id":"D","final_f":1,"end_time":"2024-05-02T12:30:00+08:00"},
		{"batch_id":"E","final_f":1,"end_time":"not a date"},
		{"batch_id":"F","final_f":1,"end_time":null,"start_time":"2024-05-02T06:07:08"},
		{"batch_id":"G","final_f":1}
	]`)

	got := f.BatchSummary(rows).Timestamps
	want := []string{
		"2024/05/02 09:10",
		"2024/05/02 06:07",
		"2024/05/02 12:30",
		"2024/05/02 04:30",
		InvalidDate,
		"1970/01/01 00:00",
		InvalidDate,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("timestamps (-want +got):\n%s", diff)
	}
}

func TestFormatterParse(t *testing.T) {
	f := Formatter{Location: time.UTC}
	for _, in := range []string{
		"2024-01-15T10:30:45Z",
		"2024-01-15T10:30:45.123456789Z",
		"2024-01-15T10:30:45+05:00",
		"2024-01-15 10:30:45",
		"2024-01-15 10:30:45.123",
		"2024-01-15T10:30",
		"2024-01-15",
		"Mon, 15 Jan 2024 10:30:45 GMT",
	} {
		if _, ok := f.Parse(in); !ok {
			t.Errorf("Parse(%q) failed", in)
		}
	}
	if _, ok := f.Parse(""); ok {
		t.Error("empty string parsed")
	}
}

func TestOptions(t *testing.T) {
	devs := DeviceOptions([]model.Device{{DeviceID: "D1", DeviceName: "Lapper 1"}})
	ops := OperatorOptions([]model.Operator{{OperatorID: "O1", OperatorName: "Wang"}})
	if diff := cmp.Diff([]model.Option{{Value: "D1", Label: "Lapper 1"}}, devs); diff != "" {
		t.Fatal(diff)
	}
	if diff := cmp.Diff([]model.Option{{Value: "O1", Label: "Wang"}}, ops); diff != "" {
		t.Fatal(diff)
	}
}
