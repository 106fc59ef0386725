package tui

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tinytelemetry/olam/internal/model"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    model.Filter
		wantErr bool
	}{
		{name: "empty", in: "  ", want: model.Filter{}},
		{name: "lots", in: "lot:L01,L02", want: model.Filter{LotNumbers: []string{"L01", "L02"}}},
		{name: "repeated key appends", in: "ids:B1 id:B2", want: model.Filter{BatchIDs: []string{"B1", "B2"}}},
		{
			name: "combined",
			in:   "device:D01 op:OP01,OP02 from:2024-01-01 to:2024-01-31 fmin:32760 fmax:32775.5 limit:50",
			want: model.Filter{
				DeviceIDs:   []string{"D01"},
				OperatorIDs: []string{"OP01", "OP02"},
				StartDate:   "2024-01-01",
				EndDate:     "2024-01-31",
				TargetFMin:  model.Float(32760),
				TargetFMax:  model.Float(32775.5),
				Limit:       50,
			},
		},
		{name: "empty list items dropped", in: "device:D01,,D02,", want: model.Filter{DeviceIDs: []string{"D01", "D02"}}},
		{name: "keys are case insensitive", in: "LOT:L01", want: model.Filter{LotNumbers: []string{"L01"}}},
		{name: "missing value", in: "lot:", wantErr: true},
		{name: "no colon", in: "L01", wantErr: true},
		{name: "unknown key", in: "shift:night", wantErr: true},
		{name: "bad number", in: "fmin:abc", wantErr: true},
		{name: "negative limit", in: "limit:-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("filter mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatFilterParsesBack(t *testing.T) {
	f := model.Filter{
		BatchIDs:    []string{"B1"},
		LotNumbers:  []string{"L01", "L02"},
		DeviceIDs:   []string{"D01"},
		OperatorIDs: []string{"OP01"},
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-31",
		TargetFMin:  model.Float(32760.25),
		Limit:       10,
	}
	s := FormatFilter(f)
	want := "ids:B1 lot:L01,L02 device:D01 op:OP01 from:2024-01-01 to:2024-01-31 fmin:32760.25 limit:10"
	if s != want {
		t.Fatalf("FormatFilter = %q, want %q", s, want)
	}
	back, err := ParseFilter(s)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	if got := FormatFilter(model.Filter{}); got != "" {
		t.Fatalf("empty filter formats as %q", got)
	}
}
