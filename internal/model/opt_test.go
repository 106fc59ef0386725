package model

import (
	"encoding/json"
	"testing"
)

func TestOptPresence(t *testing.T) {
	var row BatchRow
	if err := json.Unmarshal([]byte(`{"batch_id":"B1","final_f":null,"target_f":0}`), &row); err != nil {
		t.Fatal(err)
	}
	if !row.FinalF.Present || row.FinalF.Valid {
		t.Fatalf("final_f: want present null, got %+v", row.FinalF)
	}
	if !row.TargetF.Present || !row.TargetF.Valid || row.TargetF.Value != 0 {
		t.Fatalf("target_f: want present 0, got %+v", row.TargetF)
	}
	if row.StartF.Present {
		t.Fatalf("start_f: want absent, got %+v", row.StartF)
	}
}

func TestOptMarshalOmitsAbsent(t *testing.T) {
	row := BatchRow{BatchID: "B1", FinalF: Some(100.0), EndTime: Null[string]()}
	b, err := json.Marshal(row)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"batch_id":"B1","final_f":100,"end_time":null}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestFilterCloneDoesNotAlias(t *testing.T) {
	f := Filter{BatchIDs: []string{"A"}, TargetFMin: Float(1)}
	c := f.Clone()
	c.BatchIDs[0] = "B"
	*c.TargetFMin = 2
	if f.BatchIDs[0] != "A" || *f.TargetFMin != 1 {
		t.Fatalf("clone aliases original: %+v", f)
	}
}
