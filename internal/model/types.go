package model

// Filter selects a subset of batches. Selector groups are mutually exclusive
// in precedence order: BatchIDs, then LotNumbers, then the combined
// device/operator/date/frequency selectors. Limit applies to every branch.
type Filter struct {
	BatchIDs    []string `json:"batchIds,omitempty" yaml:"batchIds"`
	LotNumbers  []string `json:"lotNumbers,omitempty" yaml:"lotNumbers"`
	DeviceIDs   []string `json:"deviceIds" yaml:"deviceIds"`
	OperatorIDs []string `json:"operatorIds" yaml:"operatorIds"`
	StartDate   string   `json:"startDate" yaml:"startDate"`
	EndDate     string   `json:"endDate" yaml:"endDate"`
	TargetFMin  *float64 `json:"targetFMin" yaml:"targetFMin"`
	TargetFMax  *float64 `json:"targetFMax" yaml:"targetFMax"`
	Limit       int      `json:"limit,omitempty" yaml:"limit"`
}

// Clone returns a deep copy so retained filters never alias caller slices.
func (f Filter) Clone() Filter {
	out := f
	out.BatchIDs = cloneStrings(f.BatchIDs)
	out.LotNumbers = cloneStrings(f.LotNumbers)
	out.DeviceIDs = cloneStrings(f.DeviceIDs)
	out.OperatorIDs = cloneStrings(f.OperatorIDs)
	if f.TargetFMin != nil {
		v := *f.TargetFMin
		out.TargetFMin = &v
	}
	if f.TargetFMax != nil {
		v := *f.TargetFMax
		out.TargetFMax = &v
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Float returns a pointer to v, for optional frequency bounds.
func Float(v float64) *float64 { return &v }

// BatchRow is one raw row of GET /batches. Frequency and time fields keep
// key presence because the summary picks fields by presence, not value.
type BatchRow struct {
	BatchID    string       `json:"batch_id"`
	LotNumber  string       `json:"lot_number,omitempty"`
	DeviceID   string       `json:"device_id,omitempty"`
	OperatorID string       `json:"operator_id,omitempty"`
	FinalF     Opt[float64] `json:"final_f,omitzero"`
	TargetF    Opt[float64] `json:"target_f,omitzero"`
	StartF     Opt[float64] `json:"start_f,omitzero"`
	Stdev      Opt[float64] `json:"stdev,omitzero"`
	StartTime  Opt[string]  `json:"start_time,omitzero"`
	EndTime    Opt[string]  `json:"end_time,omitzero"`
}

// BatchSummary is the chart-ready projection of a list of batch rows.
// All four slices always have the same length.
type BatchSummary struct {
	BatchIDs    []string  `json:"batchIds"`
	Frequencies []float64 `json:"frequencies"`
	Stdevs      []float64 `json:"stdevs"`
	Timestamps  []string  `json:"timestamps"`
}

// EmptyBatchSummary returns the well-formed empty shape.
func EmptyBatchSummary() BatchSummary {
	return BatchSummary{
		BatchIDs:    []string{},
		Frequencies: []float64{},
		Stdevs:      []float64{},
		Timestamps:  []string{},
	}
}

// Len reports the number of batches in the summary.
func (s BatchSummary) Len() int { return len(s.BatchIDs) }

// Round is one measurement cycle of a batch.
type Round struct {
	Count    int     `json:"count"`
	Resonant float64 `json:"resonant"`
	Stdev    float64 `json:"stdev"`
	Time     string  `json:"time"`
}

// RoundsByBatch maps a batch id to its ordered rounds.
type RoundsByBatch map[string][]Round

// Clone copies the map and its slices.
func (r RoundsByBatch) Clone() RoundsByBatch {
	out := make(RoundsByBatch, len(r))
	for k, v := range r {
		out[k] = append([]Round(nil), v...)
	}
	return out
}

// BatchCount is the body of GET /batches/count.
type BatchCount struct {
	Count int `json:"count"`
}

// Device is one row of GET /devices.
type Device struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
}

// Operator is one row of GET /operators.
type Operator struct {
	OperatorID   string `json:"operator_id"`
	OperatorName string `json:"operator_name"`
}

// Option is a select-box entry derived from a device or operator.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
