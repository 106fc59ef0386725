package model

// DashboardOverview is the body of GET /dashboard.
type DashboardOverview struct {
	TotalBatches    int     `json:"total_batches"`
	TotalDevices    int     `json:"total_devices"`
	TotalOperators  int     `json:"total_operators"`
	AvgStdev        float64 `json:"avg_stdev"`
	LatestBatchTime string  `json:"latest_batch_time"`
}

// TrendPoint is one day of a variance trend.
type TrendPoint struct {
	Date       string  `json:"date"`
	AvgStdev   float64 `json:"avg_stdev"`
	BatchCount int     `json:"batch_count"`
}

// VarianceTrend is the body of GET /dashboard/variance-trend.
type VarianceTrend []TrendPoint

// DeviceScore aggregates variance per device.
type DeviceScore struct {
	DeviceID   string  `json:"device_id"`
	DeviceName string  `json:"device_name"`
	BatchCount int     `json:"batch_count"`
	AvgStdev   float64 `json:"avg_stdev"`
}

// DevicePerformance is the body of GET /dashboard/device-performance.
type DevicePerformance []DeviceScore

// OperatorScore aggregates variance per operator.
type OperatorScore struct {
	OperatorID   string  `json:"operator_id"`
	OperatorName string  `json:"operator_name"`
	BatchCount   int     `json:"batch_count"`
	AvgStdev     float64 `json:"avg_stdev"`
}

// VarianceStats summarizes a set of standard deviations.
type VarianceStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// VarianceRecord is one batch in a variance analysis.
type VarianceRecord struct {
	BatchID  string  `json:"batch_id"`
	DeviceID string  `json:"device_id"`
	Stdev    float64 `json:"stdev"`
	EndTime  string  `json:"end_time"`
}

// VarianceAnalysis is the body of GET /variance.
type VarianceAnalysis struct {
	Stats   VarianceStats    `json:"stats"`
	Records []VarianceRecord `json:"records"`
}

// GridRecord is a device-level operational record.
type GridRecord struct {
	GridID      int     `json:"grid_id"`
	DeviceID    string  `json:"device_id"`
	OperatorID  string  `json:"operator_id"`
	GridMod     int     `json:"grid_mod"`
	EndWay      int     `json:"end_way"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	DurationSec float64 `json:"duration"`
}

// GridPage is the body of GET /grid.
type GridPage struct {
	Records []GridRecord `json:"records"`
	Total   int          `json:"total"`
}

// GridOptions is the body of GET /grid/options.
type GridOptions struct {
	GridMods []int `json:"gridMods"`
	EndWays  []int `json:"endWays"`
}

// TimelineSegment is one bar on a device's day timeline.
type TimelineSegment struct {
	Kind  string `json:"kind"` // "batch" or "grid"
	ID    string `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

// DeviceTimeline groups the segments of one device.
type DeviceTimeline struct {
	DeviceID string            `json:"device_id"`
	Segments []TimelineSegment `json:"segments"`
}

// TimelineDay is the body of GET /timeline/day.
type TimelineDay struct {
	Date    string           `json:"date"`
	Devices []DeviceTimeline `json:"devices"`
}

// DeviceAnalysis is the body of GET /device.
type DeviceAnalysis struct {
	Devices []DeviceScore `json:"devices"`
	Trend   []TrendPoint  `json:"trend"`
}

// OperatorAnalysis is the body of GET /operator.
type OperatorAnalysis struct {
	Operators []OperatorScore `json:"operators"`
	Trend     []TrendPoint    `json:"trend"`
}

// InitialVariance is the body of GET /analysis/initial-variance.
type InitialVariance struct {
	BatchID      string  `json:"batch_id"`
	RoundCount   int     `json:"round_count"`
	Rounds       []Round `json:"rounds"`
	InitialStdev float64 `json:"initial_stdev"`
	FinalStdev   float64 `json:"final_stdev"`
}

// RepairEffect is the body of GET /analysis/repair-effect.
type RepairEffect struct {
	DeviceID     string        `json:"device_id"`
	RepairMethod string        `json:"repair_method"`
	Before       VarianceStats `json:"before"`
	After        VarianceStats `json:"after"`
	Improvement  float64       `json:"improvement"`
}

// FrequencyRange is a closed frequency interval.
type FrequencyRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RangeStat is the variance summary of one frequency range.
type RangeStat struct {
	FrequencyRange
	BatchCount int     `json:"batch_count"`
	AvgStdev   float64 `json:"avg_stdev"`
}

// FrequencyRangeAnalysis is the body of POST /analysis/frequency-range.
type FrequencyRangeAnalysis struct {
	DeviceID string      `json:"device_id"`
	Ranges   []RangeStat `json:"ranges"`
}

// ImpactCell is the variance of one operator on one device.
type ImpactCell struct {
	OperatorID string  `json:"operator_id"`
	DeviceID   string  `json:"device_id"`
	BatchCount int     `json:"batch_count"`
	AvgStdev   float64 `json:"avg_stdev"`
}

// OperatorDeviceImpact is the body of GET /analysis/operator-device-impact.
type OperatorDeviceImpact struct {
	Cells []ImpactCell `json:"cells"`
}
