package mockapi

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinytelemetry/olam/internal/model"
)

// Fixtures is the canned data served by the mock backend.
type Fixtures struct {
	Dashboard            model.DashboardOverview      `json:"dashboard"`
	VarianceTrend        model.VarianceTrend          `json:"varianceTrend"`
	DevicePerformance    model.DevicePerformance      `json:"devicePerformance"`
	Variance             model.VarianceAnalysis       `json:"variance"`
	Grid                 []model.GridRecord           `json:"grid"`
	GridOptions          model.GridOptions            `json:"gridOptions"`
	Timeline             model.TimelineDay            `json:"timeline"`
	Device               model.DeviceAnalysis         `json:"device"`
	Operator             model.OperatorAnalysis       `json:"operator"`
	Devices              []model.Device               `json:"devices"`
	Operators            []model.Operator             `json:"operators"`
	Batches              []model.BatchRow             `json:"batches"`
	Rounds               model.RoundsByBatch          `json:"rounds"`
	InitialVariance      model.InitialVariance        `json:"initialVariance"`
	RepairEffect         model.RepairEffect           `json:"repairEffect"`
	FrequencyRange       model.FrequencyRangeAnalysis `json:"frequencyRange"`
	OperatorDeviceImpact model.OperatorDeviceImpact   `json:"operatorDeviceImpact"`
	ChatReply            string                       `json:"chatReply"`
}

// LoadFixtures reads a YAML fixtures file. The document is converted to
// JSON first so batch rows keep field presence exactly as written.
func LoadFixtures(path string) (Fixtures, error) {
	var fx Fixtures
	data, err := os.ReadFile(path)
	if err != nil {
		return fx, fmt.Errorf("mockapi: read fixtures: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fx, fmt.Errorf("mockapi: parse fixtures: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fx, fmt.Errorf("mockapi: convert fixtures: %w", err)
	}
	if err := json.Unmarshal(raw, &fx); err != nil {
		return fx, fmt.Errorf("mockapi: decode fixtures: %w", err)
	}
	return fx, nil
}

// SampleFixtures returns a small, self-consistent data set.
func SampleFixtures() Fixtures {
	rows := []model.BatchRow{
		{BatchID: "B240101-01", LotNumber: "L01", DeviceID: "D01", OperatorID: "OP01", FinalF: model.Some(32768.2), TargetF: model.Some(32768.0), StartF: model.Some(32740.5), Stdev: model.Some(0.21), StartTime: model.Some("2024-01-01T08:00:00"), EndTime: model.Some("2024-01-01T09:12:00")},
		{BatchID: "B240101-02", LotNumber: "L01", DeviceID: "D02", OperatorID: "OP02", FinalF: model.Some(32767.9), TargetF: model.Some(32768.0), StartF: model.Some(32741.0), Stdev: model.Some(0.34), StartTime: model.Some("2024-01-01T09:30:00"), EndTime: model.Some("2024-01-01T10:41:00")},
		{BatchID: "B240102-01", LotNumber: "L02", DeviceID: "D01", OperatorID: "OP01", FinalF: model.Some(32768.4), TargetF: model.Some(32768.0), StartF: model.Some(32739.8), Stdev: model.Some(0.18), StartTime: model.Some("2024-01-02T08:05:00"), EndTime: model.Some("2024-01-02T09:20:00")},
		{BatchID: "B240102-02", LotNumber: "L02", DeviceID: "D03", OperatorID: "OP03", TargetF: model.Some(32768.0), StartF: model.Some(32742.2), StartTime: model.Some("2024-01-02T11:00:00")},
	}

	rounds := model.RoundsByBatch{
		"B240101-01": {
			{Count: 1, Resonant: 32745.1, Stdev: 1.8, Time: "2024-01-01T08:10:00"},
			{Count: 2, Resonant: 32760.3, Stdev: 0.9, Time: "2024-01-01T08:40:00"},
			{Count: 3, Resonant: 32768.2, Stdev: 0.21, Time: "2024-01-01T09:12:00"},
		},
		"B240101-02": {
			{Count: 1, Resonant: 32746.0, Stdev: 2.1, Time: "2024-01-01T09:40:00"},
			{Count: 2, Resonant: 32767.9, Stdev: 0.34, Time: "2024-01-01T10:41:00"},
		},
		"B240102-01": {
			{Count: 1, Resonant: 32744.7, Stdev: 1.6, Time: "2024-01-02T08:15:00"},
			{Count: 2, Resonant: 32768.4, Stdev: 0.18, Time: "2024-01-02T09:20:00"},
		},
	}

	gridID := []model.GridRecord{
		{GridID: 1, DeviceID: "D01", OperatorID: "OP01", GridMod: 2, EndWay: 1, StartTime: "2024-01-01T06:00:00", EndTime: "2024-01-01T06:45:00", DurationSec: 2700},
		{GridID: 2, DeviceID: "D02", OperatorID: "OP02", GridMod: 3, EndWay: 2, StartTime: "2024-01-01T07:10:00", EndTime: "2024-01-01T07:30:00", DurationSec: 1200},
	}

	return Fixtures{
		Dashboard: model.DashboardOverview{TotalBatches: len(rows), TotalDevices: 3, TotalOperators: 3, AvgStdev: 0.243, LatestBatchTime: "2024-01-02T11:00:00"},
		VarianceTrend: model.VarianceTrend{
			{Date: "2024-01-01", AvgStdev: 0.275, BatchCount: 2},
			{Date: "2024-01-02", AvgStdev: 0.18, BatchCount: 2},
		},
		DevicePerformance: model.DevicePerformance{
			{DeviceID: "D01", DeviceName: "Lapper 01", BatchCount: 2, AvgStdev: 0.195},
			{DeviceID: "D02", DeviceName: "Lapper 02", BatchCount: 1, AvgStdev: 0.34},
			{DeviceID: "D03", DeviceName: "Lapper 03", BatchCount: 1, AvgStdev: 0},
		},
		Variance: model.VarianceAnalysis{
			Stats: model.VarianceStats{Count: 3, Mean: 0.243, Min: 0.18, Max: 0.34},
			Records: []model.VarianceRecord{
				{BatchID: "B240101-01", DeviceID: "D01", Stdev: 0.21, EndTime: "2024-01-01T09:12:00"},
				{BatchID: "B240101-02", DeviceID: "D02", Stdev: 0.34, EndTime: "2024-01-01T10:41:00"},
				{BatchID: "B240102-01", DeviceID: "D01", Stdev: 0.18, EndTime: "2024-01-02T09:20:00"},
			},
		},
		Grid:        gridID,
		GridOptions: model.GridOptions{GridMods: []int{2, 3}, EndWays: []int{1, 2}},
		Timeline: model.TimelineDay{
			Date: "2024-01-01",
			Devices: []model.DeviceTimeline{
				{DeviceID: "D01", Segments: []model.TimelineSegment{
					{Kind: "grid", ID: "1", Start: "2024-01-01T06:00:00", End: "2024-01-01T06:45:00", Label: "grid mod 2"},
					{Kind: "batch", ID: "B240101-01", Start: "2024-01-01T08:00:00", End: "2024-01-01T09:12:00", Label: "L01"},
				}},
				{DeviceID: "D02", Segments: []model.TimelineSegment{
					{Kind: "batch", ID: "B240101-02", Start: "2024-01-01T09:30:00", End: "2024-01-01T10:41:00", Label: "L01"},
				}},
			},
		},
		Device: model.DeviceAnalysis{
			Devices: []model.DeviceScore{{DeviceID: "D01", DeviceName: "Lapper 01", BatchCount: 2, AvgStdev: 0.195}},
			Trend:   []model.TrendPoint{{Date: "2024-01-01", AvgStdev: 0.21, BatchCount: 1}, {Date: "2024-01-02", AvgStdev: 0.18, BatchCount: 1}},
		},
		Operator: model.OperatorAnalysis{
			Operators: []model.OperatorScore{{OperatorID: "OP01", OperatorName: "Wang Li", BatchCount: 2, AvgStdev: 0.195}},
			Trend:     []model.TrendPoint{{Date: "2024-01-01", AvgStdev: 0.21, BatchCount: 1}},
		},
		Devices:   []model.Device{{DeviceID: "D01", DeviceName: "Lapper 01"}, {DeviceID: "D02", DeviceName: "Lapper 02"}, {DeviceID: "D03", DeviceName: "Lapper 03"}},
		Operators: []model.Operator{{OperatorID: "OP01", OperatorName: "Wang Li"}, {OperatorID: "OP02", OperatorName: "Zhang Wei"}, {OperatorID: "OP03", OperatorName: "Chen Jing"}},
		Batches:   rows,
		Rounds:    rounds,
		InitialVariance: model.InitialVariance{
			BatchID: "B240101-01", RoundCount: 3, Rounds: rounds["B240101-01"], InitialStdev: 1.8, FinalStdev: 0.21,
		},
		RepairEffect: model.RepairEffect{
			DeviceID: "D01", RepairMethod: "resurface",
			Before:      model.VarianceStats{Count: 10, Mean: 0.42, Min: 0.2, Max: 0.8},
			After:       model.VarianceStats{Count: 10, Mean: 0.21, Min: 0.12, Max: 0.35},
			Improvement: 0.5,
		},
		FrequencyRange: model.FrequencyRangeAnalysis{
			DeviceID: "D01",
			Ranges:   []model.RangeStat{{FrequencyRange: model.FrequencyRange{Min: 32760, Max: 32770}, BatchCount: 2, AvgStdev: 0.195}},
		},
		OperatorDeviceImpact: model.OperatorDeviceImpact{
			Cells: []model.ImpactCell{
				{OperatorID: "OP01", DeviceID: "D01", BatchCount: 2, AvgStdev: 0.195},
				{OperatorID: "OP02", DeviceID: "D02", BatchCount: 1, AvgStdev: 0.34},
			},
		},
		ChatReply: "Batch **B240102-01** has the lowest deviation (0.18).",
	}
}
