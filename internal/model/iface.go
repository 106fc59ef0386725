package model

import "context"

// VarianceQuery holds the optional parameters of GET /variance.
type VarianceQuery struct {
	StartDate string
	EndDate   string
	DeviceID  string
}

// GridQuery holds the optional parameters of GET /grid.
type GridQuery struct {
	GridID    *int
	DeviceID  string
	GridMod   *int
	StartDate string
	EndDate   string
	Limit     int
	Offset    int
}

// TimelineQuery holds the parameters of GET /timeline/day.
type TimelineQuery struct {
	Date      string
	DeviceIDs []string
}

// DeviceQuery holds the optional parameters of GET /device.
type DeviceQuery struct {
	DeviceID  string
	StartDate string
	EndDate   string
}

// OperatorQuery holds the optional parameters of GET /operator.
type OperatorQuery struct {
	OperatorID string
	StartDate  string
	EndDate    string
}

// DashboardAPI provides the overview endpoints.
type DashboardAPI interface {
	Dashboard(ctx context.Context) (DashboardOverview, error)
	VarianceTrend(ctx context.Context) (VarianceTrend, error)
	DevicePerformance(ctx context.Context) (DevicePerformance, error)
}

// ViewAPI provides the per-view analysis endpoints.
type ViewAPI interface {
	Variance(ctx context.Context, q VarianceQuery) (VarianceAnalysis, error)
	Grid(ctx context.Context, q GridQuery) (GridPage, error)
	GridOptions(ctx context.Context) (GridOptions, error)
	TimelineDay(ctx context.Context, q TimelineQuery) (TimelineDay, error)
	Device(ctx context.Context, q DeviceQuery) (DeviceAnalysis, error)
	Operator(ctx context.Context, q OperatorQuery) (OperatorAnalysis, error)
}

// BatchAPI provides batch lookups and batch-level analysis.
type BatchAPI interface {
	BatchCount(ctx context.Context) (int, error)
	Devices(ctx context.Context) ([]Device, error)
	Operators(ctx context.Context) ([]Operator, error)
	Batches(ctx context.Context, f Filter) ([]BatchRow, error)
	BatchRounds(ctx context.Context, batchIDs []string) (RoundsByBatch, error)
	InitialVariance(ctx context.Context, batchID string, roundCount int) (InitialVariance, error)
	RepairEffect(ctx context.Context, deviceID, repairMethod string) (RepairEffect, error)
	FrequencyRangeAnalysis(ctx context.Context, deviceID string, ranges []FrequencyRange) (FrequencyRangeAnalysis, error)
	OperatorDeviceImpact(ctx context.Context, startDate, endDate string) (OperatorDeviceImpact, error)
}

// ChatAPI provides the AI assistant passthrough.
type ChatAPI interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// AnalyticsAPI is the full read contract consumed by the stores.
type AnalyticsAPI interface {
	DashboardAPI
	ViewAPI
	BatchAPI
	ChatAPI
}
