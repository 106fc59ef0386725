// Package apiclient is the HTTP client of the OLAM analytics backend.
//
// Endpoint Reference
//
//	Method  Path                                Params / body                                        Result
//	──────  ──────────────────────────────────  ───────────────────────────────────────────────────  ──────────────────────────
//	GET     /dashboard                          (none)                                               DashboardOverview
//	GET     /dashboard/variance-trend           (none)                                               VarianceTrend
//	GET     /dashboard/device-performance       (none)                                               DevicePerformance
//	GET     /variance                           startDate?, endDate?, deviceId?                      VarianceAnalysis
//	GET     /grid                               gridId?, deviceId?, gridMod?, startDate?, endDate?,  GridPage
//	                                            limit?, offset?
//	GET     /grid/options                       (none)                                               GridOptions
//	GET     /timeline/day                       date, deviceIds[]                                    TimelineDay
//	GET     /device                             deviceId?, startDate?, endDate?                      DeviceAnalysis
//	GET     /operator                           operatorId?, startDate?, endDate?                    OperatorAnalysis
//	POST    /ai/chat                            ChatRequest (120s timeout)                           ChatResponse
//	GET     /batches/count                      (none)                                               {count}
//	GET     /devices                            (none)                                               []Device
//	GET     /operators                          (none)                                               []Operator
//	GET     /batches                            see query.EncodeFilter                               []BatchRow
//	GET     /batches/rounds                     batchIds (repeated)                                  RoundsByBatch
//	GET     /analysis/initial-variance          batchId, roundCount                                  InitialVariance
//	GET     /analysis/repair-effect             deviceId, repairMethod                               RepairEffect
//	POST    /analysis/frequency-range           {deviceId, frequencyRanges}                          FrequencyRangeAnalysis
//	GET     /analysis/operator-device-impact    startDate, endDate                                   OperatorDeviceImpact
//
// Optional parameters with zero values are not sent.
package apiclient

import (
	"context"
	"net/url"
	"strconv"

	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/query"
)

// Paths of the backend endpoints, relative to the base URL.
const (
	PathDashboard            = "/dashboard"
	PathVarianceTrend        = "/dashboard/variance-trend"
	PathDevicePerformance    = "/dashboard/device-performance"
	PathVariance             = "/variance"
	PathGrid                 = "/grid"
	PathGridOptions          = "/grid/options"
	PathTimelineDay          = "/timeline/day"
	PathDevice               = "/device"
	PathOperator             = "/operator"
	PathChat                 = "/ai/chat"
	PathBatchCount           = "/batches/count"
	PathDevices              = "/devices"
	PathOperators            = "/operators"
	PathBatches              = "/batches"
	PathBatchRounds          = "/batches/rounds"
	PathInitialVariance      = "/analysis/initial-variance"
	PathRepairEffect         = "/analysis/repair-effect"
	PathFrequencyRange       = "/analysis/frequency-range"
	PathOperatorDeviceImpact = "/analysis/operator-device-impact"
)

var _ model.AnalyticsAPI = (*Client)(nil)

// params accumulates optional query parameters, skipping zero values.
type params url.Values

func (p params) str(key, v string) params {
	if v != "" {
		url.Values(p).Add(key, v)
	}
	return p
}

func (p params) intPtr(key string, v *int) params {
	if v != nil {
		url.Values(p).Add(key, strconv.Itoa(*v))
	}
	return p
}

func (p params) positive(key string, v int) params {
	if v > 0 {
		url.Values(p).Add(key, strconv.Itoa(v))
	}
	return p
}

// list uses the bracketed array form (key[]=a&key[]=b).
func (p params) list(key string, vals []string) params {
	for _, v := range vals {
		url.Values(p).Add(key+"[]", v)
	}
	return p
}

func (c *Client) Dashboard(ctx context.Context) (model.DashboardOverview, error) {
	var result model.DashboardOverview
	err := c.Get(ctx, PathDashboard, nil, &result)
	return result, err
}

func (c *Client) VarianceTrend(ctx context.Context) (model.VarianceTrend, error) {
	var result model.VarianceTrend
	err := c.Get(ctx, PathVarianceTrend, nil, &result)
	return result, err
}

func (c *Client) DevicePerformance(ctx context.Context) (model.DevicePerformance, error) {
	var result model.DevicePerformance
	err := c.Get(ctx, PathDevicePerformance, nil, &result)
	return result, err
}

func (c *Client) Variance(ctx context.Context, q model.VarianceQuery) (model.VarianceAnalysis, error) {
	p := params{}.
		str("startDate", q.StartDate).
		str("endDate", q.EndDate).
		str("deviceId", q.DeviceID)
	var result model.VarianceAnalysis
	err := c.Get(ctx, PathVariance, url.Values(p), &result)
	return result, err
}

func (c *Client) Grid(ctx context.Context, q model.GridQuery) (model.GridPage, error) {
	p := params{}.
		intPtr("gridId", q.GridID).
		str("deviceId", q.DeviceID).
		intPtr("gridMod", q.GridMod).
		str("startDate", q.StartDate).
		str("endDate", q.EndDate).
		positive("limit", q.Limit).
		positive("offset", q.Offset)
	var result model.GridPage
	err := c.Get(ctx, PathGrid, url.Values(p), &result)
	return result, err
}

func (c *Client) GridOptions(ctx context.Context) (model.GridOptions, error) {
	var result model.GridOptions
	err := c.Get(ctx, PathGridOptions, nil, &result)
	return result, err
}

func (c *Client) TimelineDay(ctx context.Context, q model.TimelineQuery) (model.TimelineDay, error) {
	p := params{}.
		str("date", q.Date).
		list("deviceIds", q.DeviceIDs)
	var result model.TimelineDay
	err := c.Get(ctx, PathTimelineDay, url.Values(p), &result)
	return result, err
}

func (c *Client) Device(ctx context.Context, q model.DeviceQuery) (model.DeviceAnalysis, error) {
	p := params{}.
		str("deviceId", q.DeviceID).
		str("startDate", q.StartDate).
		str("endDate", q.EndDate)
	var result model.DeviceAnalysis
	err := c.Get(ctx, PathDevice, url.Values(p), &result)
	return result, err
}

func (c *Client) Operator(ctx context.Context, q model.OperatorQuery) (model.OperatorAnalysis, error) {
	p := params{}.
		str("operatorId", q.OperatorID).
		str("startDate", q.StartDate).
		str("endDate", q.EndDate)
	var result model.OperatorAnalysis
	err := c.Get(ctx, PathOperator, url.Values(p), &result)
	return result, err
}

// Chat posts to the AI passthrough with the extended timeout.
func (c *Client) Chat(ctx context.Context, req model.ChatRequest) (model.ChatResponse, error) {
	var result model.ChatResponse
	err := c.Post(ctx, PathChat, req, &result, WithCallTimeout(c.chatTimeout))
	return result, err
}

func (c *Client) BatchCount(ctx context.Context) (int, error) {
	var result model.BatchCount
	err := c.Get(ctx, PathBatchCount, nil, &result)
	return result.Count, err
}

func (c *Client) Devices(ctx context.Context) ([]model.Device, error) {
	var result []model.Device
	err := c.Get(ctx, PathDevices, nil, &result)
	return result, err
}

func (c *Client) Operators(ctx context.Context) ([]model.Operator, error) {
	var result []model.Operator
	err := c.Get(ctx, PathOperators, nil, &result)
	return result, err
}

func (c *Client) Batches(ctx context.Context, f model.Filter) ([]model.BatchRow, error) {
	var result []model.BatchRow
	err := c.Get(ctx, PathBatches, query.EncodeFilter(f), &result)
	return result, err
}

func (c *Client) BatchRounds(ctx context.Context, batchIDs []string) (model.RoundsByBatch, error) {
	var result model.RoundsByBatch
	err := c.Get(ctx, PathBatchRounds, query.EncodeBatchIDs(batchIDs), &result)
	return result, err
}

func (c *Client) InitialVariance(ctx context.Context, batchID string, roundCount int) (model.InitialVariance, error) {
	p := url.Values{}
	p.Set("batchId", batchID)
	p.Set("roundCount", strconv.Itoa(roundCount))
	var result model.InitialVariance
	err := c.Get(ctx, PathInitialVariance, p, &result)
	return result, err
}

func (c *Client) RepairEffect(ctx context.Context, deviceID, repairMethod string) (model.RepairEffect, error) {
	p := url.Values{}
	p.Set("deviceId", deviceID)
	p.Set("repairMethod", repairMethod)
	var result model.RepairEffect
	err := c.Get(ctx, PathRepairEffect, p, &result)
	return result, err
}

func (c *Client) FrequencyRangeAnalysis(ctx context.Context, deviceID string, ranges []model.FrequencyRange) (model.FrequencyRangeAnalysis, error) {
	body := struct {
		DeviceID        string                 `json:"deviceId"`
		FrequencyRanges []model.FrequencyRange `json:"frequencyRanges"`
	}{deviceID, ranges}
	var result model.FrequencyRangeAnalysis
	err := c.Post(ctx, PathFrequencyRange, body, &result)
	return result, err
}

func (c *Client) OperatorDeviceImpact(ctx context.Context, startDate, endDate string) (model.OperatorDeviceImpact, error) {
	p := url.Values{}
	p.Set("startDate", startDate)
	p.Set("endDate", endDate)
	var result model.OperatorDeviceImpact
	err := c.Get(ctx, PathOperatorDeviceImpact, p, &result)
	return result, err
}
