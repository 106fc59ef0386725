package store

import (
	"github.com/tinytelemetry/olam/internal/kvstore"
	"github.com/tinytelemetry/olam/internal/model"
)

// Stores is every store of one process. It is built once by each binary and
// passed to the views that need it.
type Stores struct {
	Data      *DataStore
	Dashboard *DashboardStore
	Variance  *VarianceStore
	Grid      *GridStore
	Timeline  *TimelineStore
	Device    *DeviceStore
	Operator  *OperatorStore
	AI        *AIStore
}

// New builds all stores over one API client. The AI settings are loaded from
// storage before New returns.
func New(api model.AnalyticsAPI, storage kvstore.Storage, opts ...Option) *Stores {
	s := &Stores{
		Data:      NewDataStore(api, opts...),
		Dashboard: NewDashboardStore(api, opts...),
		Variance:  NewVarianceStore(api, opts...),
		Grid:      NewGridStore(api, opts...),
		Timeline:  NewTimelineStore(api, opts...),
		Device:    NewDeviceStore(api, opts...),
		Operator:  NewOperatorStore(api, opts...),
		AI:        NewAIStore(api, storage, opts...),
	}
	s.AI.LoadSettings()
	return s
}
