// Package normalize converts raw backend rows into chart-ready view models.
package normalize

import (
	"strings"
	"time"

	"github.com/tinytelemetry/olam/internal/model"
)

// InvalidDate is rendered for timestamps that cannot be parsed.
const InvalidDate = "Invalid Date"

// Naive timestamps carry no zone and are read in the formatter's location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Zoned timestamps carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02 15:04:05Z07:00",
}

// Formatter renders backend timestamps for display.
type Formatter struct {
	Layout   string
	Location *time.Location
}

// DefaultFormatter formats as YYYY/MM/DD HH:MM in local time.
func DefaultFormatter() Formatter {
	return Formatter{Layout: model.DefaultTimestampLayout, Location: time.Local}
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f Formatter) layout() string {
	if f.Layout == "" {
		return model.DefaultTimestampLayout
	}
	return f.Layout
}

// Parse reads s as a backend timestamp.
func (f Formatter) Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, f.loc()); err == nil {
			return t, true
		}
	}
	// A bare date means midnight UTC, as in a browser.
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Format renders s, or InvalidDate when it cannot be parsed.
func (f Formatter) Format(s string) string {
	t, ok := f.Parse(s)
	if !ok {
		return InvalidDate
	}
	return f.FormatTime(t)
}

// FormatTime renders t in the formatter's location and layout.
func (f Formatter) FormatTime(t time.Time) string {
	return t.In(f.loc()).Format(f.layout())
}

// formatField renders a time field. A missing field is InvalidDate and a
// present null is the epoch, mirroring how a browser builds a Date.
func (f Formatter) formatField(o model.Opt[string]) string {
	if !o.Present {
		return InvalidDate
	}
	if !o.Valid {
		return f.FormatTime(time.Unix(0, 0))
	}
	return f.Format(o.Value)
}

type frequencyField int

const (
	fieldFinalF frequencyField = iota
	fieldTargetF
	fieldStartF
)

// pickFrequencyField decides the frequency column once, from the first row.
func pickFrequencyField(first model.BatchRow) frequencyField {
	switch {
	case first.FinalF.Present:
		return fieldFinalF
	case first.TargetF.Present:
		return fieldTargetF
	default:
		return fieldStartF
	}
}

func (ff frequencyField) value(r model.BatchRow) float64 {
	switch ff {
	case fieldFinalF:
		return r.FinalF.Or(0)
	case fieldTargetF:
		return r.TargetF.Or(0)
	default:
		return r.StartF.Or(0)
	}
}

// BatchSummary projects rows into a model.BatchSummary. No rows yields the
// empty shape. The frequency column chosen from the first row applies to
// every row; the time column is chosen per row.
func (f Formatter) BatchSummary(rows []model.BatchRow) model.BatchSummary {
	if len(rows) == 0 {
		return model.EmptyBatchSummary()
	}

	field := pickFrequencyField(rows[0])
	out := model.BatchSummary{
		BatchIDs:    make([]string, len(rows)),
		Frequencies: make([]float64, len(rows)),
		Stdevs:      make([]float64, len(rows)),
		Timestamps:  make([]string, len(rows)),
	}
	for i, r := range rows {
		out.BatchIDs[i] = r.BatchID
		out.Frequencies[i] = field.value(r)
		out.Stdevs[i] = r.Stdev.Or(0)
		if r.EndTime.Present {
			out.Timestamps[i] = f.formatField(r.EndTime)
		} else {
			out.Timestamps[i] = f.formatField(r.StartTime)
		}
	}
	return out
}

// BatchSummary normalizes rows with DefaultFormatter.
func BatchSummary(rows []model.BatchRow) model.BatchSummary {
	return DefaultFormatter().BatchSummary(rows)
}

// DeviceOptions maps devices into select-box options.
func DeviceOptions(devices []model.Device) []model.Option {
	out := make([]model.Option, len(devices))
	for i, d := range devices {
		out[i] = model.Option{Value: d.DeviceID, Label: d.DeviceName}
	}
	return out
}

// OperatorOptions maps operators into select-box options.
func OperatorOptions(operators []model.Operator) []model.Option {
	out := make([]model.Option, len(operators))
	for i, o := range operators {
		out[i] = model.Option{Value: o.OperatorID, Label: o.OperatorName}
	}
	return out
}
