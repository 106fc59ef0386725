package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tinytelemetry/olam/internal/model"
)

// ParseFilter reads the batch filter syntax typed in the batch view:
// space separated key:value terms, list values comma separated.
//
//	ids:B1,B2  lot:L01  device:D01,D02  op:O1  from:2024-01-01  to:2024-01-31
//	fmin:32760  fmax:32775  limit:50
func ParseFilter(s string) (model.Filter, error) {
	var f model.Filter
	for _, term := range strings.Fields(s) {
		k, val, ok := strings.Cut(term, ":")
		if !ok || val == "" {
			return model.Filter{}, fmt.Errorf("expected key:value, got %q", term)
		}
		switch strings.ToLower(k) {
		case "ids", "id", "batch":
			f.BatchIDs = append(f.BatchIDs, splitList(val)...)
		case "lot", "lots":
			f.LotNumbers = append(f.LotNumbers, splitList(val)...)
		case "device", "devices":
			f.DeviceIDs = append(f.DeviceIDs, splitList(val)...)
		case "op", "operator", "operators":
			f.OperatorIDs = append(f.OperatorIDs, splitList(val)...)
		case "from":
			f.StartDate = val
		case "to":
			f.EndDate = val
		case "fmin", "fmax":
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return model.Filter{}, fmt.Errorf("%s: %w", k, err)
			}
			if strings.ToLower(k) == "fmin" {
				f.TargetFMin = model.Float(v)
			} else {
				f.TargetFMax = model.Float(v)
			}
		case "limit":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return model.Filter{}, fmt.Errorf("limit: want a non-negative integer, got %q", val)
			}
			f.Limit = n
		default:
			return model.Filter{}, fmt.Errorf("unknown filter key %q", k)
		}
	}
	return f, nil
}

// FormatFilter is the inverse of ParseFilter.
func FormatFilter(f model.Filter) string {
	var terms []string
	list := func(k string, vals []string) {
		if len(vals) > 0 {
			terms = append(terms, k+":"+strings.Join(vals, ","))
		}
	}
	list("ids", f.BatchIDs)
	list("lot", f.LotNumbers)
	list("device", f.DeviceIDs)
	list("op", f.OperatorIDs)
	if f.StartDate != "" {
		terms = append(terms, "from:"+f.StartDate)
	}
	if f.EndDate != "" {
		terms = append(terms, "to:"+f.EndDate)
	}
	if f.TargetFMin != nil {
		terms = append(terms, "fmin:"+strconv.FormatFloat(*f.TargetFMin, 'f', -1, 64))
	}
	if f.TargetFMax != nil {
		terms = append(terms, "fmax:"+strconv.FormatFloat(*f.TargetFMax, 'f', -1, 64))
	}
	if f.Limit > 0 {
		terms = append(terms, "limit:"+strconv.Itoa(f.Limit))
	}
	return strings.Join(terms, " ")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
