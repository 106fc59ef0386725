// Package query turns batch filters into request parameters.
//
// The selector groups of a model.Filter are mutually exclusive. Batch ids win
// over lot numbers, and lot numbers win over the combined device, operator,
// date and frequency selectors. Changing the order silently changes which
// rows the backend returns.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/tinytelemetry/olam/internal/model"
)

// Parameter names understood by GET /batches and GET /batches/rounds.
const (
	ParamBatchIDs    = "batchIds"
	ParamLotNumbers  = "lotNumbers"
	ParamDeviceIDs   = "deviceIds"
	ParamOperatorIDs = "operatorIds"
	ParamStartDate   = "startDate"
	ParamEndDate     = "endDate"
	ParamTargetFMin  = "targetFMin"
	ParamTargetFMax  = "targetFMax"
	ParamLimit       = "limit"
)

// Mode reports which selector group of f is in effect.
type Mode int

const (
	ModeCombined Mode = iota
	ModeBatchIDs
	ModeLotNumbers
)

func (m Mode) String() string {
	switch m {
	case ModeBatchIDs:
		return "batch ids"
	case ModeLotNumbers:
		return "lot numbers"
	default:
		return "combined"
	}
}

// ModeOf returns the selector group EncodeFilter will use for f.
func ModeOf(f model.Filter) Mode {
	switch {
	case len(f.BatchIDs) > 0:
		return ModeBatchIDs
	case len(f.LotNumbers) > 0:
		return ModeLotNumbers
	default:
		return ModeCombined
	}
}

// EncodeFilter encodes f for GET /batches. List selectors use a repeated key.
func EncodeFilter(f model.Filter) url.Values {
	v := url.Values{}

	switch ModeOf(f) {
	case ModeBatchIDs:
		appendAll(v, ParamBatchIDs, f.BatchIDs)
	case ModeLotNumbers:
		appendAll(v, ParamLotNumbers, f.LotNumbers)
	default:
		appendAll(v, ParamDeviceIDs, f.DeviceIDs)
		appendAll(v, ParamOperatorIDs, f.OperatorIDs)
		if f.StartDate != "" {
			v.Add(ParamStartDate, f.StartDate)
		}
		if f.EndDate != "" {
			v.Add(ParamEndDate, f.EndDate)
		}
		// Zero is a valid bound and must be sent.
		if f.TargetFMin != nil {
			v.Add(ParamTargetFMin, FormatNumber(*f.TargetFMin))
		}
		if f.TargetFMax != nil {
			v.Add(ParamTargetFMax, FormatNumber(*f.TargetFMax))
		}
	}

	if f.Limit > 0 {
		v.Add(ParamLimit, strconv.Itoa(f.Limit))
	}
	return v
}

// EncodeBatchIDs encodes the id list of GET /batches/rounds.
func EncodeBatchIDs(ids []string) url.Values {
	v := url.Values{}
	appendAll(v, ParamBatchIDs, ids)
	return v
}

// FormatNumber renders f the way a browser stringifies a number: shortest
// round-trip digits, no trailing zeros, and exponent form below 1e-6 or from
// 1e21 up (1e-7, 1.5e+21).
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func appendAll(v url.Values, key string, vals []string) {
	for _, s := range vals {
		v.Add(key, s)
	}
}
