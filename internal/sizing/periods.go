// Package sizing estimates how many solar modules cover a client's electricity
// consumption and how much the resulting array generates per billing period.
package sizing

import (
	"fmt"
	"strings"

	"github.com/BradenHooton/swgfv/internal/models"
)

// BillingMode is how often the utility bills: monthly or bimonthly.
type BillingMode string

const (
	Monthly   BillingMode = "monthly"
	Bimonthly BillingMode = "bimonthly"
)

// Period is one billing bucket. Month is the calendar month (1-12) whose
// irradiance represents the bucket.
type Period struct {
	Key   string
	Label string
	Month int
	Days  int
}

var monthlyPeriods = []Period{
	{"m01", "January", 1, 30},
	{"m02", "February", 2, 30},
	{"m03", "March", 3, 30},
	{"m04", "April", 4, 30},
	{"m05", "May", 5, 30},
	{"m06", "June", 6, 30},
	{"m07", "July", 7, 30},
	{"m08", "August", 8, 30},
	{"m09", "September", 9, 30},
	{"m10", "October", 10, 30},
	{"m11", "November", 11, 30},
	{"m12", "December", 12, 30},
}

// Bimonthly bucket n is represented by the irradiance of calendar month 2n.
var bimonthlyPeriods = []Period{
	{"b1", "January-February", 2, 60},
	{"b2", "March-April", 4, 60},
	{"b3", "May-June", 6, 60},
	{"b4", "July-August", 8, 60},
	{"b5", "September-October", 10, 60},
	{"b6", "November-December", 12, 60},
}

// ParseBillingMode accepts a billing mode in any case.
func ParseBillingMode(s string) (BillingMode, error) {
	switch BillingMode(strings.ToLower(strings.TrimSpace(s))) {
	case Monthly:
		return Monthly, nil
	case Bimonthly:
		return Bimonthly, nil
	}
	return "", fmt.Errorf("%w: %q", models.ErrInvalidBillingMode, s)
}

// Periods returns the ordered billing buckets of mode, or nil for an unknown mode.
func Periods(mode BillingMode) []Period {
	var src []Period
	switch mode {
	case Monthly:
		src = monthlyPeriods
	case Bimonthly:
		src = bimonthlyPeriods
	default:
		return nil
	}
	out := make([]Period, len(src))
	copy(out, src)
	return out
}

// OrderConsumption turns a keyed consumption form into the bucket-ordered slice
// used by Calculate. Every bucket must be present and non-negative, and no
// foreign keys are accepted.
func OrderConsumption(mode BillingMode, values map[string]float64) ([]float64, error) {
	periods := Periods(mode)
	if periods == nil {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidBillingMode, mode)
	}

	known := make(map[string]struct{}, len(periods))
	for _, p := range periods {
		known[p.Key] = struct{}{}
	}
	for key := range values {
		if _, ok := known[key]; !ok {
			return nil, models.NewValidationError("consumption."+key, "unknown billing period for mode "+string(mode), nil)
		}
	}

	ordered := make([]float64, len(periods))
	for i, p := range periods {
		v, ok := values[p.Key]
		if !ok {
			return nil, models.NewValidationError("consumption."+p.Key, "consumption is required", nil)
		}
		if v < 0 {
			return nil, models.NewValidationError("consumption."+p.Key, "consumption cannot be negative", nil)
		}
		ordered[i] = v
	}
	return ordered, nil
}
