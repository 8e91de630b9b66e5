package sizing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/BradenHooton/swgfv/internal/models"
)

// Oversize is the safety margin applied to average consumption.
var Oversize = decimal.RequireFromString("1.10")

var allowedEfficiencies = []decimal.Decimal{
	decimal.RequireFromString("0.7"),
	decimal.RequireFromString("0.8"),
}

const resultPlaces = 3

// Irradiance is the peak-sun-hours profile of a location.
type Irradiance struct {
	Average float64
	Monthly [12]float64
}

// Input is everything needed to size one system.
type Input struct {
	Mode        BillingMode
	Consumption []float64
	PanelPowerW float64
	Irradiance  Irradiance
	Efficiency  float64
}

// Result is the sized system and its per-period generation.
type Result struct {
	AverageConsumption float64
	ReferenceYield     float64
	PanelCount         int
	CapacityKW         float64
	Periods            []models.PeriodGeneration
	AnnualGeneration   float64
}

// ValidateEfficiency accepts only the two supported system efficiency factors.
func ValidateEfficiency(e float64) error {
	d := decimal.NewFromFloat(e)
	for _, allowed := range allowedEfficiencies {
		if d.Equal(allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %v (allowed 0.7 or 0.8)", models.ErrInvalidEfficiency, e)
}

// Calculate sizes the array. Consumption must be ordered as Periods(in.Mode).
// The result is a pure function of the input.
func Calculate(in Input) (Result, error) {
	periods := Periods(in.Mode)
	if periods == nil {
		return Result{}, fmt.Errorf("%w: %q", models.ErrInvalidBillingMode, in.Mode)
	}
	if err := ValidateEfficiency(in.Efficiency); err != nil {
		return Result{}, err
	}
	if len(in.Consumption) != len(periods) {
		return Result{}, models.NewValidationError("consumption",
			fmt.Sprintf("expected %d values for %s billing, got %d", len(periods), in.Mode, len(in.Consumption)), nil)
	}
	if in.PanelPowerW <= 0 {
		return Result{}, models.NewValidationError("panel", "panel rated power must be positive", nil)
	}

	days := decimal.NewFromInt(int64(periods[0].Days))
	efficiency := decimal.NewFromFloat(in.Efficiency)
	panelKW := decimal.NewFromFloat(in.PanelPowerW).Div(decimal.NewFromInt(1000))

	total := decimal.Zero
	for i, v := range in.Consumption {
		if v < 0 {
			return Result{}, models.NewValidationError("consumption."+periods[i].Key, "consumption cannot be negative", nil)
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	average := total.Div(decimal.NewFromInt(int64(len(periods))))

	yield := panelKW.
		Mul(decimal.NewFromFloat(in.Irradiance.Average)).
		Mul(efficiency).
		Mul(days)

	panels := int64(0)
	if yield.GreaterThan(decimal.Zero) {
		panels = average.Mul(Oversize).DivRound(yield, 16).Ceil().IntPart()
	}
	capacity := panelKW.Mul(decimal.NewFromInt(panels))

	generation := make([]models.PeriodGeneration, len(periods))
	annual := decimal.Zero
	for i, p := range periods {
		kwh := capacity.
			Mul(decimal.NewFromFloat(in.Irradiance.Monthly[p.Month-1])).
			Mul(efficiency).
			Mul(decimal.NewFromInt(int64(p.Days))).
			Round(resultPlaces)
		annual = annual.Add(kwh)
		generation[i] = models.PeriodGeneration{
			Key:   p.Key,
			Label: p.Label,
			Month: p.Month,
			KWh:   kwh.InexactFloat64(),
		}
	}

	return Result{
		AverageConsumption: average.Round(resultPlaces).InexactFloat64(),
		ReferenceYield:     yield.Round(resultPlaces).InexactFloat64(),
		PanelCount:         int(panels),
		CapacityKW:         capacity.Round(resultPlaces).InexactFloat64(),
		Periods:            generation,
		AnnualGeneration:   annual.Round(resultPlaces).InexactFloat64(),
	}, nil
}
