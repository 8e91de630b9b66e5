package models

import "time"

// SizingInput is the last submitted sizing form of a project.
type SizingInput struct {
	ProjectID    int64
	BillingMode  string
	PanelID      int64
	IrradianceID int64
	Efficiency   float64
	Consumption  []float64
	SubmittedBy  int64
	UpdatedAt    time.Time
}

// PeriodGeneration is the estimated generation of one billing period.
type PeriodGeneration struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Month int     `json:"month"`
	KWh   float64 `json:"kwh"`
}

// SizingResult is the stored outcome of the latest calculation for a project.
type SizingResult struct {
	ProjectID          int64
	AverageConsumption float64
	ReferenceYield     float64
	PanelCount         int
	CapacityKW         float64
	Periods            []PeriodGeneration
	AnnualGeneration   float64
	CalculatedAt       time.Time
}

// Sizing pairs a stored input with its result.
type Sizing struct {
	Input  SizingInput
	Result SizingResult
}
