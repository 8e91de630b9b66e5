package models

import "time"

type SolarPanel struct {
	ID        int64
	ModuleID  int64
	Brand     string
	Model     string
	PowerW    float64
	Voc       *float64
	Isc       *float64
	Vmp       *float64
	Imp       *float64
	UpdatedAt time.Time
}

type Inverter struct {
	ID            int64
	Brand         string
	Model         string
	PowerW        float64
	OutputVoltage string
	UpdatedAt     time.Time
}

type MicroInverter struct {
	ID        int64
	Brand     string
	Model     string
	PowerW    float64
	Channels  int
	UpdatedAt time.Time
}

// Irradiance holds peak-sun-hours per day for a location. Monthly is indexed
// January through December.
type Irradiance struct {
	ID        int64
	City      string
	State     string
	Region    string
	Tariff    string
	Average   float64
	Monthly   [12]float64
	UpdatedAt time.Time
}

// UpsertOutcome tells whether an upsert inserted a new row.
type UpsertOutcome struct {
	ID      int64
	Created bool
}
