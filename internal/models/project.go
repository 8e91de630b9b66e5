package models

import "time"

type Project struct {
	ID             int64
	OwnerID        int64
	OwnerEmail     string
	Name           string
	Company        string
	Address        string
	Coordinates    string
	NominalVoltage string
	Phases         int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ProjectSearch struct {
	ID      *int64
	OwnerID *int64
	Name    string
	Company string
	Limit   int
	Offset  int
}
