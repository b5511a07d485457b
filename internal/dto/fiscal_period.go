package dto

import "time"

// OpenPeriodRequest defines a new fiscal period. EndDate is inclusive.
type OpenPeriodRequest struct {
	Name      string    `json:"name" validate:"required,max=100"`
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
}
