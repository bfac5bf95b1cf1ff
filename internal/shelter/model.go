package shelter

import (
	"strings"
	"time"

	"github.com/ddpm-gov/relief/internal/person"
	"github.com/ddpm-gov/relief/internal/shared/types"
)

// RiskLevel classifies the hazard level of a shelter site
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Valid reports whether the risk level is one of the known values
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// Level returns the numeric ordering of the risk level, LOW < MEDIUM < HIGH
func (l RiskLevel) Level() int {
	switch l {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// Shelter represents a capacity-bounded facility. MaxCapacity and RiskLevel
// are immutable after registration; CurrentOccupancy is mutated only through
// the repository's IncrementOccupancy operation.
type Shelter struct {
	ID               types.ID  `json:"id"`
	Name             string    `json:"name"`
	MaxCapacity      int       `json:"max_capacity"`
	CurrentOccupancy int       `json:"current_occupancy"`
	RiskLevel        RiskLevel `json:"risk_level"`
	RegisteredAt     time.Time `json:"registered_at"`
}

// IsFull reports whether the shelter has no available space
func IsFull(s Shelter) bool {
	return s.CurrentOccupancy >= s.MaxCapacity
}

// AvailableSpace returns the number of unoccupied places
func AvailableSpace(s Shelter) int {
	return s.MaxCapacity - s.CurrentOccupancy
}

// OccupancyPercentage returns occupancy as a percentage of capacity
func OccupancyPercentage(s Shelter) float64 {
	if s.MaxCapacity == 0 {
		return 0
	}
	return float64(s.CurrentOccupancy) * 100 / float64(s.MaxCapacity)
}

// CanAccommodate reports whether the shelter may take the person: full
// shelters take nobody, and health-risk persons may only enter LOW-risk
// shelters.
func CanAccommodate(s Shelter, p person.Person) bool {
	if IsFull(s) {
		return false
	}
	if person.HasHealthRisk(p) && s.RiskLevel != RiskLow {
		return false
	}
	return true
}

// RegisterRequest is the request to register a shelter
type RegisterRequest struct {
	Name        string    `json:"name"`
	MaxCapacity int       `json:"max_capacity"`
	RiskLevel   RiskLevel `json:"risk_level"`
}

// Validate checks the request before any state is touched
func (r RegisterRequest) Validate() map[string]string {
	details := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		details["name"] = "name is required"
	}
	if r.MaxCapacity <= 0 {
		details["max_capacity"] = "max capacity must be positive"
	}
	if r.RiskLevel != "" && !r.RiskLevel.Valid() {
		details["risk_level"] = "unknown risk level"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
