package report

import (
	"context"

	"github.com/ddpm-gov/relief/internal/allocation/domain"
	"github.com/ddpm-gov/relief/internal/person"
	"github.com/ddpm-gov/relief/internal/shelter"
)

// ShelterLine is one shelter's row in the occupancy report
type ShelterLine struct {
	Name                string            `json:"name"`
	RiskLevel           shelter.RiskLevel `json:"risk_level"`
	CurrentOccupancy    int               `json:"current_occupancy"`
	MaxCapacity         int               `json:"max_capacity"`
	OccupancyPercentage float64           `json:"occupancy_percentage"`
	Full                bool              `json:"full"`
}

// Snapshot is the current occupancy and registration picture
type Snapshot struct {
	Shelters          []ShelterLine  `json:"shelters"`
	TotalCapacity     int            `json:"total_capacity"`
	TotalOccupancy    int            `json:"total_occupancy"`
	PersonsByCategory map[string]int `json:"persons_by_category"`
	TotalPersons      int            `json:"total_persons"`
	TotalAssigned     int            `json:"total_assigned"`
	TotalUnassigned   int            `json:"total_unassigned"`
}

// Service builds read-only occupancy reports over the three stores
type Service struct {
	persons     person.Repository
	shelters    shelter.Repository
	assignments domain.Repository
}

// NewService creates a report service
func NewService(persons person.Repository, shelters shelter.Repository, assignments domain.Repository) *Service {
	return &Service{persons: persons, shelters: shelters, assignments: assignments}
}

// Build assembles the current snapshot
func (s *Service) Build(ctx context.Context) (*Snapshot, error) {
	shelters, err := s.shelters.List(ctx, shelter.ListFilter{})
	if err != nil {
		return nil, err
	}

	people, err := s.persons.List(ctx)
	if err != nil {
		return nil, err
	}

	assigned, err := s.assignments.AssignedPersonIDs(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Shelters:          make([]ShelterLine, 0, len(shelters)),
		PersonsByCategory: make(map[string]int),
	}

	for _, sh := range shelters {
		snapshot.Shelters = append(snapshot.Shelters, ShelterLine{
			Name:                sh.Name,
			RiskLevel:           sh.RiskLevel,
			CurrentOccupancy:    sh.CurrentOccupancy,
			MaxCapacity:         sh.MaxCapacity,
			OccupancyPercentage: shelter.OccupancyPercentage(sh),
			Full:                shelter.IsFull(sh),
		})
		snapshot.TotalCapacity += sh.MaxCapacity
		snapshot.TotalOccupancy += sh.CurrentOccupancy
	}

	for _, p := range people {
		snapshot.PersonsByCategory[string(p.Category)]++
	}
	snapshot.TotalPersons = len(people)
	snapshot.TotalAssigned = len(assigned)
	snapshot.TotalUnassigned = snapshot.TotalPersons - snapshot.TotalAssigned

	return snapshot, nil
}
