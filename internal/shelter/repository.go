package shelter

import (
	"context"

	"github.com/ddpm-gov/relief/internal/shared/types"
)

// ListFilter narrows shelter listings
type ListFilter struct {
	// RiskLevel restricts results to one risk level when set
	RiskLevel *RiskLevel
	// AvailableOnly drops shelters that are at capacity
	AvailableOnly bool
}

// Repository defines persistence for shelters. Occupancy mutates only through
// IncrementOccupancy so the 0..max_capacity invariant holds in one place.
type Repository interface {
	// Create stores a new shelter.
	Create(ctx context.Context, s *Shelter) error

	// GetByID retrieves a shelter, failing with NotFound when absent.
	GetByID(ctx context.Context, id types.ID) (*Shelter, error)

	// List returns shelters ordered by registration time, then ID. The
	// ordering is load-bearing: automatic assignment breaks available-space
	// ties by first-seen position in this listing.
	List(ctx context.Context, filter ListFilter) ([]Shelter, error)

	// IncrementOccupancy adds one occupant, failing with ShelterFull when the
	// shelter is at capacity. The check and the increment are atomic.
	IncrementOccupancy(ctx context.Context, id types.ID) error
}
