package domain

import (
	"context"

	"github.com/ddpm-gov/relief/internal/shared/types"
)

// Repository is the append-only assignment ledger. It indexes records by
// person (for the already-assigned predicate) and by shelter (for per-shelter
// queries). No update or delete operation is exposed.
type Repository interface {
	// Create records the assignment and increments the target shelter's
	// occupancy as one atomic unit: either both effects commit or neither
	// does. It fails with AlreadyAssigned when the person already holds an
	// assignment and with ShelterFull when the shelter has no space left.
	Create(ctx context.Context, a *Assignment) error

	// GetByPerson returns the person's assignment, failing with NotFound
	// when none exists.
	GetByPerson(ctx context.Context, personID types.ID) (*Assignment, error)

	// List returns all assignments in creation order.
	List(ctx context.Context) ([]Assignment, error)

	// ListByShelter returns the assignments for one shelter in creation order.
	ListByShelter(ctx context.Context, shelterID types.ID) ([]Assignment, error)

	// IsAssigned reports whether the person already holds an assignment.
	IsAssigned(ctx context.Context, personID types.ID) (bool, error)

	// AssignedPersonIDs returns the set of persons holding an assignment.
	AssignedPersonIDs(ctx context.Context) (map[types.ID]bool, error)
}
