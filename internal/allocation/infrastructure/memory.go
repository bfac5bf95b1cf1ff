package infrastructure

import (
	"context"
	"sync"

	"github.com/ddpm-gov/relief/internal/allocation/domain"
	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/ddpm-gov/relief/internal/shelter"
)

// MemoryRepository is the in-memory assignment ledger used in limited mode
// and in tests. It holds the shelter store so an accepted assignment and its
// occupancy increment commit under the same lock.
type MemoryRepository struct {
	mu          sync.RWMutex
	assignments map[types.ID]domain.Assignment
	byPerson    map[types.ID]types.ID
	byShelter   map[types.ID][]types.ID
	order       []types.ID

	shelters *shelter.MemoryRepository
}

// NewMemoryRepository creates an empty in-memory assignment repository
func NewMemoryRepository(shelters *shelter.MemoryRepository) *MemoryRepository {
	return &MemoryRepository{
		assignments: make(map[types.ID]domain.Assignment),
		byPerson:    make(map[types.ID]types.ID),
		byShelter:   make(map[types.ID][]types.ID),
		shelters:    shelters,
	}
}

// Create records the assignment and increments shelter occupancy. The
// person check, the increment and the insert run under the write lock, so a
// losing racer observes AlreadyAssigned or ShelterFull, never partial state.
func (r *MemoryRepository) Create(ctx context.Context, a *domain.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPerson[a.PersonID]; exists {
		return errors.AlreadyAssigned(a.PersonID.String())
	}

	// IncrementOccupancy is the only occupancy mutation path; it rejects a
	// full shelter before anything below is touched.
	if err := r.shelters.IncrementOccupancy(ctx, a.ShelterID); err != nil {
		return err
	}

	r.assignments[a.ID] = *a
	r.byPerson[a.PersonID] = a.ID
	r.byShelter[a.ShelterID] = append(r.byShelter[a.ShelterID], a.ID)
	r.order = append(r.order, a.ID)
	return nil
}

// GetByPerson returns the person's assignment
func (r *MemoryRepository) GetByPerson(ctx context.Context, personID types.ID) (*domain.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPerson[personID]
	if !ok {
		return nil, errors.NotFound("assignment", personID.String())
	}
	a := r.assignments[id]
	return &a, nil
}

// List returns all assignments in creation order
func (r *MemoryRepository) List(ctx context.Context) ([]domain.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assignments := make([]domain.Assignment, 0, len(r.order))
	for _, id := range r.order {
		assignments = append(assignments, r.assignments[id])
	}
	return assignments, nil
}

// ListByShelter returns a shelter's assignments in creation order
func (r *MemoryRepository) ListByShelter(ctx context.Context, shelterID types.ID) ([]domain.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byShelter[shelterID]
	assignments := make([]domain.Assignment, 0, len(ids))
	for _, id := range ids {
		assignments = append(assignments, r.assignments[id])
	}
	return assignments, nil
}

// IsAssigned reports whether the person holds an assignment
func (r *MemoryRepository) IsAssigned(ctx context.Context, personID types.ID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byPerson[personID]
	return ok, nil
}

// AssignedPersonIDs returns the set of assigned persons
func (r *MemoryRepository) AssignedPersonIDs(ctx context.Context) (map[types.ID]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assigned := make(map[types.ID]bool, len(r.byPerson))
	for personID := range r.byPerson {
		assigned[personID] = true
	}
	return assigned, nil
}
