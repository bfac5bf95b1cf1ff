package shelter

import (
	"context"
	"sort"
	"sync"

	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/types"
)

// MemoryRepository is an in-memory shelter store used in limited mode and in
// tests. All methods are safe for concurrent use.
type MemoryRepository struct {
	mu       sync.RWMutex
	shelters map[types.ID]Shelter
	order    []types.ID
}

// NewMemoryRepository creates an empty in-memory shelter repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{shelters: make(map[types.ID]Shelter)}
}

// Create stores a new shelter record
func (r *MemoryRepository) Create(ctx context.Context, s *Shelter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.shelters[s.ID] = *s
	r.order = append(r.order, s.ID)
	return nil
}

// GetByID retrieves a shelter by ID
func (r *MemoryRepository) GetByID(ctx context.Context, id types.ID) (*Shelter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shelters[id]
	if !ok {
		return nil, errors.NotFound("shelter", id.String())
	}
	return &s, nil
}

// List returns shelters in registration order, optionally filtered
func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]Shelter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var shelters []Shelter
	for _, id := range r.order {
		s, ok := r.shelters[id]
		if !ok {
			continue
		}
		if filter.RiskLevel != nil && s.RiskLevel != *filter.RiskLevel {
			continue
		}
		if filter.AvailableOnly && IsFull(s) {
			continue
		}
		shelters = append(shelters, s)
	}

	sort.SliceStable(shelters, func(i, j int) bool {
		if !shelters[i].RegisteredAt.Equal(shelters[j].RegisteredAt) {
			return shelters[i].RegisteredAt.Before(shelters[j].RegisteredAt)
		}
		return shelters[i].ID < shelters[j].ID
	})

	return shelters, nil
}

// IncrementOccupancy adds one occupant under the write lock
func (r *MemoryRepository) IncrementOccupancy(ctx context.Context, id types.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shelters[id]
	if !ok {
		return errors.NotFound("shelter", id.String())
	}
	if IsFull(s) {
		return errors.ShelterFull(id.String())
	}

	s.CurrentOccupancy++
	r.shelters[id] = s
	return nil
}
