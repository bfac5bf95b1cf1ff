package person

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/types"
)

// MemoryRepository is an in-memory person store used in limited mode (no
// database available) and in tests. All methods are safe for concurrent use.
type MemoryRepository struct {
	mu      sync.RWMutex
	persons map[types.ID]Person
	byName  map[string]types.ID
	order   []types.ID
}

// NewMemoryRepository creates an empty in-memory person repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		persons: make(map[types.ID]Person),
		byName:  make(map[string]types.ID),
	}
}

// Create stores a new person record
func (r *MemoryRepository) Create(ctx context.Context, p *Person) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(p.Name))
	if _, exists := r.byName[key]; exists {
		return errors.DuplicateName(p.Name)
	}

	r.persons[p.ID] = *p
	r.byName[key] = p.ID
	r.order = append(r.order, p.ID)
	return nil
}

// GetByID retrieves a person by ID
func (r *MemoryRepository) GetByID(ctx context.Context, id types.ID) (*Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.persons[id]
	if !ok {
		return nil, errors.NotFound("person", id.String())
	}
	return &p, nil
}

// List returns all persons in registration order
func (r *MemoryRepository) List(ctx context.Context) ([]Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(func(Person) bool { return true }), nil
}

// ListByCategory returns persons of one category in registration order
func (r *MemoryRepository) ListByCategory(ctx context.Context, category Category) ([]Person, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(func(p Person) bool { return p.Category == category }), nil
}

// snapshot copies matching persons under the read lock, in registration
// order with ID as the final tie-break so listings stay deterministic.
func (r *MemoryRepository) snapshot(match func(Person) bool) []Person {
	var persons []Person
	for _, id := range r.order {
		if p, ok := r.persons[id]; ok && match(p) {
			persons = append(persons, p)
		}
	}
	sort.SliceStable(persons, func(i, j int) bool {
		if !persons[i].RegisteredAt.Equal(persons[j].RegisteredAt) {
			return persons[i].RegisteredAt.Before(persons[j].RegisteredAt)
		}
		return persons[i].ID < persons[j].ID
	})
	return persons
}
