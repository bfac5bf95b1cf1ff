package person

import (
	"context"

	"github.com/ddpm-gov/relief/internal/shared/types"
)

// Repository defines persistence for person records. Records are write-once;
// no update or delete operation is exposed.
type Repository interface {
	// Create stores a new person. It fails with a DuplicateName error when a
	// person with the same name is already registered.
	Create(ctx context.Context, p *Person) error

	// GetByID retrieves a person, failing with NotFound when absent.
	GetByID(ctx context.Context, id types.ID) (*Person, error)

	// List returns all persons ordered by registration time, then ID.
	List(ctx context.Context) ([]Person, error)

	// ListByCategory returns persons of one category in registration order.
	ListByCategory(ctx context.Context, category Category) ([]Person, error)
}
