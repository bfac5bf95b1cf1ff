package person

import (
	"context"
	"strings"

	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository provides database operations for persons
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new person repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create stores a new person record
func (r *PostgresRepository) Create(ctx context.Context, p *Person) error {
	query := `
		INSERT INTO persons (id, name, age, health_condition, category, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Age, p.HealthCondition, p.Category, p.RegisteredAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.DuplicateName(p.Name)
		}
		return errors.Wrap(err, "failed to create person")
	}

	return nil
}

// GetByID retrieves a person by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id types.ID) (*Person, error) {
	query := `
		SELECT id, name, age, health_condition, category, registered_at
		FROM persons
		WHERE id = $1`

	p := &Person{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Age, &p.HealthCondition, &p.Category, &p.RegisteredAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("person", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get person")
	}

	return p, nil
}

// List returns all persons in registration order
func (r *PostgresRepository) List(ctx context.Context) ([]Person, error) {
	query := `
		SELECT id, name, age, health_condition, category, registered_at
		FROM persons
		ORDER BY registered_at, id`

	return r.queryPersons(ctx, query)
}

// ListByCategory returns persons of one category in registration order
func (r *PostgresRepository) ListByCategory(ctx context.Context, category Category) ([]Person, error) {
	query := `
		SELECT id, name, age, health_condition, category, registered_at
		FROM persons
		WHERE category = $1
		ORDER BY registered_at, id`

	return r.queryPersons(ctx, query, category)
}

func (r *PostgresRepository) queryPersons(ctx context.Context, query string, args ...any) ([]Person, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list persons")
	}
	defer rows.Close()

	var persons []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Age, &p.HealthCondition, &p.Category, &p.RegisteredAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan person")
		}
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate persons")
	}

	return persons, nil
}
