package infrastructure

import (
	"context"
	"strings"

	"github.com/ddpm-gov/relief/internal/allocation/domain"
	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository persists the assignment ledger
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new assignment repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create records the assignment and increments shelter occupancy in one
// transaction. The conditional UPDATE carries the capacity guard and the
// unique index on person_id carries the one-assignment-per-person guard, so
// the invariants hold even against writers outside this process.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Assignment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin assignment transaction")
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `
		UPDATE shelters
		SET current_occupancy = current_occupancy + 1
		WHERE id = $1 AND current_occupancy < max_capacity`,
		a.ShelterID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to increment occupancy")
	}
	if result.RowsAffected() == 0 {
		return errors.ShelterFull(a.ShelterID.String())
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO assignments (id, person_id, shelter_id, assigned_at, notes)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.PersonID, a.ShelterID, a.AssignedAt, a.Notes,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.AlreadyAssigned(a.PersonID.String())
		}
		return errors.Wrap(err, "failed to create assignment")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit assignment")
	}

	return nil
}

// GetByPerson returns the person's assignment
func (r *PostgresRepository) GetByPerson(ctx context.Context, personID types.ID) (*domain.Assignment, error) {
	query := `
		SELECT id, person_id, shelter_id, assigned_at, notes
		FROM assignments
		WHERE person_id = $1`

	a := &domain.Assignment{}
	err := r.pool.QueryRow(ctx, query, personID).Scan(
		&a.ID, &a.PersonID, &a.ShelterID, &a.AssignedAt, &a.Notes,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("assignment", personID.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get assignment")
	}

	return a, nil
}

// List returns all assignments in creation order
func (r *PostgresRepository) List(ctx context.Context) ([]domain.Assignment, error) {
	query := `
		SELECT id, person_id, shelter_id, assigned_at, notes
		FROM assignments
		ORDER BY assigned_at, id`

	return r.queryAssignments(ctx, query)
}

// ListByShelter returns a shelter's assignments in creation order
func (r *PostgresRepository) ListByShelter(ctx context.Context, shelterID types.ID) ([]domain.Assignment, error) {
	query := `
		SELECT id, person_id, shelter_id, assigned_at, notes
		FROM assignments
		WHERE shelter_id = $1
		ORDER BY assigned_at, id`

	return r.queryAssignments(ctx, query, shelterID)
}

// IsAssigned reports whether the person holds an assignment
func (r *PostgresRepository) IsAssigned(ctx context.Context, personID types.ID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM assignments WHERE person_id = $1)`, personID,
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check assignment")
	}
	return exists, nil
}

// AssignedPersonIDs returns the set of assigned persons
func (r *PostgresRepository) AssignedPersonIDs(ctx context.Context) (map[types.ID]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT person_id FROM assignments`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assigned persons")
	}
	defer rows.Close()

	assigned := make(map[types.ID]bool)
	for rows.Next() {
		var id types.ID
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan person id")
		}
		assigned[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate assigned persons")
	}

	return assigned, nil
}

func (r *PostgresRepository) queryAssignments(ctx context.Context, query string, args ...any) ([]domain.Assignment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assignments")
	}
	defer rows.Close()

	var assignments []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.ID, &a.PersonID, &a.ShelterID, &a.AssignedAt, &a.Notes); err != nil {
			return nil, errors.Wrap(err, "failed to scan assignment")
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate assignments")
	}

	return assignments, nil
}
