package shelter

import (
	"context"
	"fmt"
	"strings"

	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository provides database operations for shelters
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new shelter repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create stores a new shelter record
func (r *PostgresRepository) Create(ctx context.Context, s *Shelter) error {
	query := `
		INSERT INTO shelters (id, name, max_capacity, current_occupancy, risk_level, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.Name, s.MaxCapacity, s.CurrentOccupancy, s.RiskLevel, s.RegisteredAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create shelter")
	}

	return nil
}

// GetByID retrieves a shelter by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id types.ID) (*Shelter, error) {
	query := `
		SELECT id, name, max_capacity, current_occupancy, risk_level, registered_at
		FROM shelters
		WHERE id = $1`

	s := &Shelter{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.MaxCapacity, &s.CurrentOccupancy, &s.RiskLevel, &s.RegisteredAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("shelter", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get shelter")
	}

	return s, nil
}

// List returns shelters in registration order, optionally filtered
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Shelter, error) {
	var conditions []string
	var args []any
	argNum := 1

	if filter.RiskLevel != nil {
		conditions = append(conditions, fmt.Sprintf("risk_level = $%d", argNum))
		args = append(args, *filter.RiskLevel)
		argNum++
	}
	if filter.AvailableOnly {
		conditions = append(conditions, "current_occupancy < max_capacity")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, name, max_capacity, current_occupancy, risk_level, registered_at
		FROM shelters
		%s
		ORDER BY registered_at, id`, whereClause)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list shelters")
	}
	defer rows.Close()

	var shelters []Shelter
	for rows.Next() {
		var s Shelter
		if err := rows.Scan(&s.ID, &s.Name, &s.MaxCapacity, &s.CurrentOccupancy, &s.RiskLevel, &s.RegisteredAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan shelter")
		}
		shelters = append(shelters, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate shelters")
	}

	return shelters, nil
}

// IncrementOccupancy adds one occupant. The capacity guard sits in the WHERE
// clause so the check and the increment commit as one statement.
func (r *PostgresRepository) IncrementOccupancy(ctx context.Context, id types.ID) error {
	query := `
		UPDATE shelters
		SET current_occupancy = current_occupancy + 1
		WHERE id = $1 AND current_occupancy < max_capacity`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "failed to increment occupancy")
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing shelter from a full one
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return errors.ShelterFull(id.String())
	}

	return nil
}
