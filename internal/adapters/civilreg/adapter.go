// Package civilreg imports evacuee records from a legacy civil-registry
// SQL Server database into the person registry. The import is a one-shot
// pull at startup; duplicates are skipped so repeated runs are idempotent.
package civilreg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver

	"github.com/ddpm-gov/relief/internal/person"
	"github.com/ddpm-gov/relief/internal/shared/config"
	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/metrics"
	"github.com/ddpm-gov/relief/internal/shared/types"
)

// Adapter pulls evacuee rows from the civil registry
type Adapter struct {
	db     *sql.DB
	config config.CivilRegistryConfig
	repo   person.Repository
}

// Result summarizes one import run
type Result struct {
	Imported int
	Skipped  int
	Failed   int
}

// New creates a civil-registry adapter over the person repository
func New(cfg config.CivilRegistryConfig, repo person.Repository) *Adapter {
	return &Adapter{config: cfg, repo: repo}
}

// Connect opens the SQL Server connection
func (a *Adapter) Connect(ctx context.Context) error {
	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		a.config.Host,
		a.config.Port,
		a.config.Database,
		a.config.User,
		a.config.Password,
	)

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("failed to open civil registry connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping civil registry: %w", err)
	}

	a.db = db
	return nil
}

// Close closes the connection
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Import reads evacuee rows and registers each through the person registry.
// Rows that fail validation or duplicate an existing name are counted and
// skipped, never aborting the run.
func (a *Adapter) Import(ctx context.Context) (*Result, error) {
	if a.db == nil {
		return nil, fmt.Errorf("civil registry not connected")
	}

	query := fmt.Sprintf(
		`SELECT NationalID, FullName, Age, HealthCondition, Category FROM %s`,
		a.config.Table,
	)

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query evacuees: %w", err)
	}
	defer rows.Close()

	result := &Result{}
	for rows.Next() {
		var (
			nationalID, fullName string
			age                  int
			healthCondition      sql.NullString
			category             sql.NullString
		)
		if err := rows.Scan(&nationalID, &fullName, &age, &healthCondition, &category); err != nil {
			result.Failed++
			metrics.RecordCivilRegistryImport("failed")
			continue
		}

		p := buildPerson(nationalID, fullName, age, healthCondition.String, category.String)

		if details := (person.RegisterRequest{
			Name:            p.Name,
			Age:             p.Age,
			HealthCondition: p.HealthCondition,
			Category:        p.Category,
		}).Validate(); details != nil {
			result.Failed++
			metrics.RecordCivilRegistryImport("failed")
			continue
		}

		if err := a.repo.Create(ctx, p); err != nil {
			if errors.Is(err, errors.ErrDuplicateName) {
				result.Skipped++
				metrics.RecordCivilRegistryImport("skipped")
				continue
			}
			result.Failed++
			metrics.RecordCivilRegistryImport("failed")
			continue
		}

		result.Imported++
		metrics.RecordCivilRegistryImport("imported")
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("failed to iterate evacuees: %w", err)
	}

	return result, nil
}

// buildPerson maps a registry row onto a person record. The ID derives from
// the national ID so re-imports produce the same identity.
func buildPerson(nationalID, fullName string, age int, healthCondition, category string) *person.Person {
	cat := person.Category(strings.ToUpper(strings.TrimSpace(category)))
	if !cat.Valid() {
		cat = person.CategoryGeneral
	}

	return &person.Person{
		ID:              types.NewDeterministicID("civilreg", nationalID),
		Name:            strings.TrimSpace(fullName),
		Age:             age,
		HealthCondition: strings.TrimSpace(healthCondition),
		Category:        cat,
		RegisteredAt:    time.Now().UTC(),
	}
}
