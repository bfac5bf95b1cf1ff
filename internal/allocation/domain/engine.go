package domain

import (
	"context"
	"sync"
	"time"

	"github.com/ddpm-gov/relief/internal/person"
	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/events"
	"github.com/ddpm-gov/relief/internal/shared/metrics"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/ddpm-gov/relief/internal/shelter"
)

// Assignment modes, used for metrics and event payloads
const (
	ModeManual = "manual"
	ModeAuto   = "auto"
)

// Engine coordinates the person registry, the shelter ledger and the
// assignment ledger. It owns no state of its own beyond the write lock: all
// assignment writes pass through one critical section, so two racing calls
// can never both observe a free place or both assign the same person.
type Engine struct {
	mu sync.Mutex

	persons     person.Repository
	shelters    shelter.Repository
	assignments Repository
	bus         *events.Bus

	now func() time.Time
}

// NewEngine creates an allocation engine over the three stores. bus may be
// nil when event streaming is unavailable.
func NewEngine(persons person.Repository, shelters shelter.Repository, assignments Repository, bus *events.Bus) *Engine {
	return &Engine{
		persons:     persons,
		shelters:    shelters,
		assignments: assignments,
		bus:         bus,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Assign places a person into the named shelter. Checks run in a fixed
// order: unknown person or shelter, already assigned, capacity, then risk
// compatibility. A full shelter reports as full even when risk would also
// disqualify it. No state mutates unless every check passes.
func (e *Engine) Assign(ctx context.Context, personID, shelterID types.ID) (*Assignment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.assign(ctx, ModeManual, personID, shelterID)
	metrics.RecordAssignment(ModeManual, outcome(err))
	return a, err
}

// AutoAssign selects the best shelter for a person and places them there.
// Candidates are shelters that can accommodate the person; among them the
// one with the greatest available space wins, ties going to the earliest
// registered shelter (the repository lists shelters in registration order
// and the comparison is strict).
func (e *Engine) AutoAssign(ctx context.Context, personID types.ID) (*Assignment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.autoAssign(ctx, personID)
	metrics.RecordAssignment(ModeAuto, outcome(err))
	return a, err
}

func (e *Engine) autoAssign(ctx context.Context, personID types.ID) (*Assignment, error) {
	p, err := e.persons.GetByID(ctx, personID)
	if err != nil {
		return nil, err
	}

	shelters, err := e.shelters.List(ctx, shelter.ListFilter{})
	if err != nil {
		return nil, err
	}

	var best *shelter.Shelter
	for i := range shelters {
		s := shelters[i]
		if !shelter.CanAccommodate(s, *p) {
			continue
		}
		if best == nil || shelter.AvailableSpace(s) > shelter.AvailableSpace(*best) {
			best = &shelters[i]
		}
	}

	if best == nil {
		return nil, errors.NoSuitableShelter(personID.String())
	}

	return e.assign(ctx, ModeAuto, personID, best.ID)
}

// assign runs the shared assignment sequence. The caller holds e.mu.
func (e *Engine) assign(ctx context.Context, mode string, personID, shelterID types.ID) (*Assignment, error) {
	p, err := e.persons.GetByID(ctx, personID)
	if err != nil {
		return nil, err
	}

	s, err := e.shelters.GetByID(ctx, shelterID)
	if err != nil {
		return nil, err
	}

	assigned, err := e.assignments.IsAssigned(ctx, personID)
	if err != nil {
		return nil, err
	}
	if assigned {
		return nil, errors.AlreadyAssigned(personID.String())
	}

	// Capacity is checked before risk compatibility
	if shelter.IsFull(*s) {
		return nil, errors.ShelterFull(shelterID.String())
	}
	if person.HasHealthRisk(*p) && s.RiskLevel != shelter.RiskLow {
		return nil, errors.RiskMismatch(personID.String(), shelterID.String())
	}

	a := &Assignment{
		ID:         types.NewID(),
		PersonID:   personID,
		ShelterID:  shelterID,
		AssignedAt: e.now(),
		Notes:      ComposeNotes(*p, *s),
	}

	// The ledger commits the record and the occupancy increment together
	if err := e.assignments.Create(ctx, a); err != nil {
		return nil, err
	}

	metrics.SetShelterOccupancy(s.Name, s.CurrentOccupancy+1, s.MaxCapacity)

	if e.bus != nil {
		event := events.NewEvent("assignment.created", "allocation", map[string]any{
			"assignment_id": a.ID,
			"person_id":     personID,
			"shelter_id":    shelterID,
			"mode":          mode,
			"notes":         a.Notes,
		})
		e.bus.Publish(ctx, event)
	}

	return a, nil
}

// IsAssigned reports whether the person already holds an assignment
func (e *Engine) IsAssigned(ctx context.Context, personID types.ID) (bool, error) {
	return e.assignments.IsAssigned(ctx, personID)
}

// ListUnassignedByPriority returns everyone without an assignment, ordered
// for rescue by RankByPriority.
func (e *Engine) ListUnassignedByPriority(ctx context.Context) ([]person.Person, error) {
	people, err := e.persons.List(ctx)
	if err != nil {
		return nil, err
	}

	assigned, err := e.assignments.AssignedPersonIDs(ctx)
	if err != nil {
		return nil, err
	}

	unassigned := make([]person.Person, 0, len(people))
	for _, p := range people {
		if !assigned[p.ID] {
			unassigned = append(unassigned, p)
		}
	}

	return RankByPriority(unassigned), nil
}

// ListAssignments returns assignments joined with their person and shelter,
// optionally restricted to one shelter.
func (e *Engine) ListAssignments(ctx context.Context, shelterID *types.ID) ([]AssignmentDetail, error) {
	var (
		records []Assignment
		err     error
	)
	if shelterID != nil {
		records, err = e.assignments.ListByShelter(ctx, *shelterID)
	} else {
		records, err = e.assignments.List(ctx)
	}
	if err != nil {
		return nil, err
	}

	details := make([]AssignmentDetail, 0, len(records))
	for _, a := range records {
		detail, err := e.join(ctx, a)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}

	return details, nil
}

// AssignmentForPerson returns the person's assignment joined with detail,
// failing with NotFound when the person is unassigned.
func (e *Engine) AssignmentForPerson(ctx context.Context, personID types.ID) (*AssignmentDetail, error) {
	a, err := e.assignments.GetByPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	return e.join(ctx, *a)
}

func (e *Engine) join(ctx context.Context, a Assignment) (*AssignmentDetail, error) {
	p, err := e.persons.GetByID(ctx, a.PersonID)
	if err != nil {
		return nil, err
	}
	s, err := e.shelters.GetByID(ctx, a.ShelterID)
	if err != nil {
		return nil, err
	}
	return &AssignmentDetail{Assignment: a, Person: *p, Shelter: *s}, nil
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if appErr, ok := err.(*errors.AppError); ok {
		return appErr.Code
	}
	return "INTERNAL_ERROR"
}
