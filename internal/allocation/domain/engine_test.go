package domain_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ddpm-gov/relief/internal/allocation/domain"
	"github.com/ddpm-gov/relief/internal/allocation/infrastructure"
	"github.com/ddpm-gov/relief/internal/person"
	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/ddpm-gov/relief/internal/shelter"
)

type fixture struct {
	engine   *domain.Engine
	persons  *person.MemoryRepository
	shelters *shelter.MemoryRepository
	ledger   *infrastructure.MemoryRepository
}

func newFixture() *fixture {
	persons := person.NewMemoryRepository()
	shelters := shelter.NewMemoryRepository()
	ledger := infrastructure.NewMemoryRepository(shelters)
	return &fixture{
		engine:   domain.NewEngine(persons, shelters, ledger, nil),
		persons:  persons,
		shelters: shelters,
		ledger:   ledger,
	}
}

func (f *fixture) addPerson(t *testing.T, name string, age int, category person.Category, condition string) types.ID {
	t.Helper()
	p := &person.Person{
		ID:              types.NewID(),
		Name:            name,
		Age:             age,
		HealthCondition: condition,
		Category:        category,
		RegisteredAt:    time.Now().UTC(),
	}
	if err := f.persons.Create(context.Background(), p); err != nil {
		t.Fatalf("failed to add person %s: %v", name, err)
	}
	return p.ID
}

func (f *fixture) addShelter(t *testing.T, name string, capacity, occupancy int, risk shelter.RiskLevel, registered time.Time) types.ID {
	t.Helper()
	s := &shelter.Shelter{
		ID:               types.NewID(),
		Name:             name,
		MaxCapacity:      capacity,
		CurrentOccupancy: occupancy,
		RiskLevel:        risk,
		RegisteredAt:     registered,
	}
	if err := f.shelters.Create(context.Background(), s); err != nil {
		t.Fatalf("failed to add shelter %s: %v", name, err)
	}
	return s.ID
}

func (f *fixture) occupancy(t *testing.T, id types.ID) int {
	t.Helper()
	s, err := f.shelters.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to get shelter: %v", err)
	}
	return s.CurrentOccupancy
}

func TestAssign(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	personID := f.addPerson(t, "Somchai", 30, person.CategoryGeneral, "")
	shelterID := f.addShelter(t, "District Hall", 10, 0, shelter.RiskLow, time.Now())

	a, err := f.engine.Assign(ctx, personID, shelterID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	if a.PersonID != personID || a.ShelterID != shelterID {
		t.Errorf("assignment references wrong entities: %+v", a)
	}
	if a.Notes != "assigned to: District Hall" {
		t.Errorf("unexpected notes: %q", a.Notes)
	}

	if got := f.occupancy(t, shelterID); got != 1 {
		t.Errorf("occupancy = %d, expected 1", got)
	}

	assigned, err := f.engine.IsAssigned(ctx, personID)
	if err != nil {
		t.Fatalf("IsAssigned failed: %v", err)
	}
	if !assigned {
		t.Error("person should be assigned")
	}
}

func TestAssignNotes(t *testing.T) {
	tests := []struct {
		name      string
		age       int
		category  person.Category
		condition string
		expected  string
	}{
		{"plain adult", 30, person.CategoryGeneral, "", "assigned to: Hall"},
		{"child", 10, person.CategoryGeneral, "", "priority group; assigned to: Hall"},
		{"sick elder", 70, person.CategoryGeneral, "diabetes", "priority group; health risk; assigned to: Hall"},
		{"vip", 40, person.CategoryVIP, "", "VIP; assigned to: Hall"},
		{"vip elder", 65, person.CategoryVIP, "", "priority group; VIP; assigned to: Hall"},
		{"at-risk child", 12, person.CategoryAtRisk, "", "priority group; health risk; assigned to: Hall"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			personID := f.addPerson(t, tt.name, tt.age, tt.category, tt.condition)
			shelterID := f.addShelter(t, "Hall", 10, 0, shelter.RiskLow, time.Now())

			a, err := f.engine.Assign(ctx, personID, shelterID)
			if err != nil {
				t.Fatalf("assign failed: %v", err)
			}
			if a.Notes != tt.expected {
				t.Errorf("notes = %q, expected %q", a.Notes, tt.expected)
			}
		})
	}
}

func TestAssignUnknownEntities(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	personID := f.addPerson(t, "Somchai", 30, person.CategoryGeneral, "")
	shelterID := f.addShelter(t, "Hall", 10, 0, shelter.RiskLow, time.Now())

	if _, err := f.engine.Assign(ctx, types.NewID(), shelterID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown person, got %v", err)
	}
	if _, err := f.engine.Assign(ctx, personID, types.NewID()); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown shelter, got %v", err)
	}
}

func TestAssignTwiceFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	personID := f.addPerson(t, "Somchai", 30, person.CategoryGeneral, "")
	first := f.addShelter(t, "Hall A", 10, 0, shelter.RiskLow, time.Now())
	second := f.addShelter(t, "Hall B", 10, 0, shelter.RiskLow, time.Now())

	if _, err := f.engine.Assign(ctx, personID, first); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	_, err := f.engine.Assign(ctx, personID, second)
	if !errors.Is(err, errors.ErrAlreadyAssigned) {
		t.Errorf("expected ErrAlreadyAssigned, got %v", err)
	}

	if got := f.occupancy(t, second); got != 0 {
		t.Errorf("losing shelter occupancy = %d, expected 0", got)
	}
}

func TestAssignFullShelter(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	personID := f.addPerson(t, "Somchai", 30, person.CategoryGeneral, "")
	shelterID := f.addShelter(t, "Hall", 3, 3, shelter.RiskLow, time.Now())

	_, err := f.engine.Assign(ctx, personID, shelterID)
	if !errors.Is(err, errors.ErrShelterFull) {
		t.Errorf("expected ErrShelterFull, got %v", err)
	}

	if got := f.occupancy(t, shelterID); got != 3 {
		t.Errorf("occupancy changed on failed assign: %d", got)
	}

	details, err := f.engine.ListAssignments(ctx, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(details) != 0 {
		t.Errorf("failed assign left %d assignment records", len(details))
	}
}

func TestAssignRiskMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	personID := f.addPerson(t, "Anong", 30, person.CategoryAtRisk, "")

	for _, risk := range []shelter.RiskLevel{shelter.RiskMedium, shelter.RiskHigh} {
		shelterID := f.addShelter(t, "Hall "+string(risk), 10, 0, risk, time.Now())

		_, err := f.engine.Assign(ctx, personID, shelterID)
		if !errors.Is(err, errors.ErrRiskMismatch) {
			t.Errorf("risk %s: expected ErrRiskMismatch, got %v", risk, err)
		}
		if got := f.occupancy(t, shelterID); got != 0 {
			t.Errorf("risk %s: occupancy changed on failed assign", risk)
		}
	}
}

func TestAssignFullReportedBeforeRisk(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// Full AND incompatible: capacity is checked first
	personID := f.addPerson(t, "Anong", 30, person.CategoryAtRisk, "")
	shelterID := f.addShelter(t, "Hall", 2, 2, shelter.RiskHigh, time.Now())

	_, err := f.engine.Assign(ctx, personID, shelterID)
	if !errors.Is(err, errors.ErrShelterFull) {
		t.Errorf("expected ErrShelterFull to take precedence, got %v", err)
	}
}

func TestAutoAssignPicksMostSpace(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	personID := f.addPerson(t, "Somchai", 30, person.CategoryGeneral, "")
	f.addShelter(t, "Small", 5, 3, shelter.RiskLow, time.Now())
	big := f.addShelter(t, "Big", 20, 2, shelter.RiskMedium, time.Now())

	a, err := f.engine.AutoAssign(ctx, personID)
	if err != nil {
		t.Fatalf("auto assign failed: %v", err)
	}
	if a.ShelterID != big {
		t.Errorf("expected the shelter with most space, got %v", a.ShelterID)
	}
}

func TestAutoAssignHealthRiskOnlyLow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// Shelters: A (LOW, full), B (LOW, 5 free), C (HIGH, 20 free).
	// A health-risk person must land in B.
	personID := f.addPerson(t, "Anong", 30, person.CategoryGeneral, "diabetes")
	f.addShelter(t, "A", 5, 5, shelter.RiskLow, time.Now())
	b := f.addShelter(t, "B", 5, 0, shelter.RiskLow, time.Now())
	f.addShelter(t, "C", 20, 0, shelter.RiskHigh, time.Now())

	a, err := f.engine.AutoAssign(ctx, personID)
	if err != nil {
		t.Fatalf("auto assign failed: %v", err)
	}
	if a.ShelterID != b {
		t.Errorf("health-risk person should land in B, got %v", a.ShelterID)
	}
}

func TestAutoAssignNoCandidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	personID := f.addPerson(t, "Anong", 30, person.CategoryAtRisk, "")
	f.addShelter(t, "High", 20, 0, shelter.RiskHigh, time.Now())
	f.addShelter(t, "Full Low", 5, 5, shelter.RiskLow, time.Now())

	_, err := f.engine.AutoAssign(ctx, personID)
	if !errors.Is(err, errors.ErrNoSuitableShelter) {
		t.Errorf("expected ErrNoSuitableShelter, got %v", err)
	}
}

func TestAutoAssignUnknownPerson(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	f.addShelter(t, "Hall", 10, 0, shelter.RiskLow, time.Now())

	_, err := f.engine.AutoAssign(ctx, types.NewID())
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAutoAssignTieGoesToEarliestRegistered(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	base := time.Now()
	personID := f.addPerson(t, "Somchai", 30, person.CategoryGeneral, "")
	first := f.addShelter(t, "First", 10, 0, shelter.RiskLow, base)
	f.addShelter(t, "Second", 10, 0, shelter.RiskLow, base.Add(time.Second))

	a, err := f.engine.AutoAssign(ctx, personID)
	if err != nil {
		t.Fatalf("auto assign failed: %v", err)
	}
	if a.ShelterID != first {
		t.Errorf("tie should go to the earliest-registered shelter, got %v", a.ShelterID)
	}
}

func TestListAssignments(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	p1 := f.addPerson(t, "Somchai", 30, person.CategoryGeneral, "")
	p2 := f.addPerson(t, "Malee", 65, person.CategoryGeneral, "")
	hallA := f.addShelter(t, "Hall A", 10, 0, shelter.RiskLow, time.Now())
	hallB := f.addShelter(t, "Hall B", 10, 0, shelter.RiskLow, time.Now())

	if _, err := f.engine.Assign(ctx, p1, hallA); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if _, err := f.engine.Assign(ctx, p2, hallB); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	all, err := f.engine.ListAssignments(ctx, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(all))
	}
	if all[0].Person.Name != "Somchai" || all[0].Shelter.Name != "Hall A" {
		t.Errorf("join returned wrong detail: %+v", all[0])
	}

	filtered, err := f.engine.ListAssignments(ctx, &hallB)
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Person.Name != "Malee" {
		t.Errorf("expected only Malee at Hall B, got %+v", filtered)
	}

	// Repeated reads without writes return identical results
	again, err := f.engine.ListAssignments(ctx, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(again) != len(all) || again[0].ID != all[0].ID || again[1].ID != all[1].ID {
		t.Error("repeated listing returned different results")
	}
}

func TestAssignmentForPerson(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	personID := f.addPerson(t, "Somchai", 30, person.CategoryGeneral, "")
	shelterID := f.addShelter(t, "Hall", 10, 0, shelter.RiskLow, time.Now())

	if _, err := f.engine.AssignmentForPerson(ctx, personID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound before assignment, got %v", err)
	}

	if _, err := f.engine.Assign(ctx, personID, shelterID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	detail, err := f.engine.AssignmentForPerson(ctx, personID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if detail.Shelter.Name != "Hall" || detail.Person.Name != "Somchai" {
		t.Errorf("unexpected detail: %+v", detail)
	}
}

func TestListUnassignedByPriority(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	child := f.addPerson(t, "child", 10, person.CategoryGeneral, "")
	adult := f.addPerson(t, "adult", 40, person.CategoryAtRisk, "")
	housed := f.addPerson(t, "housed", 25, person.CategoryGeneral, "")
	shelterID := f.addShelter(t, "Hall", 10, 0, shelter.RiskLow, time.Now())

	if _, err := f.engine.Assign(ctx, housed, shelterID); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	queue, err := f.engine.ListUnassignedByPriority(ctx)
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}

	if len(queue) != 2 {
		t.Fatalf("expected 2 unassigned, got %d", len(queue))
	}
	if queue[0].ID != child || queue[1].ID != adult {
		t.Errorf("expected child first, then at-risk adult; got %v, %v", queue[0].Name, queue[1].Name)
	}
}

func TestConcurrentAssignSamePerson(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	const n = 16
	personID := f.addPerson(t, "Somchai", 30, person.CategoryGeneral, "")

	shelterIDs := make([]types.ID, n)
	for i := 0; i < n; i++ {
		shelterIDs[i] = f.addShelter(t, "Hall "+strings.Repeat("I", i+1), 10, 0, shelter.RiskLow, time.Now())
	}

	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(shelterID types.ID) {
			defer wg.Done()
			_, err := f.engine.Assign(ctx, personID, shelterID)
			results <- err
		}(shelterIDs[i])
	}
	wg.Wait()
	close(results)

	var successes, alreadyAssigned int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, errors.ErrAlreadyAssigned):
			alreadyAssigned++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly 1 success, got %d", successes)
	}
	if alreadyAssigned != n-1 {
		t.Errorf("expected %d AlreadyAssigned, got %d", n-1, alreadyAssigned)
	}

	var total int
	for _, id := range shelterIDs {
		total += f.occupancy(t, id)
	}
	if total != 1 {
		t.Errorf("total occupancy across shelters = %d, expected 1", total)
	}
}

func TestConcurrentAssignCapacityNotExceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	const people = 12
	const capacity = 4

	shelterID := f.addShelter(t, "Small Hall", capacity, 0, shelter.RiskLow, time.Now())

	personIDs := make([]types.ID, people)
	for i := 0; i < people; i++ {
		personIDs[i] = f.addPerson(t, "Person "+strings.Repeat("I", i+1), 30, person.CategoryGeneral, "")
	}

	var wg sync.WaitGroup
	results := make(chan error, people)
	for i := 0; i < people; i++ {
		wg.Add(1)
		go func(personID types.ID) {
			defer wg.Done()
			_, err := f.engine.Assign(ctx, personID, shelterID)
			results <- err
		}(personIDs[i])
	}
	wg.Wait()
	close(results)

	var successes, full int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, errors.ErrShelterFull):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != capacity {
		t.Errorf("expected %d successes, got %d", capacity, successes)
	}
	if full != people-capacity {
		t.Errorf("expected %d ShelterFull, got %d", people-capacity, full)
	}
	if got := f.occupancy(t, shelterID); got != capacity {
		t.Errorf("occupancy = %d, expected %d", got, capacity)
	}
}
