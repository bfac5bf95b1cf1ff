package internal

import (
	"context"
	"testing"
	"time"

	"github.com/ddpm-gov/relief/internal/allocation/domain"
	"github.com/ddpm-gov/relief/internal/allocation/infrastructure"
	"github.com/ddpm-gov/relief/internal/person"
	"github.com/ddpm-gov/relief/internal/report"
	"github.com/ddpm-gov/relief/internal/shared/errors"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/ddpm-gov/relief/internal/shelter"
)

// TestFullAllocationWorkflow walks the complete flow: register shelters and
// people, drain the priority queue through automatic assignment, and check
// the final occupancy picture.
func TestFullAllocationWorkflow(t *testing.T) {
	ctx := context.Background()

	persons := person.NewMemoryRepository()
	shelters := shelter.NewMemoryRepository()
	ledger := infrastructure.NewMemoryRepository(shelters)
	engine := domain.NewEngine(persons, shelters, ledger, nil)
	reports := report.NewService(persons, shelters, ledger)

	base := time.Now().UTC()

	// 1. Register shelters
	lowRisk := &shelter.Shelter{
		ID: types.NewID(), Name: "Community Center", MaxCapacity: 3,
		RiskLevel: shelter.RiskLow, RegisteredAt: base,
	}
	highRisk := &shelter.Shelter{
		ID: types.NewID(), Name: "Warehouse", MaxCapacity: 10,
		RiskLevel: shelter.RiskHigh, RegisteredAt: base.Add(time.Second),
	}
	for _, s := range []*shelter.Shelter{lowRisk, highRisk} {
		if err := shelters.Create(ctx, s); err != nil {
			t.Fatalf("failed to register shelter: %v", err)
		}
	}

	// 2. Register people
	newPerson := func(name string, age int, category person.Category, condition string, offset time.Duration) *person.Person {
		p := &person.Person{
			ID: types.NewID(), Name: name, Age: age,
			HealthCondition: condition, Category: category,
			RegisteredAt: base.Add(offset),
		}
		if err := persons.Create(ctx, p); err != nil {
			t.Fatalf("failed to register %s: %v", name, err)
		}
		return p
	}

	adult := newPerson("Somchai", 35, person.CategoryGeneral, "", 0)
	child := newPerson("Noi", 9, person.CategoryGeneral, "", time.Second)
	sickElder := newPerson("Malee", 72, person.CategoryGeneral, "heart condition", 2*time.Second)
	vip := newPerson("Prasert", 50, person.CategoryVIP, "", 3*time.Second)

	// 3. The queue orders the child and sick elder ahead of the rest
	queue, err := engine.ListUnassignedByPriority(ctx)
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}
	if len(queue) != 4 {
		t.Fatalf("expected 4 unassigned, got %d", len(queue))
	}
	if queue[0].ID != child.ID {
		t.Errorf("child should head the queue, got %s", queue[0].Name)
	}
	if queue[1].ID != sickElder.ID {
		t.Errorf("sick elder should be second, got %s", queue[1].Name)
	}
	if queue[2].ID != vip.ID || queue[3].ID != adult.ID {
		t.Errorf("expected VIP then adult, got %s, %s", queue[2].Name, queue[3].Name)
	}

	// 4. Auto-assign in queue order
	for _, p := range queue {
		a, err := engine.AutoAssign(ctx, p.ID)
		if err != nil {
			t.Fatalf("auto assign of %s failed: %v", p.Name, err)
		}
		if assigned, _ := engine.IsAssigned(ctx, p.ID); !assigned {
			t.Errorf("%s not marked assigned", p.Name)
		}
		if p.ID == sickElder.ID && a.ShelterID != lowRisk.ID {
			t.Errorf("health-risk elder must land in the low-risk shelter, got %v", a.ShelterID)
		}
	}

	// 5. Re-assignment fails
	if _, err := engine.Assign(ctx, adult.ID, lowRisk.ID); !errors.Is(err, errors.ErrAlreadyAssigned) {
		t.Errorf("expected ErrAlreadyAssigned, got %v", err)
	}

	// 6. Queue drains
	queue, err = engine.ListUnassignedByPriority(ctx)
	if err != nil {
		t.Fatalf("queue failed: %v", err)
	}
	if len(queue) != 0 {
		t.Errorf("expected empty queue, got %d entries", len(queue))
	}

	// 7. Occupancy invariants hold in the report
	snapshot, err := reports.Build(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if snapshot.TotalOccupancy != 4 {
		t.Errorf("total occupancy = %d, expected 4", snapshot.TotalOccupancy)
	}
	if snapshot.TotalUnassigned != 0 {
		t.Errorf("unassigned = %d, expected 0", snapshot.TotalUnassigned)
	}
	for _, line := range snapshot.Shelters {
		if line.CurrentOccupancy > line.MaxCapacity {
			t.Errorf("shelter %s over capacity: %d/%d", line.Name, line.CurrentOccupancy, line.MaxCapacity)
		}
	}

	// 8. Every assignment of a health-risk person points at a low-risk shelter
	details, err := engine.ListAssignments(ctx, nil)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(details) != 4 {
		t.Fatalf("expected 4 assignments, got %d", len(details))
	}
	for _, d := range details {
		if person.HasHealthRisk(d.Person) && d.Shelter.RiskLevel != shelter.RiskLow {
			t.Errorf("health-risk person %s housed in %s shelter", d.Person.Name, d.Shelter.RiskLevel)
		}
	}
}
