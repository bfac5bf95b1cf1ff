package domain

import (
	"strings"
	"time"

	"github.com/ddpm-gov/relief/internal/person"
	"github.com/ddpm-gov/relief/internal/shared/types"
	"github.com/ddpm-gov/relief/internal/shelter"
)

// Assignment is the immutable record linking one person to one shelter.
// At most one assignment exists per person for the lifetime of the system.
type Assignment struct {
	ID         types.ID  `json:"id"`
	PersonID   types.ID  `json:"person_id"`
	ShelterID  types.ID  `json:"shelter_id"`
	AssignedAt time.Time `json:"assigned_at"`
	Notes      string    `json:"notes"`
}

// AssignmentDetail is an assignment joined with its person and shelter,
// the shape the presentation collaborator renders.
type AssignmentDetail struct {
	Assignment
	Person  person.Person   `json:"person"`
	Shelter shelter.Shelter `json:"shelter"`
}

// ComposeNotes builds the annotation recorded on the assignment. Markers
// appear in a fixed order and absent markers are omitted entirely.
func ComposeNotes(p person.Person, s shelter.Shelter) string {
	var parts []string

	if person.IsPriorityGroup(p) {
		parts = append(parts, "priority group")
	}
	if person.HasHealthRisk(p) {
		parts = append(parts, "health risk")
	}
	if p.Category == person.CategoryVIP {
		parts = append(parts, "VIP")
	}
	parts = append(parts, "assigned to: "+s.Name)

	return strings.Join(parts, "; ")
}
