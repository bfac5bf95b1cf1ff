package person

import (
	"strings"
	"time"

	"github.com/ddpm-gov/relief/internal/shared/types"
)

// Category defines the registration category of a person
type Category string

const (
	CategoryGeneral Category = "GENERAL"
	CategoryAtRisk  Category = "AT_RISK"
	CategoryVIP     Category = "VIP"
)

// Valid reports whether the category is one of the known values
func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryAtRisk, CategoryVIP:
		return true
	}
	return false
}

// Rank returns the allocation ordering rank of the category; lower ranks first
func (c Category) Rank() int {
	switch c {
	case CategoryAtRisk:
		return 1
	case CategoryVIP:
		return 2
	case CategoryGeneral:
		return 3
	default:
		return 4
	}
}

// NoConditionSentinel is the health-condition value meaning "no condition"
const NoConditionSentinel = "normal"

// Person represents an individual registered for emergency housing.
// Records are write-once: no mutation path exists after registration.
type Person struct {
	ID              types.ID  `json:"id"`
	Name            string    `json:"name"`
	Age             int       `json:"age"`
	HealthCondition string    `json:"health_condition"`
	Category        Category  `json:"category"`
	RegisteredAt    time.Time `json:"registered_at"`
}

// IsPriorityGroup reports whether the person is rescued first.
// Children under 18 and persons 60 or older form the priority group.
func IsPriorityGroup(p Person) bool {
	return p.Age < 18 || p.Age >= 60
}

// HasHealthRisk reports whether the person carries a health risk that
// restricts eligible shelters to the LOW risk level. AT_RISK persons always
// qualify; otherwise any non-empty condition other than "normal" does.
func HasHealthRisk(p Person) bool {
	if p.Category == CategoryAtRisk {
		return true
	}
	cond := strings.TrimSpace(p.HealthCondition)
	return cond != "" && !strings.EqualFold(cond, NoConditionSentinel)
}

// RegisterRequest is the request to register a person
type RegisterRequest struct {
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	HealthCondition string   `json:"health_condition"`
	Category        Category `json:"category"`
}

// Validate checks the request before any state is touched
func (r RegisterRequest) Validate() map[string]string {
	details := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		details["name"] = "name is required"
	}
	if r.Age <= 0 {
		details["age"] = "age must be positive"
	}
	if r.Category != "" && !r.Category.Valid() {
		details["category"] = "unknown category"
	}
	if len(details) == 0 {
		return nil
	}
	return details
}
