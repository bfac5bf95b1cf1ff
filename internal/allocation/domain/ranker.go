package domain

import (
	"sort"

	"github.com/ddpm-gov/relief/internal/person"
)

// RankByPriority orders people for rescue, most urgent first:
//
//  1. priority group (under 18 or 60 and older) before everyone else
//  2. category rank: AT_RISK, then VIP, then GENERAL, then anything else
//  3. under-18 before not, then 60-and-over before not
//  4. registration time, then ID
//
// Rule 4 makes the order a deterministic total order. The input slice is
// not modified.
func RankByPriority(people []person.Person) []person.Person {
	ranked := make([]person.Person, len(people))
	copy(ranked, people)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]

		if pa, pb := person.IsPriorityGroup(a), person.IsPriorityGroup(b); pa != pb {
			return pa
		}

		if ra, rb := a.Category.Rank(), b.Category.Rank(); ra != rb {
			return ra < rb
		}

		if ca, cb := a.Age < 18, b.Age < 18; ca != cb {
			return ca
		}
		if ea, eb := a.Age >= 60, b.Age >= 60; ea != eb {
			return ea
		}

		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		return a.ID < b.ID
	})

	return ranked
}
