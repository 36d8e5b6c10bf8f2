// Package filter narrows already-fetched lists for display. Nothing here
// talks to the backend.
package filter

import (
	"sort"
	"strings"

	"schoolbridge/pkg/types"
)

// Any is the dropdown value meaning "no constraint".
const Any = "all"

func contains(field, query string) bool {
	return strings.Contains(strings.ToLower(field), query)
}

func matchesAny(query string, fields ...string) bool {
	if query == "" {
		return true
	}
	for _, f := range fields {
		if contains(f, query) {
			return true
		}
	}
	return false
}

func selected(want, got string) bool {
	return want == "" || want == Any || want == got
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

type NeedFilter struct {
	Search   string `form:"q"`
	Category string `form:"category"`
	Urgency  string `form:"urgency"`
	Location string `form:"location"`
}

// Needs returns the needs whose title, description, location or school name
// contain the search text and whose category, urgency and location equal the
// selected values.
func Needs(needs []types.Need, f NeedFilter) []types.Need {
	q := normalize(f.Search)

	out := make([]types.Need, 0, len(needs))
	for i := range needs {
		n := &needs[i]
		if !matchesAny(q, n.Title, n.Description, n.Location, n.SchoolName) {
			continue
		}
		if !selected(f.Category, n.Category) || !selected(f.Urgency, string(n.Urgency)) || !selected(f.Location, n.Location) {
			continue
		}
		out = append(out, *n)
	}

	return out
}

type DonationFilter struct {
	Search  string `form:"q"`
	Status  string `form:"status"`
	Company string `form:"company"`
	School  string `form:"school"`
}

func donationCompany(d *types.Donation) string {
	if d.Donor == nil {
		return ""
	}
	if d.Donor.CompanyName != "" {
		return d.Donor.CompanyName
	}
	return d.Donor.Name
}

func donationSchool(d *types.Donation) string {
	if d.Need == nil {
		return ""
	}
	return d.Need.SchoolName
}

func donationTitle(d *types.Donation) string {
	if d.Need == nil {
		return ""
	}
	return d.Need.Title
}

func Donations(donations []types.Donation, f DonationFilter) []types.Donation {
	q := normalize(f.Search)

	out := make([]types.Donation, 0, len(donations))
	for i := range donations {
		d := &donations[i]
		if !matchesAny(q, donationTitle(d), d.Description, d.DonationType, donationCompany(d), donationSchool(d)) {
			continue
		}
		if !selected(f.Status, string(d.Status)) || !selected(f.Company, donationCompany(d)) || !selected(f.School, donationSchool(d)) {
			continue
		}
		out = append(out, *d)
	}

	return out
}

func Stories(stories []types.ImpactStory, query string) []types.ImpactStory {
	q := normalize(query)

	out := make([]types.ImpactStory, 0, len(stories))
	for i := range stories {
		s := &stories[i]
		if matchesAny(q, s.Title, s.Summary, s.SchoolName, s.CompanyName) {
			out = append(out, *s)
		}
	}

	return out
}

func Schools(schools []types.School, query string) []types.School {
	q := normalize(query)

	out := make([]types.School, 0, len(schools))
	for i := range schools {
		s := &schools[i]
		if matchesAny(q, s.Name, s.County, s.District) {
			out = append(out, *s)
		}
	}

	return out
}

// Categories lists the distinct non-empty categories in first-seen order.
func Categories(needs []types.Need) []string {
	return distinct(needs, func(n *types.Need) string { return n.Category })
}

// Locations lists the distinct non-empty locations, sorted.
func Locations(needs []types.Need) []string {
	out := distinct(needs, func(n *types.Need) string { return n.Location })
	sort.Strings(out)
	return out
}

func Companies(donations []types.Donation) []string {
	return distinct(donations, donationCompany)
}

func SchoolNames(donations []types.Donation) []string {
	return distinct(donations, donationSchool)
}

func distinct[T any](items []T, field func(*T) string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for i := range items {
		v := field(&items[i])
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
