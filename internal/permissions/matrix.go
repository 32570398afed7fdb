// Package permissions keeps, per city, which dashboard sections each role
// may open.
package permissions

import (
	"slices"

	"trafficportal/internal/models"
)

type Section struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Catalog is the fixed set of dashboard sections, in display order.
var Catalog = []Section{
	{ID: "statistics", Name: "Statistics Overview", Color: "#0066b3"},
	{ID: "violations", Name: "Traffic Violations", Color: "#ef4444"},
	{ID: "reports", Name: "Reports & Documents", Color: "#8b5cf6"},
	{ID: "monitoring", Name: "Live Monitoring", Color: "#10b981"},
	{ID: "personnel", Name: "Personnel Management", Color: "#f59e0b"},
	{ID: "analytics", Name: "Analytics Dashboard", Color: "#06b6d4"},
	{ID: "emergency", Name: "Emergency Services", Color: "#dc2626"},
	{ID: "performance", Name: "Performance Metrics", Color: "#d4af37"},
}

func SectionIDs() []string {
	ids := make([]string, 0, len(Catalog))
	for _, s := range Catalog {
		ids = append(ids, s.ID)
	}
	return ids
}

func KnownSection(id string) bool {
	for _, s := range Catalog {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Matrix maps a role name to its enabled section ids.
type Matrix map[string][]string

func DefaultMatrix() Matrix {
	return Matrix{
		string(models.RoleTraffic):   {"statistics", "violations", "monitoring", "reports"},
		string(models.RoleSergeant1): {"statistics", "violations", "monitoring"},
		string(models.RoleSergeant2): {"statistics", "violations", "monitoring"},
	}
}

// Has is plain membership; it does not apply the admin bypass.
func (m Matrix) Has(role string, section string) bool {
	return slices.Contains(m[role], section)
}

func (m Matrix) clone() Matrix {
	out := make(Matrix, len(m))
	for role, sections := range m {
		out[role] = slices.Clone(sections)
	}
	return out
}

// Effective applies the convention that admins see every section regardless
// of the stored matrix.
func Effective(s *models.Session, m Matrix, section string) bool {
	if s == nil || !KnownSection(section) {
		return false
	}
	if s.Role == models.RoleAdmin {
		return true
	}
	return m.Has(string(s.Role), section)
}
