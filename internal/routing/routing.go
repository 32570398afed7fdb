// Package routing maps sessions to dashboard destinations.
package routing

import (
	"trafficportal/internal/models"
	"trafficportal/internal/registry"
	"trafficportal/internal/session"
)

const (
	Login              = "/auth/login"
	Register           = "/auth/register"
	Forget             = "/auth/forget"
	SysAdminDashboard  = "/dashboard/sys-admin"
	CityAdminDashboard = "/dashboard/city-admin"
	TrafficDashboard   = "/dashboard/traffic-dashboard"
	AgentDashboard     = "/dashboard/agent-dashboard"
	MainDashboard      = "/dashboard/Main-dashboard"
	cityPrefix         = "/city/"
	dashboardPrefix    = "/dashboard/"
)

// Dashboards lists every guarded dashboard path.
var Dashboards = []string{
	SysAdminDashboard,
	CityAdminDashboard,
	TrafficDashboard,
	AgentDashboard,
	MainDashboard,
}

// Dashboard maps a dashboard name such as "city-admin" to its path.
func Dashboard(name string) (string, bool) {
	for _, path := range Dashboards {
		if path == dashboardPrefix+name {
			return path, true
		}
	}
	return "", false
}

// RedirectPath returns the default destination for s. Every session state,
// including none, maps to exactly one path.
func RedirectPath(s *models.Session) string {
	switch {
	case s == nil || !s.IsAuthenticated:
		return Login
	case session.IsSuperAdmin(s):
		return SysAdminDashboard
	case session.IsCityAdmin(s):
		return CityAdminDashboard
	case session.IsTrafficOfficer(s):
		return TrafficDashboard
	case session.IsAgent(s):
		return AgentDashboard
	default:
		return MainDashboard
	}
}

// Allowed reports whether s may open the dashboard at path. Paths that are
// not dashboards are open to everyone.
func Allowed(path string, s *models.Session) bool {
	switch path {
	case SysAdminDashboard:
		return session.IsSuperAdmin(s)
	case CityAdminDashboard:
		return session.IsCityAdmin(s) && s.CityName != ""
	case TrafficDashboard:
		return session.IsTrafficOfficer(s)
	case AgentDashboard:
		return session.IsAgent(s)
	case MainDashboard:
		return s != nil && s.IsAuthenticated
	default:
		return true
	}
}

// CityPath is the public page of a city.
func CityPath(cityName string) string {
	return cityPrefix + registry.Slugify(cityName)
}
