package session

import "trafficportal/internal/models"

func IsAdmin(s *models.Session) bool {
	return s != nil && s.Role == models.RoleAdmin
}

// IsSuperAdmin is an admin without a city scope.
func IsSuperAdmin(s *models.Session) bool {
	return IsAdmin(s) && !s.HasCity()
}

// IsCityAdmin is an admin scoped to a city.
func IsCityAdmin(s *models.Session) bool {
	return IsAdmin(s) && s.HasCity()
}

func IsTrafficOfficer(s *models.Session) bool {
	return s != nil && s.Role == models.RoleTraffic
}

func IsAgent(s *models.Session) bool {
	return s != nil && s.Role.IsAgent()
}

func HasRole(s *models.Session, role models.Role) bool {
	return s != nil && s.Role == role
}

// RoleDisplayName is the label dashboards show for the current actor.
func RoleDisplayName(s *models.Session) string {
	switch {
	case s == nil:
		return "Guest"
	case IsSuperAdmin(s):
		return "Super Admin"
	case IsCityAdmin(s):
		return "City Admin"
	case IsTrafficOfficer(s):
		return "Traffic Officer"
	case IsAgent(s):
		return "Field Agent"
	case s.Role == models.RoleUser:
		return "User"
	default:
		return string(s.Role)
	}
}
