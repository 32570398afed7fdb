package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trafficportal/internal/models"
)

func TestRolePredicates(t *testing.T) {
	tests := []struct {
		name    string
		sess    *models.Session
		super   bool
		city    bool
		admin   bool
		traffic bool
		agent   bool
		label   string
	}{
		{"none", nil, false, false, false, false, false, "Guest"},
		{"super admin", &models.Session{Role: "admin"}, true, false, true, false, false, "Super Admin"},
		{"city admin", &models.Session{Role: "admin", CityCode: "ISB"}, false, true, true, false, false, "City Admin"},
		{"traffic", &models.Session{Role: "traffic", CityCode: "ISB"}, false, false, false, true, false, "Traffic Officer"},
		{"agent1", &models.Session{Role: "agent1"}, false, false, false, false, true, "Field Agent"},
		{"agent prefix", &models.Session{Role: "agent-north"}, false, false, false, false, true, "Field Agent"},
		{"user", &models.Session{Role: "user"}, false, false, false, false, false, "User"},
		{"sergeant", &models.Session{Role: "Traffic sergeant 1", CityCode: "ISB"}, false, false, false, false, false, "Traffic sergeant 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.super, IsSuperAdmin(tt.sess), "IsSuperAdmin")
			assert.Equal(t, tt.city, IsCityAdmin(tt.sess), "IsCityAdmin")
			assert.Equal(t, tt.admin, IsAdmin(tt.sess), "IsAdmin")
			assert.Equal(t, tt.traffic, IsTrafficOfficer(tt.sess), "IsTrafficOfficer")
			assert.Equal(t, tt.agent, IsAgent(tt.sess), "IsAgent")
			assert.Equal(t, tt.label, RoleDisplayName(tt.sess))
		})
	}
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole(&models.Session{Role: "user"}, models.RoleUser))
	assert.False(t, HasRole(&models.Session{Role: "user"}, models.RoleAdmin))
	assert.False(t, HasRole(nil, models.RoleUser))
}
