package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTraffic   Role = "traffic"
	RoleUser      Role = "user"
	RoleSergeant1 Role = "Traffic sergeant 1"
	RoleSergeant2 Role = "Traffic sergeant  2"
)

const agentRolePrefix = "agent"

// IsAgent reports whether the role names a field agent (agent1, agent2, ...).
func (r Role) IsAgent() bool {
	return strings.HasPrefix(string(r), agentRolePrefix)
}

// Account is a login-capable identity: either a static account or a
// flattened city user.
type Account struct {
	Email        string `json:"email"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"-"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	CityCode     string `json:"cityCode,omitempty"`
	CityName     string `json:"cityName,omitempty"`
}

// Session is the single active login record.
type Session struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	CityCode        string    `json:"cityCode,omitempty"`
	CityName        string    `json:"cityName,omitempty"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	LoginTime       time.Time `json:"loginTime"`
}

func (s *Session) HasCity() bool {
	return s != nil && s.CityCode != ""
}
