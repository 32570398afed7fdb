package models

import "time"

type CityStatus string

const (
	CityStatusActive   CityStatus = "active"
	CityStatusInactive CityStatus = "inactive"
)

type City struct {
	ID        string     `json:"id"`
	CityName  string     `json:"cityName"`
	CityCode  string     `json:"cityCode"`
	Users     []CityUser `json:"users"`
	CreatedAt time.Time  `json:"createdAt"`
	Status    CityStatus `json:"status"`
}

// CityUser is one of the accounts generated together with its city.
type CityUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Title    string `json:"title"`
	Icon     string `json:"icon"`
	Status   string `json:"status"`
}
