package models

// Farm is the subset of a farm row the alerting pipeline needs.
type Farm struct {
	ID        int64    `json:"id"`
	FarmerID  int64    `json:"farmer_id"`
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Active    bool     `json:"active"`
}

// FarmContact joins a farm to its owner's contact details.
type FarmContact struct {
	FarmID   int64  `json:"farm_id"`
	FarmName string `json:"farm_name"`
	FarmerID int64  `json:"farmer_id"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}
