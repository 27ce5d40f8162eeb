package models

// Pharmacy is a nearby pharmacy returned by the Google Maps Places API
type Pharmacy struct {
	PlaceID   string   `json:"place_id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone,omitempty"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Rating    float32  `json:"rating,omitempty"`
	OpenNow   *bool    `json:"open_now,omitempty"`
	Types     []string `json:"types,omitempty"`
}

// NearbyPharmaciesQuery is bound from the query string
type NearbyPharmaciesQuery struct {
	Latitude  float64 `form:"lat" binding:"required,min=-90,max=90"`
	Longitude float64 `form:"lng" binding:"required,min=-180,max=180"`
	Radius    uint    `form:"radius" binding:"omitempty,min=100,max=10000"`
}
