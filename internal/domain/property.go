package domain

import "time"

type Property struct {
	ID           int64
	Title        string
	Address      string
	City         string
	State        string
	ZipCode      string
	Price        float64
	Bedrooms     int
	Bathrooms    float64
	SquareFeet   int
	PropertyType string
	ListingType  string
	Description  string
	Images       []string
	Amenities    []string
	YearBuilt    *int
	Parking      *string
	PetFriendly  bool
	DateListed   time.Time
	ContactName  *string
	ContactPhone *string
	ContactEmail *string
	Lat, Lon     *float64
}

// PropertySearch is the filter set accepted by SearchProperties. Nil fields
// are not applied. Query matches title, city, address and state.
type PropertySearch struct {
	Query         *string
	PriceMin      *float64
	PriceMax      *float64
	Bedrooms      *int
	Bathrooms     *float64
	SquareFeetMin *int
	SquareFeetMax *int
	PropertyTypes []string
	ListingTypes  []string
	Limit         int
}

type PropertiesPage struct {
	Items      []Property
	NextCursor *string
}
