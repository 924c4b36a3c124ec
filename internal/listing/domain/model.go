package domain

import (
	"time"

	"github.com/mmcloughlin/geohash"
)

// GeohashPrecision is the number of characters stored per listing. Area filters
// match on any prefix of this.
const GeohashPrecision = 9

// PropertyType is the kind of dwelling a listing offers.
type PropertyType string

const (
	PropertyTypeHouse     PropertyType = "House"
	PropertyTypeApartment PropertyType = "Apartment"
	PropertyTypeCondo     PropertyType = "Condo"
)

// IsValid checks if the PropertyType is one of the defined constants.
func (t PropertyType) IsValid() bool {
	switch t {
	case PropertyTypeHouse, PropertyTypeApartment, PropertyTypeCondo:
		return true
	}
	return false
}

// ListingStatus is the market a listing is offered on.
type ListingStatus string

const (
	StatusForSale ListingStatus = "For Sale"
	StatusForRent ListingStatus = "For Rent"
)

// IsValid checks if the ListingStatus is one of the defined constants.
func (s ListingStatus) IsValid() bool {
	switch s {
	case StatusForSale, StatusForRent:
		return true
	}
	return false
}

// Listing is the aggregate root. Images holds opaque locators in display order;
// a persisted listing always has at least one.
type Listing struct {
	ID           string
	Title        string
	Description  string
	Address      string
	City         string
	State        string
	ZipCode      string
	Price        float64
	Bedrooms     int
	Bathrooms    int
	Sqft         int
	Latitude     float64
	Longitude    float64
	Geohash      string
	PropertyType PropertyType
	Status       ListingStatus
	IsAvailable  bool
	Images       []string
	OwnerID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Locate recomputes Geohash from the coordinates.
func (l *Listing) Locate() {
	l.Geohash = geohash.EncodeWithPrecision(l.Latitude, l.Longitude, GeohashPrecision)
}

// Clone returns a deep copy so callers can mutate without aliasing Images.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	c.Images = append([]string(nil), l.Images...)
	return &c
}

// OwnerSummary is the public face of a listing's agent.
type OwnerSummary struct {
	ID    string
	Name  string
	Email string
}

// ListingView is a listing as returned by reads, with its owner resolved
// when the user directory knows them.
type ListingView struct {
	Listing *Listing
	Owner   *OwnerSummary
}
