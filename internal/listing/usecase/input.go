package usecase

import (
	"strings"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
)

// CreateListingInput carries the scalar fields of a new listing.
type CreateListingInput struct {
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
	PropertyType domain.PropertyType
	Status       domain.ListingStatus
}

// UpdateListingInput is a partial update: nil fields are left untouched.
type UpdateListingInput struct {
	Title        *string
	Description  *string
	Address      *string
	City         *string
	State        *string
	ZipCode      *string
	Price        *float64
	Bedrooms     *int
	Bathrooms    *int
	Sqft         *int
	Latitude     *float64
	Longitude    *float64
	PropertyType *domain.PropertyType
	Status       *domain.ListingStatus
	IsAvailable  *bool
}

type namedText struct {
	name  string
	value string
}

func (in CreateListingInput) validate() error {
	var missing []string
	for _, f := range []namedText{
		{"title", in.Title},
		{"description", in.Description},
		{"address", in.Address},
		{"city", in.City},
		{"state", in.State},
		{"zipCode", in.ZipCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return domain.Validationf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return validateFacts(in.Price, in.Bedrooms, in.Bathrooms, in.Sqft, in.Latitude, in.Longitude, in.PropertyType, in.Status)
}

func (in UpdateListingInput) validate(current *domain.Listing) error {
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"title", in.Title},
		{"description", in.Description},
		{"address", in.Address},
		{"city", in.City},
		{"state", in.State},
		{"zipCode", in.ZipCode},
	} {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return domain.Validationf("%s cannot be empty", f.name)
		}
	}
	merged := current.Clone()
	in.apply(merged)
	return validateFacts(merged.Price, merged.Bedrooms, merged.Bathrooms, merged.Sqft, merged.Latitude, merged.Longitude, merged.PropertyType, merged.Status)
}

// apply overwrites only the fields present in the patch. It reports whether
// the coordinates changed.
func (in UpdateListingInput) apply(l *domain.Listing) bool {
	setString(&l.Title, in.Title)
	setString(&l.Description, in.Description)
	setString(&l.Address, in.Address)
	setString(&l.City, in.City)
	setString(&l.State, in.State)
	setString(&l.ZipCode, in.ZipCode)
	if in.Price != nil {
		l.Price = *in.Price
	}
	if in.Bedrooms != nil {
		l.Bedrooms = *in.Bedrooms
	}
	if in.Bathrooms != nil {
		l.Bathrooms = *in.Bathrooms
	}
	if in.Sqft != nil {
		l.Sqft = *in.Sqft
	}
	if in.PropertyType != nil {
		l.PropertyType = *in.PropertyType
	}
	if in.Status != nil {
		l.Status = *in.Status
	}
	if in.IsAvailable != nil {
		l.IsAvailable = *in.IsAvailable
	}
	moved := false
	if in.Latitude != nil && *in.Latitude != l.Latitude {
		l.Latitude = *in.Latitude
		moved = true
	}
	if in.Longitude != nil && *in.Longitude != l.Longitude {
		l.Longitude = *in.Longitude
		moved = true
	}
	return moved
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func validateFacts(price float64, beds, baths, sqft int, lat, lng float64, t domain.PropertyType, s domain.ListingStatus) error {
	switch {
	case price <= 0:
		return domain.Validationf("price must be positive")
	case beds < 0 || baths < 0 || sqft < 0:
		return domain.Validationf("bedrooms, bathrooms and sqft cannot be negative")
	case lat < -90 || lat > 90 || lng < -180 || lng > 180:
		return domain.Validationf("coordinates out of range")
	case !t.IsValid():
		return domain.Validationf("unknown propertyType %q", t)
	case !s.IsValid():
		return domain.Validationf("unknown status %q", s)
	}
	return nil
}
