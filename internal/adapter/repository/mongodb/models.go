package mongodb

import (
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// listingDocument is how a Listing is stored in the properties collection.
type listingDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	Title        string             `bson:"title"`
	Description  string             `bson:"description"`
	Address      string             `bson:"address"`
	City         string             `bson:"city"`
	State        string             `bson:"state"`
	ZipCode      string             `bson:"zipCode"`
	Price        float64            `bson:"price"`
	Bedrooms     int                `bson:"bedrooms"`
	Bathrooms    int                `bson:"bathrooms"`
	Sqft         int                `bson:"sqft"`
	Latitude     float64            `bson:"latitude"`
	Longitude    float64            `bson:"longitude"`
	Geohash      string             `bson:"geohash"`
	PropertyType string             `bson:"propertyType"`
	Status       string             `bson:"status"`
	IsAvailable  bool               `bson:"isAvailable"`
	Images       []string           `bson:"images"`
	Agent        string             `bson:"agent"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

// fieldNames maps predicate fields onto document keys.
var fieldNames = map[domain.Field]string{
	domain.FieldID:           "_id",
	domain.FieldTitle:        "title",
	domain.FieldAddress:      "address",
	domain.FieldCity:         "city",
	domain.FieldState:        "state",
	domain.FieldPropertyType: "propertyType",
	domain.FieldStatus:       "status",
	domain.FieldPrice:        "price",
	domain.FieldBedrooms:     "bedrooms",
	domain.FieldOwner:        "agent",
	domain.FieldGeohash:      "geohash",
	domain.FieldIsAvailable:  "isAvailable",
	domain.FieldCreatedAt:    "createdAt",
}

// fromDomainListing converts a Listing. An empty ID yields a zero ObjectID the
// caller must replace before inserting.
func fromDomainListing(l *domain.Listing) (*listingDocument, error) {
	var id primitive.ObjectID
	if l.ID != "" {
		oid, err := primitive.ObjectIDFromHex(l.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid listing ID %q: %w", l.ID, err)
		}
		id = oid
	}
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return &listingDocument{
		ID:           id,
		Title:        l.Title,
		Description:  l.Description,
		Address:      l.Address,
		City:         l.City,
		State:        l.State,
		ZipCode:      l.ZipCode,
		Price:        l.Price,
		Bedrooms:     l.Bedrooms,
		Bathrooms:    l.Bathrooms,
		Sqft:         l.Sqft,
		Latitude:     l.Latitude,
		Longitude:    l.Longitude,
		Geohash:      l.Geohash,
		PropertyType: string(l.PropertyType),
		Status:       string(l.Status),
		IsAvailable:  l.IsAvailable,
		Images:       images,
		Agent:        l.OwnerID,
		CreatedAt:    l.CreatedAt.UTC(),
		UpdatedAt:    l.UpdatedAt.UTC(),
	}, nil
}

func (d *listingDocument) toDomainListing() *domain.Listing {
	return &domain.Listing{
		ID:           d.ID.Hex(),
		Title:        d.Title,
		Description:  d.Description,
		Address:      d.Address,
		City:         d.City,
		State:        d.State,
		ZipCode:      d.ZipCode,
		Price:        d.Price,
		Bedrooms:     d.Bedrooms,
		Bathrooms:    d.Bathrooms,
		Sqft:         d.Sqft,
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		Geohash:      d.Geohash,
		PropertyType: domain.PropertyType(d.PropertyType),
		Status:       domain.ListingStatus(d.Status),
		IsAvailable:  d.IsAvailable,
		Images:       d.Images,
		OwnerID:      d.Agent,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// userDocument is the subset of the users collection this service reads.
type userDocument struct {
	ID    primitive.ObjectID `bson:"_id"`
	Name  string             `bson:"name"`
	Email string             `bson:"email"`
}
