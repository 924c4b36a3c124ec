package httpapi

import (
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
)

type agentResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// listingResponse is the JSON shape clients already consume.
type listingResponse struct {
	ID           string        `json:"_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Address      string        `json:"address"`
	City         string        `json:"city"`
	State        string        `json:"state"`
	ZipCode      string        `json:"zipCode"`
	Price        float64       `json:"price"`
	Bedrooms     int           `json:"bedrooms"`
	Bathrooms    int           `json:"bathrooms"`
	Sqft         int           `json:"sqft"`
	Latitude     float64       `json:"latitude"`
	Longitude    float64       `json:"longitude"`
	Geohash      string        `json:"geohash,omitempty"`
	PropertyType string        `json:"propertyType"`
	Status       string        `json:"status"`
	IsAvailable  bool          `json:"isAvailable"`
	Images       []string      `json:"images"`
	Agent        agentResponse `json:"agent"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func toListingResponse(l *domain.Listing, owner *domain.OwnerSummary) listingResponse {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	resp := listingResponse{
		ID:           l.ID,
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
		Agent:        agentResponse{ID: l.OwnerID},
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
	if owner != nil {
		resp.Agent.Name = owner.Name
		resp.Agent.Email = owner.Email
	}
	return resp
}

func toListingResponses(views []*domain.ListingView) []listingResponse {
	out := make([]listingResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toListingResponse(v.Listing, v.Owner))
	}
	return out
}
