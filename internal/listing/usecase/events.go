package usecase

import (
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
)

const (
	SubjectListingCreated            = "listing.created"
	SubjectListingUpdated            = "listing.updated"
	SubjectListingDeleted            = "listing.deleted"
	SubjectListingAvailabilityToggle = "listing.availability.toggled"
	SubjectImageOrphaned             = "listing.image.orphaned"
)

// ListingEvent is published after every successful listing mutation.
type ListingEvent struct {
	ListingID   string    `json:"listingId"`
	OwnerID     string    `json:"ownerId"`
	ActorID     string    `json:"actorId"`
	Title       string    `json:"title,omitempty"`
	Price       float64   `json:"price,omitempty"`
	IsAvailable bool      `json:"isAvailable"`
	Images      []string  `json:"images,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// ImageOrphanedEvent reports stored bytes that lost their listing reference
// but could not be removed. A janitor can consume these.
type ImageOrphanedEvent struct {
	ListingID  string    `json:"listingId"`
	Locator    string    `json:"locator"`
	Backend    string    `json:"backend"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

func newListingEvent(l *domain.Listing, actor domain.Actor, at time.Time) ListingEvent {
	return ListingEvent{
		ListingID:   l.ID,
		OwnerID:     l.OwnerID,
		ActorID:     actor.ID,
		Title:       l.Title,
		Price:       l.Price,
		IsAvailable: l.IsAvailable,
		Images:      l.Images,
		OccurredAt:  at,
	}
}
