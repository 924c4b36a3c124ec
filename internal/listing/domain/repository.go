package domain

import "context"

// ListingRepository persists listings. Find executes a compiled predicate with
// the given ordering; limit <= 0 means no limit.
type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	Update(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	Find(ctx context.Context, pred Predicate, sort SortSpec, limit int) ([]*Listing, error)
}

// UserDirectory resolves owner summaries. Unknown IDs are omitted from the result.
type UserDirectory interface {
	GetSummaries(ctx context.Context, ids []string) (map[string]*OwnerSummary, error)
}

// ListingCache caches single listings and public search pages.
type ListingCache interface {
	GetListing(ctx context.Context, id string) (*Listing, error)
	SetListing(ctx context.Context, listing *Listing) error
	DeleteListing(ctx context.Context, id string) error
	GetSearch(ctx context.Context, key string) ([]*ListingView, error)
	SetSearch(ctx context.Context, key string, views []*ListingView) error
	// InvalidateSearches makes every previously cached search unreachable.
	InvalidateSearches(ctx context.Context) error
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// Notifier sends out-of-band messages to people.
type Notifier interface {
	SendListingCreatedEmail(to, listingTitle string) error
}
