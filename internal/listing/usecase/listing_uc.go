package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/asset"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/authz"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/query"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("property-service/usecase")

const defaultMaxImages = 5

// ImageManager is the subset of asset.Manager the usecase depends on.
type ImageManager interface {
	UploadAll(ctx context.Context, uploads []asset.Upload) ([]string, error)
	RemoveAll(ctx context.Context, locators []string) []asset.DeleteOutcome
	Reconcile(ctx context.Context, current, toDelete []string, uploads []asset.Upload) (asset.Reconciliation, error)
}

type ListingUsecase struct {
	repo      domain.ListingRepository
	users     domain.UserDirectory
	images    ImageManager
	cache     domain.ListingCache
	events    domain.EventPublisher
	notifier  domain.Notifier
	metrics   *metrics.MetricsManager
	maxImages int
	now       func() time.Time
	logger    *logger.Logger
}

type Option func(*ListingUsecase)

func WithCache(c domain.ListingCache) Option { return func(uc *ListingUsecase) { uc.cache = c } }

func WithEvents(p domain.EventPublisher) Option { return func(uc *ListingUsecase) { uc.events = p } }

func WithNotifier(n domain.Notifier) Option { return func(uc *ListingUsecase) { uc.notifier = n } }

func WithMetrics(m *metrics.MetricsManager) Option {
	return func(uc *ListingUsecase) { uc.metrics = m }
}

// WithMaxImages bounds how many images one request may upload.
func WithMaxImages(n int) Option {
	return func(uc *ListingUsecase) {
		if n > 0 {
			uc.maxImages = n
		}
	}
}

func WithClock(now func() time.Time) Option { return func(uc *ListingUsecase) { uc.now = now } }

func NewListingUsecase(repo domain.ListingRepository, users domain.UserDirectory, images ImageManager, log *logger.Logger, opts ...Option) *ListingUsecase {
	uc := &ListingUsecase{
		repo:      repo,
		users:     users,
		images:    images,
		maxImages: defaultMaxImages,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    log.Named("ListingUsecase"),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// CreateListing authorizes, validates, stores the images and then persists the
// listing. If persistence fails the fresh uploads are removed again.
func (uc *ListingUsecase) CreateListing(ctx context.Context, actor domain.Actor, in CreateListingInput, images []asset.Upload) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.CreateListing")
	defer span.End()

	if err := authz.Authorize(actor, actor.ID, domain.OpCreate).Err(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, domain.Validationf("at least one image is required")
	}
	if err := uc.checkImageCount(len(images)); err != nil {
		return nil, err
	}

	locators, err := uc.images.UploadAll(ctx, images)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	now := uc.now()
	listing := &domain.Listing{
		Title:        in.Title,
		Description:  in.Description,
		Address:      in.Address,
		City:         in.City,
		State:        in.State,
		ZipCode:      in.ZipCode,
		Price:        in.Price,
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		Sqft:         in.Sqft,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		PropertyType: in.PropertyType,
		Status:       in.Status,
		IsAvailable:  true,
		Images:       locators,
		OwnerID:      actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	listing.Locate()

	if err := uc.repo.Create(ctx, listing); err != nil {
		uc.logger.Error("Failed to persist listing, removing uploaded images", zap.String("owner_id", actor.ID), zap.Error(err))
		uc.reportOrphans(ctx, "", uc.images.RemoveAll(ctx, locators), "persist_failed")
		recordErr(span, err)
		return nil, persistenceErr(err)
	}
	span.SetAttributes(attribute.String("listing.id", listing.ID))
	uc.logger.Info("Listing created", zap.String("listing_id", listing.ID), zap.String("owner_id", actor.ID), zap.Int("images", len(locators)))

	uc.afterMutation(ctx, listing.ID, "create")
	uc.publish(ctx, SubjectListingCreated, newListingEvent(listing, actor, now))
	uc.notifyCreated(ctx, listing)
	return listing, nil
}

// UpdateListing applies a partial field update plus an image edit. Only
// locators already on the listing are removed. The result keeps the surviving
// images in order followed by the new ones, whether or not the physical
// deletes succeed.
func (uc *ListingUsecase) UpdateListing(ctx context.Context, actor domain.Actor, id string, patch UpdateListingInput, imagesToDelete []string, newImages []asset.Upload) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.UpdateListing")
	defer span.End()
	span.SetAttributes(attribute.String("listing.id", id))

	current, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, persistenceErr(err)
	}
	if err := authz.Authorize(actor, current.OwnerID, domain.OpUpdate).Err(); err != nil {
		return nil, err
	}
	if err := patch.validate(current); err != nil {
		return nil, err
	}
	if err := uc.checkImageCount(len(newImages)); err != nil {
		return nil, err
	}
	kept, _ := asset.Partition(current.Images, imagesToDelete)
	if len(kept)+len(newImages) == 0 {
		return nil, domain.Validationf("a listing must keep at least one image")
	}

	rec, err := uc.images.Reconcile(ctx, current.Images, imagesToDelete, newImages)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	updated := current.Clone()
	if moved := patch.apply(updated); moved {
		updated.Locate()
	}
	updated.Images = rec.Images
	updated.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, updated); err != nil {
		uc.logger.Error("Failed to persist listing update, removing new images", zap.String("listing_id", id), zap.Error(err))
		uc.reportOrphans(ctx, id, uc.images.RemoveAll(ctx, rec.Added), "persist_failed")
		uc.reportOrphans(ctx, id, rec.Orphans(), "delete_failed")
		if gone := deletedCount(rec.Removed); gone > 0 {
			uc.logger.Warn("Stored listing still references deleted images", zap.String("listing_id", id), zap.Int("count", gone))
		}
		recordErr(span, err)
		return nil, persistenceErr(err)
	}
	uc.logger.Info("Listing updated", zap.String("listing_id", id), zap.String("actor_id", actor.ID),
		zap.Int("images_added", len(rec.Added)), zap.Int("images_removed", len(rec.Removed)))

	uc.reportOrphans(ctx, id, rec.Orphans(), "delete_failed")
	uc.afterMutation(ctx, id, "update")
	uc.publish(ctx, SubjectListingUpdated, newListingEvent(updated, actor, updated.UpdatedAt))
	return updated, nil
}

// DeleteListing removes the record and, concurrently, the listing's stored
// images. Image removal is best-effort; failures are reported as orphans.
func (uc *ListingUsecase) DeleteListing(ctx context.Context, actor domain.Actor, id string) error {
	ctx, span := tracer.Start(ctx, "ListingUsecase.DeleteListing")
	defer span.End()
	span.SetAttributes(attribute.String("listing.id", id))

	current, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return persistenceErr(err)
	}
	if err := authz.Authorize(actor, current.OwnerID, domain.OpDelete).Err(); err != nil {
		return err
	}

	var outcomes []asset.DeleteOutcome
	var g errgroup.Group
	g.Go(func() error {
		outcomes = uc.images.RemoveAll(ctx, current.Images)
		return nil
	})
	g.Go(func() error {
		return uc.repo.Delete(ctx, id)
	})
	if err := g.Wait(); err != nil {
		uc.logger.Error("Failed to delete listing", zap.String("listing_id", id), zap.Error(err))
		uc.reportOrphans(ctx, id, outcomes, "delete_failed")
		recordErr(span, err)
		return persistenceErr(err)
	}
	uc.logger.Info("Listing deleted", zap.String("listing_id", id), zap.String("actor_id", actor.ID))

	uc.reportOrphans(ctx, id, outcomes, "delete_failed")
	uc.afterMutation(ctx, id, "delete")
	uc.publish(ctx, SubjectListingDeleted, newListingEvent(current, actor, uc.now()))
	return nil
}

// ToggleAvailability flips IsAvailable and returns the updated listing.
func (uc *ListingUsecase) ToggleAvailability(ctx context.Context, actor domain.Actor, id string) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.ToggleAvailability")
	defer span.End()
	span.SetAttributes(attribute.String("listing.id", id))

	current, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, persistenceErr(err)
	}
	if err := authz.Authorize(actor, current.OwnerID, domain.OpToggleAvailability).Err(); err != nil {
		return nil, err
	}

	updated := current.Clone()
	updated.IsAvailable = !updated.IsAvailable
	updated.UpdatedAt = uc.now()
	if err := uc.repo.Update(ctx, updated); err != nil {
		recordErr(span, err)
		return nil, persistenceErr(err)
	}
	uc.logger.Info("Listing availability toggled", zap.String("listing_id", id), zap.Bool("is_available", updated.IsAvailable))

	uc.afterMutation(ctx, id, "toggle_availability")
	uc.publish(ctx, SubjectListingAvailabilityToggle, newListingEvent(updated, actor, updated.UpdatedAt))
	return updated, nil
}

// GetListing returns a single listing with its owner, served from cache when possible.
func (uc *ListingUsecase) GetListing(ctx context.Context, id string) (*domain.ListingView, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.GetListing")
	defer span.End()

	listing, err := uc.cachedListing(ctx, id)
	if err != nil {
		return nil, err
	}
	views := uc.attachOwners(ctx, []*domain.Listing{listing})
	return views[0], nil
}

// SearchListings runs a public search: only available listings are returned.
func (uc *ListingUsecase) SearchListings(ctx context.Context, raw query.RawParams) ([]*domain.ListingView, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.SearchListings")
	defer span.End()

	spec, err := query.Parse(raw)
	if err != nil {
		return nil, err
	}
	key := spec.CacheKey()
	if uc.cache != nil {
		views, err := uc.cache.GetSearch(ctx, key)
		switch {
		case err == nil:
			uc.metrics.QueryCacheLookup(true)
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return views, nil
		case errors.Is(err, domain.ErrCacheMiss):
			uc.metrics.QueryCacheLookup(false)
		default:
			uc.logger.Warn("Search cache lookup failed", zap.Error(err))
		}
	}

	views, err := uc.find(ctx, spec, domain.ViewPublic)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	if uc.cache != nil {
		if err := uc.cache.SetSearch(ctx, key, views); err != nil {
			uc.logger.Warn("Failed to cache search results", zap.Error(err))
		}
	}
	return views, nil
}

// MyListings returns the actor's own listings in every availability state.
func (uc *ListingUsecase) MyListings(ctx context.Context, actor domain.Actor, raw query.RawParams) ([]*domain.ListingView, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.MyListings")
	defer span.End()

	if err := authz.Authorize(actor, actor.ID, domain.OpViewOwn).Err(); err != nil {
		return nil, err
	}
	spec, err := query.Parse(raw)
	if err != nil {
		return nil, err
	}
	spec.OwnerID = actor.ID
	return uc.find(ctx, spec, domain.ViewManagement)
}

// AllListings is the administrative view over every listing.
func (uc *ListingUsecase) AllListings(ctx context.Context, actor domain.Actor, raw query.RawParams) ([]*domain.ListingView, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.AllListings")
	defer span.End()

	if err := authz.Authorize(actor, "", domain.OpManageAll).Err(); err != nil {
		return nil, err
	}
	spec, err := query.Parse(raw)
	if err != nil {
		return nil, err
	}
	return uc.find(ctx, spec, domain.ViewManagement)
}

func (uc *ListingUsecase) find(ctx context.Context, spec domain.FilterSpec, view domain.View) ([]*domain.ListingView, error) {
	pred, order := query.Compile(spec, view)
	listings, err := uc.repo.Find(ctx, pred, order, spec.Limit)
	if err != nil {
		return nil, persistenceErr(err)
	}
	return uc.attachOwners(ctx, listings), nil
}

func (uc *ListingUsecase) cachedListing(ctx context.Context, id string) (*domain.Listing, error) {
	if uc.cache != nil {
		listing, err := uc.cache.GetListing(ctx, id)
		if err == nil {
			return listing, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			uc.logger.Warn("Listing cache lookup failed", zap.String("listing_id", id), zap.Error(err))
		}
	}
	listing, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, persistenceErr(err)
	}
	if uc.cache != nil {
		if err := uc.cache.SetListing(ctx, listing); err != nil {
			uc.logger.Warn("Failed to cache listing", zap.String("listing_id", id), zap.Error(err))
		}
	}
	return listing, nil
}

// attachOwners resolves owner summaries in one directory call. A directory
// failure degrades to views without owners.
func (uc *ListingUsecase) attachOwners(ctx context.Context, listings []*domain.Listing) []*domain.ListingView {
	views := make([]*domain.ListingView, len(listings))
	ids := make([]string, 0, len(listings))
	seen := make(map[string]struct{}, len(listings))
	for i, l := range listings {
		views[i] = &domain.ListingView{Listing: l}
		if _, ok := seen[l.OwnerID]; !ok && l.OwnerID != "" {
			seen[l.OwnerID] = struct{}{}
			ids = append(ids, l.OwnerID)
		}
	}
	if uc.users == nil || len(ids) == 0 {
		return views
	}
	owners, err := uc.users.GetSummaries(ctx, ids)
	if err != nil {
		uc.logger.Warn("Failed to resolve listing owners", zap.Int("owners", len(ids)), zap.Error(err))
		return views
	}
	for _, v := range views {
		v.Owner = owners[v.Listing.OwnerID]
	}
	return views
}

func (uc *ListingUsecase) checkImageCount(n int) error {
	if n > uc.maxImages {
		return domain.Validationf("at most %d images may be uploaded at once, got %d", uc.maxImages, n)
	}
	return nil
}

// afterMutation drops cached copies of the listing and every cached search.
func (uc *ListingUsecase) afterMutation(ctx context.Context, id, op string) {
	uc.metrics.ListingMutated(op)
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeleteListing(ctx, id); err != nil {
		uc.logger.Warn("Failed to evict listing from cache", zap.String("listing_id", id), zap.Error(err))
	}
	if err := uc.cache.InvalidateSearches(ctx); err != nil {
		uc.logger.Warn("Failed to invalidate search cache", zap.Error(err))
	}
}

func (uc *ListingUsecase) publish(ctx context.Context, subject string, payload any) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, subject, payload); err != nil {
		uc.logger.Warn("Failed to publish event (non-critical)", zap.String("subject", subject), zap.Error(err))
	}
}

func (uc *ListingUsecase) reportOrphans(ctx context.Context, listingID string, outcomes []asset.DeleteOutcome, reason string) {
	var n int
	for _, o := range outcomes {
		if !o.Failed() {
			continue
		}
		n++
		uc.publish(ctx, SubjectImageOrphaned, ImageOrphanedEvent{
			ListingID:  listingID,
			Locator:    o.Locator,
			Backend:    string(o.Kind),
			Reason:     reason,
			OccurredAt: uc.now(),
		})
	}
	if n > 0 {
		uc.metrics.ImagesOrphaned(n)
		uc.logger.Warn("Images orphaned", zap.String("listing_id", listingID), zap.Int("count", n), zap.String("reason", reason))
	}
}

func deletedCount(outcomes []asset.DeleteOutcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.Failed() && !o.Skipped {
			n++
		}
	}
	return n
}

func (uc *ListingUsecase) notifyCreated(ctx context.Context, listing *domain.Listing) {
	if uc.notifier == nil || uc.users == nil {
		return
	}
	owners, err := uc.users.GetSummaries(ctx, []string{listing.OwnerID})
	if err != nil {
		uc.logger.Warn("Failed to resolve owner for notification", zap.String("owner_id", listing.OwnerID), zap.Error(err))
		return
	}
	owner, ok := owners[listing.OwnerID]
	if !ok || owner.Email == "" {
		return
	}
	if err := uc.notifier.SendListingCreatedEmail(owner.Email, listing.Title); err != nil {
		uc.logger.Warn("Failed to send listing created email", zap.String("listing_id", listing.ID), zap.Error(err))
	}
}

// persistenceErr keeps domain errors as they are and marks anything else as a
// store failure.
func persistenceErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrPersistence),
		errors.Is(err, domain.ErrValidation):
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
