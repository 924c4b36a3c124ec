package httpapi

import (
	"context"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/asset"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/query"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ListingService is the usecase surface the handlers call.
type ListingService interface {
	CreateListing(ctx context.Context, actor domain.Actor, in usecase.CreateListingInput, images []asset.Upload) (*domain.Listing, error)
	UpdateListing(ctx context.Context, actor domain.Actor, id string, patch usecase.UpdateListingInput, imagesToDelete []string, newImages []asset.Upload) (*domain.Listing, error)
	DeleteListing(ctx context.Context, actor domain.Actor, id string) error
	ToggleAvailability(ctx context.Context, actor domain.Actor, id string) (*domain.Listing, error)
	GetListing(ctx context.Context, id string) (*domain.ListingView, error)
	SearchListings(ctx context.Context, raw query.RawParams) ([]*domain.ListingView, error)
	MyListings(ctx context.Context, actor domain.Actor, raw query.RawParams) ([]*domain.ListingView, error)
	AllListings(ctx context.Context, actor domain.Actor, raw query.RawParams) ([]*domain.ListingView, error)
}

type ListingHandler struct {
	svc          ListingService
	maxImages    int
	maxFileBytes int64
	logger       *logger.Logger
}

func NewListingHandler(svc ListingService, maxImages int, maxFileBytes int64, log *logger.Logger) *ListingHandler {
	if maxImages <= 0 {
		maxImages = 5
	}
	if maxFileBytes <= 0 {
		maxFileBytes = 10 << 20
	}
	return &ListingHandler{svc: svc, maxImages: maxImages, maxFileBytes: maxFileBytes, logger: log.Named("ListingHandler")}
}

func (h *ListingHandler) HandleSearchListings(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.SearchListings(r.Context(), rawParamsFrom(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponses(views))
}

func (h *ListingHandler) HandleAllListings(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	views, err := h.svc.AllListings(r.Context(), actor, rawParamsFrom(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponses(views))
}

func (h *ListingHandler) HandleMyListings(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	views, err := h.svc.MyListings(r.Context(), actor, rawParamsFrom(r.URL.Query()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponses(views))
}

func (h *ListingHandler) HandleGetListing(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetListing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(view.Listing, view.Owner))
}

func (h *ListingHandler) HandleCreateListing(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := createInputFrom(r.PostForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	uploads, err := h.readUploads(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	listing, err := h.svc.CreateListing(r.Context(), actor, in, uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Debug("Listing created via HTTP", zap.String("listing_id", listing.ID))
	writeJSON(w, http.StatusCreated, toListingResponse(listing, nil))
}

func (h *ListingHandler) HandleUpdateListing(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	if err := h.parseForm(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	patch, err := updateInputFrom(r.PostForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	toDelete, err := imagesToDelete(r.PostForm)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	uploads, err := h.readUploads(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	listing, err := h.svc.UpdateListing(r.Context(), actor, chi.URLParam(r, "id"), patch, toDelete, uploads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing, nil))
}

func (h *ListingHandler) HandleDeleteListing(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	if err := h.svc.DeleteListing(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Property removed"})
}

func (h *ListingHandler) HandleToggleAvailability(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	listing, err := h.svc.ToggleAvailability(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(listing, nil))
}
