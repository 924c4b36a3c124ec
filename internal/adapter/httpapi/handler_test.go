package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/adapter/storage/local"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/asset"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/query"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/metrics"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, actor domain.Actor, in usecase.CreateListingInput, images []asset.Upload) (*domain.Listing, error) {
	args := m.Called(ctx, actor, in, images)
	l, _ := args.Get(0).(*domain.Listing)
	return l, args.Error(1)
}

func (m *MockListingService) UpdateListing(ctx context.Context, actor domain.Actor, id string, patch usecase.UpdateListingInput, imagesToDelete []string, newImages []asset.Upload) (*domain.Listing, error) {
	args := m.Called(ctx, actor, id, patch, imagesToDelete, newImages)
	l, _ := args.Get(0).(*domain.Listing)
	return l, args.Error(1)
}

func (m *MockListingService) DeleteListing(ctx context.Context, actor domain.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockListingService) ToggleAvailability(ctx context.Context, actor domain.Actor, id string) (*domain.Listing, error) {
	args := m.Called(ctx, actor, id)
	l, _ := args.Get(0).(*domain.Listing)
	return l, args.Error(1)
}

func (m *MockListingService) GetListing(ctx context.Context, id string) (*domain.ListingView, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*domain.ListingView)
	return v, args.Error(1)
}

func (m *MockListingService) SearchListings(ctx context.Context, raw query.RawParams) ([]*domain.ListingView, error) {
	args := m.Called(ctx, raw)
	v, _ := args.Get(0).([]*domain.ListingView)
	return v, args.Error(1)
}

func (m *MockListingService) MyListings(ctx context.Context, actor domain.Actor, raw query.RawParams) ([]*domain.ListingView, error) {
	args := m.Called(ctx, actor, raw)
	v, _ := args.Get(0).([]*domain.ListingView)
	return v, args.Error(1)
}

func (m *MockListingService) AllListings(ctx context.Context, actor domain.Actor, raw query.RawParams) ([]*domain.ListingView, error) {
	args := m.Called(ctx, actor, raw)
	v, _ := args.Get(0).([]*domain.ListingView)
	return v, args.Error(1)
}

func newTestRouter(t *testing.T, svc *MockListingService) http.Handler {
	t.Helper()
	log := logger.NewNop()
	h := NewListingHandler(svc, 3, 1<<10, log)
	return NewRouter(h, RouterConfig{JWTSecret: testSecret, Metrics: metrics.NewMetricsManager("property-service")}, log)
}

func token(t *testing.T, userID, role string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func sampleListing() *domain.Listing {
	return &domain.Listing{
		ID:           "665f1c2e9b1d8a0012345678",
		Title:        "Sunny loft",
		Price:        250000,
		PropertyType: domain.PropertyTypeApartment,
		Status:       domain.StatusForSale,
		IsAvailable:  true,
		Images:       []string{"/uploads/a.jpg"},
		OwnerID:      "agent-1",
	}
}

type formFile struct {
	name string
	data []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(imagesField, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestSearchListingsRoute(t *testing.T) {
	svc := new(MockListingService)
	router := newTestRouter(t, svc)

	want := query.RawParams{SearchTerm: "loft", PropertyType: "Apartment", MinPrice: "1000", Sort: "price_asc", OwnerID: "agent-1", Limit: "6"}
	svc.On("SearchListings", mock.Anything, want).Return([]*domain.ListingView{
		{Listing: sampleListing(), Owner: &domain.OwnerSummary{ID: "agent-1", Name: "Alice", Email: "alice@example.com"}},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/properties?searchTerm=loft&propertyType=Apartment&minPrice=1000&sort=price_asc&agentId=agent-1&limit=6", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[[]map[string]any](t, rec)
	require.Len(t, body, 1)
	assert.Equal(t, "665f1c2e9b1d8a0012345678", body[0]["_id"])
	assert.Equal(t, map[string]any{"_id": "agent-1", "name": "Alice", "email": "alice@example.com"}, body[0]["agent"])
	svc.AssertExpectations(t)
}

func TestRawParamsOwnerAlias(t *testing.T) {
	assert.Equal(t, "agent-2", rawParamsFrom(url.Values{"agent": {"agent-2"}}).OwnerID)
	assert.Equal(t, "agent-1", rawParamsFrom(url.Values{"agentId": {"agent-1"}, "agent": {"agent-2"}}).OwnerID)
}

func TestInvalidFilterIsBadRequest(t *testing.T) {
	svc := new(MockListingService)
	router := newTestRouter(t, svc)
	svc.On("SearchListings", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: minPrice must be a number", domain.ErrInvalidFilter)).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties?minPrice=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Message, "minPrice")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	svc := new(MockListingService)
	router := newTestRouter(t, svc)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/properties/my-listings"},
		{http.MethodGet, "/api/properties/all"},
		{http.MethodPost, "/api/properties"},
		{http.MethodPut, "/api/properties/abc"},
		{http.MethodDelete, "/api/properties/abc"},
		{http.MethodPatch, "/api/properties/abc/toggle-availability"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
	svc.AssertNotCalled(t, "MyListings", mock.Anything, mock.Anything, mock.Anything)
}

func TestMyListingsAndAllAreNotShadowedByID(t *testing.T) {
	svc := new(MockListingService)
	router := newTestRouter(t, svc)
	agent := domain.Actor{ID: "agent-1", Role: domain.RoleAgent}

	svc.On("MyListings", mock.Anything, agent, query.RawParams{}).Return([]*domain.ListingView{}, nil).Once()
	svc.On("AllListings", mock.Anything, agent, query.RawParams{}).Return(nil, &domain.AccessDeniedError{Operation: domain.OpManageAll, Reason: domain.ReasonInsufficientRole}).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/properties/my-listings", nil)
	req.Header.Set("Authorization", token(t, "agent-1", "agent", time.Hour))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/properties/all", nil)
	req.Header.Set("Authorization", token(t, "agent-1", "agent", time.Hour))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient_role", decode[errorResponse](t, rec).Reason)

	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "GetListing", mock.Anything, mock.Anything)
}

func TestGetListingRoute(t *testing.T) {
	svc := new(MockListingService)
	router := newTestRouter(t, svc)
	svc.On("GetListing", mock.Anything, "abc").Return(nil, domain.ErrListingNotFound).Once()
	svc.On("GetListing", mock.Anything, "665f1c2e9b1d8a0012345678").Return(&domain.ListingView{Listing: sampleListing()}, nil).Once()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties/665f1c2e9b1d8a0012345678", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Sunny loft", body["title"])
	assert.Equal(t, map[string]any{"_id": "agent-1"}, body["agent"])
}

func TestCreateListingRoute(t *testing.T) {
	agent := domain.Actor{ID: "agent-1", Role: domain.RoleAgent}
	fields := map[string]string{
		"title":        "Sunny loft",
		"description":  "Two rooms",
		"address":      "12 Elm St",
		"city":         "Springfield",
		"state":        "IL",
		"zipCode":      "62701",
		"price":        "250000",
		"bedrooms":     "2",
		"bathrooms":    "1",
		"propertyType": "Apartment",
		"status":       "For Sale",
	}

	t.Run("passes fields and images in order", func(t *testing.T) {
		svc := new(MockListingService)
		router := newTestRouter(t, svc)

		wantInput := usecase.CreateListingInput{
			Title: "Sunny loft", Description: "Two rooms", Address: "12 Elm St", City: "Springfield",
			State: "IL", ZipCode: "62701", Price: 250000, Bedrooms: 2, Bathrooms: 1,
			PropertyType: domain.PropertyTypeApartment, Status: domain.StatusForSale,
		}
		svc.On("CreateListing", mock.Anything, agent, wantInput, mock.MatchedBy(func(ups []asset.Upload) bool {
			return len(ups) == 2 && ups[0].Filename == "front.jpg" && ups[1].Filename == "back.jpg" && string(ups[1].Data) == "BACK"
		})).Return(sampleListing(), nil).Once()

		body, ct := multipartBody(t, fields, formFile{"front.jpg", []byte("FRONT")}, formFile{"back.jpg", []byte("BACK")})
		req := httptest.NewRequest(http.MethodPost, "/api/properties", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", token(t, "agent-1", "agent", time.Hour))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("too many images never reach the service", func(t *testing.T) {
		svc := new(MockListingService)
		router := newTestRouter(t, svc)

		files := []formFile{{"1.jpg", []byte("1")}, {"2.jpg", []byte("2")}, {"3.jpg", []byte("3")}, {"4.jpg", []byte("4")}}
		body, ct := multipartBody(t, fields, files...)
		req := httptest.NewRequest(http.MethodPost, "/api/properties", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", token(t, "agent-1", "agent", time.Hour))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "CreateListing", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("oversized image is rejected", func(t *testing.T) {
		svc := new(MockListingService)
		router := newTestRouter(t, svc)

		body, ct := multipartBody(t, fields, formFile{"big.jpg", bytes.Repeat([]byte("x"), 2<<10)})
		req := httptest.NewRequest(http.MethodPost, "/api/properties", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", token(t, "agent-1", "agent", time.Hour))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed number", func(t *testing.T) {
		svc := new(MockListingService)
		router := newTestRouter(t, svc)

		bad := map[string]string{"title": "x", "price": "lots"}
		body, ct := multipartBody(t, bad, formFile{"a.jpg", []byte("a")})
		req := httptest.NewRequest(http.MethodPost, "/api/properties", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", token(t, "agent-1", "agent", time.Hour))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[errorResponse](t, rec).Message, "price")
	})

	t.Run("storage failure is a bad gateway", func(t *testing.T) {
		svc := new(MockListingService)
		router := newTestRouter(t, svc)
		svc.On("CreateListing", mock.Anything, agent, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: 1 of 1 uploads failed", domain.ErrUpstreamStorage)).Once()

		body, ct := multipartBody(t, fields, formFile{"a.jpg", []byte("a")})
		req := httptest.NewRequest(http.MethodPost, "/api/properties", body)
		req.Header.Set("Content-Type", ct)
		req.Header.Set("Authorization", token(t, "agent-1", "agent", time.Hour))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestUpdateListingRoute(t *testing.T) {
	svc := new(MockListingService)
	router := newTestRouter(t, svc)
	agent := domain.Actor{ID: "agent-1", Role: domain.RoleAgent}

	price := 199000.0
	svc.On("UpdateListing", mock.Anything, agent, "abc",
		usecase.UpdateListingInput{Price: &price},
		[]string{"/uploads/a.jpg", "https://minio/real-estate/properties/b.jpg"},
		mock.MatchedBy(func(ups []asset.Upload) bool { return len(ups) == 1 && ups[0].Filename == "new.jpg" }),
	).Return(sampleListing(), nil).Once()

	body, ct := multipartBody(t, map[string]string{
		"price":          "199000",
		"imagesToDelete": `["/uploads/a.jpg","https://minio/real-estate/properties/b.jpg"]`,
	}, formFile{"new.jpg", []byte("n")})
	req := httptest.NewRequest(http.MethodPut, "/api/properties/abc", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", token(t, "agent-1", "agent", time.Hour))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestDeleteAndToggleRoutes(t *testing.T) {
	svc := new(MockListingService)
	router := newTestRouter(t, svc)
	admin := domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
	other := domain.Actor{ID: "agent-2", Role: domain.RoleAgent}

	svc.On("DeleteListing", mock.Anything, admin, "abc").Return(nil).Once()
	svc.On("ToggleAvailability", mock.Anything, other, "abc").
		Return(nil, &domain.AccessDeniedError{Operation: domain.OpToggleAvailability, Reason: domain.ReasonNotOwner}).Once()

	req := httptest.NewRequest(http.MethodDelete, "/api/properties/abc", nil)
	req.Header.Set("Authorization", token(t, "admin-1", "admin", time.Hour))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPatch, "/api/properties/abc/toggle-availability", nil)
	req.Header.Set("Authorization", token(t, "agent-2", "agent", time.Hour))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_owner", decode[errorResponse](t, rec).Reason)

	svc.AssertExpectations(t)
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.Validationf("bad"), http.StatusBadRequest},
		{fmt.Errorf("%w: x", domain.ErrInvalidFilter), http.StatusBadRequest},
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{&domain.AccessDeniedError{Reason: domain.ReasonNotOwner}, http.StatusForbidden},
		{domain.ErrListingNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: put", domain.ErrUpstreamStorage), http.StatusBadGateway},
		{fmt.Errorf("%w: mongo down", domain.ErrPersistence), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestHealthAndUploads(t *testing.T) {
	log := logger.NewNop()
	fs := memfs.New()
	store := local.NewStorage(fs, "/uploads/", log)
	loc, err := store.Put(context.Background(), asset.Upload{Filename: "pic.jpg", Data: []byte("JPEGDATA")})
	require.NoError(t, err)

	h := NewListingHandler(new(MockListingService), 5, 1<<20, log)
	router := NewRouter(h, RouterConfig{JWTSecret: testSecret, UploadsPrefix: "/uploads/", Uploads: store.Handler()}, log)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, loc, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "JPEGDATA", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/missing.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
