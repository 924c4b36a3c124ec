package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/asset"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/query"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/usecase"
)

const (
	imagesField         = "images"
	imagesToDeleteField = "imagesToDelete"
	multipartMemory     = 8 << 20
	formOverhead        = 1 << 20
)

// parseForm reads a multipart or urlencoded body, bounded by the configured
// per-file size times the image limit.
func (h *ListingHandler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxImages)*h.maxFileBytes+formOverhead)
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, http.ErrNotMultipart):
		if err := r.ParseForm(); err != nil {
			return domain.Validationf("invalid form body: %v", err)
		}
		return nil
	case errors.As(err, &tooLarge):
		return domain.Validationf("request body exceeds %d bytes", tooLarge.Limit)
	default:
		return domain.Validationf("invalid multipart body: %v", err)
	}
}

func (h *ListingHandler) readUploads(r *http.Request) ([]asset.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[imagesField]
	if len(headers) > h.maxImages {
		return nil, domain.Validationf("at most %d images may be uploaded at once, got %d", h.maxImages, len(headers))
	}
	uploads := make([]asset.Upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.maxFileBytes {
			return nil, domain.Validationf("image %q exceeds %d bytes", fh.Filename, h.maxFileBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, domain.Validationf("read image %q: %v", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, domain.Validationf("read image %q: %v", fh.Filename, err)
		}
		uploads = append(uploads, asset.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return uploads, nil
}

// formReader collects the first conversion error so handlers can read all
// fields and check once.
type formReader struct {
	values url.Values
	err    error
}

func (f *formReader) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *formReader) str(key string) string {
	return strings.TrimSpace(f.values.Get(key))
}

func (f *formReader) float(key string) float64 {
	v := f.str(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil && f.err == nil {
		f.err = domain.Validationf("%s must be a number, got %q", key, v)
	}
	return n
}

func (f *formReader) int(key string) int {
	v := f.str(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil && f.err == nil {
		f.err = domain.Validationf("%s must be an integer, got %q", key, v)
	}
	return n
}

func (f *formReader) strPtr(key string) *string {
	if !f.has(key) {
		return nil
	}
	v := f.str(key)
	return &v
}

func (f *formReader) floatPtr(key string) *float64 {
	if !f.has(key) {
		return nil
	}
	v := f.float(key)
	return &v
}

func (f *formReader) intPtr(key string) *int {
	if !f.has(key) {
		return nil
	}
	v := f.int(key)
	return &v
}

func (f *formReader) boolPtr(key string) *bool {
	if !f.has(key) {
		return nil
	}
	v, err := strconv.ParseBool(f.str(key))
	if err != nil && f.err == nil {
		f.err = domain.Validationf("%s must be true or false", key)
	}
	return &v
}

func createInputFrom(values url.Values) (usecase.CreateListingInput, error) {
	f := &formReader{values: values}
	in := usecase.CreateListingInput{
		Title:        f.str("title"),
		Description:  f.str("description"),
		Address:      f.str("address"),
		City:         f.str("city"),
		State:        f.str("state"),
		ZipCode:      f.str("zipCode"),
		Price:        f.float("price"),
		Bedrooms:     f.int("bedrooms"),
		Bathrooms:    f.int("bathrooms"),
		Sqft:         f.int("sqft"),
		Latitude:     f.float("latitude"),
		Longitude:    f.float("longitude"),
		PropertyType: domain.PropertyType(f.str("propertyType")),
		Status:       domain.ListingStatus(f.str("status")),
	}
	return in, f.err
}

func updateInputFrom(values url.Values) (usecase.UpdateListingInput, error) {
	f := &formReader{values: values}
	in := usecase.UpdateListingInput{
		Title:       f.strPtr("title"),
		Description: f.strPtr("description"),
		Address:     f.strPtr("address"),
		City:        f.strPtr("city"),
		State:       f.strPtr("state"),
		ZipCode:     f.strPtr("zipCode"),
		Price:       f.floatPtr("price"),
		Bedrooms:    f.intPtr("bedrooms"),
		Bathrooms:   f.intPtr("bathrooms"),
		Sqft:        f.intPtr("sqft"),
		Latitude:    f.floatPtr("latitude"),
		Longitude:   f.floatPtr("longitude"),
		IsAvailable: f.boolPtr("isAvailable"),
	}
	if v := f.strPtr("propertyType"); v != nil {
		t := domain.PropertyType(*v)
		in.PropertyType = &t
	}
	if v := f.strPtr("status"); v != nil {
		s := domain.ListingStatus(*v)
		in.Status = &s
	}
	return in, f.err
}

// imagesToDelete accepts either one JSON array value or repeated plain values.
func imagesToDelete(values url.Values) ([]string, error) {
	raw := values[imagesToDeleteField]
	if len(raw) == 1 && strings.HasPrefix(strings.TrimSpace(raw[0]), "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw[0]), &out); err != nil {
			return nil, domain.Validationf("%s must be a JSON array of strings", imagesToDeleteField)
		}
		return out, nil
	}
	var out []string
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// rawParamsFrom reads the search query string. "agent" is accepted as an alias
// of agentId.
func rawParamsFrom(q url.Values) query.RawParams {
	owner := q.Get("agentId")
	if owner == "" {
		owner = q.Get("agent")
	}
	return query.RawParams{
		SearchTerm:   q.Get("searchTerm"),
		PropertyType: q.Get("propertyType"),
		Status:       q.Get("status"),
		MinPrice:     q.Get("minPrice"),
		MaxPrice:     q.Get("maxPrice"),
		Bedrooms:     q.Get("bedrooms"),
		Sort:         q.Get("sort"),
		OwnerID:      owner,
		Area:         q.Get("area"),
		Limit:        q.Get("limit"),
	}
}
