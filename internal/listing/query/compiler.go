// Package query turns loosely typed search parameters into a typed filter
// specification and compiles that into a storage-neutral predicate.
package query

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
)

const (
	// AllSentinel is sent by clients for "no constraint" on enumerated fields.
	AllSentinel = "all"
	MaxLimit    = 100
)

// RawParams are search parameters exactly as received, e.g. from a URL query.
type RawParams struct {
	SearchTerm   string
	PropertyType string
	Status       string
	MinPrice     string
	MaxPrice     string
	Bedrooms     string
	Sort         string
	OwnerID      string
	Area         string
	Limit        string
}

// textFields are searched, in this order, by the free-text term.
var textFields = []domain.Field{
	domain.FieldTitle,
	domain.FieldAddress,
	domain.FieldCity,
	domain.FieldState,
}

// Parse validates raw parameters into a FilterSpec. Empty values and "all"
// mean no constraint. An unknown sort falls back to newest first.
func Parse(raw RawParams) (domain.FilterSpec, error) {
	spec := domain.FilterSpec{
		SearchTerm: strings.TrimSpace(raw.SearchTerm),
		OwnerID:    strings.TrimSpace(raw.OwnerID),
		Sort:       parseSort(raw.Sort),
	}

	if v, ok := present(raw.PropertyType); ok {
		t := domain.PropertyType(v)
		if !t.IsValid() {
			return domain.FilterSpec{}, fmt.Errorf("%w: unknown propertyType %q", domain.ErrInvalidFilter, v)
		}
		spec.PropertyType = t
	}
	if v, ok := present(raw.Status); ok {
		s := domain.ListingStatus(v)
		if !s.IsValid() {
			return domain.FilterSpec{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidFilter, v)
		}
		spec.Status = s
	}

	var err error
	if spec.MinPrice, err = parsePrice("minPrice", raw.MinPrice); err != nil {
		return domain.FilterSpec{}, err
	}
	if spec.MaxPrice, err = parsePrice("maxPrice", raw.MaxPrice); err != nil {
		return domain.FilterSpec{}, err
	}

	if v, ok := present(raw.Bedrooms); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return domain.FilterSpec{}, fmt.Errorf("%w: bedrooms must be a non-negative integer, got %q", domain.ErrInvalidFilter, v)
		}
		spec.MinBedrooms = &n
	}

	if v, ok := present(raw.Area); ok {
		area := strings.ToLower(v)
		if !isGeohash(area) {
			return domain.FilterSpec{}, fmt.Errorf("%w: area must be a geohash prefix, got %q", domain.ErrInvalidFilter, v)
		}
		spec.Area = area
	}

	if v, ok := present(raw.Limit); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return domain.FilterSpec{}, fmt.Errorf("%w: limit must be a positive integer, got %q", domain.ErrInvalidFilter, v)
		}
		spec.Limit = min(n, MaxLimit)
	}

	return spec, nil
}

// Compile lowers a FilterSpec into a predicate and ordering. It is pure and
// emits clauses in a fixed order, so equal inputs give equal outputs.
func Compile(spec domain.FilterSpec, view domain.View) (domain.Predicate, domain.SortSpec) {
	var clauses []domain.Clause

	if spec.SearchTerm != "" {
		clauses = append(clauses, domain.TextClause{Fields: textFields, Term: spec.SearchTerm})
	}
	if spec.PropertyType != "" {
		clauses = append(clauses, domain.EqClause{Field: domain.FieldPropertyType, Value: string(spec.PropertyType)})
	}
	if spec.Status != "" {
		clauses = append(clauses, domain.EqClause{Field: domain.FieldStatus, Value: string(spec.Status)})
	}
	if spec.MinPrice != nil || spec.MaxPrice != nil {
		clauses = append(clauses, domain.RangeClause{Field: domain.FieldPrice, Min: spec.MinPrice, Max: spec.MaxPrice})
	}
	if spec.MinBedrooms != nil {
		beds := float64(*spec.MinBedrooms)
		clauses = append(clauses, domain.RangeClause{Field: domain.FieldBedrooms, Min: &beds})
	}
	if spec.OwnerID != "" {
		clauses = append(clauses, domain.EqClause{Field: domain.FieldOwner, Value: spec.OwnerID})
	}
	if spec.Area != "" {
		clauses = append(clauses, domain.PrefixClause{Field: domain.FieldGeohash, Prefix: spec.Area})
	}
	if view == domain.ViewPublic {
		clauses = append(clauses, domain.EqClause{Field: domain.FieldIsAvailable, Value: true})
	}

	return domain.Predicate{Clauses: clauses}, sortFor(spec.Sort)
}

func sortFor(key domain.SortKey) domain.SortSpec {
	switch key {
	case domain.SortPriceAsc:
		return domain.SortSpec{Field: domain.FieldPrice}
	case domain.SortPriceDesc:
		return domain.SortSpec{Field: domain.FieldPrice, Descending: true}
	default:
		return domain.SortSpec{Field: domain.FieldCreatedAt, Descending: true}
	}
}

func parseSort(raw string) domain.SortKey {
	switch k := domain.SortKey(strings.TrimSpace(raw)); k {
	case domain.SortPriceAsc, domain.SortPriceDesc:
		return k
	default:
		return domain.SortNewest
	}
}

func parsePrice(name, raw string) (*float64, error) {
	v, ok := present(raw)
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative number, got %q", domain.ErrInvalidFilter, name, v)
	}
	return &f, nil
}

// present trims v and reports whether it carries a constraint.
func present(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, AllSentinel) {
		return "", false
	}
	return v, true
}

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

func isGeohash(s string) bool {
	if len(s) > domain.GeohashPrecision {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(geohashAlphabet, r) {
			return false
		}
	}
	return true
}
