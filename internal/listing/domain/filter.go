package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// View selects which listings a query may see. Public reads only see
// available listings; management reads see everything they are scoped to.
type View int

const (
	ViewPublic View = iota
	ViewManagement
)

// SortKey is the requested ordering.
type SortKey string

const (
	SortNewest    SortKey = "createdAt_desc"
	SortPriceAsc  SortKey = "price_asc"
	SortPriceDesc SortKey = "price_desc"
)

// FilterSpec is the typed form of search parameters. Nil pointers and empty
// strings mean "no constraint".
type FilterSpec struct {
	SearchTerm   string
	PropertyType PropertyType
	Status       ListingStatus
	MinPrice     *float64
	MaxPrice     *float64
	MinBedrooms  *int
	OwnerID      string
	Area         string // geohash prefix
	Sort         SortKey
	Limit        int // 0 means unlimited
}

// CacheKey renders the spec canonically; equal specs give equal keys.
func (f FilterSpec) CacheKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "q=%s", strconv.Quote(f.SearchTerm))
	fmt.Fprintf(&b, "|type=%s|status=%s", f.PropertyType, f.Status)
	if f.MinPrice != nil {
		fmt.Fprintf(&b, "|min=%s", strconv.FormatFloat(*f.MinPrice, 'g', -1, 64))
	}
	if f.MaxPrice != nil {
		fmt.Fprintf(&b, "|max=%s", strconv.FormatFloat(*f.MaxPrice, 'g', -1, 64))
	}
	if f.MinBedrooms != nil {
		fmt.Fprintf(&b, "|beds=%d", *f.MinBedrooms)
	}
	fmt.Fprintf(&b, "|owner=%s|area=%s|sort=%s|limit=%d", f.OwnerID, f.Area, f.Sort, f.Limit)
	return b.String()
}

// Field identifies a listing attribute a clause or sort refers to.
type Field string

const (
	FieldID           Field = "id"
	FieldTitle        Field = "title"
	FieldAddress      Field = "address"
	FieldCity         Field = "city"
	FieldState        Field = "state"
	FieldPropertyType Field = "propertyType"
	FieldStatus       Field = "status"
	FieldPrice        Field = "price"
	FieldBedrooms     Field = "bedrooms"
	FieldOwner        Field = "owner"
	FieldGeohash      Field = "geohash"
	FieldIsAvailable  Field = "isAvailable"
	FieldCreatedAt    Field = "createdAt"
)

// Clause is one conjunct of a Predicate. The set of implementations is closed;
// storage adapters translate each by type switch.
type Clause interface {
	Matches(l *Listing) bool
	isClause()
}

// TextClause matches when Term is a case-insensitive substring of any of Fields.
type TextClause struct {
	Fields []Field
	Term   string
}

// EqClause matches exact equality.
type EqClause struct {
	Field Field
	Value any // string or bool
}

// RangeClause matches Min <= field <= Max; nil bounds are open.
type RangeClause struct {
	Field Field
	Min   *float64
	Max   *float64
}

// PrefixClause matches values starting with Prefix.
type PrefixClause struct {
	Field  Field
	Prefix string
}

func (TextClause) isClause()   {}
func (EqClause) isClause()     {}
func (RangeClause) isClause()  {}
func (PrefixClause) isClause() {}

func (c TextClause) Matches(l *Listing) bool {
	term := strings.ToLower(c.Term)
	for _, f := range c.Fields {
		if s, ok := l.value(f).(string); ok && strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func (c EqClause) Matches(l *Listing) bool {
	return l.value(c.Field) == c.Value
}

func (c RangeClause) Matches(l *Listing) bool {
	v, ok := toFloat(l.value(c.Field))
	if !ok {
		return false
	}
	if c.Min != nil && v < *c.Min {
		return false
	}
	if c.Max != nil && v > *c.Max {
		return false
	}
	return true
}

func (c PrefixClause) Matches(l *Listing) bool {
	s, ok := l.value(c.Field).(string)
	return ok && strings.HasPrefix(s, c.Prefix)
}

// Predicate is a conjunction of clauses. The zero value matches everything.
type Predicate struct {
	Clauses []Clause
}

// Matches evaluates the predicate against an in-memory listing.
func (p Predicate) Matches(l *Listing) bool {
	for _, c := range p.Clauses {
		if !c.Matches(l) {
			return false
		}
	}
	return true
}

// SortSpec orders results by Field, then by ID ascending to break ties.
type SortSpec struct {
	Field      Field
	Descending bool
}

// Less reports whether a sorts before b.
func (s SortSpec) Less(a, b *Listing) bool {
	switch s.Field {
	case FieldPrice:
		if a.Price != b.Price {
			return (a.Price < b.Price) != s.Descending
		}
	case FieldCreatedAt:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt) != s.Descending
		}
	}
	return a.ID < b.ID
}

// Apply sorts listings in place.
func (s SortSpec) Apply(listings []*Listing) {
	sort.SliceStable(listings, func(i, j int) bool { return s.Less(listings[i], listings[j]) })
}

func (l *Listing) value(f Field) any {
	switch f {
	case FieldID:
		return l.ID
	case FieldTitle:
		return l.Title
	case FieldAddress:
		return l.Address
	case FieldCity:
		return l.City
	case FieldState:
		return l.State
	case FieldPropertyType:
		return string(l.PropertyType)
	case FieldStatus:
		return string(l.Status)
	case FieldPrice:
		return l.Price
	case FieldBedrooms:
		return l.Bedrooms
	case FieldOwner:
		return l.OwnerID
	case FieldGeohash:
		return l.Geohash
	case FieldIsAvailable:
		return l.IsAvailable
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
