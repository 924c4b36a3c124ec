package mongodb

import (
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildFilter(t *testing.T) {
	t.Run("empty predicate matches everything", func(t *testing.T) {
		f, err := buildFilter(domain.Predicate{})
		require.NoError(t, err)
		assert.Equal(t, bson.M{}, f)
	})

	t.Run("full search", func(t *testing.T) {
		spec, err := query.Parse(query.RawParams{
			SearchTerm: "a+b", PropertyType: "Condo", MinPrice: "100", Bedrooms: "2", OwnerID: "agent-1", Area: "dh",
		})
		require.NoError(t, err)
		pred, _ := query.Compile(spec, domain.ViewManagement)

		f, err := buildFilter(pred)
		require.NoError(t, err)
		and := f["$and"].(bson.A)
		require.Len(t, and, 6)

		text := and[0].(bson.M)["$or"].(bson.A)
		require.Len(t, text, 4)
		assert.Equal(t, bson.M{"title": bson.M{"$regex": `a\+b`, "$options": "i"}}, text[0])
		assert.Equal(t, bson.M{"state": bson.M{"$regex": `a\+b`, "$options": "i"}}, text[3])

		assert.Equal(t, bson.M{"propertyType": "Condo"}, and[1])
		assert.Equal(t, bson.M{"price": bson.M{"$gte": 100.0}}, and[2])
		assert.Equal(t, bson.M{"bedrooms": bson.M{"$gte": 2.0}}, and[3])
		assert.Equal(t, bson.M{"agent": "agent-1"}, and[4])
		assert.Equal(t, bson.M{"geohash": bson.M{"$regex": "^dh"}}, and[5])
	})

	t.Run("public view requires availability", func(t *testing.T) {
		pred, _ := query.Compile(domain.FilterSpec{}, domain.ViewPublic)
		f, err := buildFilter(pred)
		require.NoError(t, err)
		assert.Equal(t, bson.M{"$and": bson.A{bson.M{"isAvailable": true}}}, f)
	})

	t.Run("unmapped field", func(t *testing.T) {
		_, err := buildFilter(domain.Predicate{Clauses: []domain.Clause{domain.EqClause{Field: "nope", Value: 1}}})
		assert.Error(t, err)
	})
}

func TestBuildSort(t *testing.T) {
	d, err := buildSort(domain.SortSpec{Field: domain.FieldPrice, Descending: true})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "price", Value: -1}, {Key: "_id", Value: 1}}, d)

	d, err = buildSort(domain.SortSpec{Field: domain.FieldCreatedAt})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}, d)
}

func TestDocumentConversion(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	l := &domain.Listing{
		ID: "65f000000000000000000001", Title: "Loft", Price: 1200, Bedrooms: 1,
		PropertyType: domain.PropertyTypeApartment, Status: domain.StatusForRent, IsAvailable: true,
		Images: []string{"/uploads/a.jpg"}, OwnerID: "agent-1", CreatedAt: now, UpdatedAt: now,
	}
	doc, err := fromDomainListing(l)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", doc.Agent)
	assert.Equal(t, l, doc.toDomainListing())

	_, err = fromDomainListing(&domain.Listing{ID: "not-hex"})
	assert.Error(t, err)
}
