package mongodb

import (
	"fmt"
	"regexp"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson"
)

// buildFilter translates a compiled predicate into a MongoDB query document.
func buildFilter(p domain.Predicate) (bson.M, error) {
	if len(p.Clauses) == 0 {
		return bson.M{}, nil
	}
	and := make(bson.A, 0, len(p.Clauses))
	for _, c := range p.Clauses {
		doc, err := clauseDoc(c)
		if err != nil {
			return nil, err
		}
		and = append(and, doc)
	}
	return bson.M{"$and": and}, nil
}

func clauseDoc(c domain.Clause) (bson.M, error) {
	switch c := c.(type) {
	case domain.TextClause:
		pattern := regexp.QuoteMeta(c.Term)
		or := make(bson.A, 0, len(c.Fields))
		for _, f := range c.Fields {
			name, err := fieldName(f)
			if err != nil {
				return nil, err
			}
			or = append(or, bson.M{name: bson.M{"$regex": pattern, "$options": "i"}})
		}
		return bson.M{"$or": or}, nil
	case domain.EqClause:
		name, err := fieldName(c.Field)
		if err != nil {
			return nil, err
		}
		return bson.M{name: c.Value}, nil
	case domain.RangeClause:
		name, err := fieldName(c.Field)
		if err != nil {
			return nil, err
		}
		bounds := bson.M{}
		if c.Min != nil {
			bounds["$gte"] = *c.Min
		}
		if c.Max != nil {
			bounds["$lte"] = *c.Max
		}
		return bson.M{name: bounds}, nil
	case domain.PrefixClause:
		name, err := fieldName(c.Field)
		if err != nil {
			return nil, err
		}
		return bson.M{name: bson.M{"$regex": "^" + regexp.QuoteMeta(c.Prefix)}}, nil
	default:
		return nil, fmt.Errorf("unsupported clause %T", c)
	}
}

func buildSort(s domain.SortSpec) (bson.D, error) {
	name, err := fieldName(s.Field)
	if err != nil {
		return nil, err
	}
	dir := 1
	if s.Descending {
		dir = -1
	}
	return bson.D{{Key: name, Value: dir}, {Key: "_id", Value: 1}}, nil
}

func fieldName(f domain.Field) (string, error) {
	name, ok := fieldNames[f]
	if !ok {
		return "", fmt.Errorf("unmapped field %q", f)
	}
	return name, nil
}
