package mongodb

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// UserRepository reads agent details from the users collection owned by the
// user service.
type UserRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewUserRepository(db *mongo.Database, log *logger.Logger) *UserRepository {
	return &UserRepository{
		collection: db.Collection("users"),
		logger:     log.Named("UserRepository"),
	}
}

// GetSummaries looks up several users at once. IDs that are malformed or
// unknown are left out of the result.
func (r *UserRepository) GetSummaries(ctx context.Context, ids []string) (map[string]*domain.OwnerSummary, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			r.logger.Debug("Skipping malformed user ID", zap.String("user_id", id))
			continue
		}
		oids = append(oids, oid)
	}
	out := make(map[string]*domain.OwnerSummary, len(oids))
	if len(oids) == 0 {
		return out, nil
	}

	cursor, err := r.collection.Find(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(bson.M{"name": 1, "email": 1}),
	)
	if err != nil {
		r.logger.Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("%w: find users: %v", domain.ErrPersistence, err)
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode users: %v", domain.ErrPersistence, err)
	}
	for _, d := range docs {
		out[d.ID.Hex()] = &domain.OwnerSummary{ID: d.ID.Hex(), Name: d.Name, Email: d.Email}
	}
	return out, nil
}
