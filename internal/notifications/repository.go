package notifications

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/versecraft/versecraft/internal/models"
)

var ErrNotFound = errors.New("notification not found")

// Repository defines persistence operations for notifications.
type Repository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	Get(ctx context.Context, id string) (*models.Notification, error)
	// GetByIDs resolves a list of notification ids; missing ids are
	// skipped.
	GetByIDs(ctx context.Context, ids []string) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if n.ID == "" {
		n.ID = primitive.NewObjectID().Hex()
	}
	n.CreatedAt = time.Now().UTC()
	if _, err := r.col.InsertOne(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *MongoRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Notification, error) {
	if len(ids) == 0 {
		return []models.Notification{}, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	ns := []models.Notification{}
	if err := cur.All(ctx, &ns); err != nil {
		return nil, err
	}
	return ns, nil
}

func (r *MongoRepository) MarkRead(ctx context.Context, id string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
