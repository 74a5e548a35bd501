package reviews

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/versecraft/versecraft/internal/models"
)

var (
	ErrNotFound = errors.New("review not found")
	// ErrAlreadyReviewed is returned both by the pre-check and by the
	// storage layer when the (author, content item) uniqueness
	// constraint rejects a second write.
	ErrAlreadyReviewed = errors.New("you have already written a review for this item")
)

// Repository defines persistence operations for reviews.
type Repository interface {
	Create(ctx context.Context, rev *models.Review) (*models.Review, error)
	Get(ctx context.Context, id string) (*models.Review, error)
	// GetByIDs resolves a list of review ids into documents. Missing
	// ids are skipped, not errors.
	GetByIDs(ctx context.Context, ids []string) ([]models.Review, error)
	Update(ctx context.Context, rev *models.Review) error
	Delete(ctx context.Context, id string) error
	DeleteByContent(ctx context.Context, contentID string) error
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a review repository and ensures the unique
// (author id, content id) index. The index is what actually holds the
// one-review-per-user-per-item invariant under concurrent submissions;
// the service-level pre-check only produces the friendlier message.
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "author.id", Value: 1}, {Key: "contentId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, rev *models.Review) (*models.Review, error) {
	now := time.Now().UTC()
	if rev.ID == "" {
		rev.ID = primitive.NewObjectID().Hex()
	}
	rev.CreatedAt = now
	rev.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, rev); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	return rev, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.Review, error) {
	var rev models.Review
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rev); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rev, nil
}

func (r *MongoRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Review, error) {
	if len(ids) == 0 {
		return []models.Review{}, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	revs := []models.Review{}
	if err := cur.All(ctx, &revs); err != nil {
		return nil, err
	}
	return revs, nil
}

func (r *MongoRepository) Update(ctx context.Context, rev *models.Review) error {
	rev.UpdatedAt = time.Now().UTC()
	set := bson.M{"rating": rev.Rating, "body": rev.Body, "updatedAt": rev.UpdatedAt}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": rev.ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteByContent(ctx context.Context, contentID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"contentId": contentID})
	return err
}
