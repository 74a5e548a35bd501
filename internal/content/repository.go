package content

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/versecraft/versecraft/internal/models"
)

var ErrNotFound = errors.New("content item not found")

// Repository defines persistence operations for content items. One
// collection holds both kinds; every query filters on the kind tag.
type Repository interface {
	Create(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error)
	Get(ctx context.Context, id string) (*models.ContentItem, error)
	// List returns a page of items of the given kind, newest first,
	// optionally filtered by a case-insensitive name search, plus the
	// total match count for pagination.
	List(ctx context.Context, kind models.Kind, search string, page, perPage int) ([]models.ContentItem, int64, error)
	ListByAuthor(ctx context.Context, kind models.Kind, authorID string) ([]models.ContentItem, error)
	Update(ctx context.Context, item *models.ContentItem) error
	Delete(ctx context.Context, id string) error
	PushReview(ctx context.Context, contentID, reviewID string) error
	PullReview(ctx context.Context, contentID, reviewID string) error
	SetRating(ctx context.Context, contentID string, rating float64) error
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "createdAt", Value: -1}}}
	col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, item *models.ContentItem) (*models.ContentItem, error) {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = primitive.NewObjectID().Hex()
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Reviews == nil {
		item.Reviews = []string{}
	}
	if _, err := r.col.InsertOne(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *MongoRepository) List(ctx context.Context, kind models.Kind, search string, page, perPage int) ([]models.ContentItem, int64, error) {
	filter := bson.M{"kind": kind}
	if search != "" {
		filter["name"] = bson.M{"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}}
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	items := []models.ContentItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *MongoRepository) ListByAuthor(ctx context.Context, kind models.Kind, authorID string) ([]models.ContentItem, error) {
	filter := bson.M{"kind": kind, "author.id": authorID}
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	items := []models.ContentItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MongoRepository) Update(ctx context.Context, item *models.ContentItem) error {
	item.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":      item.Name,
		"body":      item.Body,
		"image":     item.Image,
		"updatedAt": item.UpdatedAt,
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": item.ID}, bson.M{"$set": set})
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

func (r *MongoRepository) PushReview(ctx context.Context, contentID, reviewID string) error {
	return r.updateOne(ctx, contentID, bson.M{"$push": bson.M{"reviews": reviewID}})
}

func (r *MongoRepository) PullReview(ctx context.Context, contentID, reviewID string) error {
	return r.updateOne(ctx, contentID, bson.M{"$pull": bson.M{"reviews": reviewID}})
}

func (r *MongoRepository) SetRating(ctx context.Context, contentID string, rating float64) error {
	return r.updateOne(ctx, contentID, bson.M{"$set": bson.M{"rating": rating}})
}

func (r *MongoRepository) updateOne(ctx context.Context, id string, update bson.M) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
