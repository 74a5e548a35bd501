package users

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/versecraft/versecraft/internal/models"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Repository defines persistence operations for users
type Repository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByResetToken returns the user holding an unexpired reset token.
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	PushFollower(ctx context.Context, userID, followerID string) error
	PushNotification(ctx context.Context, userID, notificationID string) error
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a user repository over the given collection
// and ensures the unique email index exists.
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}
	col.Indexes().CreateOne(context.Background(), idx)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = primitive.NewObjectID().Hex()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Notifications == nil {
		u.Notifications = []string{}
	}
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	filter := bson.M{
		"resetPasswordToken":   token,
		"resetPasswordExpires": bson.M{"$gt": time.Now().UTC()},
	}
	return r.findOne(ctx, filter)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoRepository) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"username":             u.Username,
		"email":                u.Email,
		"passwordHash":         u.PasswordHash,
		"avatar":               u.Avatar,
		"firstName":            u.FirstName,
		"lastName":             u.LastName,
		"about":                u.About,
		"resetPasswordToken":   u.ResetPasswordToken,
		"resetPasswordExpires": u.ResetPasswordExpires,
		"updatedAt":            u.UpdatedAt,
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) PushFollower(ctx context.Context, userID, followerID string) error {
	return r.push(ctx, userID, "followers", followerID)
}

func (r *MongoRepository) PushNotification(ctx context.Context, userID, notificationID string) error {
	return r.push(ctx, userID, "notifications", notificationID)
}

func (r *MongoRepository) push(ctx context.Context, userID, field, value string) error {
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$push": bson.M{field: value}, "$set": bson.M{"updatedAt": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
