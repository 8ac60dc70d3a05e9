package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ideate-app/backend/internal/models"
	"github.com/ideate-app/backend/internal/notifications"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
	UpdateSettings(ctx context.Context, id primitive.ObjectID, req *models.UpdateSettingsRequest, image []byte, imageType string) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	SetOTP(ctx context.Context, id primitive.ObjectID, otp string, expires time.Time) error
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	ToggleFollow(ctx context.Context, followerID, targetID primitive.ObjectID) (following bool, followerCount int, err error)
	ToggleBookmark(ctx context.Context, userID, ideaID primitive.ObjectID) (bookmarked bool, err error)
	SearchUsers(ctx context.Context, query string, limit int64) ([]models.User, error)
	DeleteUser(ctx context.Context, id primitive.ObjectID) error
	PullFromSocialGraph(ctx context.Context, id primitive.ObjectID) error
}

// MongoUserRepository implements UserRepository for MongoDB. It also
// implements notifications.Directory, which is the narrow slice of it the
// notification engine sees.
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// CreateUser inserts a new user document
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	if user.Notifications == nil {
		user.Notifications = []models.NotificationBucket{}
	}
	if user.Bookmarks == nil {
		user.Bookmarks = []primitive.ObjectID{}
	}
	if user.Preferences.Theme == "" {
		user.Preferences.Theme = "dark"
	}
	_, err := r.collection.InsertOne(ctx, user)
	return err
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ObjectID
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetUserByEmail retrieves a user by email
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetUserByHandle retrieves a user by their unique mention handle
func (r *MongoUserRepository) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"handle": handle})
}

// GetUserByFirebaseUID retrieves a user linked to a Firebase account
func (r *MongoUserRepository) GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"firebase_uid": uid})
}

// UpdateSettings applies the mutable profile fields. The handle is never
// part of the update.
func (r *MongoUserRepository) UpdateSettings(ctx context.Context, id primitive.ObjectID, req *models.UpdateSettingsRequest, image []byte, imageType string) error {
	set := bson.M{
		"contacts": models.Contacts{
			Linkedin: req.Linkedin,
			Github:   req.Github,
			Website:  req.Website,
			Twitter:  req.Twitter,
			Email:    req.Email,
		},
	}
	if req.DisplayName != "" {
		set["display_name"] = req.DisplayName
	}
	if req.Bio != "" {
		set["bio"] = req.Bio
	}
	if req.Theme != "" {
		set["preferences.theme"] = req.Theme
	}
	if len(image) > 0 {
		set["image_content"] = image
		set["image_type"] = imageType
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// UpdatePassword stores a new bcrypt hash
func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": passwordHash}})
	return err
}

// SetOTP stores a fresh verification code and its expiry
func (r *MongoUserRepository) SetOTP(ctx context.Context, id primitive.ObjectID, otp string, expires time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"otp": otp, "otp_expires": expires}})
	return err
}

// MarkVerified flags the account as verified and clears the OTP fields
func (r *MongoUserRepository) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"verified": true},
		"$unset": bson.M{"otp": "", "otp_expires": ""},
	})
	return err
}

// ToggleFollow follows targetID if not yet followed, otherwise unfollows.
// Returns the new state and the target's follower count.
func (r *MongoUserRepository) ToggleFollow(ctx context.Context, followerID, targetID primitive.ObjectID) (bool, int, error) {
	target, err := r.GetUserByID(ctx, targetID)
	if err != nil {
		return false, 0, err
	}

	following := false
	for _, id := range target.Followers {
		if id == followerID {
			following = true
			break
		}
	}

	var op string
	if following {
		op = "$pull"
	} else {
		op = "$addToSet"
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": followerID},
		bson.M{op: bson.M{"following": targetID}}); err != nil {
		return false, 0, err
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": targetID},
		bson.M{op: bson.M{"followers": followerID}}); err != nil {
		return false, 0, err
	}

	count := len(target.Followers)
	if following {
		count--
	} else {
		count++
	}
	return !following, count, nil
}

// ToggleBookmark saves or unsaves an idea for the user
func (r *MongoUserRepository) ToggleBookmark(ctx context.Context, userID, ideaID primitive.ObjectID) (bool, error) {
	user, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	bookmarked := false
	for _, id := range user.Bookmarks {
		if id == ideaID {
			bookmarked = true
			break
		}
	}
	op := "$addToSet"
	if bookmarked {
		op = "$pull"
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{op: bson.M{"bookmarks": ideaID}}); err != nil {
		return false, err
	}
	return !bookmarked, nil
}

// SearchUsers matches display name or handle, case-insensitive
func (r *MongoUserRepository) SearchUsers(ctx context.Context, query string, limit int64) ([]models.User, error) {
	pattern := primitive.Regex{Pattern: query, Options: "i"}
	filter := bson.M{"$or": []bson.M{
		{"display_name": pattern},
		{"handle": pattern},
	}}
	findOptions := options.Find().SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteUser removes the user document itself
func (r *MongoUserRepository) DeleteUser(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// PullFromSocialGraph removes the user from every followers/following array
func (r *MongoUserRepository) PullFromSocialGraph(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx, bson.M{},
		bson.M{"$pull": bson.M{"followers": id, "following": id}})
	return err
}

// --- notifications.Directory ---

// FindByID loads the notification projection of a user
func (r *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*notifications.UserRecord, error) {
	user, err := r.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toRecord(user), nil
}

// FindByHandle resolves a mention handle to its notification projection
func (r *MongoUserRepository) FindByHandle(ctx context.Context, handle string) (*notifications.UserRecord, error) {
	user, err := r.GetUserByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	return toRecord(user), nil
}

// Save writes the record's notification list back onto the user document.
// This is a plain overwrite of the list field; interleaved writers race and
// the last one wins, which the notification engine accepts.
func (r *MongoUserRepository) Save(ctx context.Context, rec *notifications.UserRecord) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": rec.ID},
		bson.M{"$set": bson.M{"notifications": rec.Notifications}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func toRecord(user *models.User) *notifications.UserRecord {
	return &notifications.UserRecord{
		ID:            user.ID,
		Handle:        user.Handle,
		DisplayName:   user.DisplayName,
		Notifications: user.Notifications,
	}
}
