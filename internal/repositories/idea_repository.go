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
)

// IdeaFilter narrows ListIdeas. A nil AuthorIn means every author.
type IdeaFilter struct {
	Category string
	AuthorIn []primitive.ObjectID
}

// IdeaRepository defines the interface for idea data operations
type IdeaRepository interface {
	CreateIdea(ctx context.Context, idea *models.Idea) error
	GetIdeaByID(ctx context.Context, id string) (*models.Idea, error)
	ListIdeas(ctx context.Context, filter IdeaFilter) ([]models.Idea, error)
	GetIdeasByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Idea, error)
	GetIdeasByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Idea, error)
	UpdateIdea(ctx context.Context, id string, idea *models.Idea) error
	DeleteIdea(ctx context.Context, id string) error
	DeleteIdeasByAuthor(ctx context.Context, authorID primitive.ObjectID) error
	AddComment(ctx context.Context, ideaID string, comment models.Comment) (*models.Idea, error)
	DeleteComment(ctx context.Context, ideaID string, commentID, userID primitive.ObjectID) error
	AddReply(ctx context.Context, ideaID string, commentID primitive.ObjectID, reply models.Reply) (*models.Idea, *models.Comment, error)
	ToggleUpvote(ctx context.Context, ideaID string, userID primitive.ObjectID) (*models.Idea, bool, error)
	RegisterView(ctx context.Context, ideaID string, userID primitive.ObjectID) error
}

// MongoIdeaRepository implements IdeaRepository for MongoDB
type MongoIdeaRepository struct {
	collection *mongo.Collection
}

// NewMongoIdeaRepository creates a new MongoIdeaRepository
func NewMongoIdeaRepository(db *mongo.Database) *MongoIdeaRepository {
	return &MongoIdeaRepository{collection: db.Collection("ideas")}
}

// CreateIdea inserts a new idea
func (r *MongoIdeaRepository) CreateIdea(ctx context.Context, idea *models.Idea) error {
	idea.ID = primitive.NewObjectID()
	idea.CreatedAt = time.Now()
	idea.UpdatedAt = idea.CreatedAt
	if idea.Status == "" {
		idea.Status = "Validation"
	}
	if idea.Images == nil {
		idea.Images = []models.IdeaImage{}
	}
	if idea.Upvotes == nil {
		idea.Upvotes = []primitive.ObjectID{}
	}
	if idea.Comments == nil {
		idea.Comments = []models.Comment{}
	}
	_, err := r.collection.InsertOne(ctx, idea)
	return err
}

// GetIdeaByID retrieves an idea by its hex ID
func (r *MongoIdeaRepository) GetIdeaByID(ctx context.Context, id string) (*models.Idea, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid idea ID format: %w", err)
	}

	var idea models.Idea
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&idea)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("idea not found")
		}
		return nil, err
	}
	return &idea, nil
}

// ListIdeas retrieves ideas newest-first, optionally narrowed by category
// and author set
func (r *MongoIdeaRepository) ListIdeas(ctx context.Context, filter IdeaFilter) ([]models.Idea, error) {
	query := bson.M{}
	if filter.Category != "" && filter.Category != "All" {
		query["category"] = filter.Category
	}
	if filter.AuthorIn != nil {
		query["author_id"] = bson.M{"$in": filter.AuthorIn}
	}
	return r.find(ctx, query)
}

// GetIdeasByAuthor retrieves one author's ideas newest-first
func (r *MongoIdeaRepository) GetIdeasByAuthor(ctx context.Context, authorID primitive.ObjectID) ([]models.Idea, error) {
	return r.find(ctx, bson.M{"author_id": authorID})
}

// GetIdeasByIDs retrieves the given ideas (bookmarks listing)
func (r *MongoIdeaRepository) GetIdeasByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Idea, error) {
	if len(ids) == 0 {
		return []models.Idea{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *MongoIdeaRepository) find(ctx context.Context, query bson.M) ([]models.Idea, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ideas []models.Idea
	if err = cursor.All(ctx, &ideas); err != nil {
		return nil, err
	}
	return ideas, nil
}

// UpdateIdea updates the editable fields of an idea
func (r *MongoIdeaRepository) UpdateIdea(ctx context.Context, id string, idea *models.Idea) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid idea ID format: %w", err)
	}

	idea.UpdatedAt = time.Now()
	set := bson.M{
		"title":       idea.Title,
		"description": idea.Description,
		"category":    idea.Category,
		"updated_at":  idea.UpdatedAt,
	}
	if len(idea.Images) > 0 {
		set["images"] = idea.Images
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("idea not found")
	}
	return nil
}

// DeleteIdea removes an idea
func (r *MongoIdeaRepository) DeleteIdea(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid idea ID format: %w", err)
	}
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	return err
}

// DeleteIdeasByAuthor removes every idea of an author (account deletion cascade)
func (r *MongoIdeaRepository) DeleteIdeasByAuthor(ctx context.Context, authorID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"author_id": authorID})
	return err
}

// AddComment appends a comment and returns the updated idea
func (r *MongoIdeaRepository) AddComment(ctx context.Context, ideaID string, comment models.Comment) (*models.Idea, error) {
	objID, err := primitive.ObjectIDFromHex(ideaID)
	if err != nil {
		return nil, fmt.Errorf("invalid idea ID format: %w", err)
	}

	comment.ID = primitive.NewObjectID()
	comment.CreatedAt = time.Now()
	if comment.Replies == nil {
		comment.Replies = []models.Reply{}
	}

	after := options.After
	var idea models.Idea
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objID},
		bson.M{"$push": bson.M{"comments": comment}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	).Decode(&idea)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("idea not found")
		}
		return nil, err
	}
	return &idea, nil
}

// DeleteComment removes a comment owned by userID
func (r *MongoIdeaRepository) DeleteComment(ctx context.Context, ideaID string, commentID, userID primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(ideaID)
	if err != nil {
		return fmt.Errorf("invalid idea ID format: %w", err)
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID, "user_id": userID}}})
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return fmt.Errorf("comment not found")
	}
	return nil
}

// AddReply appends a reply to a comment and returns the idea plus the parent
// comment as it was before the reply, so callers can notify its owner.
func (r *MongoIdeaRepository) AddReply(ctx context.Context, ideaID string, commentID primitive.ObjectID, reply models.Reply) (*models.Idea, *models.Comment, error) {
	idea, err := r.GetIdeaByID(ctx, ideaID)
	if err != nil {
		return nil, nil, err
	}

	var parent *models.Comment
	for i := range idea.Comments {
		if idea.Comments[i].ID == commentID {
			parent = &idea.Comments[i]
			break
		}
	}
	if parent == nil {
		return nil, nil, fmt.Errorf("comment not found")
	}

	reply.ID = primitive.NewObjectID()
	reply.CreatedAt = time.Now()

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": idea.ID, "comments._id": commentID},
		bson.M{"$push": bson.M{"comments.$.replies": reply}})
	if err != nil {
		return nil, nil, err
	}
	return idea, parent, nil
}

// ToggleUpvote raises the idea for userID or withdraws the raise. Returns
// the idea and whether it is now raised by the user.
func (r *MongoIdeaRepository) ToggleUpvote(ctx context.Context, ideaID string, userID primitive.ObjectID) (*models.Idea, bool, error) {
	idea, err := r.GetIdeaByID(ctx, ideaID)
	if err != nil {
		return nil, false, err
	}

	raised := false
	for _, id := range idea.Upvotes {
		if id == userID {
			raised = true
			break
		}
	}

	op := "$addToSet"
	if raised {
		op = "$pull"
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": idea.ID},
		bson.M{op: bson.M{"upvotes": userID}}); err != nil {
		return nil, false, err
	}
	return idea, !raised, nil
}

// RegisterView counts the first visit per user
func (r *MongoIdeaRepository) RegisterView(ctx context.Context, ideaID string, userID primitive.ObjectID) error {
	objID, err := primitive.ObjectIDFromHex(ideaID)
	if err != nil {
		return fmt.Errorf("invalid idea ID format: %w", err)
	}
	_, err = r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "viewed_by": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"viewed_by": userID}, "$inc": bson.M{"views": 1}})
	return err
}
