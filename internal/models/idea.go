package models

import (
	"encoding/base64"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdeaImage stores an uploaded image inline on the idea document.
type IdeaImage struct {
	Content []byte `bson:"content" json:"-"`
	Type    string `bson:"type" json:"type"`
}

// DataURL renders the image for embedding in API responses.
func (im IdeaImage) DataURL() string {
	if len(im.Content) == 0 || im.Type == "" {
		return ""
	}
	return "data:" + im.Type + ";base64," + base64.StdEncoding.EncodeToString(im.Content)
}

// Reply is a nested response to a comment.
type Reply struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	User      string             `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Comment is embedded in the idea document together with its replies.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	User      string             `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	Replies   []Reply            `bson:"replies" json:"replies"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Idea is a posted idea with its embedded interactions.
type Idea struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description" json:"description"`
	Category    string               `bson:"category" json:"category"`
	Author      string               `bson:"author" json:"author"`
	AuthorID    primitive.ObjectID   `bson:"author_id" json:"author_id"`
	Images      []IdeaImage          `bson:"images" json:"images"`
	Status      string               `bson:"status" json:"status"`
	Upvotes     []primitive.ObjectID `bson:"upvotes" json:"upvotes"`
	Comments    []Comment            `bson:"comments" json:"comments"`
	Views       int64                `bson:"views" json:"views"`
	ViewedBy    []primitive.ObjectID `bson:"viewed_by" json:"-"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

// PostLink returns the canonical link target used in notifications for this idea.
func (i *Idea) PostLink() string {
	return "/post/" + i.ID.Hex()
}

type CreateIdeaRequest struct {
	Title       string `form:"title" json:"title" validate:"required,min=3,max=120"`
	Description string `form:"description" json:"description" validate:"required,min=10"`
	Category    string `form:"category" json:"category" validate:"required"`
}

type UpdateIdeaRequest struct {
	Title       string `form:"title" json:"title" validate:"required,min=3,max=120"`
	Description string `form:"description" json:"description" validate:"required,min=10"`
	Category    string `form:"category" json:"category" validate:"required"`
}

type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

type CreateReplyRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}
