package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType is the closed set of events that can produce a notification.
type NotificationType string

const (
	NotificationRaise   NotificationType = "raise"
	NotificationComment NotificationType = "comment"
	NotificationReply   NotificationType = "reply"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
)

// ContextMessage returns the base wording shown for a single-sender bucket of
// this type. Adding a new type without a template here is a compile-visible
// hole in this switch, not a runtime surprise.
func (t NotificationType) ContextMessage() string {
	switch t {
	case NotificationRaise:
		return "raised your idea"
	case NotificationComment:
		return "commented on your idea"
	case NotificationReply:
		return "replied to your comment"
	case NotificationFollow:
		return "started following you"
	case NotificationMention:
		return "mentioned you in a comment"
	}
	return ""
}

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	return t.ContextMessage() != ""
}

// SenderSet is an insertion-ordered set of user IDs. It marshals to BSON/JSON
// as a plain array, so documents written by earlier versions load unchanged.
type SenderSet []primitive.ObjectID

// Contains reports whether id is already in the set.
func (s SenderSet) Contains(id primitive.ObjectID) bool {
	for _, existing := range s {
		if existing == id {
			return true
		}
	}
	return false
}

// Add appends id if absent and reports whether the set changed.
func (s *SenderSet) Add(id primitive.ObjectID) bool {
	if s.Contains(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// NotificationBucket groups every sender of the same kind of event on the same
// target into one entry of the recipient's notification list. At most one
// unread bucket exists per (type, link) pair; a bucket is frozen once read.
type NotificationBucket struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type             NotificationType   `bson:"type" json:"type"`
	Senders          SenderSet          `bson:"senders" json:"senders"`
	LatestSenderName string             `bson:"latest_sender_name" json:"latest_sender_name"`
	Message          string             `bson:"message" json:"message"`
	Link             string             `bson:"link" json:"link"`
	Read             bool               `bson:"read" json:"read"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}
