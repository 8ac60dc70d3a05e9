package notifications

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ideate-app/backend/internal/models"
)

// UserRecord is the projection of a user document the notification engine
// reads and writes. It deliberately exposes nothing else of the profile.
type UserRecord struct {
	ID            primitive.ObjectID
	Handle        string
	DisplayName   string
	Notifications []models.NotificationBucket
}

// Directory is the user-store port the engine depends on. Save persists the
// record's notification list back onto the owning user document; there is no
// finer-grained write, so concurrent Record calls for the same recipient are
// last-writer-wins (see Aggregator).
type Directory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*UserRecord, error)
	FindByHandle(ctx context.Context, handle string) (*UserRecord, error)
	Save(ctx context.Context, rec *UserRecord) error
}
