package notifications

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ideate-app/backend/internal/models"
)

// ErrBucketNotFound is returned by MarkRead when the recipient has no bucket
// with the given ID.
var ErrBucketNotFound = errors.New("notification bucket not found")

// Aggregator groups notification events into per-recipient buckets. Delivery
// is best-effort: every failure is logged and swallowed so the action that
// triggered the event always completes.
//
// The recipient's list is read, modified and written back whole. Two
// interleaved calls for the same (recipient, type, link) can both miss the
// unread bucket and both create one; the second save wins. That weak
// consistency is accepted — serializing per recipient is not worth it for a
// display-only feature.
type Aggregator struct {
	dir Directory
	log logrus.FieldLogger
	now func() time.Time
}

// NewAggregator creates an Aggregator backed by the given user directory.
func NewAggregator(dir Directory, log logrus.FieldLogger) *Aggregator {
	return &Aggregator{dir: dir, log: log, now: time.Now}
}

// Record merges the event into the recipient's matching unread bucket or
// prepends a new one. Self-notifications are dropped.
func (a *Aggregator) Record(ctx context.Context, recipientID primitive.ObjectID, t models.NotificationType, link string, senderID primitive.ObjectID, senderName string) {
	if recipientID == senderID {
		return
	}

	rec, err := a.dir.FindByID(ctx, recipientID)
	if err != nil {
		a.log.WithError(err).WithField("recipient", recipientID.Hex()).Warn("notification recipient lookup failed")
		return
	}

	// The list is kept most-recently-updated first, so the first unread
	// match is the only one that can exist.
	idx := -1
	for i := range rec.Notifications {
		n := &rec.Notifications[i]
		if n.Type == t && n.Link == link && !n.Read {
			idx = i
			break
		}
	}

	if idx >= 0 {
		bucket := rec.Notifications[idx]
		if !bucket.Senders.Add(senderID) {
			// Repeat action by a sender already in the bucket: no message
			// change, no timestamp bump, no reorder.
			return
		}
		bucket.LatestSenderName = senderName
		bucket.UpdatedAt = a.now()
		bucket.Message = groupMessage(t.ContextMessage(), len(bucket.Senders))

		rec.Notifications = append(rec.Notifications[:idx], rec.Notifications[idx+1:]...)
		rec.Notifications = append([]models.NotificationBucket{bucket}, rec.Notifications...)
	} else {
		now := a.now()
		bucket := models.NotificationBucket{
			ID:               primitive.NewObjectID(),
			Type:             t,
			Senders:          models.SenderSet{senderID},
			LatestSenderName: senderName,
			Message:          t.ContextMessage(),
			Link:             link,
			Read:             false,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		rec.Notifications = append([]models.NotificationBucket{bucket}, rec.Notifications...)
	}

	if err := a.dir.Save(ctx, rec); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{
			"recipient": recipientID.Hex(),
			"type":      string(t),
		}).Warn("notification save failed")
	}
}

// groupMessage words the bucket summary by sender count.
func groupMessage(contextMessage string, senders int) string {
	switch {
	case senders <= 1:
		return contextMessage
	case senders == 2:
		return "and 1 other " + contextMessage
	default:
		return "and " + strconv.Itoa(senders-1) + " others " + contextMessage
	}
}

// CountUnread returns the number of unread buckets, or 0 when the user
// cannot be loaded.
func (a *Aggregator) CountUnread(ctx context.Context, userID primitive.ObjectID) int {
	rec, err := a.dir.FindByID(ctx, userID)
	if err != nil {
		return 0
	}
	count := 0
	for _, n := range rec.Notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// MarkRead freezes a bucket. Marking an already-read bucket again succeeds
// without touching storage.
func (a *Aggregator) MarkRead(ctx context.Context, userID, bucketID primitive.ObjectID) error {
	rec, err := a.dir.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	for i := range rec.Notifications {
		if rec.Notifications[i].ID != bucketID {
			continue
		}
		if rec.Notifications[i].Read {
			return nil
		}
		rec.Notifications[i].Read = true
		return a.dir.Save(ctx, rec)
	}
	return ErrBucketNotFound
}

// List returns the recipient's buckets newest-first by UpdatedAt. Sender IDs
// that no longer resolve to a live account are dropped from the returned
// buckets; the buckets themselves are kept even with every sender gone.
// Nothing is written back.
func (a *Aggregator) List(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationBucket, error) {
	rec, err := a.dir.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.NotificationBucket, len(rec.Notifications))
	copy(out, rec.Notifications)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	alive := make(map[primitive.ObjectID]bool)
	for i := range out {
		kept := make(models.SenderSet, 0, len(out[i].Senders))
		for _, id := range out[i].Senders {
			ok, seen := alive[id]
			if !seen {
				_, lookupErr := a.dir.FindByID(ctx, id)
				ok = lookupErr == nil
				alive[id] = ok
			}
			if ok {
				kept = append(kept, id)
			}
		}
		out[i].Senders = kept
	}
	return out, nil
}
