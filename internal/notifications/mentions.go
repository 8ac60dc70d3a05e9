package notifications

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ideate-app/backend/internal/models"
)

// A mention is the sigil '@' followed by word characters.
var mentionPattern = regexp.MustCompile(`@(\w+)`)

// Resolver turns @handle tokens in free text into mention notifications.
// Resolution runs against the immutable handle field, never the display
// name: a rename must not break or redirect past mentions.
type Resolver struct {
	dir Directory
	agg *Aggregator
	log logrus.FieldLogger
}

// NewResolver creates a Resolver that feeds resolved mentions into agg.
func NewResolver(dir Directory, agg *Aggregator, log logrus.FieldLogger) *Resolver {
	return &Resolver{dir: dir, agg: agg, log: log}
}

// ResolveMentions scans text left to right and records one mention event per
// resolved handle. Unknown handles are dropped without telling the author.
// Duplicate mentions of the same handle collapse inside the aggregator.
func (r *Resolver) ResolveMentions(ctx context.Context, text, link string, senderID primitive.ObjectID, senderName string) {
	for _, match := range mentionPattern.FindAllStringSubmatch(text, -1) {
		handle := strings.ToLower(match[1])
		target, err := r.dir.FindByHandle(ctx, handle)
		if err != nil {
			r.log.WithField("handle", handle).Debug("mention did not resolve")
			continue
		}
		r.agg.Record(ctx, target.ID, models.NotificationMention, link, senderID, senderName)
	}
}
