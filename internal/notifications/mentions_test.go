package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideate-app/backend/internal/models"
)

func newTestResolver(dir *fakeDirectory) (*Resolver, *Aggregator) {
	agg := newTestAggregator(dir)
	return NewResolver(dir, agg, quietLogger()), agg
}

func TestResolveMentionsEndToEnd(t *testing.T) {
	dir := newFakeDirectory()
	resolver, _ := newTestResolver(dir)
	alice := dir.addUser("alice", "Alice")
	author := dir.addUser("carol", "Carol")

	resolver.ResolveMentions(context.Background(),
		"Great work @alice and @bob, also @alice again", "/post/abc", author, "Carol")

	notifs := dir.users[alice].Notifications
	require.Len(t, notifs, 1, "duplicate mention collapses, unknown handle drops")
	assert.Equal(t, models.NotificationMention, notifs[0].Type)
	assert.Equal(t, "mentioned you in a comment", notifs[0].Message)
	assert.Equal(t, "/post/abc", notifs[0].Link)
	assert.Equal(t, models.SenderSet{author}, notifs[0].Senders)
}

func TestResolveMentionsCaseNormalized(t *testing.T) {
	dir := newFakeDirectory()
	resolver, _ := newTestResolver(dir)
	alice := dir.addUser("alice", "Alice")
	author := dir.addUser("carol", "Carol")

	resolver.ResolveMentions(context.Background(), "ping @Alice", "/post/abc", author, "Carol")

	require.Len(t, dir.users[alice].Notifications, 1)
}

func TestResolveMentionsSelfMention(t *testing.T) {
	dir := newFakeDirectory()
	resolver, _ := newTestResolver(dir)
	author := dir.addUser("carol", "Carol")

	resolver.ResolveMentions(context.Background(), "note to @carol", "/post/abc", author, "Carol")

	assert.Empty(t, dir.users[author].Notifications)
}

func TestResolveMentionsNoTokens(t *testing.T) {
	dir := newFakeDirectory()
	resolver, _ := newTestResolver(dir)
	author := dir.addUser("carol", "Carol")

	resolver.ResolveMentions(context.Background(), "no sigils in sight", "/post/abc", author, "Carol")

	assert.Zero(t, dir.lookups)
}

func TestResolveMentionsMultipleTargets(t *testing.T) {
	dir := newFakeDirectory()
	resolver, _ := newTestResolver(dir)
	alice := dir.addUser("alice", "Alice")
	bob := dir.addUser("bob_2", "Bob")
	author := dir.addUser("carol", "Carol")

	resolver.ResolveMentions(context.Background(), "@alice meet @bob_2", "/post/abc", author, "Carol")

	require.Len(t, dir.users[alice].Notifications, 1)
	require.Len(t, dir.users[bob].Notifications, 1)
}
