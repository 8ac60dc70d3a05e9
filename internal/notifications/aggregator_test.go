package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ideate-app/backend/internal/models"
)

// fakeDirectory is an in-memory Directory. FindByID hands out copies so a
// mutation only becomes visible after Save, like the real store.
type fakeDirectory struct {
	users    map[primitive.ObjectID]*UserRecord
	byHandle map[string]primitive.ObjectID
	findErr  error
	saveErr  error
	saves    int
	lookups  int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:    make(map[primitive.ObjectID]*UserRecord),
		byHandle: make(map[string]primitive.ObjectID),
	}
}

func (d *fakeDirectory) addUser(handle, displayName string) primitive.ObjectID {
	id := primitive.NewObjectID()
	d.users[id] = &UserRecord{ID: id, Handle: handle, DisplayName: displayName}
	d.byHandle[handle] = id
	return id
}

func (d *fakeDirectory) removeUser(id primitive.ObjectID) {
	if rec, ok := d.users[id]; ok {
		delete(d.byHandle, rec.Handle)
	}
	delete(d.users, id)
}

func copyRecord(rec *UserRecord) *UserRecord {
	out := *rec
	out.Notifications = make([]models.NotificationBucket, len(rec.Notifications))
	copy(out.Notifications, rec.Notifications)
	for i := range out.Notifications {
		senders := make(models.SenderSet, len(rec.Notifications[i].Senders))
		copy(senders, rec.Notifications[i].Senders)
		out.Notifications[i].Senders = senders
	}
	return &out
}

func (d *fakeDirectory) FindByID(_ context.Context, id primitive.ObjectID) (*UserRecord, error) {
	d.lookups++
	if d.findErr != nil {
		return nil, d.findErr
	}
	rec, ok := d.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return copyRecord(rec), nil
}

func (d *fakeDirectory) FindByHandle(_ context.Context, handle string) (*UserRecord, error) {
	id, ok := d.byHandle[handle]
	if !ok {
		return nil, errors.New("user not found")
	}
	return copyRecord(d.users[id]), nil
}

func (d *fakeDirectory) Save(_ context.Context, rec *UserRecord) error {
	if d.saveErr != nil {
		return d.saveErr
	}
	stored, ok := d.users[rec.ID]
	if !ok {
		return errors.New("user not found")
	}
	stored.Notifications = copyRecord(rec).Notifications
	d.saves++
	return nil
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestAggregator(dir *fakeDirectory) *Aggregator {
	agg := NewAggregator(dir, quietLogger())
	// Deterministic, strictly increasing clock.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	agg.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
	return agg
}

func TestRecordCreatesBucket(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	recipient := dir.addUser("maya", "Maya")
	sender := dir.addUser("ravi", "Ravi")

	agg.Record(context.Background(), recipient, models.NotificationComment, "/post/abc", sender, "Ravi")

	notifs := dir.users[recipient].Notifications
	require.Len(t, notifs, 1)
	b := notifs[0]
	assert.Equal(t, models.NotificationComment, b.Type)
	assert.Equal(t, "commented on your idea", b.Message)
	assert.Equal(t, "/post/abc", b.Link)
	assert.Equal(t, models.SenderSet{sender}, b.Senders)
	assert.Equal(t, "Ravi", b.LatestSenderName)
	assert.False(t, b.Read)
	assert.False(t, b.ID.IsZero())
	assert.Equal(t, b.CreatedAt, b.UpdatedAt)
}

func TestGroupingIdempotence(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	recipient := dir.addUser("maya", "Maya")
	sender := dir.addUser("ravi", "Ravi")

	agg.Record(context.Background(), recipient, models.NotificationRaise, "/post/abc", sender, "Ravi")
	first := dir.users[recipient].Notifications[0]

	agg.Record(context.Background(), recipient, models.NotificationRaise, "/post/abc", sender, "Ravi")

	notifs := dir.users[recipient].Notifications
	require.Len(t, notifs, 1)
	assert.Len(t, notifs[0].Senders, 1)
	assert.Equal(t, "raised your idea", notifs[0].Message)
	assert.Equal(t, first.UpdatedAt, notifs[0].UpdatedAt, "repeat sender must not bump the bucket")
	assert.Equal(t, 1, dir.saves, "repeat sender must not rewrite the list")
}

func TestMessagePluralization(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	recipient := dir.addUser("maya", "Maya")
	a := dir.addUser("a", "A")
	b := dir.addUser("b", "B")
	c := dir.addUser("c", "C")

	ctx := context.Background()
	agg.Record(ctx, recipient, models.NotificationComment, "/post/abc", a, "A")
	assert.Equal(t, "commented on your idea", dir.users[recipient].Notifications[0].Message)

	agg.Record(ctx, recipient, models.NotificationComment, "/post/abc", b, "B")
	assert.Equal(t, "and 1 other commented on your idea", dir.users[recipient].Notifications[0].Message)
	assert.Equal(t, "B", dir.users[recipient].Notifications[0].LatestSenderName)

	agg.Record(ctx, recipient, models.NotificationComment, "/post/abc", c, "C")
	assert.Equal(t, "and 2 others commented on your idea", dir.users[recipient].Notifications[0].Message)
	assert.Equal(t, models.SenderSet{a, b, c}, dir.users[recipient].Notifications[0].Senders)
}

func TestSelfNotificationSuppressed(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	u := dir.addUser("maya", "Maya")

	agg.Record(context.Background(), u, models.NotificationFollow, "/user/self", u, "Maya")

	assert.Empty(t, dir.users[u].Notifications)
	assert.Zero(t, dir.lookups, "self-notification must not even hit the directory")
}

func TestReadFreezesBucket(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	recipient := dir.addUser("maya", "Maya")
	a := dir.addUser("a", "A")
	b := dir.addUser("b", "B")
	ctx := context.Background()

	agg.Record(ctx, recipient, models.NotificationComment, "/post/abc", a, "A")
	bucketID := dir.users[recipient].Notifications[0].ID
	require.NoError(t, agg.MarkRead(ctx, recipient, bucketID))

	agg.Record(ctx, recipient, models.NotificationComment, "/post/abc", b, "B")

	notifs := dir.users[recipient].Notifications
	require.Len(t, notifs, 2)
	assert.False(t, notifs[0].Read)
	assert.Equal(t, models.SenderSet{b}, notifs[0].Senders)
	assert.True(t, notifs[1].Read)
	assert.Equal(t, models.SenderSet{a}, notifs[1].Senders)
	assert.NotEqual(t, notifs[0].ID, notifs[1].ID)
}

func TestListOrdering(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	recipient := dir.addUser("maya", "Maya")
	a := dir.addUser("a", "A")
	b := dir.addUser("b", "B")
	ctx := context.Background()

	agg.Record(ctx, recipient, models.NotificationComment, "/post/one", a, "A")
	agg.Record(ctx, recipient, models.NotificationRaise, "/post/one", a, "A")
	agg.Record(ctx, recipient, models.NotificationComment, "/post/two", a, "A")
	// Merge into the oldest bucket: it must bubble back to the top.
	agg.Record(ctx, recipient, models.NotificationComment, "/post/one", b, "B")

	listed, err := agg.List(ctx, recipient)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i := 1; i < len(listed); i++ {
		assert.True(t, listed[i-1].UpdatedAt.After(listed[i].UpdatedAt),
			"buckets must be strictly descending by updated_at")
	}
	assert.Equal(t, "/post/one", listed[0].Link)
	assert.Equal(t, models.NotificationComment, listed[0].Type)

	// Structural order in storage agrees with the sort key.
	stored := dir.users[recipient].Notifications
	require.Len(t, stored, 3)
	assert.Equal(t, listed[0].ID, stored[0].ID)
}

func TestRepeatSenderKeepsOrder(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	recipient := dir.addUser("maya", "Maya")
	a := dir.addUser("a", "A")
	ctx := context.Background()

	agg.Record(ctx, recipient, models.NotificationComment, "/post/one", a, "A")
	agg.Record(ctx, recipient, models.NotificationRaise, "/post/one", a, "A")
	top := dir.users[recipient].Notifications[0].ID

	// A acts on /post/one's comment bucket again: already a sender there,
	// so the raise bucket stays on top.
	agg.Record(ctx, recipient, models.NotificationComment, "/post/one", a, "A")
	assert.Equal(t, top, dir.users[recipient].Notifications[0].ID)
}

func TestCountUnread(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	recipient := dir.addUser("maya", "Maya")
	a := dir.addUser("a", "A")
	ctx := context.Background()

	assert.Zero(t, agg.CountUnread(ctx, recipient))

	agg.Record(ctx, recipient, models.NotificationComment, "/post/one", a, "A")
	agg.Record(ctx, recipient, models.NotificationRaise, "/post/one", a, "A")
	assert.Equal(t, 2, agg.CountUnread(ctx, recipient))

	require.NoError(t, agg.MarkRead(ctx, recipient, dir.users[recipient].Notifications[0].ID))
	assert.Equal(t, 1, agg.CountUnread(ctx, recipient))

	assert.Zero(t, agg.CountUnread(ctx, primitive.NewObjectID()), "unknown user counts as zero, not an error")
}

func TestMarkReadIdempotent(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	recipient := dir.addUser("maya", "Maya")
	a := dir.addUser("a", "A")
	ctx := context.Background()

	agg.Record(ctx, recipient, models.NotificationComment, "/post/one", a, "A")
	bucketID := dir.users[recipient].Notifications[0].ID
	savesBefore := dir.saves

	require.NoError(t, agg.MarkRead(ctx, recipient, bucketID))
	assert.Equal(t, savesBefore+1, dir.saves)

	require.NoError(t, agg.MarkRead(ctx, recipient, bucketID))
	assert.Equal(t, savesBefore+1, dir.saves, "re-reading a read bucket must not write")

	assert.ErrorIs(t, agg.MarkRead(ctx, recipient, primitive.NewObjectID()), ErrBucketNotFound)
}

func TestListFiltersDanglingSenders(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	recipient := dir.addUser("maya", "Maya")
	a := dir.addUser("a", "A")
	b := dir.addUser("b", "B")
	ctx := context.Background()

	agg.Record(ctx, recipient, models.NotificationComment, "/post/one", a, "A")
	agg.Record(ctx, recipient, models.NotificationComment, "/post/one", b, "B")
	agg.Record(ctx, recipient, models.NotificationFollow, "/user/"+a.Hex(), a, "A")

	dir.removeUser(a)

	listed, err := agg.List(ctx, recipient)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, models.SenderSet{}, listed[0].Senders, "bucket survives with every sender gone")
	assert.Equal(t, models.SenderSet{b}, listed[1].Senders)

	// Display-only cleanup: the stored list still carries the dangling ID.
	assert.Equal(t, models.SenderSet{a, b}, dir.users[recipient].Notifications[1].Senders)
}

func TestRecordSwallowsFailures(t *testing.T) {
	dir := newFakeDirectory()
	agg := newTestAggregator(dir)
	sender := dir.addUser("a", "A")
	ctx := context.Background()

	// Recipient missing: no panic, nothing recorded.
	agg.Record(ctx, primitive.NewObjectID(), models.NotificationComment, "/post/one", sender, "A")

	// Save failing: the triggering action must not notice.
	recipient := dir.addUser("maya", "Maya")
	dir.saveErr = errors.New("write timeout")
	agg.Record(ctx, recipient, models.NotificationComment, "/post/one", sender, "A")
	assert.Empty(t, dir.users[recipient].Notifications)
}
