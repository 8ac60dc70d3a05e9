package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ideate-app/backend/internal/models"
	"github.com/ideate-app/backend/internal/notifications"
	"github.com/ideate-app/backend/internal/repositories"
)

// fakeUserStore backs both the user repository and the notification directory
// with an in-memory map. Only the methods the notification paths touch are
// implemented; anything else panics via the embedded nil interface.
type fakeUserStore struct {
	repositories.UserRepository
	users map[primitive.ObjectID]*models.User
	saves int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[primitive.ObjectID]*models.User)}
}

func (s *fakeUserStore) addUser(handle, displayName string) *models.User {
	user := &models.User{
		ID:          primitive.NewObjectID(),
		Handle:      handle,
		DisplayName: displayName,
	}
	s.users[user.ID] = user
	return user
}

func (s *fakeUserStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*notifications.UserRecord, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	list := make([]models.NotificationBucket, len(user.Notifications))
	copy(list, user.Notifications)
	return &notifications.UserRecord{
		ID:            user.ID,
		Handle:        user.Handle,
		DisplayName:   user.DisplayName,
		Notifications: list,
	}, nil
}

func (s *fakeUserStore) FindByHandle(_ context.Context, handle string) (*notifications.UserRecord, error) {
	for _, user := range s.users {
		if user.Handle == handle {
			return s.FindByID(context.Background(), user.ID)
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (s *fakeUserStore) Save(_ context.Context, rec *notifications.UserRecord) error {
	user, ok := s.users[rec.ID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	user.Notifications = rec.Notifications
	s.saves++
	return nil
}

func newNotificationTestServer(store *fakeUserStore) (*echo.Echo, *notifications.Aggregator) {
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)
	aggregator := notifications.NewAggregator(store, quiet)

	e := echo.New()
	api := e.Group("/api/v1")
	handler := NewNotificationHandler(aggregator, store)
	handler.RegisterNotificationRoutes(api)
	return e, aggregator
}

func doAuthedRequest(e *echo.Echo, method, target string, userID primitive.ObjectID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	e.Router().Find(method, target, c)
	c.Set("user", &models.JwtCustomClaims{UserID: userID.Hex()})
	if err := c.Handler()(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestGetNotificationsEnrichesSenders(t *testing.T) {
	store := newFakeUserStore()
	recipient := store.addUser("maya", "Maya")
	alice := store.addUser("alice", "Alice Chen")
	bob := store.addUser("bob", "Bob Park")

	e, aggregator := newNotificationTestServer(store)
	ctx := context.Background()
	aggregator.Record(ctx, recipient.ID, models.NotificationRaise, "/post/abc", alice.ID, alice.DisplayName)
	aggregator.Record(ctx, recipient.ID, models.NotificationRaise, "/post/abc", bob.ID, bob.DisplayName)

	rec := doAuthedRequest(e, http.MethodGet, "/api/v1/notifications", recipient.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Notifications []struct {
			Message        string               `json:"message"`
			SenderProfiles []models.UserCompact `json:"sender_profiles"`
		} `json:"notifications"`
		UnreadCount int `json:"unreadCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, 1, body.UnreadCount)
	assert.Equal(t, "and 1 other raised your idea", body.Notifications[0].Message)
	require.Len(t, body.Notifications[0].SenderProfiles, 2)
	assert.Equal(t, "alice", body.Notifications[0].SenderProfiles[0].Handle)
	assert.Equal(t, "bob", body.Notifications[0].SenderProfiles[1].Handle)
}

func TestGetUnreadCount(t *testing.T) {
	store := newFakeUserStore()
	recipient := store.addUser("maya", "Maya")
	alice := store.addUser("alice", "Alice Chen")

	e, aggregator := newNotificationTestServer(store)
	ctx := context.Background()
	aggregator.Record(ctx, recipient.ID, models.NotificationFollow, "/user/"+alice.ID.Hex(), alice.ID, alice.DisplayName)
	aggregator.Record(ctx, recipient.ID, models.NotificationComment, "/post/abc", alice.ID, alice.DisplayName)

	rec := doAuthedRequest(e, http.MethodGet, "/api/v1/notifications/unread-count", recipient.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestMarkAsRead(t *testing.T) {
	store := newFakeUserStore()
	recipient := store.addUser("maya", "Maya")
	alice := store.addUser("alice", "Alice Chen")

	e, aggregator := newNotificationTestServer(store)
	ctx := context.Background()
	aggregator.Record(ctx, recipient.ID, models.NotificationComment, "/post/abc", alice.ID, alice.DisplayName)
	bucketID := store.users[recipient.ID].Notifications[0].ID

	rec := doAuthedRequest(e, http.MethodPut, "/api/v1/notifications/"+bucketID.Hex()+"/read", recipient.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, store.users[recipient.ID].Notifications[0].Read)
	assert.Equal(t, 0, aggregator.CountUnread(ctx, recipient.ID))

	// Repeating the call succeeds without another write.
	savesBefore := store.saves
	rec = doAuthedRequest(e, http.MethodPut, "/api/v1/notifications/"+bucketID.Hex()+"/read", recipient.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, savesBefore, store.saves)
}

func TestMarkAsReadUnknownBucket(t *testing.T) {
	store := newFakeUserStore()
	recipient := store.addUser("maya", "Maya")

	e, _ := newNotificationTestServer(store)
	rec := doAuthedRequest(e, http.MethodPut, "/api/v1/notifications/"+primitive.NewObjectID().Hex()+"/read", recipient.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkAsReadInvalidID(t *testing.T) {
	store := newFakeUserStore()
	recipient := store.addUser("maya", "Maya")

	e, _ := newNotificationTestServer(store)
	rec := doAuthedRequest(e, http.MethodPut, "/api/v1/notifications/not-an-id/read", recipient.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotificationsRequireAuth(t *testing.T) {
	store := newFakeUserStore()
	e, _ := newNotificationTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	e.Router().Find(http.MethodGet, "/api/v1/notifications", c)
	if err := c.Handler()(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
