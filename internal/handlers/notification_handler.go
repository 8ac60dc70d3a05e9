package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ideate-app/backend/internal/models"
	"github.com/ideate-app/backend/internal/notifications"
	"github.com/ideate-app/backend/internal/repositories"
)

// NotificationHandler exposes the caller's notification buckets
type NotificationHandler struct {
	aggregator     *notifications.Aggregator
	userRepository repositories.UserRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(aggregator *notifications.Aggregator, userRepo repositories.UserRepository) *NotificationHandler {
	return &NotificationHandler{aggregator: aggregator, userRepository: userRepo}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PUT("/notifications/:id/read", h.MarkAsRead)
}

// EnrichedBucket includes sender profiles for display
type EnrichedBucket struct {
	models.NotificationBucket
	SenderProfiles []models.UserCompact `json:"sender_profiles"`
}

func (h *NotificationHandler) enrichBuckets(c echo.Context, buckets []models.NotificationBucket) []EnrichedBucket {
	enriched := make([]EnrichedBucket, len(buckets))
	cache := make(map[primitive.ObjectID]models.UserCompact)

	for i, bucket := range buckets {
		enriched[i] = EnrichedBucket{NotificationBucket: bucket, SenderProfiles: []models.UserCompact{}}
		for _, senderID := range bucket.Senders {
			compact, ok := cache[senderID]
			if !ok {
				sender, err := h.userRepository.GetUserByID(c.Request().Context(), senderID)
				if err != nil {
					continue
				}
				compact = sender.ToCompact()
				cache[senderID] = compact
			}
			enriched[i].SenderProfiles = append(enriched[i].SenderProfiles, compact)
		}
	}
	return enriched
}

// GetNotifications returns the caller's buckets newest-first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	buckets, err := h.aggregator.List(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"notifications": h.enrichBuckets(c, buckets),
		"unreadCount":   h.aggregator.CountUnread(c.Request().Context(), userID),
	})
}

// GetUnreadCount returns the unread bucket count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	count := h.aggregator.CountUnread(c.Request().Context(), userID)
	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// MarkAsRead freezes one bucket; repeating the call succeeds
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	bucketID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.aggregator.MarkRead(c.Request().Context(), userID, bucketID); err != nil {
		if err == notifications.ErrBucketNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
