package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ideate-app/backend/internal/models"
	"github.com/ideate-app/backend/internal/notifications"
	"github.com/ideate-app/backend/internal/repositories"
)

// FollowHandler handles follow/unfollow toggling
type FollowHandler struct {
	userRepository repositories.UserRepository
	aggregator     *notifications.Aggregator
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(userRepo repositories.UserRepository, aggregator *notifications.Aggregator) *FollowHandler {
	return &FollowHandler{userRepository: userRepo, aggregator: aggregator}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.ToggleFollow)
}

// ToggleFollow follows the target if not yet followed, otherwise unfollows.
// Only the follow direction notifies; the link points at the follower's
// profile.
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	if targetID == userID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	following, followerCount, err := h.userRepository.ToggleFollow(ctx, userID, targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	if following {
		h.aggregator.Record(ctx, targetID, models.NotificationFollow, "/user/"+userID.Hex(), userID, user.DisplayName)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":     true,
		"isFollowing": following,
		"newCount":    followerCount,
	})
}
