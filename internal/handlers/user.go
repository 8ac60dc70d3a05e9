package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/ideate-app/backend/internal/models"
	"github.com/ideate-app/backend/internal/repositories"
)

// UserHandler handles HTTP requests related to user profiles
type UserHandler struct {
	userRepository repositories.UserRepository
	ideaRepository repositories.IdeaRepository
	log            logrus.FieldLogger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, ideaRepo repositories.IdeaRepository, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{userRepository: userRepo, ideaRepository: ideaRepo, log: log}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.PUT("/profile/password", h.ChangePassword)
	g.DELETE("/profile", h.DeleteAccount)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/connections/:type", h.GetConnections)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, err := h.userRepository.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user, "image": user.ImageDataURL()})
}

// GetUser retrieves a public profile with the user's ideas
func (h *UserHandler) GetUser(c echo.Context) error {
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	ideas, err := h.ideaRepository.GetIdeasByAuthor(ctx, targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"user":  user.ToCompact(),
		"bio":   user.Bio,
		"stats": echo.Map{"followers": len(user.Followers), "following": len(user.Following)},
		"ideas": ideas,
	})
}

// GetConnections lists a user's followers or following
func (h *UserHandler) GetConnections(c echo.Context) error {
	targetID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	listType := c.Param("type")
	if listType != "followers" && listType != "following" {
		return echo.NewHTTPError(http.StatusBadRequest, "Connection type must be followers or following")
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	ids := user.Followers
	if listType == "following" {
		ids = user.Following
	}

	list := make([]models.UserCompact, 0, len(ids))
	for _, id := range ids {
		connection, err := h.userRepository.GetUserByID(ctx, id)
		if err != nil {
			// Deleted accounts drop out of the listing.
			continue
		}
		list = append(list, connection.ToCompact())
	}

	return c.JSON(http.StatusOK, echo.Map{"type": listType, "users": list})
}

// SearchUsers matches users by display name or handle
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusOK, []models.UserCompact{})
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, 5)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	results := make([]models.UserCompact, 0, len(users))
	for i := range users {
		results = append(results, users[i].ToCompact())
	}
	return c.JSON(http.StatusOK, results)
}

// UpdateProfile applies settings changes; an optional multipart image
// becomes the avatar
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var image []byte
	var imageType string
	if file, err := c.FormFile("profile_image"); err == nil {
		imageType = file.Header.Get("Content-Type")
		if !strings.HasPrefix(imageType, "image/") {
			return echo.NewHTTPError(http.StatusBadRequest, "Only images are allowed")
		}
		src, err := file.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		defer src.Close()
		image, err = io.ReadAll(io.LimitReader(src, maxImageBytes+1))
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if int64(len(image)) > maxImageBytes {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Image exceeds the 5MB limit")
		}
	}

	if err := h.userRepository.UpdateSettings(c.Request().Context(), userID, &req, image, imageType); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ChangePassword verifies the current password before storing a new hash
func (h *UserHandler) ChangePassword(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "Incorrect current password")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}
	if err := h.userRepository.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteAccount removes the user and cascades: their ideas are deleted and
// they are pulled from every follower/following list. Their notification
// sender entries elsewhere are left alone; listings filter dangling senders.
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	if err := h.ideaRepository.DeleteIdeasByAuthor(ctx, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.userRepository.PullFromSocialGraph(ctx, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.userRepository.DeleteUser(ctx, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
