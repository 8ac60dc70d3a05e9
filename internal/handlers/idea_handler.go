package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/ideate-app/backend/internal/models"
	"github.com/ideate-app/backend/internal/notifications"
	"github.com/ideate-app/backend/internal/repositories"
)

// Upload limits matching the original product: at most five images of 5MB.
const (
	maxImageBytes = 5 << 20
	maxIdeaImages = 5
)

// IdeaHandler handles idea CRUD, feeds, raises and bookmarks
type IdeaHandler struct {
	ideaRepository  repositories.IdeaRepository
	userRepository  repositories.UserRepository
	statsRepository repositories.StatsRepository
	aggregator      *notifications.Aggregator
	log             logrus.FieldLogger
}

// NewIdeaHandler creates a new IdeaHandler
func NewIdeaHandler(ideaRepo repositories.IdeaRepository, userRepo repositories.UserRepository, statsRepo repositories.StatsRepository, aggregator *notifications.Aggregator, log logrus.FieldLogger) *IdeaHandler {
	return &IdeaHandler{
		ideaRepository:  ideaRepo,
		userRepository:  userRepo,
		statsRepository: statsRepo,
		aggregator:      aggregator,
		log:             log,
	}
}

// RegisterIdeaRoutes registers idea-related routes
func (h *IdeaHandler) RegisterIdeaRoutes(g *echo.Group) {
	g.POST("/ideas", h.CreateIdea)
	g.GET("/ideas", h.GetIdeas)
	g.GET("/ideas/:id", h.GetIdea)
	g.PUT("/ideas/:id", h.UpdateIdea)
	g.DELETE("/ideas/:id", h.DeleteIdea)
	g.POST("/ideas/:id/raise", h.RaiseIdea)
	g.POST("/ideas/:id/bookmark", h.BookmarkIdea)
	g.GET("/bookmarks", h.GetBookmarks)
	g.GET("/activity", h.GetActivity)
}

func readImages(form *multipart.Form) ([]models.IdeaImage, error) {
	files := form.File["images"]
	if len(files) > maxIdeaImages {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "At most 5 images per idea")
	}
	images := make([]models.IdeaImage, 0, len(files))
	for _, file := range files {
		contentType := file.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Only images are allowed")
		}
		src, err := file.Open()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		content, err := io.ReadAll(io.LimitReader(src, maxImageBytes+1))
		src.Close()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if int64(len(content)) > maxImageBytes {
			return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "Image exceeds the 5MB limit")
		}
		images = append(images, models.IdeaImage{Content: content, Type: contentType})
	}
	return images, nil
}

// CreateIdea posts a new idea with optional multipart images
func (h *IdeaHandler) CreateIdea(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateIdeaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	var images []models.IdeaImage
	if form, formErr := c.MultipartForm(); formErr == nil && form != nil {
		images, err = readImages(form)
		if err != nil {
			return err
		}
	}

	idea := &models.Idea{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Author:      user.DisplayName,
		AuthorID:    user.ID,
		Images:      images,
	}
	if err := h.ideaRepository.CreateIdea(ctx, idea); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, idea)
}

// GetIdeas returns the feed: "home" narrows to followed authors plus self,
// anything else explores every idea, optionally by category
func (h *IdeaHandler) GetIdeas(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	filter := repositories.IdeaFilter{Category: c.QueryParam("category")}

	if c.QueryParam("feed") == "home" {
		user, err := h.userRepository.GetUserByID(ctx, userID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
		}
		filter.AuthorIn = append(user.Following, userID)
	}

	ideas, err := h.ideaRepository.ListIdeas(ctx, filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ideas": ideas})
}

// GetIdea returns one idea and counts the viewer's first visit
func (h *IdeaHandler) GetIdea(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ideaID := c.Param("id")
	ctx := c.Request().Context()
	idea, err := h.ideaRepository.GetIdeaByID(ctx, ideaID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Idea not found")
	}

	if err := h.ideaRepository.RegisterView(ctx, ideaID, userID); err != nil {
		h.log.WithError(err).WithField("idea", ideaID).Warn("view tracking failed")
	}
	go h.recordEvent(ideaID, userID.Hex(), "view")

	return c.JSON(http.StatusOK, idea)
}

// UpdateIdea edits an idea owned by the caller
func (h *IdeaHandler) UpdateIdea(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateIdeaRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ideaID := c.Param("id")
	ctx := c.Request().Context()
	idea, err := h.ideaRepository.GetIdeaByID(ctx, ideaID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Idea not found")
	}
	if idea.AuthorID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to edit this idea")
	}

	idea.Title = req.Title
	idea.Description = req.Description
	idea.Category = req.Category
	if form, formErr := c.MultipartForm(); formErr == nil && form != nil {
		images, imgErr := readImages(form)
		if imgErr != nil {
			return imgErr
		}
		idea.Images = images
	}

	if err := h.ideaRepository.UpdateIdea(ctx, ideaID, idea); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, idea)
}

// DeleteIdea removes an idea owned by the caller
func (h *IdeaHandler) DeleteIdea(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ideaID := c.Param("id")
	ctx := c.Request().Context()
	idea, err := h.ideaRepository.GetIdeaByID(ctx, ideaID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Idea not found")
	}
	if idea.AuthorID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to delete this idea")
	}

	if err := h.ideaRepository.DeleteIdea(ctx, ideaID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// RaiseIdea toggles the caller's upvote. Raising notifies the author;
// withdrawing does not.
func (h *IdeaHandler) RaiseIdea(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	ideaID := c.Param("id")
	idea, raised, err := h.ideaRepository.ToggleUpvote(ctx, ideaID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Idea not found")
	}

	if raised {
		h.aggregator.Record(ctx, idea.AuthorID, models.NotificationRaise, idea.PostLink(), userID, user.DisplayName)
		go h.recordEvent(ideaID, userID.Hex(), "raise")
	}

	count := len(idea.Upvotes)
	if raised {
		count++
	} else {
		count--
	}
	return c.JSON(http.StatusOK, echo.Map{"raised": raised, "upvotes": count})
}

// BookmarkIdea toggles the idea in the caller's saved list
func (h *IdeaHandler) BookmarkIdea(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	idea, err := h.ideaRepository.GetIdeaByID(ctx, c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Idea not found")
	}

	bookmarked, err := h.userRepository.ToggleBookmark(ctx, userID, idea.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"bookmarked": bookmarked})
}

// GetBookmarks lists the caller's saved ideas
func (h *IdeaHandler) GetBookmarks(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Authenticated user not found in database")
	}

	ideas, err := h.ideaRepository.GetIdeasByIDs(ctx, user.Bookmarks)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ideas": ideas})
}

// GetActivity lists the caller's own ideas newest-first
func (h *IdeaHandler) GetActivity(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ideas, err := h.ideaRepository.GetIdeasByAuthor(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"ideas": ideas})
}

func (h *IdeaHandler) recordEvent(ideaID, actorID, kind string) {
	if err := h.statsRepository.RecordEvent(ideaID, actorID, kind); err != nil {
		h.log.WithError(err).WithField("idea", ideaID).Debug("engagement event dropped")
	}
}
