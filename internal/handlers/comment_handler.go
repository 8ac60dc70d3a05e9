package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ideate-app/backend/internal/models"
	"github.com/ideate-app/backend/internal/notifications"
	"github.com/ideate-app/backend/internal/repositories"
)

// CommentHandler handles comments and replies on ideas. After its own
// persistence it feeds the notification engine; those calls never fail the
// request.
type CommentHandler struct {
	ideaRepository  repositories.IdeaRepository
	userRepository  repositories.UserRepository
	statsRepository repositories.StatsRepository
	aggregator      *notifications.Aggregator
	resolver        *notifications.Resolver
	log             logrus.FieldLogger
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(ideaRepo repositories.IdeaRepository, userRepo repositories.UserRepository, statsRepo repositories.StatsRepository, aggregator *notifications.Aggregator, resolver *notifications.Resolver, log logrus.FieldLogger) *CommentHandler {
	return &CommentHandler{
		ideaRepository:  ideaRepo,
		userRepository:  userRepo,
		statsRepository: statsRepo,
		aggregator:      aggregator,
		resolver:        resolver,
		log:             log,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/ideas/:id/comments", h.CreateComment)
	g.DELETE("/ideas/:id/comments/:comment_id", h.DeleteComment)
	g.POST("/ideas/:id/comments/:comment_id/replies", h.CreateReply)
}

// CreateComment appends a comment, notifies the idea's author and resolves
// any @mentions in the text
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.CreateCommentRequest
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

	comment := models.Comment{
		UserID: userID,
		User:   user.DisplayName,
		Text:   req.Text,
	}
	idea, err := h.ideaRepository.AddComment(ctx, c.Param("id"), comment)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Idea not found")
	}

	h.aggregator.Record(ctx, idea.AuthorID, models.NotificationComment, idea.PostLink(), userID, user.DisplayName)
	h.resolver.ResolveMentions(ctx, req.Text, idea.PostLink(), userID, user.DisplayName)
	go h.recordEvent(idea.ID.Hex(), userID.Hex(), "comment")

	return c.JSON(http.StatusCreated, idea.Comments[len(idea.Comments)-1])
}

// CreateReply appends a reply, notifies the parent comment's author and
// resolves @mentions
func (h *CommentHandler) CreateReply(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	commentID, err := primitive.ObjectIDFromHex(c.Param("comment_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid comment ID")
	}

	var req models.CreateReplyRequest
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

	reply := models.Reply{
		UserID: userID,
		User:   user.DisplayName,
		Text:   req.Text,
	}
	idea, parent, err := h.ideaRepository.AddReply(ctx, c.Param("id"), commentID, reply)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
	}

	h.aggregator.Record(ctx, parent.UserID, models.NotificationReply, idea.PostLink(), userID, user.DisplayName)
	h.resolver.ResolveMentions(ctx, req.Text, idea.PostLink(), userID, user.DisplayName)
	go h.recordEvent(idea.ID.Hex(), userID.Hex(), "reply")

	return c.JSON(http.StatusCreated, reply)
}

// DeleteComment removes the caller's own comment
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	commentID, err := primitive.ObjectIDFromHex(c.Param("comment_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid comment ID")
	}

	if err := h.ideaRepository.DeleteComment(c.Request().Context(), c.Param("id"), commentID, userID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Comment not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CommentHandler) recordEvent(ideaID, actorID, kind string) {
	if err := h.statsRepository.RecordEvent(ideaID, actorID, kind); err != nil {
		h.log.WithError(err).WithField("idea", ideaID).Debug("engagement event dropped")
	}
}
