package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ideate-app/backend/internal/repositories"
)

// AnalyticsHandler aggregates creator stats and the engagement leaderboard
type AnalyticsHandler struct {
	ideaRepository  repositories.IdeaRepository
	statsRepository repositories.StatsRepository
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(ideaRepo repositories.IdeaRepository, statsRepo repositories.StatsRepository) *AnalyticsHandler {
	return &AnalyticsHandler{ideaRepository: ideaRepo, statsRepository: statsRepo}
}

// RegisterAnalyticsRoutes registers analytics routes
func (h *AnalyticsHandler) RegisterAnalyticsRoutes(g *echo.Group) {
	g.GET("/analytics", h.GetAnalytics)
	g.GET("/leaderboard", h.GetLeaderboard)
}

// GetAnalytics sums the caller's idea engagement from the idea documents
func (h *AnalyticsHandler) GetAnalytics(c echo.Context) error {
	userID := currentUserID(c)
	if userID.IsZero() {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ideas, err := h.ideaRepository.GetIdeasByAuthor(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var totalViews, totalUpvotes, totalComments int64
	for i := range ideas {
		totalViews += ideas[i].Views
		totalUpvotes += int64(len(ideas[i].Upvotes))
		totalComments += int64(len(ideas[i].Comments))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"stats": echo.Map{
			"totalViews":    totalViews,
			"totalUpvotes":  totalUpvotes,
			"totalComments": totalComments,
			"ideaCount":     len(ideas),
		},
		"ideas": ideas,
	})
}

// GetLeaderboard ranks ideas by engagement events from the stats store
func (h *AnalyticsHandler) GetLeaderboard(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	entries, err := h.statsRepository.Leaderboard(limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"leaderboard": entries})
}
