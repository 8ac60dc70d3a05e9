package handlers

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/labstack/echo/v4"

	"github.com/ideate-app/backend/internal/models"
)

// currentUserID extracts the authenticated user's ObjectID from the JWT
// claims set by the auth middleware. Returns NilObjectID when absent.
func currentUserID(c echo.Context) primitive.ObjectID {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}
