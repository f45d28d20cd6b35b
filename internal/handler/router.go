package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-booking-api/internal/middleware"
	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// streamTokenParam carries the bearer token on websocket handshakes.
const streamTokenParam = "access_token"

// Routes groups everything RegisterRoutes mounts.
type Routes struct {
	Auth         middleware.TokenValidator
	RateLimiter  *middleware.RateLimiter
	Availability *AvailabilityHandler
	Sessions     *SessionHandler
	Stream       *StreamHandler
}

// RegisterRoutes mounts the booking API under group. Every route requires a
// valid access token.
func RegisterRoutes(group *gin.RouterGroup, routes Routes) {
	authed := middleware.JWT(routes.Auth)

	availability := group.Group("/availability")
	availability.GET("/:mentorId", authed, routes.Availability.Get)
	availability.GET("/:mentorId/slots", authed, middleware.WithResponseMeta(), routes.Availability.Slots)
	availability.PUT("", authed, middleware.RequireRoles(models.RoleMentor), routes.Availability.Put)
	if routes.Stream != nil {
		availability.GET("/:mentorId/slots/stream", middleware.JWTWithQueryToken(routes.Auth, streamTokenParam), routes.Stream.Stream)
	}

	sessions := group.Group("/sessions", authed)
	book := []gin.HandlerFunc{routes.Sessions.Book}
	if routes.RateLimiter != nil {
		book = append([]gin.HandlerFunc{routes.RateLimiter.Middleware()}, book...)
	}
	sessions.POST("/book", book...)
	sessions.GET("", routes.Sessions.List)
	sessions.GET("/export", routes.Sessions.Export)
	sessions.GET("/:id", routes.Sessions.Get)
	sessions.PATCH("/:id/complete", middleware.RequireRoles(models.RoleMentor), routes.Sessions.Complete)
	sessions.PATCH("/:id/link", middleware.RequireRoles(models.RoleMentor), routes.Sessions.SetMeetingLink)
}
