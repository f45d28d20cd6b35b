package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
	"github.com/noah-isme/mentor-booking-api/pkg/response"
)

type bookingService interface {
	Book(ctx context.Context, caller *models.JWTClaims, req models.BookSessionRequest) (*models.Session, error)
}

type sessionService interface {
	Get(ctx context.Context, caller *models.JWTClaims, id string) (*models.Session, error)
	List(ctx context.Context, caller *models.JWTClaims, status string, page, pageSize int) ([]models.Session, *models.Pagination, error)
	Complete(ctx context.Context, caller *models.JWTClaims, id string) (*models.Session, error)
	SetMeetingLink(ctx context.Context, caller *models.JWTClaims, id string, req models.UpdateMeetingLinkRequest) (*models.Session, error)
	Export(ctx context.Context, caller *models.JWTClaims, status, format string) ([]byte, string, string, error)
}

// SessionHandler exposes booking and the session lifecycle.
type SessionHandler struct {
	booking  bookingService
	sessions sessionService
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(booking bookingService, sessions sessionService) *SessionHandler {
	return &SessionHandler{booking: booking, sessions: sessions}
}

// Book godoc
// @Summary Book a slot of a 1:1 program
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body models.BookSessionRequest true "Slot selection"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /sessions/book [post]
func (h *SessionHandler) Book(c *gin.Context) {
	var req models.BookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	session, err := h.booking.Book(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// List godoc
// @Summary List the caller's sessions
// @Description Mentors see sessions they host, students the ones they booked. Newest first.
// @Tags Sessions
// @Produce json
// @Param status query string false "booked or completed"
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, pagination, err := h.sessions.List(c.Request.Context(), claimsFromContext(c), c.Query("status"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Complete godoc
// @Summary Mark a booked session completed
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/complete [patch]
func (h *SessionHandler) Complete(c *gin.Context) {
	session, err := h.sessions.Complete(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// SetMeetingLink godoc
// @Summary Set or clear a session's meeting link
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body models.UpdateMeetingLinkRequest true "Meeting link, empty to clear"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/link [patch]
func (h *SessionHandler) SetMeetingLink(c *gin.Context) {
	var req models.UpdateMeetingLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid meeting link payload"))
		return
	}
	session, err := h.sessions.SetMeetingLink(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, session)
}

// Export godoc
// @Summary Download the caller's session history
// @Tags Sessions
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "booked or completed"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /sessions/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	body, contentType, filename, err := h.sessions.Export(c.Request.Context(), claimsFromContext(c), c.Query("status"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, body)
}
