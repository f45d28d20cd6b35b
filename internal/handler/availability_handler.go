package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-booking-api/internal/middleware"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	appErrors "github.com/noah-isme/mentor-booking-api/pkg/errors"
	"github.com/noah-isme/mentor-booking-api/pkg/response"
)

type availabilityService interface {
	Get(ctx context.Context, mentorID string) (*models.AvailabilityTemplate, error)
	Put(ctx context.Context, caller *models.JWTClaims, req models.UpdateAvailabilityRequest) (*models.AvailabilityTemplate, error)
}

type slotService interface {
	AvailableSlots(ctx context.Context, mentorID, date string) ([]models.Slot, bool, error)
}

// AvailabilityHandler exposes mentor templates and free slots.
type AvailabilityHandler struct {
	availability availabilityService
	slots        slotService
}

// NewAvailabilityHandler builds a new handler.
func NewAvailabilityHandler(availability availabilityService, slots slotService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability, slots: slots}
}

// Get godoc
// @Summary Get a mentor's weekly availability
// @Description Mentors without a saved template get the default: 30 minute slots and no windows.
// @Tags Availability
// @Produce json
// @Param mentorId path string true "Mentor ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /availability/{mentorId} [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	tpl, err := h.availability.Get(c.Request.Context(), c.Param("mentorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tpl)
}

// Put godoc
// @Summary Replace the caller's weekly availability
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body models.UpdateAvailabilityRequest true "Full template"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /availability [put]
func (h *AvailabilityHandler) Put(c *gin.Context) {
	var req models.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	tpl, err := h.availability.Put(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, tpl)
}

// Slots godoc
// @Summary List a mentor's free slots on a date
// @Description Candidate slots from the weekly template minus booked sessions, in template order.
// @Tags Availability
// @Produce json
// @Param mentorId path string true "Mentor ID"
// @Param date query string true "Date (YYYY-MM-DD, UTC)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /availability/{mentorId}/slots [get]
func (h *AvailabilityHandler) Slots(c *gin.Context) {
	slots, hit, err := h.slots.AvailableSlots(c.Request.Context(), c.Param("mentorId"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, slots, middleware.ExtractMeta(c))
}
