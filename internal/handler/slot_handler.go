package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/middleware"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	"github.com/noah-isme/mentor-booking-api/pkg/response"
)

type slotService interface {
	Slots(ctx context.Context, actor policy.Actor, mentorID string, query dto.SlotQuery) (*dto.SlotsResponse, error)
}

// SlotHandler serves bookable slots.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler constructs the handler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

// List godoc
// @Summary List bookable slots of a mentor
// @Description Returns UTC start/end pairs inside the window. An empty or inverted window yields an empty list.
// @Tags Slots
// @Produce json
// @Param id path string true "Mentor ID"
// @Param from query string true "Window start (RFC3339)"
// @Param to query string true "Window end (RFC3339)"
// @Param duration query int true "Session length in minutes"
// @Param step query int false "Minutes between candidate starts (5-240)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /mentors/{id}/slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	fields := queryFields{}
	query := dto.SlotQuery{
		From:            fields.timestamp(c, "from", true),
		To:              fields.timestamp(c, "to", true),
		DurationMinutes: fields.integer(c, "duration", true),
		StepMinutes:     fields.integer(c, "step", false),
	}
	if err := fields.err("invalid slot query"); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.Slots(c.Request.Context(), actorFromContext(c), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.From.Equal(query.From) || !result.To.Equal(query.To) {
		middleware.SetMeta(c, "window_clamped", true)
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}
