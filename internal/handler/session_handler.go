package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	"github.com/noah-isme/mentor-booking-api/pkg/response"
)

type bookingService interface {
	Create(ctx context.Context, actor policy.Actor, req dto.CreateSessionRequest) (*models.Session, error)
	Transition(ctx context.Context, actor policy.Actor, sessionID, action string, req dto.TransitionSessionRequest) (*models.Session, error)
	Get(ctx context.Context, actor policy.Actor, sessionID string) (*models.Session, error)
	List(ctx context.Context, actor policy.Actor, query dto.SessionListQuery) (*dto.SessionList, error)
	Update(ctx context.Context, actor policy.Actor, sessionID string, req dto.UpdateSessionRequest) (*models.Session, error)
}

// SessionHandler manages booking endpoints.
type SessionHandler struct {
	service bookingService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service bookingService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Create godoc
// @Summary Request a mentoring session
// @Description Books a pending session when the requested window is free in the mentor's availability.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid session payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Confirm godoc
// @Summary Confirm a pending session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.TransitionSessionRequest false "Optional reason"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/confirm [post]
func (h *SessionHandler) Confirm(c *gin.Context) {
	h.transition(c, "confirm")
}

// Complete godoc
// @Summary Mark a confirmed session completed
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.TransitionSessionRequest false "Optional reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/complete [post]
func (h *SessionHandler) Complete(c *gin.Context) {
	h.transition(c, "complete")
}

// Cancel godoc
// @Summary Cancel a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.TransitionSessionRequest false "Optional reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/cancel [post]
func (h *SessionHandler) Cancel(c *gin.Context) {
	h.transition(c, "cancel")
}

func (h *SessionHandler) transition(c *gin.Context, action string) {
	var req dto.TransitionSessionRequest
	// the body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, invalidPayload(err, "invalid transition payload"))
		return
	}
	updated, err := h.service.Transition(c.Request.Context(), actorFromContext(c), c.Param("id"), action, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Get godoc
// @Summary Get a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	found, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, found, nil)
}

// List godoc
// @Summary List the caller's sessions
// @Tags Sessions
// @Produce json
// @Param status query string false "pending, confirmed, cancelled or completed"
// @Param from query string false "Scheduled at or after (RFC3339)"
// @Param to query string false "Scheduled before (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	fields := queryFields{}
	query := dto.SessionListQuery{
		Status: c.Query("status"),
		From:   fields.optionalTime(c, "from"),
		To:     fields.optionalTime(c, "to"),
		Page:   fields.integer(c, "page", false),
		Limit:  fields.integer(c, "limit", false),
		Sort:   c.Query("sort"),
	}
	if err := fields.err("invalid session filter"); err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), actorFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := result.Pagination
	response.JSON(c, http.StatusOK, result.Sessions, &pagination)
}

// Update godoc
// @Summary Update the location or notes of a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.UpdateSessionRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [patch]
func (h *SessionHandler) Update(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid session payload"))
		return
	}
	updated, err := h.service.Update(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}
