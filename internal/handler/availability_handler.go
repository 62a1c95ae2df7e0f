package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/middleware"
	"github.com/noah-isme/mentor-booking-api/internal/models"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	"github.com/noah-isme/mentor-booking-api/pkg/response"
)

type availabilityService interface {
	ListRules(ctx context.Context, actor policy.Actor, mentorID string) ([]models.AvailabilityRule, error)
	CreateRule(ctx context.Context, actor policy.Actor, mentorID string, req dto.AvailabilityRuleRequest) (*models.AvailabilityRule, error)
	UpdateRule(ctx context.Context, actor policy.Actor, mentorID, ruleID string, req dto.AvailabilityRuleRequest) (*models.AvailabilityRule, error)
	DeleteRule(ctx context.Context, actor policy.Actor, mentorID, ruleID string) error
	ListExceptions(ctx context.Context, actor policy.Actor, mentorID string, query dto.ExceptionListQuery) ([]models.AvailabilityException, error)
	CreateException(ctx context.Context, actor policy.Actor, mentorID string, req dto.AvailabilityExceptionRequest) (*models.AvailabilityException, error)
	UpdateException(ctx context.Context, actor policy.Actor, mentorID, exceptionID string, req dto.AvailabilityExceptionRequest) (*models.AvailabilityException, error)
	DeleteException(ctx context.Context, actor policy.Actor, mentorID, exceptionID string) error
	ListLegacy(ctx context.Context, actor policy.Actor, mentorID string) ([]models.LegacyAvailability, error)
	CreateLegacy(ctx context.Context, actor policy.Actor, mentorID string, req dto.LegacyAvailabilityRequest) (*models.LegacyAvailability, error)
	DeleteLegacy(ctx context.Context, actor policy.Actor, mentorID, legacyID string) error
}

// AvailabilityHandler exposes /mentors/:id/availability endpoints.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// ListRules godoc
// @Summary List availability rules of a mentor
// @Tags Availability
// @Produce json
// @Param id path string true "Mentor ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /mentors/{id}/availability/rules [get]
func (h *AvailabilityHandler) ListRules(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// CreateRule godoc
// @Summary Create an availability rule
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Mentor ID"
// @Param payload body dto.AvailabilityRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /mentors/{id}/availability/rules [post]
func (h *AvailabilityHandler) CreateRule(c *gin.Context) {
	var req dto.AvailabilityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid availability rule payload"))
		return
	}
	rule, err := h.service.CreateRule(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, rule.ID)
	response.Created(c, rule)
}

// UpdateRule godoc
// @Summary Replace an availability rule
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Mentor ID"
// @Param ruleId path string true "Rule ID"
// @Param payload body dto.AvailabilityRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /mentors/{id}/availability/rules/{ruleId} [put]
func (h *AvailabilityHandler) UpdateRule(c *gin.Context) {
	var req dto.AvailabilityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid availability rule payload"))
		return
	}
	rule, err := h.service.UpdateRule(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("ruleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// DeleteRule godoc
// @Summary Delete an availability rule
// @Tags Availability
// @Param id path string true "Mentor ID"
// @Param ruleId path string true "Rule ID"
// @Success 204
// @Router /mentors/{id}/availability/rules/{ruleId} [delete]
func (h *AvailabilityHandler) DeleteRule(c *gin.Context) {
	if err := h.service.DeleteRule(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("ruleId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListExceptions godoc
// @Summary List dated availability exceptions
// @Tags Availability
// @Produce json
// @Param id path string true "Mentor ID"
// @Param from query string false "First date (YYYY-MM-DD)"
// @Param to query string false "Last date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /mentors/{id}/availability/exceptions [get]
func (h *AvailabilityHandler) ListExceptions(c *gin.Context) {
	var query dto.ExceptionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidPayload(err, "invalid exception filter"))
		return
	}
	exceptions, err := h.service.ListExceptions(c.Request.Context(), actorFromContext(c), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exceptions, nil)
}

// CreateException godoc
// @Summary Create an availability exception
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Mentor ID"
// @Param payload body dto.AvailabilityExceptionRequest true "Exception payload"
// @Success 201 {object} response.Envelope
// @Router /mentors/{id}/availability/exceptions [post]
func (h *AvailabilityHandler) CreateException(c *gin.Context) {
	var req dto.AvailabilityExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid availability exception payload"))
		return
	}
	exc, err := h.service.CreateException(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, exc.ID)
	response.Created(c, exc)
}

// UpdateException godoc
// @Summary Replace an availability exception
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Mentor ID"
// @Param exceptionId path string true "Exception ID"
// @Param payload body dto.AvailabilityExceptionRequest true "Exception payload"
// @Success 200 {object} response.Envelope
// @Router /mentors/{id}/availability/exceptions/{exceptionId} [put]
func (h *AvailabilityHandler) UpdateException(c *gin.Context) {
	var req dto.AvailabilityExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid availability exception payload"))
		return
	}
	exc, err := h.service.UpdateException(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("exceptionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exc, nil)
}

// DeleteException godoc
// @Summary Delete an availability exception
// @Tags Availability
// @Param id path string true "Mentor ID"
// @Param exceptionId path string true "Exception ID"
// @Success 204
// @Router /mentors/{id}/availability/exceptions/{exceptionId} [delete]
func (h *AvailabilityHandler) DeleteException(c *gin.Context) {
	if err := h.service.DeleteException(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("exceptionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListLegacy godoc
// @Summary List legacy weekly availability rows
// @Tags Availability
// @Produce json
// @Param id path string true "Mentor ID"
// @Success 200 {object} response.Envelope
// @Router /mentors/{id}/availability/legacy [get]
func (h *AvailabilityHandler) ListLegacy(c *gin.Context) {
	rows, err := h.service.ListLegacy(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// CreateLegacy godoc
// @Summary Create a legacy weekly availability row
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Mentor ID"
// @Param payload body dto.LegacyAvailabilityRequest true "Legacy payload"
// @Success 201 {object} response.Envelope
// @Router /mentors/{id}/availability/legacy [post]
func (h *AvailabilityHandler) CreateLegacy(c *gin.Context) {
	var req dto.LegacyAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid legacy availability payload"))
		return
	}
	row, err := h.service.CreateLegacy(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, row.ID)
	response.Created(c, row)
}

// DeleteLegacy godoc
// @Summary Delete a legacy weekly availability row
// @Tags Availability
// @Param id path string true "Mentor ID"
// @Param legacyId path string true "Legacy row ID"
// @Success 204
// @Router /mentors/{id}/availability/legacy/{legacyId} [delete]
func (h *AvailabilityHandler) DeleteLegacy(c *gin.Context) {
	if err := h.service.DeleteLegacy(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("legacyId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
