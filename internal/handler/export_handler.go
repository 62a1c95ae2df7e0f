package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/mentor-booking-api/internal/dto"
	"github.com/noah-isme/mentor-booking-api/internal/policy"
	"github.com/noah-isme/mentor-booking-api/pkg/response"
)

type agendaExporter interface {
	MentorAgenda(ctx context.Context, actor policy.Actor, mentorID string, query dto.AgendaExportQuery) (*dto.AgendaExport, error)
}

// ExportHandler streams agenda documents.
type ExportHandler struct {
	service agendaExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(service agendaExporter) *ExportHandler {
	return &ExportHandler{service: service}
}

// MentorAgenda godoc
// @Summary Export a mentor agenda
// @Description Renders the mentor's sessions in the window as CSV or PDF, times in the mentor's timezone.
// @Tags Export
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Mentor ID"
// @Param format query string false "csv (default) or pdf"
// @Param from query string true "Window start (RFC3339)"
// @Param to query string true "Window end (RFC3339)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /mentors/{id}/sessions/export [get]
func (h *ExportHandler) MentorAgenda(c *gin.Context) {
	fields := queryFields{}
	query := dto.AgendaExportQuery{
		Format: c.DefaultQuery("format", "csv"),
		From:   fields.timestamp(c, "from", true),
		To:     fields.timestamp(c, "to", true),
	}
	if err := fields.err("invalid export request"); err != nil {
		response.Error(c, err)
		return
	}

	doc, err := h.service.MentorAgenda(c.Request.Context(), actorFromContext(c), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
