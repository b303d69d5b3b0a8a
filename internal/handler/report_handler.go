package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartcampus/campus-booking-api/internal/models"
	"github.com/smartcampus/campus-booking-api/internal/service"
	"github.com/smartcampus/campus-booking-api/pkg/response"
)

// ReportHandler serves usage statistics and their exports.
type ReportHandler struct {
	reports *service.ReportService
	exports *service.ExportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService, exports *service.ExportService) *ReportHandler {
	return &ReportHandler{reports: reports, exports: exports}
}

// Usage godoc
// @Summary Classroom usage report
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/usage [get]
func (h *ReportHandler) Usage(c *gin.Context) {
	report, err := h.reports.Usage(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Download the usage report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /reports/usage/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	report, err := h.reports.Usage(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	format := models.ReportFormat(c.DefaultQuery("format", "csv"))
	payload, err := h.exports.RenderUsage(report, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Filename))
	c.Data(http.StatusOK, payload.ContentType, payload.Body)
}
