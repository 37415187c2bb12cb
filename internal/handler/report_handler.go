package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/response"
	"github.com/stemsi/perizinan-backend/internal/service"
)

const maxRestoreBytes = 32 << 20

// ReportHandler handles admin exports, analytics, backup and restore.
type ReportHandler struct {
	reportService *service.ReportService
	backupService *service.BackupService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *service.ReportService, backupService *service.BackupService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		backupService: backupService,
	}
}

// ExportPerizinan godoc
// GET /api/v1/reports/perizinan?format=csv|xlsx|pdf
// Downloads the request list with the same filters as the dashboard list.
func (h *ReportHandler) ExportPerizinan(c *gin.Context) {
	format := service.ReportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	switch format {
	case service.FormatCSV, service.FormatXLSX, service.FormatPDF:
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"format": "format harus csv, xlsx, atau pdf",
		})
		return
	}

	filter, sortSpec, fields := parseListQuery(c)
	if fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	var buf bytes.Buffer
	if err := h.reportService.ExportRequests(c.Request.Context(), middleware.Actor(c).Role, format, filter, sortSpec, &buf); err != nil {
		failService(c, err)
		return
	}

	response.Attachment(c, "perizinan_report", string(format), format.ContentType(), buf.Bytes())
}

// ExportTeachers godoc
// GET /api/v1/reports/teachers
func (h *ReportHandler) ExportTeachers(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reportService.ExportTeachersCSV(c.Request.Context(), middleware.Actor(c).Role, &buf); err != nil {
		failService(c, err)
		return
	}

	response.Attachment(c, "teachers", "csv", service.FormatCSV.ContentType(), buf.Bytes())
}

// ExportSchedules godoc
// GET /api/v1/reports/schedules
func (h *ReportHandler) ExportSchedules(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.reportService.ExportSchedulesCSV(c.Request.Context(), middleware.Actor(c).Role, &buf); err != nil {
		failService(c, err)
		return
	}

	response.Attachment(c, "schedules", "csv", service.FormatCSV.ContentType(), buf.Bytes())
}

// Analytics godoc
// GET /api/v1/reports/analytics
// Returns request counts per departure month and per class.
func (h *ReportHandler) Analytics(c *gin.Context) {
	analytics, err := h.reportService.Analytics(c.Request.Context(), middleware.Actor(c).Role)
	if err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"analytics": analytics})
}

// Backup godoc
// GET /api/v1/backup
// Downloads every collection as a JSON document accepted by Restore.
func (h *ReportHandler) Backup(c *gin.Context) {
	backup, err := h.backupService.Backup(c.Request.Context(), middleware.Actor(c).Role)
	if err != nil {
		failService(c, err)
		return
	}

	raw, err := json.Marshal(backup)
	if err != nil {
		failService(c, err)
		return
	}
	response.Attachment(c, "backup", "json", "application/json", raw)
}

// Restore godoc
// POST /api/v1/backup/restore
// Replaces every collection with an uploaded backup, sent either as the
// multipart field "file" or as the JSON body.
func (h *ReportHandler) Restore(c *gin.Context) {
	var src io.Reader
	if file, _, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		src = file
	} else {
		src = c.Request.Body
	}

	var backup service.Backup
	if err := json.NewDecoder(io.LimitReader(src, maxRestoreBytes)).Decode(&backup); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	if err := h.backupService.Restore(c.Request.Context(), middleware.Actor(c).Role, backup); err != nil {
		failService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "data restored successfully"})
}

